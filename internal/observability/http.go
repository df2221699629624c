package observability

import (
	"net"
	"net/http"
	"strings"
)

// ClientMeta carries the client identifiers captured from the handshake
// request and stamped onto connection audit records.
type ClientMeta struct {
	DeviceID  string
	RequestID string
	IP        string
}

// MetaFromRequest extracts the client identifiers from an upgrade request.
func MetaFromRequest(r *http.Request) ClientMeta {
	return ClientMeta{
		DeviceID:  r.Header.Get("X-Device-Id"),
		RequestID: r.Header.Get("X-Request-Id"),
		IP:        clientIP(r),
	}
}

// clientIP prefers the first X-Forwarded-For hop and falls back to the
// socket peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
