package client

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one live transport session.
type Conn interface {
	WriteMessage(payload []byte) error
	ReadMessage() ([]byte, error)
	Close() error
}

// Transport dials the server. Pluggable so the reconnect machine can be
// exercised without sockets.
type Transport interface {
	Dial(ctx context.Context, url, token string) (Conn, error)
}

// WebsocketTransport dials with gorilla/websocket, passing the bearer
// credential in the Authorization header.
type WebsocketTransport struct {
	dialer *websocket.Dialer
}

// NewWebsocketTransport builds a WebsocketTransport with a bounded
// handshake timeout.
func NewWebsocketTransport() *WebsocketTransport {
	return &WebsocketTransport{
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

func (t *WebsocketTransport) Dial(ctx context.Context, url, token string) (Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	sock, _, err := t.dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return &websocketConn{sock: sock}, nil
}

type websocketConn struct {
	sock *websocket.Conn
}

func (c *websocketConn) WriteMessage(payload []byte) error {
	return c.sock.WriteMessage(websocket.TextMessage, payload)
}

func (c *websocketConn) ReadMessage() ([]byte, error) {
	_, payload, err := c.sock.ReadMessage()
	return payload, err
}

func (c *websocketConn) Close() error {
	return c.sock.Close()
}
