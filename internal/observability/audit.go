package observability

import (
	"context"
	"sync"
)

// ConnectionAudit is the record emitted to the message bus on every
// websocket connect and disconnect. DurationMS and Reason are only set
// on disconnect.
type ConnectionAudit struct {
	Namespace  string `json:"namespace"`
	Event      string `json:"event"`
	ConnID     string `json:"conn_id"`
	UserID     string `json:"user_id"`
	DeviceID   string `json:"device_id,omitempty"`
	IP         string `json:"ip,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// AuditSink forwards connection audit records to the message bus.
type AuditSink interface {
	Publish(ctx context.Context, routingKey string, audit ConnectionAudit, headers map[string]interface{}) error
	Close() error
}

var (
	auditMu   sync.RWMutex
	auditSink AuditSink
)

// SetAuditSink installs the process-wide audit sink. With no sink set,
// PublishAudit is a no-op so the gateway works without a broker.
func SetAuditSink(s AuditSink) {
	auditMu.Lock()
	auditSink = s
	auditMu.Unlock()
}

// PublishAudit ships an audit record to the sink. The routing key is
// derived from the record's namespace so consumers can bind per namespace.
func PublishAudit(ctx context.Context, audit ConnectionAudit, headers map[string]interface{}) error {
	auditMu.RLock()
	s := auditSink
	auditMu.RUnlock()
	if s == nil {
		return nil
	}

	err := s.Publish(ctx, "ws_events."+audit.Namespace, audit, headers)
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}

// TraceHeaders builds the message headers carrying request correlation ids.
func TraceHeaders(requestID, traceID string) map[string]interface{} {
	headers := map[string]interface{}{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
