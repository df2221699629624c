package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"realtime-service/internal/auth"
	"realtime-service/internal/chat"
	"realtime-service/internal/models"
	"realtime-service/internal/notify"
	"realtime-service/internal/observability"
	"realtime-service/internal/presence"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Gateway accepts inbound realtime connections, resolves the bearer
// credential to a user identity and routes namespace events to the chat
// manager, the notification dispatcher and the live-updates subscriptions.
type Gateway struct {
	registry *Registry
	verifier auth.Verifier
	chat     *chat.Manager
	notify   *notify.Dispatcher
	presence *presence.Tracker
}

// NewGateway constructs a Gateway.
func NewGateway(registry *Registry, verifier auth.Verifier, chatMgr *chat.Manager, dispatcher *notify.Dispatcher, tracker *presence.Tracker) *Gateway {
	return &Gateway{
		registry: registry,
		verifier: verifier,
		chat:     chatMgr,
		notify:   dispatcher,
		presence: tracker,
	}
}

// Registry exposes the connection registry to collaborating components.
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// Handle upgrades the connection after verifying the bearer credential.
// Verification failure closes the transport with an explicit reason before
// any namespace handler runs.
func (g *Gateway) Handle(c *gin.Context) {
	namespace := c.Param("namespace")
	if !models.ValidNamespace(namespace) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown namespace"})
		return
	}

	ctx, span := otel.Tracer("realtime-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
	}
	claims, err := g.verifier.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	conn := &Conn{
		ID:            uuid.NewString(),
		UserID:        claims.Subject,
		UserName:      claims.Name,
		Namespace:     namespace,
		sock:          sock,
		send:          make(chan []byte, sendBuffer),
		done:          make(chan struct{}),
		subscriptions: make(map[string]bool),
		Meta:          observability.MetaFromRequest(c.Request),
		TraceID:       span.SpanContext().TraceID().String(),
		ConnectedAt:   time.Now(),
	}

	g.registry.Add(conn)
	g.presence.OnConnect(ctx)
	observability.IncWSActive(namespace)
	observability.IncWSEvent(namespace, "ws_connect")
	g.publishAudit(ctx, conn, "ws_connect", "")

	conn.Send(models.Event{
		Type: models.EvConnected,
		Data: map[string]interface{}{"userId": conn.UserID, "onlineCount": g.registry.Count()},
	})

	go conn.writePump()
	go g.readPump(conn)
}

// readPump reads inbound frames until the connection dies, then runs the
// standard disconnect cleanup path.
func (g *Gateway) readPump(conn *Conn) {
	var closeReason string
	defer func() {
		g.disconnect(conn, closeReason)
	}()

	conn.sock.SetReadLimit(maxMessageSize)
	conn.sock.SetReadDeadline(time.Now().Add(pongWait))
	conn.sock.SetPongHandler(func(string) error {
		conn.sock.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := conn.sock.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent(conn.Namespace, "ws_error")
			}
			return
		}

		var event inboundEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			conn.SendError("invalid event frame")
			continue
		}
		observability.IncWSEvent(conn.Namespace, event.Type)
		g.route(context.Background(), conn, event)
	}
}

// inboundEvent defers payload decoding to the per-namespace handlers.
type inboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (g *Gateway) route(ctx context.Context, conn *Conn, event inboundEvent) {
	switch conn.Namespace {
	case models.NamespaceChat:
		g.handleChatEvent(ctx, conn, event)
	case models.NamespaceNotifications:
		g.handleNotifyEvent(ctx, conn, event)
	case models.NamespaceLive:
		g.handleLiveEvent(ctx, conn, event)
	}
}

func (g *Gateway) disconnect(conn *Conn, reason string) {
	conn.shutdown()
	conn.sock.Close()
	g.registry.Remove(conn)
	g.presence.OnDisconnect(context.Background())
	observability.DecWSActive(conn.Namespace)
	observability.IncWSEvent(conn.Namespace, "ws_disconnect")
	g.publishAudit(context.Background(), conn, "ws_disconnect", reason)
	log.Printf("ws: disconnected conn=%s user=%s namespace=%s reason=%q", conn.ID, conn.UserID, conn.Namespace, reason)
}

func (g *Gateway) publishAudit(ctx context.Context, conn *Conn, event, reason string) {
	audit := observability.ConnectionAudit{
		Namespace: conn.Namespace,
		Event:     event,
		ConnID:    conn.ID,
		UserID:    conn.UserID,
		DeviceID:  conn.Meta.DeviceID,
		IP:        conn.Meta.IP,
	}
	if event == "ws_disconnect" {
		audit.DurationMS = time.Since(conn.ConnectedAt).Milliseconds()
		audit.Reason = reason
	}
	_ = observability.PublishAudit(ctx, audit, observability.TraceHeaders(conn.Meta.RequestID, conn.TraceID))
}
