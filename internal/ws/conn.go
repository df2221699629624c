package ws

import (
	"log"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"realtime-service/internal/models"
	"realtime-service/internal/observability"
)

const (
	// Time allowed to write a message
	writeWait = 10 * time.Second

	// Time allowed to read the next pong; doubles as the idle timeout
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Max inbound message size
	maxMessageSize = 64 * 1024

	sendBuffer = 256
)

// Conn is one live transport session. The user id is resolved at handshake
// and never changes for the connection's lifetime.
type Conn struct {
	ID        string
	UserID    string
	UserName  string
	Namespace string

	sock *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	// subscriptions is guarded by the registry's lock.
	subscriptions map[string]bool

	Meta        observability.ClientMeta
	TraceID     string
	ConnectedAt time.Time
}

// Send marshals the event and queues it for delivery on this connection.
func (c *Conn) Send(event models.Event) bool {
	payload, err := encodeEvent(event)
	if err != nil {
		log.Printf("ws: encode event %s: %v", event.Type, err)
		return false
	}
	return c.enqueue(payload)
}

// SendError reports a per-connection failure to this connection only.
func (c *Conn) SendError(message string) {
	c.Send(models.Event{Type: models.EvError, Data: map[string]string{"message": message}})
}

// enqueue hands a payload to the write pump without blocking. A connection
// whose buffer is full is considered dead and shut down.
func (c *Conn) enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	case <-c.done:
		return false
	default:
		log.Printf("ws: send buffer full, closing conn=%s user=%s", c.ID, c.UserID)
		c.shutdown()
		return false
	}
}

func (c *Conn) shutdown() {
	c.once.Do(func() { close(c.done) })
}

// writePump pumps queued payloads to the socket and keeps it alive with
// pings. It owns all writes to the socket.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.sock.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			c.sock.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}

func encodeEvent(event models.Event) ([]byte, error) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	return json.Marshal(event)
}
