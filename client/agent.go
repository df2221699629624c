// Package client provides a reconnecting consumer for one realtime
// namespace. It keeps a single logical connection alive across transport
// failures, queues outbound events while disconnected and hands inbound
// events to the application over a channel.
package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"realtime-service/wire"
)

// State is the agent's connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrClosed is returned by Send after Close or terminal failure.
var ErrClosed = errors.New("client: agent closed")

// NoticeKind discriminates values on the Notices channel.
type NoticeKind int

const (
	NoticeEvent NoticeKind = iota
	NoticeConnected
	NoticeDisconnected
	NoticeFailed
)

// Notice is one item delivered to the application: either a decoded server
// event or a connection lifecycle change. Err is set only for NoticeFailed.
type Notice struct {
	Kind  NoticeKind
	Event wire.Event
	Err   error
}

// Options configures an Agent. Zero values fall back to defaults.
type Options struct {
	// URL is the base websocket endpoint, e.g. ws://localhost:8080.
	URL       string
	Namespace string
	Token     string

	BackoffBase time.Duration
	BackoffMax  time.Duration
	MaxAttempts int
	EventBuffer int

	Transport Transport
}

const (
	defaultBackoffBase = 500 * time.Millisecond
	defaultBackoffMax  = 30 * time.Second
	defaultMaxAttempts = 8
	defaultEventBuffer = 64
)

// Agent maintains one logical connection to a namespace. Reconnection uses
// exponential backoff up to a bounded attempt count; exhausting the budget
// surfaces a terminal NoticeFailed and the agent stops.
type Agent struct {
	opts Options

	mu    sync.Mutex
	state State
	conn  Conn
	queue [][]byte

	notices chan Notice
	cancel  context.CancelFunc
	done    chan struct{}
}

// New builds an Agent for one namespace. Start must be called before Send.
func New(opts Options) *Agent {
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = defaultBackoffMax
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	if opts.Transport == nil {
		opts.Transport = NewWebsocketTransport()
	}
	return &Agent{
		opts:    opts,
		state:   StateDisconnected,
		notices: make(chan Notice, opts.EventBuffer),
		done:    make(chan struct{}),
	}
}

// Notices returns the channel carrying decoded events and lifecycle changes.
// It is closed when the agent stops.
func (a *Agent) Notices() <-chan Notice {
	return a.notices
}

// State reports the current connection state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Queued reports how many outbound events are waiting for reconnection.
func (a *Agent) Queued() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

// Start launches the connect/read loop. It returns immediately.
func (a *Agent) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	go a.run(ctx)
}

// Close stops the agent, cancelling any in-flight backoff wait, and closes
// the Notices channel once the loop exits.
func (a *Agent) Close() {
	if a.cancel == nil {
		return
	}
	a.cancel()
	<-a.done
}

// Send transmits an event, or queues it in order while disconnected. Queued
// events are flushed FIFO on the next successful connect, before any newer
// send goes out.
func (a *Agent) Send(event wire.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case StateFailed:
		return ErrClosed
	case StateConnected:
		if err := a.conn.WriteMessage(payload); err != nil {
			// The read loop notices the broken socket; keep the event.
			a.queue = append(a.queue, payload)
			return nil
		}
		return nil
	default:
		a.queue = append(a.queue, payload)
		return nil
	}
}

func (a *Agent) run(ctx context.Context) {
	defer close(a.done)
	defer close(a.notices)

	attempts := 0
	delay := a.opts.BackoffBase

	for {
		a.setState(StateConnecting)
		conn, err := a.opts.Transport.Dial(ctx, a.dialURL(), a.opts.Token)
		if err != nil {
			attempts++
			if attempts >= a.opts.MaxAttempts {
				a.setState(StateFailed)
				a.emit(ctx, Notice{Kind: NoticeFailed, Err: fmt.Errorf("client: gave up after %d attempts: %w", attempts, err)})
				return
			}
			log.Printf("client[%s]: dial failed (attempt %d): %v", a.opts.Namespace, attempts, err)
			if !a.sleep(ctx, delay) {
				a.setState(StateDisconnected)
				return
			}
			delay *= 2
			if delay > a.opts.BackoffMax {
				delay = a.opts.BackoffMax
			}
			continue
		}

		attempts = 0
		delay = a.opts.BackoffBase
		a.attach(conn)
		a.emit(ctx, Notice{Kind: NoticeConnected})

		// unblock the read when the agent is closed
		stopWatch := context.AfterFunc(ctx, func() { conn.Close() })
		err = a.readLoop(ctx, conn)
		stopWatch()
		a.detach(conn)
		if ctx.Err() != nil {
			return
		}
		log.Printf("client[%s]: connection lost: %v", a.opts.Namespace, err)
		a.emit(ctx, Notice{Kind: NoticeDisconnected})
	}
}

// attach marks the agent connected and flushes the outbound queue in order.
// Holding the lock across the flush keeps concurrent Sends behind it.
func (a *Agent) attach(conn Conn) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.conn = conn
	a.state = StateConnected

	for len(a.queue) > 0 {
		payload := a.queue[0]
		if err := conn.WriteMessage(payload); err != nil {
			log.Printf("client[%s]: flush interrupted: %v", a.opts.Namespace, err)
			return
		}
		a.queue = a.queue[1:]
	}
	a.queue = nil
}

func (a *Agent) detach(conn Conn) {
	conn.Close()
	a.mu.Lock()
	a.conn = nil
	a.state = StateDisconnected
	a.mu.Unlock()
}

func (a *Agent) readLoop(ctx context.Context, conn Conn) error {
	for {
		payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var event wire.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Printf("client[%s]: dropping undecodable frame: %v", a.opts.Namespace, err)
			continue
		}
		a.emit(ctx, Notice{Kind: NoticeEvent, Event: event})
	}
}

func (a *Agent) emit(ctx context.Context, n Notice) {
	select {
	case a.notices <- n:
	case <-ctx.Done():
	}
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *Agent) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (a *Agent) dialURL() string {
	return fmt.Sprintf("%s/ws/%s", a.opts.URL, a.opts.Namespace)
}
