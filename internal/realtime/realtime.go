// package realtime implements the push event channel: a websocket
// subscription delivering course and progress change notifications from
// other sessions and devices.
//
// The channel only routes events; conflict resolution against local state is
// the progress tracker's job. Reconnection is deliberately caller-driven: a
// dropped connection surfaces through the error callback and stays down
// until Reconnect is called.
package realtime

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/myatdennis/coursesync/internal/models"
	"github.com/myatdennis/coursesync/internal/shared"
)

// Conn is a single established event connection. Implementations must allow
// one concurrent reader and serialize their own writes.
type Conn interface {
	// ReadEvent blocks until the next event arrives or the connection fails.
	ReadEvent() (models.RealtimeEvent, error)
	// WriteEvent pushes an event to the peer.
	WriteEvent(ev models.RealtimeEvent) error
	Close() error
}

// Dialer establishes a Conn. The channel calls it on Connect and again on
// every Reconnect.
type Dialer func(ctx context.Context) (Conn, error)

// Handler receives dispatched events for a subscribed type. Declared as an
// alias so consumers can depend on a plain func-typed Subscribe through
// their own narrow interfaces.
type Handler = func(ev models.RealtimeEvent)

// Options configures a Channel.
type Options struct {
	UserID string
	Dial   Dialer
	Logger *log.Logger

	// OnError is notified when the read loop terminates on a connection
	// failure. The channel stays disconnected until Reconnect.
	OnError func(err error)
}

// Channel subscribes to pushed events and dispatches them to typed handlers.
type Channel struct {
	opts   Options
	logger *log.Logger

	mu        sync.Mutex
	handlers  map[models.EventType][]Handler
	conn      Conn
	connected bool
	closed    bool
	readDone  chan struct{}
}

// echoSuppressed lists the event types where a client ignores its own
// broadcasts. progress_sync is exempt: the same user's other devices are
// exactly the sessions that must reconcile, and the timestamp comparison
// filters true self-echo anyway.
var echoSuppressed = map[models.EventType]bool{
	models.EventCourseUpdated:     true,
	models.EventEnrollmentChanged: true,
	models.EventUserStatusChanged: true,
}

// New creates a Channel. Call Connect to establish the subscription.
func New(opts Options) *Channel {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Channel{
		opts:     opts,
		logger:   shared.WithLogger(opts.Logger, "component", "realtime", "user", opts.UserID),
		handlers: make(map[models.EventType][]Handler),
	}
}

// Subscribe registers a handler for an event type. Handlers run on the read
// loop goroutine and must not block.
func (c *Channel) Subscribe(t models.EventType, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[t] = append(c.handlers[t], h)
}

// Connect dials the event endpoint and starts dispatching incoming events.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return shared.ErrChannelClosed
	}
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	conn, err := c.opts.Dial(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.readDone = make(chan struct{})
	done := c.readDone
	c.mu.Unlock()

	go c.readLoop(conn, done)
	c.logger.Debug("event channel connected")
	return nil
}

func (c *Channel) readLoop(conn Conn, done chan struct{}) {
	defer close(done)
	for {
		ev, err := conn.ReadEvent()
		if err != nil {
			c.mu.Lock()
			stillCurrent := c.conn == conn
			closed := c.closed
			if stillCurrent {
				c.connected = false
			}
			c.mu.Unlock()

			if stillCurrent && !closed {
				c.logger.Warn("event channel disconnected", "err", err)
				if c.opts.OnError != nil {
					c.opts.OnError(err)
				}
			}
			return
		}
		c.dispatch(ev)
	}
}

// dispatch routes an event to its type's handlers, dropping self-echoes for
// the suppressed types.
func (c *Channel) dispatch(ev models.RealtimeEvent) {
	if echoSuppressed[ev.Type] && ev.UserID == c.opts.UserID {
		return
	}

	c.mu.Lock()
	handlers := make([]Handler, len(c.handlers[ev.Type]))
	copy(handlers, c.handlers[ev.Type])
	c.mu.Unlock()

	if len(handlers) == 0 {
		c.logger.Debug("unhandled event", "type", ev.Type)
		return
	}
	for _, h := range handlers {
		h(ev)
	}
}

// Broadcast pushes an event to the peer so other sessions can reconcile.
// Returns shared.ErrChannelClosed when no connection is established.
func (c *Channel) Broadcast(ev models.RealtimeEvent) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected || conn == nil {
		return shared.ErrChannelClosed
	}
	return conn.WriteEvent(ev)
}

// Connected reports whether the subscription is currently established.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Reconnect tears down any current connection and dials again. Exposed for
// callers reacting to OnError or to connectivity transitions; the channel
// never retries on its own.
func (c *Channel) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return shared.ErrChannelClosed
	}
	conn := c.conn
	done := c.readDone
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if done != nil {
		<-done
	}
	return c.Connect(ctx)
}

// Close shuts the channel down permanently.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

type wsConn struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

func (w *wsConn) ReadEvent() (models.RealtimeEvent, error) {
	var ev models.RealtimeEvent
	err := w.conn.ReadJSON(&ev)
	return ev, err
}

func (w *wsConn) WriteEvent(ev models.RealtimeEvent) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteJSON(ev)
}

func (w *wsConn) Close() error {
	w.writeMu.Lock()
	w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	w.writeMu.Unlock()
	return w.conn.Close()
}

// WebsocketDialer returns a Dialer that connects to the sync server's
// websocket endpoint, identifying the session by user id.
func WebsocketDialer(rawURL, userID string) Dialer {
	return func(ctx context.Context) (Conn, error) {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid realtime url: %w", err)
		}
		q := u.Query()
		q.Set("user_id", userID)
		u.RawQuery = q.Encode()

		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrRemoteUnavailable, err)
		}
		return &wsConn{conn: conn}, nil
	}
}
