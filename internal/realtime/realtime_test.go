package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/myatdennis/coursesync/internal/models"
	"github.com/myatdennis/coursesync/internal/shared"
)

// fakeConn feeds scripted events to the channel and records writes.
type fakeConn struct {
	incoming chan models.RealtimeEvent

	mu     sync.Mutex
	writes []models.RealtimeEvent
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan models.RealtimeEvent, 16)}
}

func (f *fakeConn) ReadEvent() (models.RealtimeEvent, error) {
	ev, ok := <-f.incoming
	if !ok {
		return models.RealtimeEvent{}, errors.New("connection lost")
	}
	return ev, nil
}

func (f *fakeConn) WriteEvent(ev models.RealtimeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("write on closed connection")
	}
	f.writes = append(f.writes, ev)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.incoming)
	}
	return nil
}

func (f *fakeConn) written() []models.RealtimeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.RealtimeEvent, len(f.writes))
	copy(out, f.writes)
	return out
}

func event(t models.EventType, userID string) models.RealtimeEvent {
	return models.RealtimeEvent{
		Type:      t,
		UserID:    userID,
		Payload:   json.RawMessage(`{}`),
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func connectedChannel(t *testing.T, conn *fakeConn, opts Options) *Channel {
	t.Helper()
	if opts.UserID == "" {
		opts.UserID = "user-1"
	}
	opts.Dial = func(ctx context.Context) (Conn, error) { return conn, nil }
	c := New(opts)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestChannel_DispatchesByType(t *testing.T) {
	conn := newFakeConn()
	c := connectedChannel(t, conn, Options{})

	progress := make(chan models.RealtimeEvent, 1)
	enrollment := make(chan models.RealtimeEvent, 1)
	c.Subscribe(models.EventProgressSync, func(ev models.RealtimeEvent) { progress <- ev })
	c.Subscribe(models.EventEnrollmentChanged, func(ev models.RealtimeEvent) { enrollment <- ev })

	conn.incoming <- event(models.EventProgressSync, "user-2")
	conn.incoming <- event(models.EventEnrollmentChanged, "user-2")

	select {
	case ev := <-progress:
		if ev.Type != models.EventProgressSync {
			t.Errorf("wrong event delivered: %s", ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("progress handler not invoked")
	}
	select {
	case <-enrollment:
	case <-time.After(2 * time.Second):
		t.Fatal("enrollment handler not invoked")
	}
}

func TestChannel_SuppressesSelfEcho(t *testing.T) {
	conn := newFakeConn()
	c := connectedChannel(t, conn, Options{UserID: "user-1"})

	var mu sync.Mutex
	var got []models.RealtimeEvent
	record := func(ev models.RealtimeEvent) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	}
	c.Subscribe(models.EventCourseUpdated, record)
	c.Subscribe(models.EventProgressSync, record)

	// Own course_updated broadcast must be dropped; own progress_sync must
	// not, since it may come from the same user's other device.
	conn.incoming <- event(models.EventCourseUpdated, "user-1")
	conn.incoming <- event(models.EventProgressSync, "user-1")
	conn.incoming <- event(models.EventCourseUpdated, "user-2")

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("expected 2 delivered events")
		case <-time.After(5 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("expected exactly 2 events, got %d", len(got))
	}
	if got[0].Type != models.EventProgressSync || got[0].UserID != "user-1" {
		t.Errorf("expected own progress_sync delivered, got %+v", got[0])
	}
	if got[1].Type != models.EventCourseUpdated || got[1].UserID != "user-2" {
		t.Errorf("expected other user's course_updated delivered, got %+v", got[1])
	}
}

func TestChannel_BroadcastWritesToConn(t *testing.T) {
	conn := newFakeConn()
	c := connectedChannel(t, conn, Options{})

	ev := event(models.EventProgressSync, "user-1")
	if err := c.Broadcast(ev); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}

	writes := conn.written()
	if len(writes) != 1 || writes[0].Type != models.EventProgressSync {
		t.Errorf("unexpected writes: %+v", writes)
	}
}

func TestChannel_BroadcastWhileDisconnected(t *testing.T) {
	c := New(Options{
		UserID: "user-1",
		Dial:   func(ctx context.Context) (Conn, error) { return newFakeConn(), nil },
	})

	err := c.Broadcast(event(models.EventProgressSync, "user-1"))
	if !errors.Is(err, shared.ErrChannelClosed) {
		t.Errorf("expected ErrChannelClosed before connect, got %v", err)
	}
}

func TestChannel_ConnectionFailureSurfacesError(t *testing.T) {
	conn := newFakeConn()
	errs := make(chan error, 1)
	c := connectedChannel(t, conn, Options{
		OnError: func(err error) { errs <- err },
	})

	conn.Close()

	select {
	case err := <-errs:
		if err == nil {
			t.Error("expected non-nil connection error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected error callback on connection loss")
	}
	if c.Connected() {
		t.Error("expected channel to report disconnected")
	}
}

func TestChannel_ReconnectDialsFresh(t *testing.T) {
	first := newFakeConn()
	second := newFakeConn()
	conns := []*fakeConn{first, second}
	dials := 0

	c := New(Options{
		UserID: "user-1",
		Dial: func(ctx context.Context) (Conn, error) {
			conn := conns[dials]
			dials++
			return conn, nil
		},
	})
	defer c.Close()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	first.Close()

	if err := c.Reconnect(context.Background()); err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}
	if dials != 2 {
		t.Errorf("expected 2 dials, got %d", dials)
	}
	if !c.Connected() {
		t.Error("expected channel connected after reconnect")
	}

	// The fresh connection carries events.
	got := make(chan models.RealtimeEvent, 1)
	c.Subscribe(models.EventCourseUpdated, func(ev models.RealtimeEvent) { got <- ev })
	second.incoming <- event(models.EventCourseUpdated, "user-2")

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("expected event from reconnected conn")
	}
}

func TestChannel_CloseIsTerminal(t *testing.T) {
	conn := newFakeConn()
	c := connectedChannel(t, conn, Options{})

	if err := c.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := c.Connect(context.Background()); !errors.Is(err, shared.ErrChannelClosed) {
		t.Errorf("expected ErrChannelClosed after Close, got %v", err)
	}
	if err := c.Reconnect(context.Background()); !errors.Is(err, shared.ErrChannelClosed) {
		t.Errorf("expected ErrChannelClosed on reconnect after Close, got %v", err)
	}
}
