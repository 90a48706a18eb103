// package queue implements the offline mutation queue: a durable,
// priority-ordered buffer of progress mutations awaiting delivery to the
// remote store.
//
// Mutations performed while disconnected (or while the remote write path is
// failing) are held here and replayed with retry once connectivity returns.
// Every queue mutation is persisted through the local adapter immediately so
// a process restart does not lose pending work.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/myatdennis/coursesync/internal/models"
	"github.com/myatdennis/coursesync/internal/shared"
	"github.com/myatdennis/coursesync/internal/store"
)

// SyncFunc delivers a single mutation to the remote store.
type SyncFunc func(ctx context.Context, m models.QueuedMutation) error

// Options configures an OfflineQueue. Zero-valued tunables fall back to the
// production defaults (3 retries, 100 entries, 2s retry delay, 1s settle
// delay, 7d retention, 5 entries/s drain pacing).
type Options struct {
	UserID  string
	Adapter store.Adapter
	Sync    SyncFunc
	Clock   shared.Clock
	Logger  *log.Logger

	MaxRetries  int
	MaxSize     int
	RetryDelay  time.Duration
	SettleDelay time.Duration
	Retention   time.Duration
	RateLimit   float64

	// OnSynced is called after a mutation is confirmed by the remote store.
	OnSynced func(m models.QueuedMutation)
	// OnFailed is called when a mutation exhausts its retries. Terminal
	// failures are surfaced, never silently dropped.
	OnFailed func(m models.QueuedMutation, err error)
	// OnEvicted is called when a full queue evicts an entry to make room.
	OnEvicted func(m models.QueuedMutation)
}

// OfflineQueue holds pending mutations, ordered by priority (high first)
// then enqueue time (oldest first) within the same priority.
type OfflineQueue struct {
	opts    Options
	logger  *log.Logger
	limiter *rate.Limiter

	mu         sync.Mutex
	entries    []models.QueuedMutation
	online     bool
	draining   bool
	retryTimer *time.Timer
	settleTimer *time.Timer
	closed     bool
}

// New creates an OfflineQueue, restoring any persisted entries that are
// still within the retention window. The queue starts in the online state;
// callers drive transitions through SetOnline.
func New(opts Options) *OfflineQueue {
	if opts.Clock == nil {
		opts.Clock = shared.SystemClock()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 100
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = time.Second
	}
	if opts.Retention <= 0 {
		opts.Retention = 7 * 24 * time.Hour
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	q := &OfflineQueue{
		opts:    opts,
		logger:  shared.WithLogger(opts.Logger, "component", "queue", "user", opts.UserID),
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		online:  true,
	}
	q.restore()
	return q
}

// restore loads persisted entries, discarding any older than the retention
// window as stale.
func (q *OfflineQueue) restore() {
	if q.opts.Adapter == nil {
		return
	}
	entries, ok := store.ReadJSON[[]models.QueuedMutation](q.opts.Adapter, store.QueueKey(q.opts.UserID))
	if !ok {
		return
	}

	cutoff := q.opts.Clock.Now().Add(-q.opts.Retention)
	kept := entries[:0]
	for _, e := range entries {
		if e.EnqueuedAt.Before(cutoff) {
			q.logger.Debug("discarding stale queued mutation", "id", e.ID, "enqueued_at", e.EnqueuedAt)
			continue
		}
		kept = append(kept, e)
	}

	q.mu.Lock()
	q.entries = kept
	q.sortLocked()
	q.mu.Unlock()
	q.persist()
}

// Enqueue adds a mutation to the queue. A mutation with the same
// (user, course, lesson, action) tuple as an existing entry replaces it:
// latest payload wins and the attempt count resets. When the queue is at
// capacity the lowest-priority oldest entry is evicted to make room and the
// eviction is signalled through OnEvicted.
func (q *OfflineQueue) Enqueue(m models.QueuedMutation) error {
	if err := m.Validate(); err != nil {
		return err
	}

	var evicted *models.QueuedMutation

	q.mu.Lock()
	m.EnqueuedAt = q.opts.Clock.Now()
	m.Attempts = 0

	key := m.DedupKey()
	replaced := false
	for i, e := range q.entries {
		if e.DedupKey() == key {
			q.entries[i] = m
			replaced = true
			break
		}
	}

	if !replaced {
		if len(q.entries) >= q.opts.MaxSize {
			if victim := q.evictLocked(); victim != nil {
				evicted = victim
			}
		}
		q.entries = append(q.entries, m)
	}
	q.sortLocked()
	q.mu.Unlock()

	q.persist()

	if evicted != nil {
		q.logger.Warn("queue full, evicted entry", "evicted_id", evicted.ID, "priority", evicted.Priority)
		if q.opts.OnEvicted != nil {
			q.opts.OnEvicted(*evicted)
		}
	}
	return nil
}

// evictLocked removes and returns the lowest-priority oldest entry.
// Caller holds q.mu.
func (q *OfflineQueue) evictLocked() *models.QueuedMutation {
	if len(q.entries) == 0 {
		return nil
	}
	victim := 0
	for i, e := range q.entries {
		v := q.entries[victim]
		if e.Priority < v.Priority || (e.Priority == v.Priority && e.EnqueuedAt.Before(v.EnqueuedAt)) {
			victim = i
		}
	}
	m := q.entries[victim]
	q.entries = append(q.entries[:victim], q.entries[victim+1:]...)
	return &m
}

// sortLocked orders entries by priority (high first) then enqueue time
// (oldest first). Caller holds q.mu.
func (q *OfflineQueue) sortLocked() {
	entries := q.entries
	// Insertion sort: the queue is small (bounded) and mostly ordered.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0; j-- {
			a, b := entries[j-1], entries[j]
			if b.Priority > a.Priority || (b.Priority == a.Priority && b.EnqueuedAt.Before(a.EnqueuedAt)) {
				entries[j-1], entries[j] = b, a
			} else {
				break
			}
		}
	}
}

// SetOnline records a connectivity transition. Going online arms a drain
// after the settle delay; going offline suspends draining while continuing
// to accept enqueues.
func (q *OfflineQueue) SetOnline(online bool) {
	q.mu.Lock()
	wasOnline := q.online
	q.online = online
	if q.settleTimer != nil {
		q.settleTimer.Stop()
		q.settleTimer = nil
	}
	if online && !wasOnline && !q.closed {
		q.settleTimer = time.AfterFunc(q.opts.SettleDelay, func() {
			if err := q.Drain(context.Background()); err != nil {
				q.logger.Warn("post-reconnect drain failed", "err", err)
			}
		})
	}
	q.mu.Unlock()
}

// Online reports the last recorded connectivity state.
func (q *OfflineQueue) Online() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.online
}

// Size reports the number of pending entries.
func (q *OfflineQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Snapshot returns a copy of the pending entries in drain order.
func (q *OfflineQueue) Snapshot() []models.QueuedMutation {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.QueuedMutation, len(q.entries))
	copy(out, q.entries)
	return out
}

// Drain delivers pending entries to the remote store. Runs only while
// online; re-entrant calls while a drain is in progress are no-ops. One
// failing entry does not abort the drain of subsequent entries. If any
// entry fails transiently, a single retry timer is armed (replacing any
// pending one) to drain again after the retry delay.
func (q *OfflineQueue) Drain(ctx context.Context) error {
	q.mu.Lock()
	if !q.online || q.draining || q.closed {
		q.mu.Unlock()
		return nil
	}
	q.draining = true
	snapshot := make([]models.QueuedMutation, len(q.entries))
	copy(snapshot, q.entries)
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	transientFailures := 0

	for _, entry := range snapshot {
		// Pacing between entries avoids bursting the remote endpoint.
		if err := q.limiter.Wait(ctx); err != nil {
			return err
		}

		q.mu.Lock()
		online := q.online
		q.mu.Unlock()
		if !online {
			break
		}

		err := q.opts.Sync(ctx, entry)
		if err == nil {
			q.remove(entry.ID)
			if q.opts.OnSynced != nil {
				q.opts.OnSynced(entry)
			}
			continue
		}

		q.logger.Warn("mutation sync failed", "id", entry.ID, "attempt", entry.Attempts+1, "err", err)

		if entry.Attempts+1 < q.opts.MaxRetries {
			q.bumpAttempts(entry.ID)
			transientFailures++
			continue
		}

		// Retries exhausted: remove from the active queue and surface as a
		// terminal failure.
		failed := entry
		failed.Attempts = entry.Attempts + 1
		q.remove(entry.ID)
		if q.opts.OnFailed != nil {
			q.opts.OnFailed(failed, fmt.Errorf("%w: %v", shared.ErrRetriesExceeded, err))
		}
	}

	if transientFailures > 0 {
		q.armRetryTimer()
	}
	return nil
}

// remove deletes an entry by ID and persists the queue.
func (q *OfflineQueue) remove(id string) {
	q.mu.Lock()
	for i, e := range q.entries {
		if e.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	q.mu.Unlock()
	q.persist()
}

// bumpAttempts increments an entry's attempt count and persists the queue.
func (q *OfflineQueue) bumpAttempts(id string) {
	q.mu.Lock()
	for i := range q.entries {
		if q.entries[i].ID == id {
			q.entries[i].Attempts++
			break
		}
	}
	q.mu.Unlock()
	q.persist()
}

// armRetryTimer schedules a follow-up drain, replacing (not stacking) any
// previously armed timer.
func (q *OfflineQueue) armRetryTimer() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	if q.retryTimer != nil {
		q.retryTimer.Stop()
	}
	q.retryTimer = time.AfterFunc(q.opts.RetryDelay, func() {
		if err := q.Drain(context.Background()); err != nil {
			q.logger.Warn("scheduled retry drain failed", "err", err)
		}
	})
}

// persist serializes the queue through the local adapter. A failed write
// degrades durability but never blocks the caller.
func (q *OfflineQueue) persist() {
	if q.opts.Adapter == nil {
		return
	}
	q.mu.Lock()
	entries := make([]models.QueuedMutation, len(q.entries))
	copy(entries, q.entries)
	q.mu.Unlock()

	if !store.WriteJSON(q.opts.Adapter, store.QueueKey(q.opts.UserID), entries) {
		q.logger.Warn("queue persistence degraded, in-memory copy is authoritative")
	}
}

// Close stops the queue's timers. Pending entries stay persisted for the
// next session.
func (q *OfflineQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	if q.retryTimer != nil {
		q.retryTimer.Stop()
		q.retryTimer = nil
	}
	if q.settleTimer != nil {
		q.settleTimer.Stop()
		q.settleTimer = nil
	}
}
