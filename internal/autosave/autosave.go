// package autosave implements the periodic save scheduler.
//
// Frequent small progress edits (time-spent ticks, percentage bumps) are
// coalesced per lesson and flushed in batches on a fixed interval, so a busy
// learner produces one remote write per lesson per interval instead of one
// per edit. Pending edits survive a failed flush and are retried on the next
// tick.
package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/myatdennis/coursesync/internal/models"
	"github.com/myatdennis/coursesync/internal/shared"
)

// SaveFunc persists the coalesced edits for a single lesson. It is called
// outside the scheduler's lock and may block on network I/O.
type SaveFunc func(ctx context.Context, lessonID string, fields models.ProgressFields) error

// Options configures a Scheduler.
type Options struct {
	Interval time.Duration
	Save     SaveFunc
	Clock    shared.Clock
	Logger   *log.Logger

	// OnSaving is notified when a flush starts (true) and finishes (false),
	// so status surfaces can show a saving indicator.
	OnSaving func(saving bool)
}

// Scheduler batches per-lesson progress edits and flushes them periodically.
type Scheduler struct {
	opts   Options
	logger *log.Logger

	mu        sync.Mutex
	pending   map[string]models.ProgressFields
	lastSaved *time.Time
	closed    bool

	stop chan struct{}
	done chan struct{}
}

// New creates and starts a Scheduler flushing every opts.Interval
// (default 30s).
func New(opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = shared.SystemClock()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	s := &Scheduler{
		opts:    opts,
		logger:  shared.WithLogger(opts.Logger, "component", "autosave"),
		pending: make(map[string]models.ProgressFields),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Scheduler) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flush(context.Background())
		case <-s.stop:
			return
		}
	}
}

// Schedule records a partial edit for a lesson. Successive edits to the same
// lesson before the next flush merge field-by-field, latest writer wins.
func (s *Scheduler) Schedule(lessonID string, fields models.ProgressFields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending[lessonID] = s.pending[lessonID].Merge(fields)
}

// ForceSave flushes all pending edits immediately, ahead of the next tick.
// Returns true when every pending lesson saved cleanly.
func (s *Scheduler) ForceSave(ctx context.Context) bool {
	return s.flush(ctx)
}

// flush drains the pending map and saves each lesson. Edits whose save fails
// are restored for the next attempt, unless a newer edit arrived for the
// same lesson during the flush.
func (s *Scheduler) flush(ctx context.Context) bool {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return true
	}
	batch := s.pending
	s.pending = make(map[string]models.ProgressFields)
	s.mu.Unlock()

	if s.opts.OnSaving != nil {
		s.opts.OnSaving(true)
	}
	defer func() {
		if s.opts.OnSaving != nil {
			s.opts.OnSaving(false)
		}
	}()

	clean := true
	for lessonID, fields := range batch {
		if err := s.opts.Save(ctx, lessonID, fields); err != nil {
			clean = false
			s.logger.Warn("auto-save failed, retaining edits", "lesson", lessonID, "err", err)
			s.restore(lessonID, fields)
		}
	}

	if clean {
		now := s.opts.Clock.Now()
		s.mu.Lock()
		s.lastSaved = &now
		s.mu.Unlock()
	}
	return clean
}

// restore re-queues failed edits without clobbering anything scheduled since
// the flush started: the newer edit wins field-by-field.
func (s *Scheduler) restore(lessonID string, fields models.ProgressFields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending[lessonID] = fields.Merge(s.pending[lessonID])
}

// PendingCount reports how many lessons have unsaved edits.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// LastSaved reports the completion time of the last fully clean flush, or
// nil when nothing has saved yet.
func (s *Scheduler) LastSaved() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSaved == nil {
		return nil
	}
	t := *s.lastSaved
	return &t
}

// Close stops the ticker. Call ForceSave first to avoid abandoning pending
// edits for the session.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.stop)
	<-s.done
}
