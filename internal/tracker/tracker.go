// package tracker implements the progress aggregator: the per-session
// orchestrator composing the local store, the auto-save scheduler, the
// offline queue and the realtime channel into one course progress state
// machine.
//
// The tracker is local-first: every mutation lands in memory and the local
// snapshot immediately and is never rolled back on a remote failure. Remote
// delivery degrades to "eventually, via scheduler or queue" rather than
// "rejected".
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/myatdennis/coursesync/internal/autosave"
	"github.com/myatdennis/coursesync/internal/models"
	"github.com/myatdennis/coursesync/internal/queue"
	"github.com/myatdennis/coursesync/internal/services"
	"github.com/myatdennis/coursesync/internal/shared"
	"github.com/myatdennis/coursesync/internal/store"
)

// Phase is the session lifecycle state.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseError   Phase = "error"
)

// EventChannel is the realtime surface the tracker depends on, satisfied by
// *realtime.Channel. Nil-able: a session without realtime still syncs
// through the scheduler and queue.
type EventChannel interface {
	Subscribe(t models.EventType, h func(ev models.RealtimeEvent))
	Broadcast(ev models.RealtimeEvent) error
	Connected() bool
}

// FailureSink records mutations that exhausted their retries, satisfied by
// *repositories.FailureRepository.
type FailureSink interface {
	Record(m models.QueuedMutation) error
}

// Options configures a Tracker session.
type Options struct {
	UserID   string
	CourseID string
	Adapter  store.Adapter
	Remote   services.RemoteStore
	Channel  EventChannel
	Failures FailureSink
	Clock    shared.Clock
	Logger   *log.Logger
	Sync     shared.SyncConfig

	// OnState is notified after any observable status change, with the same
	// snapshot State returns.
	OnState func(s models.SessionState)
}

// Tracker owns the in-memory progress state for one (user, course) session.
type Tracker struct {
	opts   Options
	logger *log.Logger
	clock  shared.Clock

	queue     *queue.OfflineQueue
	scheduler *autosave.Scheduler

	mu          sync.Mutex
	phase       Phase
	progress    map[string]models.LessonProgress
	reflections map[string]models.Reflection
	modules     map[string]string
	enrollment  *models.CourseEnrollment
	online      bool
	saving      bool
	syncErr     bool

	subscribeOnce sync.Once
}

// New constructs a Tracker and its scheduler and queue. The session starts
// online and in the loading phase; call Load before mutating.
func New(opts Options) (*Tracker, error) {
	if opts.UserID == "" || opts.CourseID == "" {
		return nil, fmt.Errorf("%w: tracker requires user and course ids", shared.ErrInvalidInput)
	}
	if opts.Remote == nil {
		return nil, fmt.Errorf("%w: tracker requires a remote store", shared.ErrInvalidInput)
	}
	if opts.Clock == nil {
		opts.Clock = shared.SystemClock()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	t := &Tracker{
		opts:        opts,
		logger:      shared.WithLogger(opts.Logger, "component", "tracker", "user", opts.UserID, "course", opts.CourseID),
		clock:       opts.Clock,
		phase:       PhaseLoading,
		progress:    make(map[string]models.LessonProgress),
		reflections: make(map[string]models.Reflection),
		modules:     make(map[string]string),
		online:      true,
	}

	t.queue = queue.New(queue.Options{
		UserID:      opts.UserID,
		Adapter:     opts.Adapter,
		Clock:       opts.Clock,
		Logger:      opts.Logger,
		Sync:        t.deliverMutation,
		MaxRetries:  opts.Sync.MaxRetries,
		MaxSize:     opts.Sync.MaxQueueSize,
		RetryDelay:  opts.Sync.RetryDelay(),
		SettleDelay: opts.Sync.SettleDelay(),
		Retention:   opts.Sync.Retention(),
		RateLimit:   opts.Sync.DrainRateLimit,
		OnSynced:    t.onMutationSynced,
		OnFailed:    t.onMutationFailed,
		OnEvicted: func(m models.QueuedMutation) {
			t.logger.Warn("queue at capacity, dropped pending mutation", "id", m.ID, "action", m.Action)
		},
	})

	t.scheduler = autosave.New(autosave.Options{
		Interval: opts.Sync.AutoSaveInterval(),
		Clock:    opts.Clock,
		Logger:   opts.Logger,
		Save:     t.saveLesson,
		OnSaving: t.onSaving,
	})

	return t, nil
}

// Load hydrates the session: local snapshot first, then the remote store.
// A missing enrollment triggers implicit self-enrollment. A failed remote
// read while online moves the session to the error phase; offline sessions
// become ready on the local snapshot alone.
func (t *Tracker) Load(ctx context.Context) error {
	t.mu.Lock()
	t.phase = PhaseLoading
	t.mu.Unlock()

	t.hydrateLocal()

	t.mu.Lock()
	online := t.online
	t.mu.Unlock()

	if online {
		if err := t.loadRemote(ctx); err != nil {
			t.mu.Lock()
			t.phase = PhaseError
			t.mu.Unlock()
			t.notifyState()
			return err
		}
	}

	t.mu.Lock()
	if t.enrollment == nil {
		t.enrollment = t.newEnrollmentLocked()
	}
	t.phase = PhaseReady
	t.persistLocked()
	t.mu.Unlock()

	t.subscribeRealtime()
	t.notifyState()
	t.logger.Debug("session ready", "lessons", len(t.progress))
	return nil
}

// hydrateLocal restores the last persisted snapshot. Corrupt or missing
// documents simply leave the session empty.
func (t *Tracker) hydrateLocal() {
	if t.opts.Adapter == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if records, ok := store.ReadJSON[[]models.LessonProgress](t.opts.Adapter, store.ProgressKey(t.opts.UserID, t.opts.CourseID)); ok {
		for _, r := range records {
			t.progress[r.LessonID] = r
			t.modules[r.LessonID] = r.ModuleID
		}
	}
	if enrollment, ok := store.ReadJSON[models.CourseEnrollment](t.opts.Adapter, store.EnrollmentKey(t.opts.UserID, t.opts.CourseID)); ok {
		t.enrollment = &enrollment
	}
	if reflections, ok := store.ReadJSON[[]models.Reflection](t.opts.Adapter, store.ReflectionsKey(t.opts.UserID, t.opts.CourseID)); ok {
		for _, r := range reflections {
			t.reflections[r.LessonID] = r
		}
	}
}

// loadRemote reconciles the remote state into the session. Remote records
// win only when strictly newer than the local copy, keeping unsynced local
// edits intact.
func (t *Tracker) loadRemote(ctx context.Context) error {
	enrollment, err := t.opts.Remote.FetchEnrollment(ctx, t.opts.UserID, t.opts.CourseID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		t.mu.Lock()
		if t.enrollment == nil {
			t.enrollment = t.newEnrollmentLocked()
		}
		created := *t.enrollment
		t.mu.Unlock()
		// Implicit self-enrollment. Best-effort: a failed upsert is retried
		// implicitly the next time progress syncs.
		if err := t.opts.Remote.UpsertEnrollment(ctx, created); err != nil {
			t.logger.Warn("self-enrollment upsert failed", "err", err)
		}
	case err != nil:
		return fmt.Errorf("loading enrollment: %w", err)
	default:
		t.mu.Lock()
		if t.enrollment == nil || enrollment.LastAccessedAt.After(t.enrollment.LastAccessedAt) {
			t.enrollment = enrollment
		}
		t.mu.Unlock()
	}

	records, err := t.opts.Remote.FetchLessonProgress(ctx, t.opts.UserID, t.opts.CourseID)
	if err != nil {
		return fmt.Errorf("loading lesson progress: %w", err)
	}
	reflections, err := t.opts.Remote.FetchReflections(ctx, t.opts.UserID, t.opts.CourseID)
	if err != nil {
		return fmt.Errorf("loading reflections: %w", err)
	}

	t.mu.Lock()
	for _, r := range records {
		local, ok := t.progress[r.LessonID]
		if !ok || r.LastAccessedAt.After(local.LastAccessedAt) {
			t.progress[r.LessonID] = r
			t.modules[r.LessonID] = r.ModuleID
		}
	}
	for _, r := range reflections {
		local, ok := t.reflections[r.LessonID]
		if !ok || r.UpdatedAt.After(local.UpdatedAt) {
			t.reflections[r.LessonID] = r
		}
	}
	t.mu.Unlock()
	return nil
}

func (t *Tracker) newEnrollmentLocked() *models.CourseEnrollment {
	now := t.clock.Now()
	return &models.CourseEnrollment{
		ID:             shared.GenerateID(),
		UserID:         t.opts.UserID,
		CourseID:       t.opts.CourseID,
		EnrolledAt:     now,
		LastAccessedAt: now,
	}
}

// subscribeRealtime registers the reconciliation handlers once per session.
func (t *Tracker) subscribeRealtime() {
	if t.opts.Channel == nil {
		return
	}
	t.subscribeOnce.Do(func() {
		t.opts.Channel.Subscribe(models.EventProgressSync, t.handleProgressSync)
		t.opts.Channel.Subscribe(models.EventEnrollmentChanged, t.handleEnrollmentChanged)
	})
}

// UpdateLessonProgress merges partial fields onto the lesson's record,
// optimistically and immediately. Remote delivery happens through the
// scheduler; while offline the same update also lands in the queue so it
// does not depend on the scheduler surviving a restart.
func (t *Tracker) UpdateLessonProgress(lessonID, moduleID string, fields models.ProgressFields) error {
	record, err := t.applyLocal(lessonID, moduleID, fields)
	if err != nil {
		return err
	}

	t.scheduler.Schedule(lessonID, fields)

	t.mu.Lock()
	online := t.online
	t.mu.Unlock()

	if !online {
		t.enqueueRecord(record, models.ActionProgressUpdate, models.PriorityMedium)
	} else if t.opts.Channel != nil && t.opts.Channel.Connected() {
		t.broadcastProgress(record)
	}

	t.notifyState()
	return nil
}

// MarkLessonComplete sets completed=true and progress=100 regardless of the
// previous percentage, and enqueues a high-priority completion mutation so
// it cannot be starved behind lower-priority queued work. A non-nil score
// additionally records a quiz submission.
func (t *Tracker) MarkLessonComplete(lessonID, moduleID string, score *int) error {
	now := t.clock.Now()
	fields := models.ProgressFields{
		Completed:          models.Bool(true),
		ProgressPercentage: models.Int(100),
		CompletedAt:        &now,
	}

	record, err := t.applyLocal(lessonID, moduleID, fields)
	if err != nil {
		return err
	}

	t.scheduler.Schedule(lessonID, fields)
	t.enqueueRecord(record, models.ActionLessonComplete, models.PriorityHigh)

	if score != nil {
		payload, _ := json.Marshal(map[string]any{
			"lesson_id": lessonID,
			"score":     *score,
		})
		t.enqueue(models.QueuedMutation{
			ID:       shared.GenerateID(),
			UserID:   t.opts.UserID,
			CourseID: t.opts.CourseID,
			ModuleID: moduleID,
			LessonID: lessonID,
			Action:   models.ActionQuizSubmit,
			Payload:  payload,
			Priority: models.PriorityMedium,
		})
	}

	t.mu.Lock()
	online := t.online
	t.mu.Unlock()
	if online {
		if t.opts.Channel != nil && t.opts.Channel.Connected() {
			t.broadcastProgress(record)
		}
		go t.drain()
	}

	t.notifyState()
	return nil
}

// SaveReflection stores a free-form lesson note. Reflections skip the
// scheduler and travel only through the low-priority queued path.
func (t *Tracker) SaveReflection(lessonID, content string) error {
	t.mu.Lock()
	if t.phase != PhaseReady {
		t.mu.Unlock()
		return shared.ErrSessionNotReady
	}
	reflection, ok := t.reflections[lessonID]
	if !ok {
		reflection = models.Reflection{
			ID:       shared.GenerateID(),
			UserID:   t.opts.UserID,
			CourseID: t.opts.CourseID,
			LessonID: lessonID,
		}
	}
	reflection.Content = content
	reflection.UpdatedAt = t.clock.Now()
	t.reflections[lessonID] = reflection
	t.persistLocked()
	online := t.online
	t.mu.Unlock()

	payload, err := json.Marshal(reflection)
	if err != nil {
		return fmt.Errorf("encoding reflection: %w", err)
	}
	t.enqueue(models.QueuedMutation{
		ID:       shared.GenerateID(),
		UserID:   t.opts.UserID,
		CourseID: t.opts.CourseID,
		ModuleID: t.moduleFor(lessonID),
		LessonID: lessonID,
		Action:   models.ActionReflectionSave,
		Payload:  payload,
		Priority: models.PriorityLow,
	})

	if online {
		go t.drain()
	}
	t.notifyState()
	return nil
}

// applyLocal performs the optimistic in-memory merge and snapshot persist,
// returning the post-merge record.
func (t *Tracker) applyLocal(lessonID, moduleID string, fields models.ProgressFields) (models.LessonProgress, error) {
	if lessonID == "" {
		return models.LessonProgress{}, fmt.Errorf("%w: lesson id required", shared.ErrInvalidInput)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != PhaseReady {
		return models.LessonProgress{}, shared.ErrSessionNotReady
	}

	record, ok := t.progress[lessonID]
	if !ok {
		record = models.LessonProgress{
			ID:       shared.GenerateID(),
			UserID:   t.opts.UserID,
			CourseID: t.opts.CourseID,
			ModuleID: moduleID,
			LessonID: lessonID,
		}
	}
	if moduleID != "" {
		record.ModuleID = moduleID
		t.modules[lessonID] = moduleID
	}
	record.Apply(fields, t.clock.Now())
	t.progress[lessonID] = record
	t.refreshEnrollmentLocked()
	t.persistLocked()
	return record, nil
}

// refreshEnrollmentLocked recomputes the enrollment's derived aggregate.
// Caller holds t.mu.
func (t *Tracker) refreshEnrollmentLocked() {
	if t.enrollment == nil {
		return
	}
	t.enrollment.ProgressPercentage = t.courseProgressLocked()
	t.enrollment.LastAccessedAt = t.clock.Now()

	stats := t.completionStatsLocked()
	if stats.TotalLessons > 0 && stats.CompletedLessons == stats.TotalLessons {
		if t.enrollment.CompletedAt == nil {
			now := t.clock.Now()
			t.enrollment.CompletedAt = &now
		}
	} else {
		t.enrollment.CompletedAt = nil
	}
}

// enqueueRecord wraps the full record snapshot as a queued mutation; the
// remote upsert is idempotent, so replaying a snapshot that the scheduler
// already delivered is safe.
func (t *Tracker) enqueueRecord(record models.LessonProgress, action models.Action, priority models.Priority) {
	payload, err := json.Marshal(record)
	if err != nil {
		t.logger.Error("failed to encode progress snapshot", "err", err)
		return
	}
	t.enqueue(models.QueuedMutation{
		ID:       shared.GenerateID(),
		UserID:   record.UserID,
		CourseID: record.CourseID,
		ModuleID: record.ModuleID,
		LessonID: record.LessonID,
		Action:   action,
		Payload:  payload,
		Priority: priority,
	})
}

func (t *Tracker) enqueue(m models.QueuedMutation) {
	if err := t.queue.Enqueue(m); err != nil {
		t.logger.Error("enqueue failed", "action", m.Action, "err", err)
	}
}

func (t *Tracker) broadcastProgress(record models.LessonProgress) {
	payload, err := json.Marshal(models.ProgressSyncPayload{
		CourseID: t.opts.CourseID,
		Progress: record,
	})
	if err != nil {
		return
	}
	ev := models.RealtimeEvent{
		Type:      models.EventProgressSync,
		UserID:    t.opts.UserID,
		Payload:   payload,
		Timestamp: record.LastAccessedAt,
	}
	if err := t.opts.Channel.Broadcast(ev); err != nil {
		t.logger.Debug("broadcast skipped", "err", err)
	}
}

func (t *Tracker) drain() {
	if err := t.queue.Drain(context.Background()); err != nil {
		t.logger.Warn("queue drain failed", "err", err)
	}
}

// deliverMutation is the queue's sync function: it replays a queued
// mutation against the remote store.
func (t *Tracker) deliverMutation(ctx context.Context, m models.QueuedMutation) error {
	switch m.Action {
	case models.ActionProgressUpdate, models.ActionLessonComplete, models.ActionQuizSubmit:
		var record models.LessonProgress
		if err := json.Unmarshal(m.Payload, &record); err != nil {
			return fmt.Errorf("decoding queued progress: %w", err)
		}
		if m.Action == models.ActionQuizSubmit {
			// Quiz submissions piggyback on the progress upsert path: the
			// payload carries the lesson identity and score only, so deliver
			// the current snapshot instead.
			if current, ok := t.LessonProgress(m.LessonID); ok {
				record = current
			}
		}
		if record.LessonID == "" {
			record.UserID, record.CourseID = m.UserID, m.CourseID
			record.ModuleID, record.LessonID = m.ModuleID, m.LessonID
		}
		return t.opts.Remote.UpsertLessonProgress(ctx, record)
	case models.ActionReflectionSave:
		var reflection models.Reflection
		if err := json.Unmarshal(m.Payload, &reflection); err != nil {
			return fmt.Errorf("decoding queued reflection: %w", err)
		}
		return t.opts.Remote.UpsertReflection(ctx, reflection)
	default:
		return fmt.Errorf("unknown queued action: %q", m.Action)
	}
}

// saveLesson is the scheduler's flush function: it delivers the current
// snapshot for a lesson to the remote store.
func (t *Tracker) saveLesson(ctx context.Context, lessonID string, fields models.ProgressFields) error {
	t.mu.Lock()
	online := t.online
	record, ok := t.progress[lessonID]
	t.mu.Unlock()

	if !online {
		// Stay local; the queue owns delivery while offline.
		return shared.ErrOffline
	}
	if !ok {
		return nil
	}
	return t.opts.Remote.UpsertLessonProgress(ctx, record)
}

func (t *Tracker) onSaving(saving bool) {
	t.mu.Lock()
	t.saving = saving
	t.mu.Unlock()
	t.notifyState()
}

func (t *Tracker) onMutationSynced(m models.QueuedMutation) {
	t.mu.Lock()
	if t.queue.Size() == 0 {
		t.syncErr = false
	}
	t.mu.Unlock()
	t.notifyState()
}

func (t *Tracker) onMutationFailed(m models.QueuedMutation, err error) {
	t.logger.Error("mutation permanently failed", "id", m.ID, "action", m.Action, "attempts", m.Attempts, "err", err)
	if t.opts.Failures != nil {
		if recErr := t.opts.Failures.Record(m); recErr != nil {
			t.logger.Warn("failed to record terminal failure", "err", recErr)
		}
	}
	t.mu.Lock()
	t.syncErr = true
	t.mu.Unlock()
	t.notifyState()
}

// handleProgressSync applies a progress event from another session only
// when its timestamp is strictly newer than the local record's
// last-accessed time. Stale and equal-timestamp events are discarded
// silently; this is last-writer-wins by wall clock, skew and all.
func (t *Tracker) handleProgressSync(ev models.RealtimeEvent) {
	var payload models.ProgressSyncPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.logger.Debug("malformed progress_sync payload", "err", err)
		return
	}
	if payload.CourseID != t.opts.CourseID {
		return
	}
	lessonID := payload.Progress.LessonID
	if lessonID == "" {
		return
	}

	t.mu.Lock()
	local, ok := t.progress[lessonID]
	if ok && !ev.Timestamp.After(local.LastAccessedAt) {
		t.mu.Unlock()
		return
	}
	t.progress[lessonID] = payload.Progress
	t.modules[lessonID] = payload.Progress.ModuleID
	t.refreshEnrollmentLocked()
	t.persistLocked()
	t.mu.Unlock()

	t.logger.Debug("reconciled remote progress", "lesson", lessonID, "from", ev.UserID)
	t.notifyState()
}

func (t *Tracker) handleEnrollmentChanged(ev models.RealtimeEvent) {
	var payload models.EnrollmentChangedPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return
	}
	if payload.Enrollment.CourseID != t.opts.CourseID || payload.Enrollment.UserID != t.opts.UserID {
		return
	}

	t.mu.Lock()
	if t.enrollment == nil || ev.Timestamp.After(t.enrollment.LastAccessedAt) {
		enrollment := payload.Enrollment
		t.enrollment = &enrollment
		t.persistLocked()
	}
	t.mu.Unlock()
	t.notifyState()
}

// persistLocked snapshots the session through the local adapter. Caller
// holds t.mu. Write failures degrade durability; the in-memory copy stays
// authoritative.
func (t *Tracker) persistLocked() {
	if t.opts.Adapter == nil {
		return
	}
	records := make([]models.LessonProgress, 0, len(t.progress))
	for _, r := range t.progress {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].LessonID < records[j].LessonID })
	store.WriteJSON(t.opts.Adapter, store.ProgressKey(t.opts.UserID, t.opts.CourseID), records)

	if t.enrollment != nil {
		store.WriteJSON(t.opts.Adapter, store.EnrollmentKey(t.opts.UserID, t.opts.CourseID), t.enrollment)
	}

	reflections := make([]models.Reflection, 0, len(t.reflections))
	for _, r := range t.reflections {
		reflections = append(reflections, r)
	}
	sort.Slice(reflections, func(i, j int) bool { return reflections[i].LessonID < reflections[j].LessonID })
	store.WriteJSON(t.opts.Adapter, store.ReflectionsKey(t.opts.UserID, t.opts.CourseID), reflections)
}

func (t *Tracker) moduleFor(lessonID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.modules[lessonID]
}

// Phase reports the session lifecycle state.
func (t *Tracker) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// LessonProgress returns the current record for a lesson.
func (t *Tracker) LessonProgress(lessonID string) (models.LessonProgress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.progress[lessonID]
	return r, ok
}

// Lessons returns all tracked records, ordered by lesson id.
func (t *Tracker) Lessons() []models.LessonProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.LessonProgress, 0, len(t.progress))
	for _, r := range t.progress {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessonID < out[j].LessonID })
	return out
}

// Reflections returns all saved reflections, ordered by lesson id.
func (t *Tracker) Reflections() []models.Reflection {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.Reflection, 0, len(t.reflections))
	for _, r := range t.reflections {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessonID < out[j].LessonID })
	return out
}

// Enrollment returns a copy of the session's enrollment, or nil before Load.
func (t *Tracker) Enrollment() *models.CourseEnrollment {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enrollment == nil {
		return nil
	}
	e := *t.enrollment
	return &e
}

// CourseProgress derives the course percentage as the mean of per-lesson
// percentages, 0 when nothing is tracked yet.
func (t *Tracker) CourseProgress() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.courseProgressLocked()
}

func (t *Tracker) courseProgressLocked() int {
	if len(t.progress) == 0 {
		return 0
	}
	total := 0
	for _, r := range t.progress {
		total += r.ProgressPercentage
	}
	return total / len(t.progress)
}

// CompletionStats reports how many tracked lessons are completed.
func (t *Tracker) CompletionStats() models.CompletionStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completionStatsLocked()
}

func (t *Tracker) completionStatsLocked() models.CompletionStats {
	stats := models.CompletionStats{TotalLessons: len(t.progress)}
	for _, r := range t.progress {
		if r.Completed {
			stats.CompletedLessons++
		}
	}
	if stats.TotalLessons > 0 {
		stats.Percentage = stats.CompletedLessons * 100 / stats.TotalLessons
	}
	return stats
}

// State returns the status surface UI consumers depend on.
func (t *Tracker) State() models.SessionState {
	pending := t.scheduler.PendingCount()
	queueSize := t.queue.Size()
	lastSaved := t.scheduler.LastSaved()

	t.mu.Lock()
	defer t.mu.Unlock()

	status := models.SyncStatusSynced
	switch {
	case t.syncErr || t.phase == PhaseError:
		status = models.SyncStatusError
	case pending > 0 || queueSize > 0:
		status = models.SyncStatusPending
	}

	return models.SessionState{
		IsOnline:       t.online,
		IsSaving:       t.saving,
		SyncStatus:     status,
		PendingChanges: pending,
		QueueSize:      queueSize,
		LastSaved:      lastSaved,
	}
}

func (t *Tracker) notifyState() {
	if t.opts.OnState == nil {
		return
	}
	t.opts.OnState(t.State())
}

// ForceSave flushes all pending scheduler edits immediately, for use before
// exit or logout. Returns true when everything saved cleanly.
func (t *Tracker) ForceSave(ctx context.Context) bool {
	ok := t.scheduler.ForceSave(ctx)
	t.notifyState()
	return ok
}

// FlushQueue drains the offline queue now, ahead of any scheduled retry.
func (t *Tracker) FlushQueue(ctx context.Context) error {
	err := t.queue.Drain(ctx)
	t.notifyState()
	return err
}

// QueueSnapshot exposes the pending mutations in drain order.
func (t *Tracker) QueueSnapshot() []models.QueuedMutation {
	return t.queue.Snapshot()
}

// SetOnline records a connectivity transition, propagating it to the queue
// (which drains after the settle delay on reconnect).
func (t *Tracker) SetOnline(online bool) {
	t.mu.Lock()
	t.online = online
	t.mu.Unlock()
	t.queue.SetOnline(online)
	t.notifyState()
}

// Close performs a final forced save and stops the scheduler and queue.
func (t *Tracker) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	t.ForceSave(ctx)
	t.scheduler.Close()
	t.queue.Close()
}
