// Package models defines the domain entities shared across the sync
// subsystem.
//
// The package contains three categories of types:
//
// 1. Progress records: the durable per-learner state
//   - [LessonProgress] : Per-lesson completion, percentage, and recency
//   - [CourseEnrollment] : Per-course aggregate derived from lesson records
//   - [Reflection] : Free-form learner notes attached to a lesson
//
// 2. Sync plumbing: units of work and wire events
//   - [QueuedMutation] : Durable offline queue entry with priority and retries
//   - [RealtimeEvent] : Broadcast envelope carried over the realtime channel
//
// 3. Status: the read-only contract surfaced to UIs
//   - [SessionState] : Connectivity, sync status, and save bookkeeping
//   - [CompletionStats] : Completed/total lesson counts
//
// Records carry wall-clock timestamps; recency comparisons between two copies
// of the same record always use LastAccessedAt, strictly-newer wins.
package models
