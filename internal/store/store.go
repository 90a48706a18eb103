// package store implements the local persistence adapter: namespaced JSON
// documents written to a durable substrate (files, an embedded key-value
// table, or memory for tests).
//
// Writes are best-effort by contract. A failed write is logged and reported
// as false, never raised as an error: callers keep their in-memory copy
// authoritative and treat the miss as "state not durable yet". Reads of
// missing or corrupt documents report absent, not an error.
package store

import (
	"encoding/json"
)

// Adapter reads and writes opaque JSON documents keyed by namespace.
type Adapter interface {
	// Read returns the stored document for key, or ok=false if the key is
	// absent or unreadable.
	Read(key string) (data []byte, ok bool)

	// Write stores the document under key. Returns false if the write could
	// not be made durable; the failure is logged, not returned.
	Write(key string, data []byte) bool
}

// Namespace keys are scoped by user and purpose so sessions for different
// users or courses never collide in the shared substrate.

// ProgressKey names the per-course lesson progress snapshot namespace.
func ProgressKey(userID, courseID string) string {
	return "progress:" + userID + ":" + courseID
}

// EnrollmentKey names the per-course enrollment namespace.
func EnrollmentKey(userID, courseID string) string {
	return "enroll:" + userID + ":" + courseID
}

// QueueKey names the offline mutation queue namespace.
func QueueKey(userID string) string {
	return "queue:" + userID
}

// ReflectionsKey names the per-course reflections namespace.
func ReflectionsKey(userID, courseID string) string {
	return "reflections:" + userID + ":" + courseID
}

// ReadJSON reads and decodes the document at key into a value of type T.
// A missing or non-parseable document reads as absent.
func ReadJSON[T any](a Adapter, key string) (T, bool) {
	var v T
	data, ok := a.Read(key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		// Corrupt persisted state is treated as absent; the subsystem
		// reinitializes with empty state rather than crashing.
		return v, false
	}
	return v, true
}

// WriteJSON encodes v and stores it under key. Returns false if encoding or
// the underlying write fails.
func WriteJSON(a Adapter, key string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return a.Write(key, data)
}
