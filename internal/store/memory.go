package store

import "sync"

// MemoryAdapter is an in-memory Adapter for tests and ephemeral sessions.
type MemoryAdapter struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailWrites makes every Write report failure, for exercising the
	// degraded-durability path.
	FailWrites bool
}

// NewMemoryAdapter creates an empty MemoryAdapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{data: make(map[string][]byte)}
}

// Read returns the stored document for key, or ok=false if absent.
func (a *MemoryAdapter) Read(key string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.data[key]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

// Write stores a copy of the document under key.
func (a *MemoryAdapter) Write(key string, data []byte) bool {
	if a.FailWrites {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	a.data[key] = stored
	return true
}

// Len reports the number of stored namespaces.
func (a *MemoryAdapter) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.data)
}
