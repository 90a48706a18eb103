package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Connectivity and remote store errors
	ErrOffline           = fmt.Errorf("session is offline")
	ErrRemoteUnavailable = fmt.Errorf("remote store unavailable")
	ErrRemoteRequest     = fmt.Errorf("remote request failed")
	ErrNotFound          = fmt.Errorf("record not found")

	// Queue errors
	ErrRetriesExceeded = fmt.Errorf("max retry attempts exceeded")

	// Realtime channel errors
	ErrChannelClosed = fmt.Errorf("realtime channel closed")

	// Session errors
	ErrSessionNotReady = fmt.Errorf("course session not loaded")
	ErrInvalidInput    = fmt.Errorf("invalid input")
)
