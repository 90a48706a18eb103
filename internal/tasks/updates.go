package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	ScanLocal Phase = iota
	FetchRemote
	Compare
)

func (p Phase) String() string {
	switch p {
	case ScanLocal:
		return "scan_local"
	case FetchRemote:
		return "fetch_remote"
	case Compare:
		return "compare"
	default:
		return ""
	}
}

func scanLocalUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanLocal,
		Step:    step,
		Total:   total,
		Message: "Reading local progress snapshot...",
	}
}

func fetchRemoteUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRemote,
		Step:    step,
		Total:   total,
		Message: "Fetching remote progress...",
	}
}

func compareUpdate(step, total int, lessons int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Compare,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Comparing %d lesson records...", lessons),
	}
}
