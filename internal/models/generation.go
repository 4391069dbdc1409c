package models

// JobState represents the state of the client-side generation job slot.
type JobState string

const (
	JobIdle       JobState = "idle"
	JobGenerating JobState = "generating"
	JobPolling    JobState = "polling"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
	JobTimedOut   JobState = "timed_out"
)

// GenerationJob is the process-wide generation job slot. At most one job
// is active; State returns to JobIdle on every terminal transition, with
// the terminal condition preserved in LastOutcome.
type GenerationJob struct {
	State       JobState
	LastOutcome JobState
	ErrMessage  string
}

// Server-reported generation statuses. Anything else (e.g. "running")
// means the job is still in progress.
const (
	GenerationStatusCompleted = "completed"
	GenerationStatusFailed    = "failed"
	GenerationStatusIdle      = "idle"
	GenerationStatusRunning   = "running"
)

// GenerationStatus is the status payload reported by the remote
// generation endpoint.
type GenerationStatus struct {
	Status     string
	ErrMessage string
}

// Terminal reports whether polling must stop at this status.
func (s GenerationStatus) Terminal() bool {
	switch s.Status {
	case GenerationStatusCompleted, GenerationStatusFailed, GenerationStatusIdle:
		return true
	}
	return false
}
