package chat

// State is the phase of the single pending-request slot.
type State string

const (
	// StateIdle accepts a new submission.
	StateIdle State = "idle"
	// StateAwaiting has one request in flight and rejects submissions.
	StateAwaiting State = "awaiting"
)

// Snapshot is the read-only view of a conversation handed to subscribers.
type Snapshot struct {
	SessionID string    `json:"sessionId"`
	State     State     `json:"state"`
	Pending   bool      `json:"pending"`
	Welcome   bool      `json:"welcome"`
	Messages  []Message `json:"messages"`
}
