package domain

import "time"

// EventID uniquely identifies a task event.
type EventID int64

// Changes recorded in the event trail for the corresponding task mutations.
const (
	EventCreated      = "Created"
	EventClaimed      = "Claimed"
	EventClaimExpired = "Claim expired"
)

// Event is one entry in the append-only audit trail of a task. Every task
// mutation records an event carrying the token that caused it.
type Event struct {
	// ID is the unique identifier of the event.
	ID EventID `json:"-"`
	// TaskID is the task the event belongs to.
	TaskID TaskID `json:"-"`
	// TokenID identifies the credential that caused the change, nil for
	// changes made by the service itself.
	TokenID *TokenID `json:"-"`
	// Change describes what happened, e.g. "Created" or a state transition.
	Change string `json:"change"`
	// Time is when the change happened.
	Time time.Time `json:"time"`
}

// StateChange formats the event text recorded for a task state transition.
func StateChange(from, to TaskState) string {
	return "State changed from " + string(from) + " to " + string(to)
}
