package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// TaskID uniquely identifies a task.
type TaskID int64

// TaskState represents the lifecycle state of a task.
type TaskState string

const (
	// TaskStatePending indicates the task has been registered but not picked up yet.
	TaskStatePending TaskState = "PENDING"
	// TaskStateClaimed indicates an agent has claimed the task for processing.
	TaskStateClaimed TaskState = "CLAIMED"
	// TaskStateRunning indicates the claiming agent has started processing.
	TaskStateRunning TaskState = "RUNNING"
	// TaskStateDone indicates the task finished successfully.
	TaskStateDone TaskState = "DONE"
	// TaskStateFailed indicates the task ended with an error.
	TaskStateFailed TaskState = "FAILED"
	// TaskStateCancelled indicates the task was withdrawn before completion.
	TaskStateCancelled TaskState = "CANCELLED"
)

// taskTransitions enumerates the state changes a client may request through
// a task update. PENDING to CLAIMED is absent on purpose: claiming is a
// separate atomic operation and the only way to acquire a task.
var taskTransitions = map[TaskState][]TaskState{
	TaskStatePending: {TaskStateCancelled},
	TaskStateClaimed: {TaskStateRunning, TaskStatePending, TaskStateFailed, TaskStateCancelled},
	TaskStateRunning: {TaskStateDone, TaskStateFailed, TaskStateCancelled, TaskStatePending},
}

// Valid reports whether s is one of the known task states.
func (s TaskState) Valid() bool {
	switch s {
	case TaskStatePending, TaskStateClaimed, TaskStateRunning,
		TaskStateDone, TaskStateFailed, TaskStateCancelled:
		return true
	}

	return false
}

// Terminal reports whether s is a final state that tasks never leave.
func (s TaskState) Terminal() bool {
	return s == TaskStateDone || s == TaskStateFailed || s == TaskStateCancelled
}

// CanTransitionTo reports whether a client update may move a task from s to
// target. Re-asserting the current state is always allowed and treated as a
// no-op by callers.
func (s TaskState) CanTransitionTo(target TaskState) bool {
	if s == target {
		return true
	}
	for _, t := range taskTransitions[s] {
		if t == target {
			return true
		}
	}

	return false
}

// Task is a unique combination of inputs for a pipeline. The definition is
// the original client-provided JSON document; JobDescriptor is a digest of
// its canonical form and serves as the task identity within a pipeline.
type Task struct {
	// ID is the unique identifier of the task.
	ID TaskID `json:"-"`
	// Pipeline is the pipeline this task belongs to.
	Pipeline Pipeline `json:"pipeline"`

	// Definition is the task input document as provided by the client.
	Definition json.RawMessage `json:"task_input"`
	// JobDescriptor is the canonical digest of Definition, unique per pipeline.
	JobDescriptor string `json:"task_input_id"`
	// State is the current lifecycle state of the task.
	State TaskState `json:"status"`

	// ClaimedBy identifies the token holding the current claim, nil when unclaimed.
	ClaimedBy *TokenID `json:"-"`

	// CreatedAt is the time the task was registered.
	CreatedAt time.Time `json:"created,omitzero"`
	// UpdatedAt is the time of the last state change.
	UpdatedAt time.Time `json:"updated,omitzero"`
}

// JobDescriptor computes the canonical SHA-256 digest of a task definition.
// The document is decoded and re-encoded so that key order and insignificant
// whitespace do not produce distinct descriptors for equal definitions.
func JobDescriptor(definition json.RawMessage) (string, error) {
	var doc any
	if err := json.Unmarshal(definition, &doc); err != nil {
		return "", fmt.Errorf("could not decode task definition: %w", err)
	}

	// encoding/json writes object keys in sorted order, which makes the
	// output canonical for our purposes.
	canonical, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("could not encode task definition: %w", err)
	}

	sum := sha256.Sum256(canonical)

	return hex.EncodeToString(sum[:]), nil
}
