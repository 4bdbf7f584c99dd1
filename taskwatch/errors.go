package taskwatch

import "fmt"

// PollError is recorded when a status query fails. Polling stops
// permanently for the task; the caller has to start a new cycle if it
// still cares about the result.
type PollError struct {
	TaskID string
	Kind   Kind
	Err    error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll %s task %s: %s", e.Kind, e.TaskID, e.Err)
}

func (e *PollError) Unwrap() error {
	return e.Err
}
