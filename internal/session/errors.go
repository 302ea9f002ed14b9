package session

import "fmt"

// InvalidStateError is returned when an operation is attempted in a phase
// that forbids it. Retrying with the same phase fails the same way.
type InvalidStateError struct {
	Op    string
	Phase Phase
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s while the session is %s", e.Op, e.Phase)
}

// InvalidInputError is returned for out-of-range question ids, option
// indexes or navigation targets, and for malformed tests at construction.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }
