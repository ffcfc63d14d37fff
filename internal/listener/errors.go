package listener

import (
	"errors"
	"fmt"
)

// StateErrorCode categorizes protocol violations.
type StateErrorCode string

const (
	// ErrCodeReentrantListener indicates a listener whose after-hook changed
	// the queue being drained.
	ErrCodeReentrantListener StateErrorCode = "REENTRANT_LISTENER"

	// ErrCodeQueuesNotEmpty indicates a score calculation with pending
	// notifications.
	ErrCodeQueuesNotEmpty StateErrorCode = "QUEUES_NOT_EMPTY"

	// ErrCodeListenerKind indicates a listener that cannot receive the
	// notifications of its sources.
	ErrCodeListenerKind StateErrorCode = "LISTENER_KIND"

	// ErrCodeUnknownEntity indicates an entity whose type is not part of the
	// solution.
	ErrCodeUnknownEntity StateErrorCode = "UNKNOWN_ENTITY"
)

// StateError is a fatal misuse of the notification protocol. Inside the
// before/after brackets it is raised with panic; AssertNotificationQueuesAreEmpty
// returns it.
type StateError struct {
	Code     StateErrorCode
	Listener string
	Message  string
}

// Error implements the error interface.
func (e *StateError) Error() string {
	if e.Listener != "" {
		return fmt.Sprintf("%s: %s (listener=%s)", e.Code, e.Message, e.Listener)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsStateError returns true if err is a StateError with the given code.
func IsStateError(err error, code StateErrorCode) bool {
	var se *StateError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
