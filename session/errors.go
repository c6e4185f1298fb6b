package session

import "fmt"

var (
	// ErrNotFound is returned when no session exists for the given id, or
	// when closing a session that is already closed.
	ErrNotFound = fmt.Errorf("session not found")

	// ErrClosed is returned for write operations against a closed session.
	// Closed sessions remain queryable for audit.
	ErrClosed = fmt.Errorf("session closed")
)
