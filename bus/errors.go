package bus

import "fmt"

var (
	// ErrUnknownAgent is returned when an operation references an agent id
	// that was never registered (or already unregistered).
	ErrUnknownAgent = fmt.Errorf("unknown agent")

	// ErrUnknownAck is returned when acknowledging a (message, recipient)
	// pair that is not pending.
	ErrUnknownAck = fmt.Errorf("no pending acknowledgement")
)
