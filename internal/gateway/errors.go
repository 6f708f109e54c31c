package gateway

import (
	"errors"
	"fmt"
)

// ErrUnsupportedAction is returned by an invoker that cannot perform the
// requested action (e.g. the native GitHub invoker cannot clone).
var ErrUnsupportedAction = errors.New("action not supported by this invoker")

// UnknownSubsystemError is returned when a command targets a subsystem the
// gateway has no connection for.
type UnknownSubsystemError struct {
	Subsystem string
}

func (e *UnknownSubsystemError) Error() string {
	return fmt.Sprintf("not connected to subsystem %q", e.Subsystem)
}

// ConnectionExhaustedError is returned when every retry attempt against a
// subsystem has failed. It wraps the last underlying cause.
type ConnectionExhaustedError struct {
	Subsystem string
	Action    string
	Attempts  int
	Err       error
}

func (e *ConnectionExhaustedError) Error() string {
	return fmt.Sprintf("%s %s failed after %d attempts: %v", e.Subsystem, e.Action, e.Attempts, e.Err)
}

func (e *ConnectionExhaustedError) Unwrap() error {
	return e.Err
}
