package livereload

import (
	"errors"
	"fmt"
)

const (
	// StateConnecting is the initial state while the dial is in flight.
	StateConnecting State = iota
	// StateOpen means frames are being read and handled.
	StateOpen
	// StateErroring means a transport error was seen; the connection may
	// still move to StateClosed.
	StateErroring
	// StateClosed is terminal; a new client is needed to resume.
	StateClosed
)

// ErrInvalidState is returned when a State value is not one of the defined states.
var ErrInvalidState = errors.New("invalid state")

type (
	// State is the lifecycle state of one client connection.
	State int32

	// InvalidStateError is returned when a State value is not recognized.
	InvalidStateError struct {
		Value State
	}
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateErroring:
		return "erroring"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state %d (valid: 0=connecting, 1=open, 2=erroring, 3=closed)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// Validate returns nil for a defined state.
func (s State) Validate() error {
	switch s {
	case StateConnecting, StateOpen, StateErroring, StateClosed:
		return nil
	default:
		return &InvalidStateError{Value: s}
	}
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateClosed
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to State) bool {
	switch from {
	case StateConnecting:
		return to == StateOpen || to == StateErroring || to == StateClosed
	case StateOpen:
		return to == StateErroring || to == StateClosed
	case StateErroring:
		return to == StateClosed
	default:
		return false
	}
}
