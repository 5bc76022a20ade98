package server

import (
	"errors"
	"fmt"
)

// ConnState is the lifecycle state of a connection. The transitions:
//
// awaiting-request -> responding | closed
// responding       -> closed
//
// There is no way back to awaiting-request: one request per connection.
type ConnState uint8

const (
	StateAwaitingRequest ConnState = iota
	StateResponding
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateAwaitingRequest:
		return "awaiting-request"
	case StateResponding:
		return "responding"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("ConnState(%d)", uint8(s))
	}
}

var ErrInvalidTransition = errors.New("invalid connection state transition")

var allowedTransitions = map[ConnState][]ConnState{
	StateAwaitingRequest: {StateResponding, StateClosed},
	StateResponding:      {StateClosed},
}

// transition returns the next state or ErrInvalidTransition.
func transition(from, to ConnState) (ConnState, error) {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return to, nil
		}
	}
	return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
