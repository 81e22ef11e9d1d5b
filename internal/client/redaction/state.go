package redaction

import (
	"errors"
	"fmt"
)

type State int

const (
	Idle State = iota
	Composing
	Submitting
	TextOnlyRoundTrip
	AttachmentRoundTrip
	Error
	Closed
)

var stateNames = map[State]string{
	Idle:                "idle",
	Composing:           "composing",
	Submitting:          "submitting",
	TextOnlyRoundTrip:   "text-round-trip",
	AttachmentRoundTrip: "attachment-round-trip",
	Error:               "error",
	Closed:              "closed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// InFlight reports whether a turn is being processed.
func (s State) InFlight() bool {
	return s == Submitting || s == TextOnlyRoundTrip || s == AttachmentRoundTrip
}

var ErrInvalidTransition = errors.New("invalid state transition")

// transitions lists the legal moves. Closed is reachable from every state
// and is terminal.
var transitions = map[State][]State{
	Idle:                {Idle, Composing, Submitting},
	Composing:           {Idle, Composing, Submitting},
	Submitting:          {TextOnlyRoundTrip, AttachmentRoundTrip, Error},
	TextOnlyRoundTrip:   {Idle, Error},
	AttachmentRoundTrip: {Idle, Error},
	Error:               {Idle, Composing, Submitting},
	Closed:              {},
}

func canTransition(from, to State) bool {
	if from == Closed {
		return false
	}
	if to == Closed {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to State) error {
	if !canTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
