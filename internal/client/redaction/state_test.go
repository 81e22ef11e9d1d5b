package redaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{Idle, Composing, true},
		{Idle, Submitting, true},
		{Composing, Submitting, true},
		{Submitting, TextOnlyRoundTrip, true},
		{Submitting, AttachmentRoundTrip, true},
		{Submitting, Idle, false},
		{TextOnlyRoundTrip, Idle, true},
		{AttachmentRoundTrip, Error, true},
		{TextOnlyRoundTrip, AttachmentRoundTrip, false},
		{Idle, TextOnlyRoundTrip, false},
		{Error, Submitting, true},
		{AttachmentRoundTrip, Closed, true},
		{Closed, Idle, false},
		{Closed, Closed, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			err := checkTransition(tt.from, tt.to)
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestState_InFlightAndString(t *testing.T) {
	assert.True(t, Submitting.InFlight())
	assert.True(t, AttachmentRoundTrip.InFlight())
	assert.False(t, Idle.InFlight())
	assert.False(t, Error.InFlight())

	assert.Equal(t, "text-round-trip", TextOnlyRoundTrip.String())
	assert.Equal(t, "state(42)", State(42).String())
}
