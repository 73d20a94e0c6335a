package domain

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

var allStates = []CallState{
	StateNew, StateRequesting, StateTrying, StateRecovering, StateRinging,
	StateAnswering, StateEarly, StateActive, StateHeld, StateHangup,
	StateDestroy, StatePurge,
}

func TestPurgeAllowedFromAnywhere(t *testing.T) {
	for _, from := range allStates {
		if !CanTransition(from, StatePurge) {
			t.Errorf("purge should be reachable from %s", from)
		}
	}
}

func TestDestroyIsTerminal(t *testing.T) {
	for _, to := range allStates {
		if to == StatePurge {
			continue
		}
		if CanTransition(StateDestroy, to) {
			t.Errorf("destroy should not transition to %s", to)
		}
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to CallState
		ok       bool
	}{
		{StateNew, StateRequesting, true},
		{StateNew, StateActive, false},
		{StateRequesting, StateTrying, true},
		{StateRequesting, StateRinging, false},
		{StateTrying, StateEarly, true},
		{StateTrying, StateActive, true},
		{StateEarly, StateActive, true},
		{StateEarly, StateHeld, false},
		{StateActive, StateHeld, true},
		{StateActive, StateRequesting, true},
		{StateHeld, StateActive, true},
		{StateRinging, StateAnswering, true},
		{StateAnswering, StateActive, true},
		{StateHangup, StateDestroy, true},
		{StateHangup, StateActive, false},
		{StatePurge, StateDestroy, true},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, StateNew.String(), "new")
	assert.Equal(t, StateActive.String(), "active")
	assert.Equal(t, CallState(99).String(), "unknown")
}
