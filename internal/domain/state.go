package domain

// CallState is one step of a call leg's lifecycle. States are ranked so the
// call machine can do range checks like "already past requesting".
type CallState int

const (
	StateNew CallState = iota
	StateRequesting
	StateTrying
	StateRecovering
	StateRinging
	StateAnswering
	StateEarly
	StateActive
	StateHeld
	StateHangup
	StateDestroy
	StatePurge
)

var stateNames = map[CallState]string{
	StateNew:        "new",
	StateRequesting: "requesting",
	StateTrying:     "trying",
	StateRecovering: "recovering",
	StateRinging:    "ringing",
	StateAnswering:  "answering",
	StateEarly:      "early",
	StateActive:     "active",
	StateHeld:       "held",
	StateHangup:     "hangup",
	StateDestroy:    "destroy",
	StatePurge:      "purge",
}

func (s CallState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// validTransitions maps a state to the set of states it may move to.
// StatePurge is allowed from anywhere and is intentionally absent here.
var validTransitions = map[CallState]map[CallState]bool{
	StateNew: {
		StateRequesting: true,
		StateRecovering: true,
		StateRinging:    true,
		StateDestroy:    true,
		StateAnswering:  true,
		StateHangup:     true,
	},
	StateRequesting: {
		StateTrying: true,
		StateHangup: true,
		StateActive: true,
	},
	StateRecovering: {
		StateAnswering: true,
		StateHangup:    true,
	},
	StateTrying: {
		StateActive: true,
		StateEarly:  true,
		StateHangup: true,
	},
	StateRinging: {
		StateAnswering: true,
		StateHangup:    true,
	},
	StateAnswering: {
		StateActive: true,
		StateHangup: true,
	},
	StateActive: {
		StateAnswering:  true,
		StateRequesting: true,
		StateHangup:     true,
		StateHeld:       true,
	},
	StateHeld: {
		StateHangup: true,
		StateActive: true,
	},
	StateEarly: {
		StateHangup: true,
		StateActive: true,
	},
	StateHangup: {
		StateDestroy: true,
	},
	StateDestroy: {},
	StatePurge: {
		StateDestroy: true,
	},
}

// CanTransition reports whether moving from one state to another is permitted
// by the transition table. Purge is always permitted.
func CanTransition(from, to CallState) bool {
	if to == StatePurge {
		return true
	}
	return validTransitions[from][to]
}

// StateChange is published on every accepted call state transition.
type StateChange struct {
	Previous CallState
	Current  CallState
}
