package types

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// InstanceState is the lifecycle state of one generation or execution session.
type InstanceState string

const (
	StateCreated         InstanceState = "CREATED"
	StateExploring       InstanceState = "EXPLORING"
	StateScriptSubmitted InstanceState = "SCRIPT_SUBMITTED"
	StateExecuting       InstanceState = "EXECUTING"
	StatePassed          InstanceState = "PASSED"
	StateFailedRetryable InstanceState = "FAILED_RETRYABLE"
	StateFailedTerminal  InstanceState = "FAILED_TERMINAL"
	StateCleaned         InstanceState = "CLEANED"
)

// instanceTransitions lists the legal successor states for each state.
// CLEANED is reachable from everywhere; nothing leaves it.
var instanceTransitions = map[InstanceState][]InstanceState{
	StateCreated:         {StateExploring, StateExecuting, StateFailedTerminal},
	StateExploring:       {StateScriptSubmitted, StateFailedTerminal},
	StateScriptSubmitted: {StateExecuting, StateFailedTerminal},
	StateExecuting:       {StatePassed, StateFailedRetryable, StateFailedTerminal},
	StatePassed:          {StateScriptSubmitted, StateFailedTerminal},
	StateFailedRetryable: {StateScriptSubmitted, StateExploring, StateFailedTerminal},
	StateFailedTerminal:  {},
	StateCleaned:         {},
}

// CanTransition reports whether an instance may move from one state to another.
func CanTransition(from, to InstanceState) bool {
	if to == StateCleaned {
		return from != StateCleaned
	}
	for _, next := range instanceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Instance identifies one isolated session and the workspace it owns.
type Instance struct {
	ID            string
	WorkspaceRoot string
	State         InstanceState
}

// Transition moves the instance to the next state, rejecting illegal moves.
func (i *Instance) Transition(to InstanceState) error {
	if !CanTransition(i.State, to) {
		return fmt.Errorf("instance %s: illegal transition %s -> %s", i.ID, i.State, to)
	}
	i.State = to
	return nil
}

var instanceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// NewInstanceID returns a short opaque id: the first 8 hex digits of a random uuid.
func NewInstanceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// ValidateInstanceID ensures an id can be used as a single path segment.
func ValidateInstanceID(id string) error {
	if !instanceIDPattern.MatchString(id) {
		return fmt.Errorf("invalid instance id %q: must match %s", id, instanceIDPattern.String())
	}
	return nil
}
