// Package agent runs the bounded tool-calling loop that drives test
// authoring.
//
// A Runtime turns one RunRequest into a stream of types.AgentEvent values.
// The stream is closed when the agent calls a loop-breaking tool, when the
// turn budget is used up (TurnLimitReached is the last event) or when the
// run fails (RunFailed is the last event):
//
//	rt := agent.NewDefaultRuntime(provider)
//	events, err := rt.Run(ctx, agent.RunRequest{Task: "...", Tools: tt, MaxTurns: 30})
//	for ev := range events { ... }
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/testforge/pkg/agent/tools"
	"github.com/entrhq/testforge/pkg/types"
)

// DefaultMaxTurns is the turn budget used when a request does not set one.
const DefaultMaxTurns = 30

// Runtime executes agent runs.
type Runtime interface {
	// Run starts a run and returns its event stream. The error is non-nil
	// only when the run could not be started; failures after that arrive as
	// a RunFailed event.
	Run(ctx context.Context, req RunRequest) (<-chan types.AgentEvent, error)
}

// RunRequest describes one agent run.
type RunRequest struct {
	// Instructions are extra operator instructions placed ahead of the
	// built-in system prompt.
	Instructions string

	// Preamble is prepended to the system prompt verbatim.
	Preamble string

	// Task is the first user message.
	Task string

	// Tools offered to the agent. task_completion is always added.
	Tools []tools.Tool

	// MaxTurns bounds the number of model calls. Zero means DefaultMaxTurns.
	MaxTurns int
}

func (r *RunRequest) normalize() error {
	if r.Task == "" {
		return errors.New("run request has no task")
	}
	if r.MaxTurns < 0 {
		return fmt.Errorf("max turns must be positive, got %d", r.MaxTurns)
	}
	if r.MaxTurns == 0 {
		r.MaxTurns = DefaultMaxTurns
	}
	return nil
}
