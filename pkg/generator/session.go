package generator

import (
	"context"
	"errors"
	"strings"

	"github.com/entrhq/testforge/pkg/agent/tools"
	"github.com/entrhq/testforge/pkg/logging"
	"github.com/entrhq/testforge/pkg/tools/testgen"
	"github.com/entrhq/testforge/pkg/types"
	"github.com/entrhq/testforge/pkg/workspace"
)

// phase is the driver's own state, separate from the instance lifecycle.
type phase string

const (
	phaseInit      phase = "INIT"
	phaseRunning   phase = "RUNNING"
	phasePassed    phase = "PASSED"
	phaseExhausted phase = "EXHAUSTED"
	phaseError     phase = "ERROR"
)

// session is the bookkeeping for one Generate call.
type session struct {
	g     *Generator
	id    string
	log   *logging.Logger
	inst  types.Instance
	phase phase
	res   *Result

	// fatal ends the session with an error.
	fatal error

	// lastCapabilityErr is the most recent failure of record_plan or
	// record_script_and_execute, cleared by their next success.
	lastCapabilityErr error
}

func (s *session) run(ctx context.Context, ws *workspace.Workspace, req Request) (*Result, error) {
	s.phase = phaseInit

	tt, err := s.g.tools(ws, s.log)
	if err != nil {
		return nil, s.fail(err)
	}

	if s.g.browser != nil {
		sess, err := s.g.browser.Open(ctx, ws.BrowserDataDir())
		if err != nil {
			return nil, s.fail(types.InternalError("failed to start browser", err))
		}
		defer func() {
			if err := sess.Close(); err != nil {
				s.log.Warnf("closing browser: %v", err)
			}
		}()
		tt = append(tt, sess.Tools()...)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := s.g.runtime.Run(runCtx, s.g.runRequest(req, tt))
	if err != nil {
		return nil, s.fail(types.InternalError("failed to start agent", err))
	}

	s.phase = phaseRunning
	s.advance(types.StateExploring)

	for ev := range events {
		s.handle(ev)
		if s.fatal != nil {
			// Stop the agent; keep draining so the runtime goroutine exits.
			cancel()
		}
	}

	if s.fatal != nil {
		return nil, s.fail(s.fatal)
	}
	if s.phase == phaseRunning {
		s.phase = phasePassed
	}
	return s.finish()
}

func (s *session) handle(ev types.AgentEvent) {
	switch e := ev.(type) {
	case types.AgentUpdated:
		s.log.Infof("agent %s started", e.AgentName)

	case types.MessageOutput:
		s.log.Block("agent message", e.Content)

	case types.TokenUsage:
		s.res.Usage.PromptTokens += e.PromptTokens
		s.res.Usage.CompletionTokens += e.CompletionTokens
		s.res.Usage.TotalTokens += e.TotalTokens

	case types.ToolCallStarted:
		s.log.Infof("turn %d: calling %s", e.Turn, e.ToolName)
		if e.ToolName == testgen.RecordScriptToolName {
			s.advance(types.StateScriptSubmitted)
			s.advance(types.StateExecuting)
		}

	case types.ToolCallOutput:
		s.toolOutput(e)

	case types.TurnLimitReached:
		s.log.Warnf("turn limit of %d reached", e.MaxTurns)
		s.phase = phaseExhausted

	case types.RunFailed:
		if s.fatal != nil {
			break
		}
		var typed *types.Error
		if errors.As(e.Err, &typed) {
			s.fatal = e.Err
		} else {
			s.fatal = types.InternalError("agent run failed", e.Err)
		}
	}
}

func (s *session) toolOutput(e types.ToolCallOutput) {
	s.res.ToolCalls = append(s.res.ToolCalls, ToolCallRecord{
		Name:         e.ToolName,
		Turn:         e.Turn,
		OutputBytes:  len(e.Output),
		OutputTokens: s.g.tokenizer.CountTokens(e.Output),
		Failed:       e.Err != nil,
	})

	capability := e.ToolName == testgen.RecordPlanToolName || e.ToolName == testgen.RecordScriptToolName

	if e.Err != nil {
		s.log.Warnf("turn %d: %s failed: %v", e.Turn, e.ToolName, e.Err)
		if types.IsKind(e.Err, types.ErrKindWorkspace) || types.IsKind(e.Err, types.ErrKindInternal) {
			s.fatal = e.Err
			return
		}
		if capability {
			s.lastCapabilityErr = e.Err
		}
		if e.ToolName == testgen.RecordScriptToolName {
			s.advance(types.StateFailedRetryable)
		}
		return
	}

	if capability {
		s.lastCapabilityErr = nil
	}
	if e.ToolName == tools.TaskCompletionToolName {
		s.log.Infof("agent finished (%v): %s", e.Metadata["outcome"], e.Output)
		return
	}
	if e.ToolName != testgen.RecordScriptToolName {
		return
	}

	passed, _ := e.Metadata["passed"].(bool)
	s.res.Passed = passed
	s.res.LastReport = e.Output
	if passed {
		s.advance(types.StatePassed)
	} else {
		s.advance(types.StateFailedRetryable)
	}
}

// advance moves the instance forward, logging moves the lifecycle does not
// allow instead of failing the session over bookkeeping.
func (s *session) advance(to types.InstanceState) {
	if s.inst.State == to {
		return
	}
	if err := s.inst.Transition(to); err != nil {
		s.log.Warnf("%v", err)
		return
	}
	s.log.Debugf("instance state %s", to)
}

func (s *session) fail(err error) error {
	s.phase = phaseError
	s.advance(types.StateFailedTerminal)
	return err
}

func (s *session) finish() (*Result, error) {
	snap, _ := s.g.store.Snapshot(s.id)

	s.g.store.Close(s.id)
	if !snap.HasScript && types.IsKind(s.lastCapabilityErr, types.ErrKindAgentProtocol) {
		return nil, s.fail(s.lastCapabilityErr)
	}

	s.res.Plan = snap.Plan
	s.res.Script = snap.Script
	switch s.phase {
	case phaseExhausted:
		s.res.Status = StatusExhausted
	default:
		s.res.Status = StatusSuccess
	}

	s.log.Block("final test plan", strings.Join(s.res.Plan, "\n"))
	s.log.Infof("phase=%s instance_state=%s", s.phase, s.inst.State)
	return s.res, nil
}
