package agent

import (
	"context"

	"github.com/entrhq/testforge/pkg/agent/tools"
	"github.com/entrhq/testforge/pkg/types"
)

// session is the state of one run. It is owned by the run goroutine.
type session struct {
	rt           *DefaultRuntime
	registry     *tools.Registry
	systemPrompt string
	maxTurns     int
	turn         int
	history      []*types.Message
	events       chan types.AgentEvent
}

// run executes the agent loop until a loop-breaking tool succeeds, the turn
// budget is used up or the run fails. It always closes the event channel.
func (s *session) run(ctx context.Context) {
	defer close(s.events)

	s.emit(ctx, types.AgentUpdated{AgentName: s.rt.agentName})

	var errorContext string
	for s.turn < s.maxTurns {
		if err := ctx.Err(); err != nil {
			s.rt.logger.Warnf("run canceled after %d turns: %v", s.turn, err)
			s.emit(ctx, types.RunFailed{Err: err})
			return
		}

		s.turn++
		done, nextErrorContext, err := s.executeIteration(ctx, errorContext)
		if err != nil {
			s.rt.logger.Errorf("run failed on turn %d: %v", s.turn, err)
			s.emit(ctx, types.RunFailed{Err: err})
			return
		}
		if done {
			s.rt.logger.Infof("run completed on turn %d", s.turn)
			return
		}
		errorContext = nextErrorContext
	}

	s.rt.logger.Warnf("turn limit reached (%d)", s.maxTurns)
	s.emit(ctx, types.TurnLimitReached{MaxTurns: s.maxTurns})
}

// executeIteration performs one model call and handles its tool call.
// done is true when a loop-breaking tool succeeded. errorContext is an
// ephemeral message for the next call. err is set only for failures that
// end the run.
func (s *session) executeIteration(ctx context.Context, errorContext string) (done bool, nextErrorContext string, err error) {
	pctx := s.preparePrompt(errorContext)

	resp, err := s.callLLM(ctx, pctx)
	if err != nil {
		return false, "", err
	}

	s.recordResponse(ctx, pctx, resp)

	return s.processResponse(ctx, resp.content)
}

// emit delivers an event unless the run's context is done.
func (s *session) emit(ctx context.Context, event types.AgentEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
		// Still try to hand over terminal events without blocking.
		if types.IsTerminal(event) {
			select {
			case s.events <- event:
			default:
			}
		}
	}
}
