package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/entrhq/testforge/pkg/agent/prompts"
	"github.com/entrhq/testforge/pkg/llm"
	"github.com/entrhq/testforge/pkg/llm/tokenizer"
	"github.com/entrhq/testforge/pkg/logging"
	"github.com/entrhq/testforge/pkg/types"
)

// DefaultAgentName is reported in the AgentUpdated event.
const DefaultAgentName = "test-writer"

// DefaultRuntime drives an llm.Provider with XML tool calls.
//
// Every turn must end in a tool call. A turn without one is answered with a
// recovery message and still counts against the budget. Tool errors are fed
// back to the model as text; they never end the run.
type DefaultRuntime struct {
	provider   llm.Provider
	tokenizer  *tokenizer.Tokenizer
	logger     *logging.Logger
	agentName  string
	bufferSize int
	guidelines bool
}

// RuntimeOption configures a DefaultRuntime.
type RuntimeOption func(*DefaultRuntime)

// WithLogger sets the logger used for the conversation transcript.
func WithLogger(logger *logging.Logger) RuntimeOption {
	return func(r *DefaultRuntime) {
		r.logger = logger
	}
}

// WithAgentName sets the name reported in AgentUpdated.
func WithAgentName(name string) RuntimeOption {
	return func(r *DefaultRuntime) {
		r.agentName = name
	}
}

// WithBufferSize sets the event channel buffer size
func WithBufferSize(size int) RuntimeOption {
	return func(r *DefaultRuntime) {
		r.bufferSize = size
	}
}

// WithTokenizer overrides the tokenizer used for usage events when the
// provider does not report usage.
func WithTokenizer(tok *tokenizer.Tokenizer) RuntimeOption {
	return func(r *DefaultRuntime) {
		r.tokenizer = tok
	}
}

// WithGuidelines toggles the Playwright guidelines in the system prompt.
func WithGuidelines(enabled bool) RuntimeOption {
	return func(r *DefaultRuntime) {
		r.guidelines = enabled
	}
}

// NewDefaultRuntime creates a runtime for the given provider.
func NewDefaultRuntime(provider llm.Provider, opts ...RuntimeOption) *DefaultRuntime {
	// A nil tokenizer falls back to length estimates.
	tok, err := tokenizer.New()
	if err != nil {
		tok = nil
	}

	r := &DefaultRuntime{
		provider:   provider,
		tokenizer:  tok,
		agentName:  DefaultAgentName,
		bufferSize: 16,
		guidelines: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.Discard("agent")
	}
	return r
}

// Run implements Runtime.
func (r *DefaultRuntime) Run(ctx context.Context, req RunRequest) (<-chan types.AgentEvent, error) {
	if r.provider == nil {
		return nil, errors.New("agent runtime has no LLM provider")
	}
	if err := req.normalize(); err != nil {
		return nil, err
	}

	registry, err := buildRegistry(req.Tools)
	if err != nil {
		return nil, err
	}

	systemPrompt := prompts.NewPromptBuilder().
		WithTools(registry.List()).
		WithCustomInstructions(req.Instructions).
		WithGuidelines(r.guidelines).
		Build()
	if req.Preamble != "" {
		systemPrompt = strings.TrimRight(req.Preamble, "\n") + "\n\n" + systemPrompt
	}

	s := &session{
		rt:           r,
		registry:     registry,
		systemPrompt: systemPrompt,
		maxTurns:     req.MaxTurns,
		events:       make(chan types.AgentEvent, r.bufferSize),
		history:      []*types.Message{types.NewUserMessage(req.Task)},
	}

	r.logger.Infof("starting run: model=%s tools=%v max_turns=%d", r.provider.GetModel(), registry.Names(), req.MaxTurns)
	r.logger.Block("task", req.Task)

	go s.run(ctx)
	return s.events, nil
}
