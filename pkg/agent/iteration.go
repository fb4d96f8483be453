package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/testforge/pkg/agent/prompts"
	"github.com/entrhq/testforge/pkg/llm"
	"github.com/entrhq/testforge/pkg/llm/tokenizer"
	"github.com/entrhq/testforge/pkg/types"
)

// promptContext holds the prepared prompt and related metadata
type promptContext struct {
	messages     []*types.Message
	promptTokens int
}

// llmResponse holds the response from the LLM
type llmResponse struct {
	content          string
	usage            *llm.Usage
	completionTokens int
}

// preparePrompt builds the messages for the next call and counts their tokens.
func (s *session) preparePrompt(errorContext string) *promptContext {
	messages := prompts.BuildMessages(s.systemPrompt, s.history, errorContext)

	var promptTokens int
	if s.rt.tokenizer != nil {
		promptTokens = s.rt.tokenizer.CountMessagesTokens(messages)
	} else {
		for _, m := range messages {
			promptTokens += tokenizer.Estimate(m.Content)
		}
	}

	return &promptContext{messages: messages, promptTokens: promptTokens}
}

// callLLM streams one completion and accumulates it.
func (s *session) callLLM(ctx context.Context, pctx *promptContext) (*llmResponse, error) {
	s.rt.logger.Debugf("turn %d/%d: sending %d messages (~%d tokens)", s.turn, s.maxTurns, len(pctx.messages), pctx.promptTokens)

	stream, err := s.rt.provider.StreamCompletion(ctx, pctx.messages)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to start completion: %w", err)
	}

	msg, usage, err := llm.Collect(stream)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	return &llmResponse{
		content:          msg.Content,
		usage:            usage,
		completionTokens: s.rt.tokenizer.CountTokens(msg.Content),
	}, nil
}

// recordResponse emits token usage and appends the response to the history.
func (s *session) recordResponse(ctx context.Context, pctx *promptContext, resp *llmResponse) {
	usage := types.TokenUsage{
		PromptTokens:     pctx.promptTokens,
		CompletionTokens: resp.completionTokens,
		TotalTokens:      pctx.promptTokens + resp.completionTokens,
	}
	if resp.usage != nil {
		usage = types.TokenUsage{
			PromptTokens:     resp.usage.PromptTokens,
			CompletionTokens: resp.usage.CompletionTokens,
			TotalTokens:      resp.usage.TotalTokens,
		}
	}
	s.emit(ctx, usage)

	s.rt.logger.Block(fmt.Sprintf("assistant (turn %d)", s.turn), resp.content)
	s.history = append(s.history, types.NewAssistantMessage(strings.TrimSpace(resp.content)))
}
