// Package llm defines the boundary between the agent runtime and a model
// service. Concrete providers live in subpackages.
package llm

import (
	"context"

	"github.com/entrhq/testforge/pkg/types"
)

// Provider is an LLM integration.
//
// Providers only talk to the model service. The agent runtime turns chunks
// into AgentEvents, owns the conversation history and decides when a run ends.
type Provider interface {
	// StreamCompletion sends messages and streams back response chunks.
	//
	// The channel emits content deltas, then a chunk with Finished=true (which
	// may carry Usage). Stream-time failures arrive as a chunk with Error set.
	// The channel is always closed. The returned error is non-nil only when
	// the request could not be started.
	StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *StreamChunk, error)

	// Complete is StreamCompletion accumulated into a single message.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModelInfo returns information about the model being used.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model name being used.
	GetModel() string

	// GetBaseURL returns the base URL being used for API requests.
	GetBaseURL() string

	// GetAPIKey returns the API key being used for authentication.
	GetAPIKey() string
}

// Collect drains a stream into one message and the last reported usage.
func Collect(stream <-chan *StreamChunk) (*types.Message, *Usage, error) {
	var content []byte
	var usage *Usage
	role := string(types.RoleAssistant)

	for chunk := range stream {
		if chunk.IsError() {
			// Keep draining so the producer goroutine can exit.
			for range stream {
			}
			return nil, usage, chunk.Error
		}
		if chunk.Role != "" {
			role = chunk.Role
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		content = append(content, chunk.Content...)
	}

	return &types.Message{Role: types.MessageRole(role), Content: string(content)}, usage, nil
}
