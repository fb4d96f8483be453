package main

import (
	"context"

	"github.com/entrhq/testforge/pkg/agent"
	"github.com/entrhq/testforge/pkg/types"
)

// unconfiguredRuntime stands in when no API key is set. Generate rejects the
// request with a configuration error before ever calling it.
type unconfiguredRuntime struct{}

func (unconfiguredRuntime) Run(context.Context, agent.RunRequest) (<-chan types.AgentEvent, error) {
	return nil, types.ConfigurationError("OPENAI_API_KEY is not set")
}
