package agent

import (
	"github.com/entrhq/testforge/pkg/agent/tools"
)

// buildRegistry indexes the request's tools and adds task_completion unless
// the caller supplied its own.
func buildRegistry(requested []tools.Tool) (*tools.Registry, error) {
	all := make([]tools.Tool, 0, len(requested)+1)
	hasCompletion := false
	for _, t := range requested {
		if t == nil {
			continue
		}
		if t.Name() == tools.TaskCompletionToolName {
			hasCompletion = true
		}
		all = append(all, t)
	}
	if !hasCompletion {
		all = append(all, tools.NewTaskCompletionTool())
	}
	return tools.NewRegistry(all...)
}
