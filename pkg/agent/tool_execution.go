package agent

import (
	"context"
	"maps"

	"github.com/entrhq/testforge/pkg/agent/prompts"
	"github.com/entrhq/testforge/pkg/agent/tools"
	"github.com/entrhq/testforge/pkg/types"
)

// processResponse parses the tool call out of a response and executes it.
// Returns (done, errorContext, err) following executeIteration.
func (s *session) processResponse(ctx context.Context, content string) (bool, string, error) {
	prose, toolCall, parseErr := tools.SplitToolCall(content)
	if prose != "" {
		s.emit(ctx, types.MessageOutput{Content: prose})
	}

	if parseErr != nil {
		s.rt.logger.Warnf("turn %d: unparseable tool call: %v", s.turn, parseErr)
		return false, prompts.ParseErrorMessage(parseErr), nil
	}
	if toolCall == nil {
		s.rt.logger.Warnf("turn %d: response without tool call", s.turn)
		return false, prompts.NoToolCallMessage(s.maxTurns - s.turn), nil
	}

	return s.executeTool(ctx, *toolCall)
}

// lookupTool retrieves a tool by name, returning a recovery message when
// the model asked for a tool that is not offered.
func (s *session) lookupTool(name string) (tools.Tool, string) {
	tool, ok := s.registry.Get(name)
	if !ok {
		s.rt.logger.Warnf("turn %d: unknown tool %q", s.turn, name)
		return nil, prompts.UnknownToolMessage(name, s.registry.Names())
	}
	return tool, ""
}

// executeTool runs a tool call and feeds the outcome back into the history.
func (s *session) executeTool(ctx context.Context, toolCall tools.ToolCall) (bool, string, error) {
	tool, errCtx := s.lookupTool(toolCall.ToolName)
	if tool == nil {
		return false, errCtx, nil
	}

	argsXML := toolCall.GetArgumentsXML()
	argsMap, err := tools.XMLToMap(argsXML)
	if err != nil {
		// The tool itself handles the raw XML.
		argsMap = make(map[string]interface{})
	}
	s.emit(ctx, types.ToolCallStarted{ToolName: toolCall.ToolName, Input: argsMap, Turn: s.turn})

	result, metadata, toolErr := tool.Execute(ctx, argsXML)
	if ctx.Err() != nil {
		return false, "", ctx.Err()
	}

	if toolErr != nil {
		s.rt.logger.Warnf("turn %d: tool %s failed: %v", s.turn, toolCall.ToolName, toolErr)
		msg := prompts.ToolErrorMessage(toolCall.ToolName, toolErr)
		s.emit(ctx, types.ToolCallOutput{ToolName: toolCall.ToolName, Output: msg, Err: toolErr, Turn: s.turn})
		s.history = append(s.history, types.NewUserMessage(msg))
		return false, "", nil
	}

	out := types.ToolCallOutput{ToolName: toolCall.ToolName, Output: result, Turn: s.turn}
	if len(metadata) > 0 {
		out.Metadata = make(map[string]interface{}, len(metadata))
		maps.Copy(out.Metadata, metadata)
	}
	s.emit(ctx, out)

	if tool.IsLoopBreaking() {
		return true, "", nil
	}

	s.rt.logger.Block(toolCall.ToolName+" result", result)
	s.history = append(s.history, types.NewUserMessage(prompts.ToolResultMessage(toolCall.ToolName, result)))
	return false, "", nil
}
