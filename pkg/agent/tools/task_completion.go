package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
)

// TaskCompletionToolName is the name of the built-in loop-breaking tool.
const TaskCompletionToolName = "task_completion"

// Outcomes an agent may declare when finishing.
const (
	OutcomePassed = "passed"
	OutcomeGaveUp = "gave_up"
)

// TaskCompletionTool ends the run. The agent calls it once its test script
// passes, or when it decides another attempt cannot help.
type TaskCompletionTool struct{}

func NewTaskCompletionTool() *TaskCompletionTool {
	return &TaskCompletionTool{}
}

func (t *TaskCompletionTool) Name() string {
	return TaskCompletionToolName
}

func (t *TaskCompletionTool) Description() string {
	return "Finish the session. Call this only after record_script_and_execute has reported PASSED, " +
		"or when further attempts cannot make the test pass. Summarize the final state of the test."
}

func (t *TaskCompletionTool) Schema() map[string]interface{} {
	return BaseToolSchema(
		map[string]interface{}{
			"result": map[string]interface{}{
				"type":        "string",
				"description": "Short summary of the final test: what it covers and whether it passed.",
			},
			"outcome": map[string]interface{}{
				"type":        "string",
				"enum":        []string{OutcomePassed, OutcomeGaveUp},
				"description": "passed if the last run passed, gave_up otherwise. Defaults to passed.",
			},
		},
		[]string{"result"},
	)
}

// Execute returns the summary. The declared outcome is informational; the
// driver trusts the last execution report, not the agent's claim.
func (t *TaskCompletionTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var args struct {
		XMLName xml.Name `xml:"arguments"`
		Result  string   `xml:"result"`
		Outcome string   `xml:"outcome"`
	}
	if err := UnmarshalXMLWithFallback(argsXML, &args); err != nil {
		return "", nil, fmt.Errorf("invalid arguments for %s: %w", TaskCompletionToolName, err)
	}

	summary := strings.TrimSpace(args.Result)
	if summary == "" {
		return "", nil, fmt.Errorf("%s requires a non-empty <result>", TaskCompletionToolName)
	}

	outcome := strings.TrimSpace(args.Outcome)
	switch outcome {
	case "":
		outcome = OutcomePassed
	case OutcomePassed, OutcomeGaveUp:
	default:
		return "", nil, fmt.Errorf("%s outcome must be %q or %q, got %q", TaskCompletionToolName, OutcomePassed, OutcomeGaveUp, outcome)
	}

	return summary, map[string]interface{}{"outcome": outcome}, nil
}

func (t *TaskCompletionTool) IsLoopBreaking() bool {
	return true
}
