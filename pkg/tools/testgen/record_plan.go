package testgen

import (
	"context"
	"encoding/xml"
	"strings"

	"github.com/entrhq/testforge/pkg/agent/tools"
	"github.com/entrhq/testforge/pkg/types"
)

// RecordPlanToolName is the capability name shown to the agent.
const RecordPlanToolName = "record_plan"

// RecordPlanTool stores the agent's declared test plan.
type RecordPlanTool struct {
	ictx *InstanceContext
}

// NewRecordPlanTool creates a RecordPlanTool bound to one instance.
func NewRecordPlanTool(ictx *InstanceContext) (*RecordPlanTool, error) {
	if err := ictx.validate(); err != nil {
		return nil, err
	}
	return &RecordPlanTool{ictx: ictx}, nil
}

// Name returns the tool name.
func (t *RecordPlanTool) Name() string {
	return RecordPlanToolName
}

// Description returns the tool description.
func (t *RecordPlanTool) Description() string {
	return "Record the test plan: the ordered steps of the test in natural language. " +
		"Each step must match the argument of the corresponding successful_step call in the script verbatim."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *RecordPlanTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"steps": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "string",
				},
				"description": "Ordered test steps, one clear action or verification each",
				"minItems":    1,
			},
		},
		[]string{"steps"},
	)
}

// Execute records the plan in the instance's capture record.
func (t *RecordPlanTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		Steps   []string `xml:"steps>step"`
	}

	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, types.AgentProtocolError("record_plan arguments are not valid XML: " + err.Error())
	}

	steps := make([]string, 0, len(input.Steps))
	for _, s := range input.Steps {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
	}
	if len(steps) == 0 {
		return "", nil, types.AgentProtocolError("record_plan requires at least one step in <steps><step>…</step></steps>")
	}

	id := t.ictx.Workspace.ID
	if err := t.ictx.Store.SetPlan(id, steps); err != nil {
		return "", nil, err
	}
	t.ictx.logger().Block("test plan", strings.Join(steps, "\n"))

	return "Test plan recorded successfully", map[string]interface{}{"steps": len(steps)}, nil
}

// IsLoopBreaking returns false as this tool doesn't break the agent loop.
func (t *RecordPlanTool) IsLoopBreaking() bool {
	return false
}
