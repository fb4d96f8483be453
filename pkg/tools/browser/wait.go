package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/testforge/pkg/agent/tools"
	"github.com/entrhq/testforge/pkg/types"
)

// WaitToolName is the tool name the agent uses to wait for an element.
const WaitToolName = "browser_wait"

var validElementStates = map[string]bool{
	"attached": true,
	"detached": true,
	"visible":  true,
	"hidden":   true,
}

// WaitTool waits for an element to reach a state.
type WaitTool struct {
	driver Driver
}

// NewWaitTool creates a new wait tool.
func NewWaitTool(driver Driver) *WaitTool {
	return &WaitTool{driver: driver}
}

// Name returns the tool name.
func (t *WaitTool) Name() string {
	return WaitToolName
}

// Description returns the tool description.
func (t *WaitTool) Description() string {
	return "Wait for an element to reach a specific state. Useful for dynamic content, loading indicators, or elements that appear after an action."
}

// Schema returns the tool's JSON schema.
func (t *WaitTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "Selector for the element to wait for (e.g., '.loading-spinner', '#content')",
			},
			"state": map[string]interface{}{
				"type":        "string",
				"description": "State to wait for: 'attached' (in DOM), 'detached' (removed from DOM), 'visible' (default), or 'hidden'",
			},
			"timeout": map[string]interface{}{
				"type":        "number",
				"description": "Maximum wait time in milliseconds",
			},
		},
		[]string{"selector"},
	)
}

type waitInput struct {
	XMLName  xml.Name `xml:"arguments"`
	Selector string   `xml:"selector"`
	State    string   `xml:"state"`
	Timeout  *float64 `xml:"timeout"`
}

// Execute waits for an element.
func (t *WaitTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input waitInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, types.AgentProtocolError(fmt.Sprintf("invalid parameters: %v", err))
	}
	if input.Selector == "" {
		return "", nil, types.AgentProtocolError("selector is required")
	}

	opts := WaitOptions{Selector: input.Selector, State: input.State}
	if opts.State == "" {
		opts.State = "visible"
	}
	if !validElementStates[opts.State] {
		return "", nil, types.AgentProtocolError(fmt.Sprintf("invalid state: %s (must be 'attached', 'detached', 'visible', or 'hidden')", opts.State))
	}
	timeout, err := validateTimeout(input.Timeout)
	if err != nil {
		return "", nil, err
	}
	opts.Timeout = timeout

	if err := t.driver.Wait(opts); err != nil {
		return "", nil, err
	}

	result := fmt.Sprintf(`Wait completed successfully

Wait Details:
- Selector: %s
- State: %s
- Current URL: %s`,
		opts.Selector,
		opts.State,
		t.driver.Info().URL,
	)

	return result, nil, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *WaitTool) IsLoopBreaking() bool {
	return false
}
