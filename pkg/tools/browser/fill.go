package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/testforge/pkg/agent/tools"
	"github.com/entrhq/testforge/pkg/types"
)

// FillToolName is the tool name the agent uses to type into an input.
const FillToolName = "browser_fill"

// FillTool fills a form field on the current page.
type FillTool struct {
	driver Driver
}

// NewFillTool creates a new fill tool.
func NewFillTool(driver Driver) *FillTool {
	return &FillTool{driver: driver}
}

// Name returns the tool name.
func (t *FillTool) Name() string {
	return FillToolName
}

// Description returns the tool description.
func (t *FillTool) Description() string {
	return "Fill an input, textarea, or contenteditable element with text. Existing content is replaced."
}

// Schema returns the tool's JSON schema.
func (t *FillTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "Selector for the field (e.g., 'input[name=\"email\"]', '#password')",
			},
			"value": map[string]interface{}{
				"type":        "string",
				"description": "Text to enter. An empty value clears the field.",
			},
			"timeout": map[string]interface{}{
				"type":        "number",
				"description": "Maximum wait for the element in milliseconds",
			},
		},
		[]string{"selector", "value"},
	)
}

type fillInput struct {
	XMLName  xml.Name `xml:"arguments"`
	Selector string   `xml:"selector"`
	Value    string   `xml:"value"`
	Timeout  *float64 `xml:"timeout"`
}

// Execute fills the field.
func (t *FillTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input fillInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, types.AgentProtocolError(fmt.Sprintf("invalid parameters: %v", err))
	}
	if input.Selector == "" {
		return "", nil, types.AgentProtocolError("selector is required")
	}
	timeout, err := validateTimeout(input.Timeout)
	if err != nil {
		return "", nil, err
	}

	opts := FillOptions{Selector: input.Selector, Value: input.Value, Timeout: timeout}
	if err := t.driver.Fill(opts); err != nil {
		return "", nil, err
	}

	result := fmt.Sprintf(`Fill executed successfully

Fill Details:
- Selector: %s
- Characters: %d
- Current URL: %s`,
		opts.Selector,
		len([]rune(opts.Value)),
		t.driver.Info().URL,
	)

	return result, map[string]interface{}{"selector": opts.Selector}, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *FillTool) IsLoopBreaking() bool {
	return false
}
