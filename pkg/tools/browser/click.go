package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/testforge/pkg/agent/tools"
	"github.com/entrhq/testforge/pkg/types"
)

// ClickToolName is the tool name the agent uses to click an element.
const ClickToolName = "browser_click"

// ClickTool clicks an element on the current page.
type ClickTool struct {
	driver Driver
}

// NewClickTool creates a new click tool.
func NewClickTool(driver Driver) *ClickTool {
	return &ClickTool{driver: driver}
}

// Name returns the tool name.
func (t *ClickTool) Name() string {
	return ClickToolName
}

// Description returns the tool description.
func (t *ClickTool) Description() string {
	return "Click an element on the current page using a CSS or Playwright selector. Supports single and double clicks, and different mouse buttons."
}

// Schema returns the tool's JSON schema.
func (t *ClickTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "Selector for the element to click (e.g., 'button.submit', '#login-btn', 'text=Sign in')",
			},
			"button": map[string]interface{}{
				"type":        "string",
				"description": "Mouse button to use: 'left' (default), 'right', or 'middle'",
			},
			"click_count": map[string]interface{}{
				"type":        "integer",
				"description": "Number of clicks: 1 (default) for single click, 2 for double click",
			},
			"timeout": map[string]interface{}{
				"type":        "number",
				"description": "Maximum wait for the element in milliseconds",
			},
		},
		[]string{"selector"},
	)
}

type clickInput struct {
	XMLName    xml.Name `xml:"arguments"`
	Selector   string   `xml:"selector"`
	Button     string   `xml:"button"`
	ClickCount *int     `xml:"click_count"`
	Timeout    *float64 `xml:"timeout"`
}

// Execute clicks an element.
func (t *ClickTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input clickInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, types.AgentProtocolError(fmt.Sprintf("invalid parameters: %v", err))
	}
	if input.Selector == "" {
		return "", nil, types.AgentProtocolError("selector is required")
	}

	opts := ClickOptions{Selector: input.Selector, Button: input.Button, ClickCount: 1}
	if opts.Button == "" {
		opts.Button = "left"
	}
	switch opts.Button {
	case "left", "right", "middle":
	default:
		return "", nil, types.AgentProtocolError(fmt.Sprintf("invalid button: %s (must be 'left', 'right', or 'middle')", opts.Button))
	}
	if input.ClickCount != nil {
		if *input.ClickCount < 1 || *input.ClickCount > 3 {
			return "", nil, types.AgentProtocolError("click_count must be between 1 and 3")
		}
		opts.ClickCount = *input.ClickCount
	}
	timeout, err := validateTimeout(input.Timeout)
	if err != nil {
		return "", nil, err
	}
	opts.Timeout = timeout

	if err := t.driver.Click(opts); err != nil {
		return "", nil, err
	}

	clickType := "single"
	if opts.ClickCount == 2 {
		clickType = "double"
	} else if opts.ClickCount == 3 {
		clickType = "triple"
	}

	info := t.driver.Info()
	result := fmt.Sprintf(`Click executed successfully

Click Details:
- Selector: %s
- Button: %s
- Type: %s click
- Current URL: %s`,
		opts.Selector,
		opts.Button,
		clickType,
		info.URL,
	)

	return result, map[string]interface{}{"selector": opts.Selector}, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *ClickTool) IsLoopBreaking() bool {
	return false
}
