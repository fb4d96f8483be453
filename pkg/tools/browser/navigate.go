package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/testforge/pkg/agent/tools"
	"github.com/entrhq/testforge/pkg/types"
)

// NavigateToolName is the tool name the agent uses to load a page.
const NavigateToolName = "browser_navigate"

var validWaitStates = map[string]bool{
	"load":             true,
	"domcontentloaded": true,
	"networkidle":      true,
}

// NavigateTool loads a URL in the instance's browser.
type NavigateTool struct {
	driver Driver
}

// NewNavigateTool creates a new navigate tool.
func NewNavigateTool(driver Driver) *NavigateTool {
	return &NavigateTool{driver: driver}
}

// Name returns the tool name.
func (t *NavigateTool) Name() string {
	return NavigateToolName
}

// Description returns the tool description.
func (t *NavigateTool) Description() string {
	return "Load a URL in the browser and wait for it to be ready. Start every exploration here with the target URL."
}

// Schema returns the tool's JSON schema.
func (t *NavigateTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "URL to navigate to (must include protocol, e.g., https://example.com)",
			},
			"wait_until": map[string]interface{}{
				"type":        "string",
				"description": "When to consider navigation complete: 'load' (default), 'domcontentloaded', or 'networkidle'",
			},
		},
		[]string{"url"},
	)
}

type navigateInput struct {
	XMLName   xml.Name `xml:"arguments"`
	URL       string   `xml:"url"`
	WaitUntil string   `xml:"wait_until"`
}

// Execute navigates to a URL.
func (t *NavigateTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input navigateInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, types.AgentProtocolError(fmt.Sprintf("invalid parameters: %v", err))
	}
	if input.URL == "" {
		return "", nil, types.AgentProtocolError("url is required")
	}

	opts := NavigateOptions{WaitUntil: input.WaitUntil}
	if opts.WaitUntil == "" {
		opts.WaitUntil = "load"
	}
	if !validWaitStates[opts.WaitUntil] {
		return "", nil, types.AgentProtocolError(fmt.Sprintf("invalid wait_until value: %s (must be 'load', 'domcontentloaded', or 'networkidle')", opts.WaitUntil))
	}

	if err := t.driver.Navigate(input.URL, opts); err != nil {
		return "", nil, err
	}

	info := t.driver.Info()
	result := fmt.Sprintf(`Navigation successful

Page Details:
- URL: %s
- Title: %s

Use browser_snapshot to see the page structure before choosing selectors.`,
		info.URL,
		titleOrUnknown(info.Title),
	)

	return result, map[string]interface{}{"url": info.URL}, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *NavigateTool) IsLoopBreaking() bool {
	return false
}

func titleOrUnknown(title string) string {
	if title == "" {
		return "Unknown"
	}
	return title
}

// validateTimeout checks an optional per-action timeout in milliseconds.
func validateTimeout(timeout *float64) (float64, error) {
	if timeout == nil {
		return 0, nil
	}
	if *timeout < 0 || *timeout > 300000 {
		return 0, types.AgentProtocolError("timeout must be between 0 and 300000 milliseconds (5 minutes)")
	}
	return *timeout, nil
}
