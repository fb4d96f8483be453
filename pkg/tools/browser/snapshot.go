package browser

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/entrhq/testforge/pkg/agent/tools"
	"github.com/entrhq/testforge/pkg/types"
)

// SnapshotToolName is the tool name the agent uses to read the page.
const SnapshotToolName = "browser_snapshot"

// SnapshotTool returns the current page as cleaned HTML.
type SnapshotTool struct {
	driver    Driver
	maxLength int
}

// NewSnapshotTool creates a snapshot tool. A non-positive maxLength uses
// DefaultSnapshotLength.
func NewSnapshotTool(driver Driver, maxLength int) *SnapshotTool {
	if maxLength <= 0 {
		maxLength = DefaultSnapshotLength
	}
	return &SnapshotTool{driver: driver, maxLength: maxLength}
}

// Name returns the tool name.
func (t *SnapshotTool) Name() string {
	return SnapshotToolName
}

// Description returns the tool description.
func (t *SnapshotTool) Description() string {
	return "Return the current page as simplified HTML with scripts and styles removed. Ids, classes, roles, aria and data-* attributes are kept so you can pick stable selectors."
}

// Schema returns the tool's JSON schema.
func (t *SnapshotTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"max_length": map[string]interface{}{
				"type":        "integer",
				"description": fmt.Sprintf("Maximum characters of page text to return. Default: %d", t.maxLength),
			},
		},
		nil,
	)
}

type snapshotInput struct {
	XMLName   xml.Name `xml:"arguments"`
	MaxLength *int     `xml:"max_length"`
}

// Execute captures the page.
func (t *SnapshotTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input snapshotInput
	if len(strings.TrimSpace(string(argsXML))) > 0 {
		if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
			return "", nil, types.AgentProtocolError(fmt.Sprintf("invalid parameters: %v", err))
		}
	}

	maxLength := t.maxLength
	if input.MaxLength != nil {
		if *input.MaxLength <= 0 {
			return "", nil, types.AgentProtocolError("max_length must be positive")
		}
		maxLength = *input.MaxLength
	}

	raw, err := t.driver.Content()
	if err != nil {
		return "", nil, err
	}
	cleaned, err := cleanHTML(raw, maxLength)
	if err != nil {
		return "", nil, err
	}

	info := t.driver.Info()
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\nTitle: %s\n", info.URL, titleOrUnknown(cleaned.Title))
	if cleaned.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", cleaned.Description)
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(cleaned.HTML))
	if cleaned.Truncated {
		b.WriteString("\n\n[snapshot truncated; raise max_length to see more]")
	}

	return b.String(), map[string]interface{}{"truncated": cleaned.Truncated}, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *SnapshotTool) IsLoopBreaking() bool {
	return false
}

// ToolsFor returns the browser tools bound to a driver.
func ToolsFor(d Driver) []tools.Tool {
	return []tools.Tool{
		NewNavigateTool(d),
		NewClickTool(d),
		NewFillTool(d),
		NewWaitTool(d),
		NewSnapshotTool(d, DefaultSnapshotLength),
	}
}
