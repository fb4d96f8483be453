package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/entrhq/testforge/pkg/agent/tools"
)

// FormatToolSchema renders one tool for the system prompt: name, description,
// parameter schema and an example call.
func FormatToolSchema(tool tools.Tool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s\n", tool.Name())
	if tool.IsLoopBreaking() {
		b.WriteString("(loop-breaking: calling this ends the session)\n")
	}
	b.WriteString(tool.Description())
	b.WriteString("\n\nParameters:\n")

	schema, err := json.MarshalIndent(tool.Schema(), "", "  ")
	if err != nil {
		schema = []byte("{}")
	}
	b.Write(schema)

	b.WriteString("\n\nExample:\n")
	if p, ok := tool.(XMLExampleProvider); ok {
		b.WriteString(p.XMLExample())
	} else {
		b.WriteString(GenerateXMLExample(tool.Schema(), tool.Name()))
	}
	b.WriteString("\n")

	return b.String()
}

// FormatToolSchemas renders every tool in order.
func FormatToolSchemas(toolsList []tools.Tool) string {
	if len(toolsList) == 0 {
		return "No tools available.\n"
	}

	var b strings.Builder
	b.WriteString("# AVAILABLE TOOLS\n\n")
	for _, t := range toolsList {
		b.WriteString(FormatToolSchema(t))
		b.WriteString("\n")
	}
	return b.String()
}
