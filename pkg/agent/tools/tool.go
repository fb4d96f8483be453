package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"sort"
)

// Tool is a capability the agent invokes with an XML tool call.
//
// Example tool call from the model:
//
//	<tool>
//	<server_name>local</server_name>
//	<tool_name>record_plan</tool_name>
//	<arguments>
//	  <steps>
//	    <step>Open the login page</step>
//	    <step>Sign in as the demo user</step>
//	  </steps>
//	</arguments>
//	</tool>
type Tool interface {
	// Name returns the unique identifier used in <tool_name>.
	Name() string

	// Description tells the model what the tool does and when to use it.
	Description() string

	// Schema returns a JSON schema of the tool's arguments. It is rendered
	// into the system prompt only; arguments arrive as XML.
	Schema() map[string]interface{}

	// Execute runs the tool with the raw <arguments> element and returns the
	// text fed back to the model plus optional metadata for events.
	Execute(ctx context.Context, argumentsXML []byte) (string, map[string]interface{}, error)

	// IsLoopBreaking reports whether a successful call ends the agent run.
	IsLoopBreaking() bool
}

// ToolCall represents a parsed tool invocation from the model's response
type ToolCall struct {
	XMLName    xml.Name       `xml:"tool"`
	ServerName string         `xml:"server_name"`
	ToolName   string         `xml:"tool_name"`
	Arguments  ArgumentsBlock `xml:"arguments"`
}

// ArgumentsBlock holds the raw XML of the arguments element
type ArgumentsBlock struct {
	InnerXML []byte `xml:",innerxml"`
}

// GetArgumentsXML returns the arguments wrapped in <arguments> tags for unmarshaling.
func (tc *ToolCall) GetArgumentsXML() []byte {
	const prefix = "<arguments>"
	const suffix = "</arguments>"

	result := make([]byte, 0, len(prefix)+len(tc.Arguments.InnerXML)+len(suffix))
	result = append(result, prefix...)
	result = append(result, tc.Arguments.InnerXML...)
	result = append(result, suffix...)
	return result
}

// BaseToolSchema creates a common JSON schema structure for a tool
// with the given properties and required fields
func BaseToolSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Registry is a name-indexed set of tools.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds a registry, rejecting empty or duplicate names.
func NewRegistry(tt ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tt))}
	for _, t := range tt {
		if t == nil {
			continue
		}
		name := t.Name()
		if name == "" {
			return nil, fmt.Errorf("tool %T has an empty name", t)
		}
		if _, dup := r.tools[name]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", name)
		}
		r.tools[name] = t
	}
	return r, nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns the tools sorted by name.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
