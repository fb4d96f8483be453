package prompts

import (
	"fmt"
	"sort"
	"strings"
)

// XMLExampleProvider is an optional interface for tools that ship their own
// usage example instead of the one derived from their schema.
type XMLExampleProvider interface {
	XMLExample() string
}

// GenerateXMLExample renders a tool call for the required properties of a
// JSON schema.
func GenerateXMLExample(schema map[string]interface{}, toolName string) string {
	var b strings.Builder

	b.WriteString("<tool>\n")
	b.WriteString("<server_name>local</server_name>\n")
	fmt.Fprintf(&b, "<tool_name>%s</tool_name>\n", toolName)
	b.WriteString("<arguments>\n")

	properties, _ := schema["properties"].(map[string]interface{}) //nolint:errcheck
	required := make(map[string]bool)
	if req, ok := schema["required"].([]string); ok {
		for _, field := range req {
			required[field] = true
		}
	}

	names := make([]string, 0, len(properties))
	for name := range properties {
		if required[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		prop, ok := properties[name].(map[string]interface{})
		if !ok {
			continue
		}
		b.WriteString(propertyExample(name, prop, "  "))
	}

	b.WriteString("</arguments>\n")
	b.WriteString("</tool>")
	return b.String()
}

func propertyExample(name string, prop map[string]interface{}, indent string) string {
	propType, _ := prop["type"].(string) //nolint:errcheck

	switch propType {
	case "string":
		return stringExample(name, prop, indent)
	case "integer":
		return fmt.Sprintf("%s<%s>42</%s>\n", indent, name, name)
	case "number":
		return fmt.Sprintf("%s<%s>3.14</%s>\n", indent, name, name)
	case "boolean":
		return fmt.Sprintf("%s<%s>true</%s>\n", indent, name, name)
	case "array":
		return arrayExample(name, indent)
	default:
		return fmt.Sprintf("%s<%s>value</%s>\n", indent, name, name)
	}
}

func stringExample(name string, prop map[string]interface{}, indent string) string {
	if name == "script" {
		return fmt.Sprintf("%s<%s><![CDATA[test('example', async ({ page }) => { ... });]]></%s>\n", indent, name, name)
	}

	value := "value"
	if enum, ok := prop["enum"].([]interface{}); ok && len(enum) > 0 {
		if s, ok := enum[0].(string); ok {
			value = s
		}
	}
	return fmt.Sprintf("%s<%s>%s</%s>\n", indent, name, value, name)
}

// arrayExample shows the <steps><step>…</step></steps> shape that the
// argument parser turns into a list.
func arrayExample(name string, indent string) string {
	item := strings.TrimSuffix(name, "s")
	if item == name || item == "" {
		item = "item"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s<%s>\n", indent, name)
	fmt.Fprintf(&b, "%s  <%s>first</%s>\n", indent, item, item)
	fmt.Fprintf(&b, "%s  <%s>second</%s>\n", indent, item, item)
	fmt.Fprintf(&b, "%s</%s>\n", indent, name)
	return b.String()
}
