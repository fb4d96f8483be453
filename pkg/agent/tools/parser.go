package tools

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	defaultServerName = "local"
	maxXMLSize        = 10 * 1024 * 1024 // 10MB limit for XML tool calls
	argumentsTagName  = "arguments"
)

var (
	toolRegex     = regexp.MustCompile(`(?s)<tool>.*?</tool>`)
	toolNameRegex = regexp.MustCompile(`(?s)<tool_name>\s*(.*?)\s*</tool_name>`)
	serverRegex   = regexp.MustCompile(`(?s)<server_name>\s*(.*?)\s*</server_name>`)
	cdataRegex    = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)

	// ampersandEntityRegex matches ampersands that already start an entity:
	// &amp; &lt; &gt; &quot; &apos; &#123; &#xAB;
	ampersandEntityRegex = regexp.MustCompile(`&(?:amp|lt|gt|quot|apos|#\d+|#x[0-9a-fA-F]+);`)
)

// ParseToolCall extracts the tool call from a model response.
//
// Expected format, with code wrapped in CDATA:
//
//	<tool>
//	<server_name>local</server_name>
//	<tool_name>record_script_and_execute</tool_name>
//	<arguments>
//	  <script><![CDATA[test("login", async ({ page }) => { ... })]]></script>
//	</arguments>
//	</tool>
//
// Only one call per response is honoured. When the element is not well-formed
// XML (typically unescaped '<' in a script) the tool name and the raw
// arguments are recovered textually so the tool can apply its own fallback.
//
// Returns the call and the response text with the call removed.
func ParseToolCall(text string) (*ToolCall, string, error) {
	if len(text) > maxXMLSize {
		return nil, text, fmt.Errorf("tool call XML exceeds maximum size of %d bytes", maxXMLSize)
	}

	loc := toolRegex.FindStringIndex(text)
	if loc == nil {
		return nil, text, fmt.Errorf("no tool call found in text")
	}
	toolXML := strings.TrimSpace(text[loc[0]:loc[1]])
	remaining := strings.TrimSpace(text[:loc[0]] + text[loc[1]:])

	var toolCall ToolCall
	if err := UnmarshalXMLWithFallback([]byte(toolXML), &toolCall); err != nil {
		recovered, ok := recoverToolCall(toolXML)
		if !ok {
			snippet := toolXML
			if len(snippet) > 200 {
				snippet = snippet[:200] + "..."
			}
			return nil, text, fmt.Errorf("failed to unmarshal tool call XML: %w\nXML snippet: %s", err, snippet)
		}
		toolCall = *recovered
	}

	toolCall.ToolName = strings.TrimSpace(toolCall.ToolName)
	if toolCall.ToolName == "" {
		return nil, text, fmt.Errorf("tool_name is required in tool call")
	}
	if toolCall.ServerName == "" {
		toolCall.ServerName = defaultServerName
	}

	return &toolCall, remaining, nil
}

// recoverToolCall pulls tool_name and the raw arguments out of a tool element
// that is not well-formed XML.
func recoverToolCall(toolXML string) (*ToolCall, bool) {
	m := toolNameRegex.FindStringSubmatch(toolXML)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return nil, false
	}

	tc := &ToolCall{ToolName: strings.TrimSpace(m[1])}
	if s := serverRegex.FindStringSubmatch(toolXML); s != nil {
		tc.ServerName = strings.TrimSpace(s[1])
	}

	open := "<" + argumentsTagName + ">"
	closing := "</" + argumentsTagName + ">"
	start := strings.Index(toolXML, open)
	end := strings.LastIndex(toolXML, closing)
	if start >= 0 && end > start {
		tc.Arguments.InnerXML = []byte(toolXML[start+len(open) : end])
	}
	return tc, true
}

// SplitToolCall separates the prose before a tool call from the call itself.
// Without a tool call the whole text is returned as prose and call is nil.
func SplitToolCall(text string) (prose string, call *ToolCall, err error) {
	loc := toolRegex.FindStringIndex(text)
	if loc == nil {
		return strings.TrimSpace(text), nil, nil
	}

	prose = strings.TrimSpace(text[:loc[0]])
	call, _, err = ParseToolCall(text[loc[0]:loc[1]])
	return prose, call, err
}

// HasToolCall checks if the text contains a tool call.
func HasToolCall(text string) bool {
	return toolRegex.MatchString(text)
}

// UnmarshalXMLWithFallback attempts to unmarshal XML, retrying with bare
// ampersands escaped if the first parse fails.
func UnmarshalXMLWithFallback(data []byte, v interface{}) error {
	err := xml.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	return xml.Unmarshal(escapeUnescapedAmpersands(data), v)
}

// escapeUnescapedAmpersands replaces bare & with &amp; while preserving
// existing entities.
func escapeUnescapedAmpersands(data []byte) []byte {
	text := string(data)

	entityStarts := make(map[int]bool)
	for _, match := range ampersandEntityRegex.FindAllStringIndex(text, -1) {
		entityStarts[match[0]] = true
	}

	var result strings.Builder
	result.Grow(len(text) + 20)
	for i := 0; i < len(text); i++ {
		if text[i] == '&' && !entityStarts[i] {
			result.WriteString("&amp;")
		} else {
			result.WriteByte(text[i])
		}
	}
	return []byte(result.String())
}

// ExtractElement returns the raw text between the first <name> and the last
// </name> in data, with CDATA sections unwrapped. It is the fallback for
// arguments that are not well-formed XML.
func ExtractElement(data []byte, name string) (string, bool) {
	text := string(data)
	open := "<" + name + ">"
	closing := "</" + name + ">"

	start := strings.Index(text, open)
	end := strings.LastIndex(text, closing)
	if start < 0 || end < start+len(open) {
		return "", false
	}

	inner := text[start+len(open) : end]
	if cdataRegex.MatchString(inner) {
		inner = cdataRegex.ReplaceAllString(inner, "$1")
	}
	return strings.TrimSpace(inner), true
}

// XMLToMap converts an <arguments> element to a map for events and logs.
// A child with text becomes a string. A child containing elements becomes a
// []string of their texts, so <steps><step>a</step><step>b</step></steps>
// maps to "steps": ["a", "b"]. Repeated children also collect into a slice.
func XMLToMap(data []byte) (map[string]interface{}, error) {
	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	decoder.Strict = false
	result := make(map[string]interface{})

	var path []string
	var text strings.Builder
	var items []string
	hasItems := false

	add := func(key string, value interface{}) {
		prev, exists := result[key]
		if !exists {
			result[key] = value
			return
		}
		var merged []string
		switch p := prev.(type) {
		case string:
			merged = []string{p}
		case []string:
			merged = p
		}
		switch v := value.(type) {
		case string:
			merged = append(merged, v)
		case []string:
			merged = append(merged, v...)
		}
		result[key] = merged
	}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse XML: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			path = append(path, t.Name.Local)
			if len(path) == 2 {
				items = nil
				hasItems = false
			}
			text.Reset()

		case xml.EndElement:
			if len(path) == 0 {
				continue
			}
			depth := len(path)
			name := path[depth-1]
			path = path[:depth-1]

			switch depth {
			case 3:
				// grandchild of <arguments>: a list item
				items = append(items, strings.TrimSpace(text.String()))
				hasItems = true
			case 2:
				if hasItems {
					add(name, items)
				} else if v := strings.TrimSpace(text.String()); v != "" {
					add(name, v)
				}
			}
			text.Reset()

		case xml.CharData:
			text.Write(t)
		}
	}

	return result, nil
}
