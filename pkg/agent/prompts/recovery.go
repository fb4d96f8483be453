package prompts

import "fmt"

// NoToolCallMessage is sent after a response that contained no tool call.
func NoToolCallMessage(turnsLeft int) string {
	return fmt.Sprintf(`<error>
Your last response did not contain a tool call. Every response must end with exactly one tool call in the <tool> format.
Continue the task: explore with the browser tools, call record_plan and record_script_and_execute, and finish with task_completion once the test passes.
Turns remaining: %d
</error>`, turnsLeft)
}

// ParseErrorMessage is sent when a tool call could not be parsed.
func ParseErrorMessage(err error) string {
	return fmt.Sprintf(`<error>
Your tool call could not be parsed: %v
Use the documented XML format, wrap scripts in CDATA and put list items in nested elements.
</error>`, err)
}

// UnknownToolMessage is sent when the model names a tool that is not offered.
func UnknownToolMessage(name string, available []string) string {
	return fmt.Sprintf("<error>\nUnknown tool %q. Available tools: %v\n</error>", name, available)
}

// ToolResultMessage wraps a tool's output for the next user turn.
func ToolResultMessage(name, result string) string {
	return fmt.Sprintf("Tool '%s' result:\n%s", name, result)
}

// ToolErrorMessage wraps a tool failure for the next user turn.
func ToolErrorMessage(name string, err error) string {
	return fmt.Sprintf("Tool '%s' error:\n%v", name, err)
}
