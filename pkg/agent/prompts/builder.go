package prompts

import (
	"fmt"
	"strings"

	"github.com/entrhq/testforge/pkg/agent/tools"
	"github.com/entrhq/testforge/pkg/types"
)

// PromptBuilder assembles the system prompt for a test generation run.
type PromptBuilder struct {
	tools              []tools.Tool
	customInstructions string
	withGuidelines     bool
}

// NewPromptBuilder creates a builder that includes the Playwright guidelines.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{
		tools:          []tools.Tool{},
		withGuidelines: true,
	}
}

// WithTools sets the tools rendered into available_tools.
func (pb *PromptBuilder) WithTools(toolsList []tools.Tool) *PromptBuilder {
	pb.tools = toolsList
	return pb
}

// WithCustomInstructions adds operator-supplied instructions ahead of the
// built-in sections.
func (pb *PromptBuilder) WithCustomInstructions(instructions string) *PromptBuilder {
	pb.customInstructions = instructions
	return pb
}

// WithGuidelines toggles the Playwright guidelines section.
func (pb *PromptBuilder) WithGuidelines(enabled bool) *PromptBuilder {
	pb.withGuidelines = enabled
	return pb
}

// Build constructs the complete system prompt.
func (pb *PromptBuilder) Build() string {
	var builder strings.Builder

	if pb.customInstructions != "" {
		builder.WriteString("<custom_instructions>\n")
		builder.WriteString(pb.customInstructions)
		builder.WriteString("\n</custom_instructions>\n\n")
	}

	builder.WriteString(RolePrompt)
	builder.WriteString("\n\n")

	builder.WriteString(ToolCallingPrompt)
	builder.WriteString("\n\n")

	if len(pb.tools) > 0 {
		builder.WriteString("<available_tools>\n")
		builder.WriteString(FormatToolSchemas(pb.tools))
		builder.WriteString("</available_tools>\n\n")
	}

	builder.WriteString(ToolUseRulesPrompt)

	if pb.withGuidelines {
		builder.WriteString("\n\n")
		builder.WriteString(PlaywrightGuidelinesPrompt)
	}

	return builder.String()
}

// Preamble is placed ahead of the system prompt so the target is the first
// thing the model reads.
func Preamble(targetURL string) string {
	return fmt.Sprintf("Target URL: %s\n", targetURL)
}

// Task renders the first user message of a run.
func Task(targetURL, description string) string {
	return fmt.Sprintf("Write a Playwright test for %s.\n\nTest case:\n%s", targetURL, strings.TrimSpace(description))
}

// BuildMessages creates the message list for one model call. errorContext is
// an ephemeral user message that is not kept in the history.
func BuildMessages(systemPrompt string, history []*types.Message, errorContext string) []*types.Message {
	messages := make([]*types.Message, 0, len(history)+2)
	messages = append(messages, types.NewSystemMessage(systemPrompt))

	for _, msg := range history {
		if msg.Role != types.RoleSystem {
			messages = append(messages, msg)
		}
	}

	if errorContext != "" {
		messages = append(messages, types.NewUserMessage(errorContext))
	}

	return messages
}
