package prompts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/entrhq/testforge/pkg/agent/tools"
	"github.com/entrhq/testforge/pkg/types"
)

type stepsTool struct{}

func (stepsTool) Name() string        { return "record_plan" }
func (stepsTool) Description() string { return "Record the test plan." }
func (stepsTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{
		"steps":   map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"comment": map[string]interface{}{"type": "string"},
	}, []string{"steps"})
}
func (stepsTool) Execute(context.Context, []byte) (string, map[string]interface{}, error) {
	return "", nil, nil
}
func (stepsTool) IsLoopBreaking() bool { return false }

func TestFormatToolSchema(t *testing.T) {
	formatted := FormatToolSchema(tools.NewTaskCompletionTool())

	for _, want := range []string{"## task_completion", "Finish the session", "Parameters:", "loop-breaking", "Example:", "<tool_name>task_completion</tool_name>"} {
		if !strings.Contains(formatted, want) {
			t.Errorf("formatted schema should contain %q", want)
		}
	}
}

func TestFormatToolSchemas(t *testing.T) {
	t.Run("MultipleTools", func(t *testing.T) {
		formatted := FormatToolSchemas([]tools.Tool{tools.NewTaskCompletionTool(), stepsTool{}})

		if !strings.Contains(formatted, "AVAILABLE TOOLS") {
			t.Error("should contain AVAILABLE TOOLS header")
		}
		if strings.Index(formatted, "task_completion") > strings.Index(formatted, "## record_plan") {
			t.Error("tools should be rendered in the given order")
		}
	})

	t.Run("NoTools", func(t *testing.T) {
		if !strings.Contains(FormatToolSchemas(nil), "No tools available") {
			t.Error("should indicate no tools available")
		}
	})
}

func TestGenerateXMLExample(t *testing.T) {
	example := GenerateXMLExample(stepsTool{}.Schema(), "record_plan")

	if !strings.Contains(example, "<steps>\n    <step>first</step>\n    <step>second</step>\n  </steps>") {
		t.Errorf("array example should nest singular items, got:\n%s", example)
	}
	if strings.Contains(example, "<comment>") {
		t.Error("optional fields should be left out of the example")
	}

	script := GenerateXMLExample(tools.BaseToolSchema(map[string]interface{}{
		"script": map[string]interface{}{"type": "string"},
	}, []string{"script"}), "record_script_and_execute")
	if !strings.Contains(script, "<script><![CDATA[") {
		t.Error("script example should use CDATA")
	}
}

func TestPromptBuilder(t *testing.T) {
	t.Run("BasicBuild", func(t *testing.T) {
		prompt := NewPromptBuilder().WithTools([]tools.Tool{tools.NewTaskCompletionTool()}).Build()

		for _, want := range []string{"<role>", "<tool_calling>", "<available_tools>", "<tool_use_rules>", "<playwright_guidelines>", "successful_step"} {
			if !strings.Contains(prompt, want) {
				t.Errorf("prompt should contain %q", want)
			}
		}
	})

	t.Run("WithoutGuidelines", func(t *testing.T) {
		prompt := NewPromptBuilder().WithGuidelines(false).Build()
		if strings.Contains(prompt, "<playwright_guidelines>") {
			t.Error("guidelines should be omitted")
		}
		if strings.Contains(prompt, "<available_tools>") {
			t.Error("available_tools should be omitted without tools")
		}
	})

	t.Run("WithCustomInstructions", func(t *testing.T) {
		prompt := NewPromptBuilder().WithCustomInstructions("Use the staging account.").Build()

		if !strings.HasPrefix(prompt, "<custom_instructions>\nUse the staging account.") {
			t.Error("custom instructions should lead the prompt")
		}
	})
}

func TestPreambleAndTask(t *testing.T) {
	if got := Preamble("https://example.com"); got != "Target URL: https://example.com\n" {
		t.Errorf("unexpected preamble %q", got)
	}

	task := Task("https://example.com", "  user can log in \n")
	if !strings.Contains(task, "https://example.com") || !strings.HasSuffix(task, "user can log in") {
		t.Errorf("unexpected task %q", task)
	}
}

func TestBuildMessages(t *testing.T) {
	t.Run("WithHistory", func(t *testing.T) {
		history := []*types.Message{
			types.NewUserMessage("Hello"),
			types.NewAssistantMessage("Hi there!"),
		}

		messages := BuildMessages("sys", history, "")
		if len(messages) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(messages))
		}
		if messages[0].Role != types.RoleSystem || messages[0].Content != "sys" {
			t.Error("first message should be the system prompt")
		}
	})

	t.Run("SkipsSystemInHistory", func(t *testing.T) {
		history := []*types.Message{
			types.NewSystemMessage("Old system prompt"),
			types.NewUserMessage("Hello"),
		}

		messages := BuildMessages("sys", history, "")
		if len(messages) != 2 {
			t.Errorf("expected 2 messages, got %d", len(messages))
		}
	})

	t.Run("ErrorContextIsLast", func(t *testing.T) {
		messages := BuildMessages("sys", []*types.Message{types.NewUserMessage("Hello")}, "fix it")
		last := messages[len(messages)-1]
		if last.Role != types.RoleUser || last.Content != "fix it" {
			t.Errorf("unexpected last message %+v", last)
		}
	})
}

func TestRecoveryMessages(t *testing.T) {
	if !strings.Contains(NoToolCallMessage(4), "Turns remaining: 4") {
		t.Error("nudge should report remaining turns")
	}
	if !strings.Contains(ParseErrorMessage(errors.New("bad xml")), "bad xml") {
		t.Error("parse error should include the cause")
	}
	if !strings.Contains(UnknownToolMessage("fly", []string{"a"}), `"fly"`) {
		t.Error("unknown tool message should name the tool")
	}
	if ToolResultMessage("x", "ok") != "Tool 'x' result:\nok" {
		t.Error("unexpected tool result format")
	}
	if ToolErrorMessage("x", errors.New("boom")) != "Tool 'x' error:\nboom" {
		t.Error("unexpected tool error format")
	}
}
