package executor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Report files written to the workspace logs directory.
const (
	ReportJSONName     = "execution.json"
	ReportMarkdownName = "summary.md"
)

type executionReport struct {
	TestID         string    `json:"test_id"`
	InstanceID     string    `json:"instance_id"`
	Success        bool      `json:"success"`
	TimedOut       bool      `json:"timed_out,omitempty"`
	Plan           []string  `json:"plan"`
	StepsCompleted int       `json:"steps_completed"`
	TotalSteps     int       `json:"total_steps"`
	Percentage     float64   `json:"percentage"`
	DurationMS     int64     `json:"duration_ms"`
	FinishedAt     time.Time `json:"finished_at"`
}

// writeReport writes execution.json and summary.md into dir.
func writeReport(dir string, exec *Execution) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	report := executionReport{
		TestID:         exec.TestID,
		InstanceID:     exec.InstanceID,
		Success:        exec.Success,
		TimedOut:       exec.TimedOut,
		Plan:           exec.Plan,
		StepsCompleted: exec.Progress.StepsCompleted,
		TotalSteps:     exec.Progress.TotalSteps,
		Percentage:     exec.Progress.Percentage,
		DurationMS:     exec.Duration.Milliseconds(),
		FinishedAt:     time.Now().UTC(),
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ReportJSONName), data, 0600); err != nil {
		return fmt.Errorf("failed to write execution report: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ReportMarkdownName), []byte(summaryMarkdown(exec)), 0600); err != nil {
		return fmt.Errorf("failed to write summary markdown: %w", err)
	}
	return nil
}

func summaryMarkdown(exec *Execution) string {
	var md strings.Builder

	md.WriteString("# Test Execution Summary\n\n")
	fmt.Fprintf(&md, "**Test:** %s\n\n", exec.TestID)
	fmt.Fprintf(&md, "**Instance:** %s\n\n", exec.InstanceID)
	status := "PASSED"
	if !exec.Success {
		status = "FAILED"
		if exec.TimedOut {
			status = "FAILED (timed out)"
		}
	}
	fmt.Fprintf(&md, "**Result:** %s\n\n", status)
	fmt.Fprintf(&md, "**Duration:** %s\n\n", exec.Duration)

	md.WriteString("## Steps\n\n")
	for i, step := range exec.Plan {
		mark := "[ ]"
		if i < exec.Progress.StepsCompleted {
			mark = "[x]"
		}
		fmt.Fprintf(&md, "- %s %s\n", mark, step)
	}
	fmt.Fprintf(&md, "\n%d of %d steps completed (%.1f%%)\n",
		exec.Progress.StepsCompleted, exec.Progress.TotalSteps, exec.Progress.Percentage)

	return md.String()
}
