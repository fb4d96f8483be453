// Package instrument injects the step-completion harness into generated test
// scripts and reads back what the harness recorded.
//
// The harness defines successful_step(description). Each call prints a
// "STEP COMPLETED: <description>" line and appends the description to a list
// that is written as a JSON array to completed_steps.json in the runner's
// working directory when the test process exits.
package instrument

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// HarnessMarker opens the injected block. It occurs exactly once in a
	// correctly instrumented script.
	HarnessMarker = "// testforge:step-harness"

	// harnessEnd closes the injected block.
	harnessEnd = "// end testforge:step-harness"

	// CompletedStepsFile is written by the harness next to package.json.
	CompletedStepsFile = "completed_steps.json"

	// StepLinePrefix starts every console line printed by successful_step.
	StepLinePrefix = "STEP COMPLETED: "
)

// harness only writes a non-empty list: the runner may load the spec in more
// than one process, and a process that ran no steps must not clobber the
// file written by the one that did. Callers remove stale files before a run.
const harness = HarnessMarker + `
const __testforgeFs = require("fs");
const __testforgePath = require("path");
const __testforgeCompletedSteps = [];
function successful_step(description) {
  console.log(` + "`" + StepLinePrefix + "${description}`" + `);
  __testforgeCompletedSteps.push(String(description));
}
process.on("exit", () => {
  if (__testforgeCompletedSteps.length === 0) {
    return;
  }
  try {
    __testforgeFs.writeFileSync(
      __testforgePath.join(process.cwd(), "` + CompletedStepsFile + `"),
      JSON.stringify(__testforgeCompletedSteps),
    );
  } catch (err) {
    console.error("failed to write ` + CompletedStepsFile + `: " + err);
  }
});
` + harnessEnd + `

`

// Harness returns the block prepended by Instrument.
func Harness() string {
	return harness
}

// Instrument prepends the harness to raw. It does not check whether raw is
// already instrumented; applying it once is the caller's job, and a second
// application is detectable with Count.
func Instrument(raw string) string {
	return harness + raw
}

// Count returns how many harness blocks script contains.
func Count(script string) int {
	return strings.Count(script, HarnessMarker)
}

// IsInstrumented reports whether script carries the harness.
func IsInstrumented(script string) bool {
	return Count(script) > 0
}

// Strip removes every harness block, returning the authored script.
func Strip(script string) string {
	for {
		start := strings.Index(script, HarnessMarker)
		if start < 0 {
			return script
		}
		end := strings.Index(script[start:], harnessEnd)
		if end < 0 {
			return script
		}
		end += start + len(harnessEnd)
		script = script[:start] + strings.TrimLeft(script[end:], "\n")
	}
}

// ReadCompletedSteps reads the step log from testDir. A missing file means no
// step completed and is not an error.
func ReadCompletedSteps(testDir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(testDir, CompletedStepsFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", CompletedStepsFile, err)
	}

	var steps []string
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", CompletedStepsFile, err)
	}
	if steps == nil {
		steps = []string{}
	}
	return steps, nil
}

// ResetCompletedSteps removes a step log left by an earlier run.
func ResetCompletedSteps(testDir string) error {
	err := os.Remove(filepath.Join(testDir, CompletedStepsFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", CompletedStepsFile, err)
	}
	return nil
}

// StepsFromOutput collects the descriptions of "STEP COMPLETED:" lines in
// runner output, in order.
func StepsFromOutput(output string) []string {
	steps := []string{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if idx := strings.Index(line, StepLinePrefix); idx >= 0 {
			steps = append(steps, strings.TrimSpace(line[idx+len(StepLinePrefix):]))
		}
	}
	return steps
}

var stepCallPattern = regexp.MustCompile(
	`successful_step\(\s*(?:"((?:[^"\\\n]|\\.)*)"|'((?:[^'\\\n]|\\.)*)'|` + "`" + `((?:[^` + "`" + `\\]|\\.)*)` + "`" + `)\s*\)`,
)

// ParseStepMarkers returns the string-literal arguments of successful_step
// calls in authoring order. Calls with computed arguments are skipped, as is
// the harness itself.
func ParseStepMarkers(script string) []string {
	body := Strip(script)
	steps := []string{}
	for _, m := range stepCallPattern.FindAllStringSubmatch(body, -1) {
		for _, g := range m[1:] {
			if g != "" {
				steps = append(steps, unescapeJS(g))
				break
			}
		}
	}
	return steps
}

func unescapeJS(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Progress summarizes how far a run got through the planned steps.
type Progress struct {
	StepsCompleted int     `json:"steps_completed"`
	TotalSteps     int     `json:"total_steps"`
	Percentage     float64 `json:"percentage"`
}

// ComputeProgress returns completed/planned as a percentage rounded to one
// decimal place, capped at 100. With no planned steps the percentage is 0.
func ComputeProgress(completed, planned int) Progress {
	p := Progress{StepsCompleted: completed, TotalSteps: planned}
	if planned <= 0 || completed <= 0 {
		return p
	}

	pct := float64(completed) / float64(planned) * 100
	if pct > 100 {
		pct = 100
	}
	p.Percentage = math.Round(pct*10) / 10
	return p
}
