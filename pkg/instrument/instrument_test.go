package instrument

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleScript = `import { test, expect } from "@playwright/test";

test("login", async ({ page }) => {
  await page.goto("http://localhost:3000");
  successful_step("Open the login page");
  await page.fill("#user", "alice");
  successful_step('Enter the username');
  await page.click("text=Sign in");
  successful_step(` + "`Submit the \\`form\\``" + `);
  await expect(page).toHaveURL(/dashboard/);
  successful_step("See the \"dashboard\"");
});
`

func TestInstrument(t *testing.T) {
	out := Instrument(sampleScript)

	assert.True(t, strings.HasPrefix(out, HarnessMarker))
	assert.True(t, strings.HasSuffix(out, sampleScript))
	assert.Contains(t, out, "function successful_step(description)")
	assert.Contains(t, out, "STEP COMPLETED: ${description}")
	assert.Contains(t, out, `process.on("exit"`)
	assert.Contains(t, out, CompletedStepsFile)
	assert.Equal(t, 1, Count(out))
	assert.True(t, IsInstrumented(out))
}

func TestDoubleInstrumentationIsDetectable(t *testing.T) {
	assert.Equal(t, 0, Count(sampleScript))
	assert.False(t, IsInstrumented(sampleScript))

	twice := Instrument(Instrument(sampleScript))
	assert.Equal(t, 2, Count(twice))
}

func TestStrip(t *testing.T) {
	assert.Equal(t, sampleScript, Strip(Instrument(sampleScript)))
	assert.Equal(t, sampleScript, Strip(Instrument(Instrument(sampleScript))))
	assert.Equal(t, sampleScript, Strip(sampleScript))
}

func TestParseStepMarkers(t *testing.T) {
	want := []string{
		"Open the login page",
		"Enter the username",
		"Submit the `form`",
		`See the "dashboard"`,
	}

	assert.Equal(t, want, ParseStepMarkers(sampleScript))
	// The harness's own definition is not a step.
	assert.Equal(t, want, ParseStepMarkers(Instrument(sampleScript)))

	assert.Empty(t, ParseStepMarkers("successful_step(name);"))
	assert.Empty(t, ParseStepMarkers(""))
}

func TestReadCompletedSteps(t *testing.T) {
	dir := t.TempDir()

	steps, err := ReadCompletedSteps(dir)
	require.NoError(t, err)
	assert.NotNil(t, steps)
	assert.Empty(t, steps)

	path := filepath.Join(dir, CompletedStepsFile)
	require.NoError(t, os.WriteFile(path, []byte(`["a","b","c"]`), 0600))
	steps, err = ReadCompletedSteps(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, steps)

	require.NoError(t, os.WriteFile(path, []byte(`null`), 0600))
	steps, err = ReadCompletedSteps(dir)
	require.NoError(t, err)
	assert.Empty(t, steps)

	require.NoError(t, os.WriteFile(path, []byte(`{oops`), 0600))
	_, err = ReadCompletedSteps(dir)
	assert.Error(t, err)
}

func TestResetCompletedSteps(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ResetCompletedSteps(dir))

	path := filepath.Join(dir, CompletedStepsFile)
	require.NoError(t, os.WriteFile(path, []byte(`["a"]`), 0600))
	require.NoError(t, ResetCompletedSteps(dir))
	assert.NoFileExists(t, path)
}

func TestStepsFromOutput(t *testing.T) {
	output := "Running 1 test\r\nSTEP COMPLETED: Open page\n[chromium] STEP COMPLETED: Click login  \nnoise\n"
	assert.Equal(t, []string{"Open page", "Click login"}, StepsFromOutput(output))
	assert.Empty(t, StepsFromOutput("nothing here"))
}

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		planned   int
		want      float64
	}{
		{"three of five", 3, 5, 60.0},
		{"one of three", 1, 3, 33.3},
		{"two of three", 2, 3, 66.7},
		{"all", 4, 4, 100.0},
		{"none", 0, 4, 0},
		{"no plan", 3, 0, 0},
		{"more than planned", 7, 5, 100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ComputeProgress(tt.completed, tt.planned)
			assert.Equal(t, tt.want, p.Percentage)
			assert.Equal(t, tt.completed, p.StepsCompleted)
			assert.Equal(t, tt.planned, p.TotalSteps)
		})
	}
}
