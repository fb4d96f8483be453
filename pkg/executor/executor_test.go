package executor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/testforge/pkg/instrument"
	"github.com/entrhq/testforge/pkg/runner"
	"github.com/entrhq/testforge/pkg/storage"
	"github.com/entrhq/testforge/pkg/types"
	"github.com/entrhq/testforge/pkg/workspace"
)

type memStore map[string]*storage.StoredTest

func (m memStore) Get(_ context.Context, id string) (*storage.StoredTest, error) {
	t, ok := m[id]
	if !ok {
		return nil, types.NotFoundError("test " + id + " not found")
	}
	return t, nil
}

type stubRunner struct {
	installFails bool
	passed       bool
	steps        []string
	scripts      []string
	timedOut     bool
}

func (s *stubRunner) InstallDependencies(context.Context, string) (runner.Result, bool) {
	if s.installFails {
		return runner.Result{Stderr: "npm ERR! 404 @playwright/test", ExitCode: 1}, false
	}
	return runner.Result{Success: true}, true
}

func (s *stubRunner) Run(_ context.Context, testDir string) runner.Result {
	script, _ := os.ReadFile(filepath.Join(testDir, "tests", "test.spec.js")) //nolint:errcheck
	s.scripts = append(s.scripts, string(script))
	if len(s.steps) > 0 {
		data, _ := json.Marshal(s.steps) //nolint:errcheck
		_ = os.WriteFile(filepath.Join(testDir, instrument.CompletedStepsFile), data, 0600)
	}
	code := 1
	if s.passed {
		code = 0
	}
	return runner.Result{Stdout: "done", ExitCode: code, Success: s.passed, TimedOut: s.timedOut, Duration: time.Millisecond}
}

const rawScript = `const { test } = require('@playwright/test');
test('cart', async ({ page }) => {
  successful_step("Open shop");
  successful_step("Add item");
});`

func newExecutor(t *testing.T, store memStore, r *stubRunner, opts ...Option) (*Executor, *workspace.Manager, string) {
	t.Helper()
	root := t.TempDir()
	m, err := workspace.NewManager(root, nil)
	require.NoError(t, err)
	e, err := New(store, m, r, opts...)
	require.NoError(t, err)
	return e, m, root
}

func TestExecuteProgress(t *testing.T) {
	store := memStore{"five": {ID: "five", Script: rawScript, Plan: []string{"a", "b", "c", "d", "e"}}}
	r := &stubRunner{steps: []string{"a", "b", "c"}}
	e, m, _ := newExecutor(t, store, r)

	exec, err := e.Execute(context.Background(), "five")
	require.NoError(t, err)

	assert.Equal(t, "five", exec.TestID)
	assert.False(t, exec.Success)
	assert.Equal(t, instrument.Progress{StepsCompleted: 3, TotalSteps: 5, Percentage: 60.0}, exec.Progress)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, exec.Plan)
	assert.Contains(t, exec.Output, "Return Code: 1")
	assert.True(t, m.Exists(exec.InstanceID))
}

func TestExecuteInstrumentsRawScriptOnce(t *testing.T) {
	store := memStore{"raw": {ID: "raw", Script: rawScript}}
	r := &stubRunner{passed: true, steps: []string{"Open shop", "Add item"}}
	e, _, _ := newExecutor(t, store, r)

	exec, err := e.Execute(context.Background(), "raw")
	require.NoError(t, err)

	require.Len(t, r.scripts, 1)
	assert.Equal(t, 1, instrument.Count(r.scripts[0]))
	assert.True(t, exec.Success)
	assert.Equal(t, []string{"Open shop", "Add item"}, exec.Plan)
	assert.Equal(t, 100.0, exec.Progress.Percentage)
}

func TestExecuteKeepsExistingHarness(t *testing.T) {
	store := memStore{"gen": {ID: "gen", Script: instrument.Instrument(rawScript), Plan: []string{"Open shop", "Add item"}}}
	r := &stubRunner{passed: true}
	e, _, _ := newExecutor(t, store, r)

	_, err := e.Execute(context.Background(), "gen")
	require.NoError(t, err)

	require.Len(t, r.scripts, 1)
	assert.Equal(t, 1, instrument.Count(r.scripts[0]))
}

func TestExecuteNotFound(t *testing.T) {
	e, _, root := newExecutor(t, memStore{"blank": {ID: "blank", Script: "  \n"}}, &stubRunner{})

	for _, id := range []string{"missing", "blank", ""} {
		_, err := e.Execute(context.Background(), id)
		require.Error(t, err, id)
		assert.ErrorIs(t, err, types.ErrNotFound, id)
	}

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExecuteInstallFailureIsFatal(t *testing.T) {
	r := &stubRunner{installFails: true}
	e, _, _ := newExecutor(t, memStore{"t": {ID: "t", Script: rawScript}}, r)

	_, err := e.Execute(context.Background(), "t")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrKindDependencyInstall))

	var te *types.Error
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Output, "npm ERR!")
	assert.Empty(t, r.scripts)
}

func TestExecuteTimeoutIsAFailedRun(t *testing.T) {
	r := &stubRunner{timedOut: true}
	e, _, _ := newExecutor(t, memStore{"slow": {ID: "slow", Script: rawScript}}, r)

	exec, err := e.Execute(context.Background(), "slow")
	require.NoError(t, err)
	assert.False(t, exec.Success)
	assert.True(t, exec.TimedOut)
}

func TestExecuteCleanupAfter(t *testing.T) {
	e, m, root := newExecutor(t, memStore{"t": {ID: "t", Script: rawScript}}, &stubRunner{passed: true}, WithCleanupAfter(true))

	exec, err := e.Execute(context.Background(), "t")
	require.NoError(t, err)
	assert.False(t, m.Exists(exec.InstanceID))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExecuteWritesReport(t *testing.T) {
	store := memStore{"t": {ID: "t", Script: rawScript, Plan: []string{"Open shop", "Add item"}}}
	e, m, _ := newExecutor(t, store, &stubRunner{steps: []string{"Open shop"}})

	exec, err := e.Execute(context.Background(), "t")
	require.NoError(t, err)

	ws, err := m.Open(exec.InstanceID)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(ws.LogsDir(), ReportJSONName))
	require.NoError(t, err)
	var report executionReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "t", report.TestID)
	assert.Equal(t, 50.0, report.Percentage)

	md, err := os.ReadFile(filepath.Join(ws.LogsDir(), ReportMarkdownName))
	require.NoError(t, err)
	assert.Contains(t, string(md), "- [x] Open shop")
	assert.Contains(t, string(md), "- [ ] Add item")
}

func TestNewValidatesDependencies(t *testing.T) {
	m, err := workspace.NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = New(nil, m, &stubRunner{})
	assert.Error(t, err)
	_, err = New(memStore{}, nil, &stubRunner{})
	assert.Error(t, err)
}
