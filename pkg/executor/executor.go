// Package executor runs a stored test once in a fresh workspace, without an
// agent.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/testforge/pkg/instrument"
	"github.com/entrhq/testforge/pkg/logging"
	"github.com/entrhq/testforge/pkg/runner"
	"github.com/entrhq/testforge/pkg/storage"
	"github.com/entrhq/testforge/pkg/types"
	"github.com/entrhq/testforge/pkg/workspace"
)

// Runner installs dependencies and runs the suite in a tests directory.
type Runner interface {
	InstallDependencies(ctx context.Context, testDir string) (runner.Result, bool)
	Run(ctx context.Context, testDir string) runner.Result
}

// Execution is the outcome of one direct run.
type Execution struct {
	TestID     string
	InstanceID string
	Success    bool
	Output     string
	Plan       []string
	Progress   instrument.Progress
	TimedOut   bool
	Duration   time.Duration
}

// Executor runs stored tests.
type Executor struct {
	tests        storage.TestStore
	workspaces   *workspace.Manager
	runner       Runner
	logger       *logging.Logger
	cleanupAfter bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithCleanupAfter removes each execution's workspace once it finishes.
func WithCleanupAfter(enabled bool) Option {
	return func(e *Executor) {
		e.cleanupAfter = enabled
	}
}

// WithLogger sets the process logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// New creates an Executor.
func New(tests storage.TestStore, workspaces *workspace.Manager, r Runner, opts ...Option) (*Executor, error) {
	switch {
	case tests == nil:
		return nil, errors.New("executor requires a test store")
	case workspaces == nil:
		return nil, errors.New("executor requires a workspace manager")
	case r == nil:
		return nil, errors.New("executor requires a runner")
	}

	e := &Executor{tests: tests, workspaces: workspaces, runner: r}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.Discard("executor")
	}
	return e, nil
}

// Execute fetches testID, runs it once in a new workspace and reports how
// many of its planned steps completed. A failing test is not an error; a
// missing test or a failed dependency install is.
func (e *Executor) Execute(ctx context.Context, testID string) (*Execution, error) {
	if strings.TrimSpace(testID) == "" {
		return nil, types.NotFoundError("test id is empty")
	}

	stored, err := e.tests.Get(ctx, testID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(stored.Script) == "" {
		return nil, types.NotFoundError(fmt.Sprintf("test %s has no script", testID))
	}

	id := types.NewInstanceID()
	ws, err := e.workspaces.Create(id)
	if err != nil {
		return nil, err
	}
	if e.cleanupAfter {
		defer func() {
			if _, err := e.workspaces.Cleanup(id, false); err != nil {
				e.logger.Warnf("instance %s: cleanup after execution failed: %v", id, err)
			}
		}()
	}

	ilog, err := logging.NewInstanceLogger(id, ws.LogsDir())
	if err != nil {
		e.logger.Warnf("instance %s: request log unavailable: %v", id, err)
	}
	defer ilog.Close()
	ilog.Infof("executing stored test %s", testID)
	e.logger.Infof("instance %s: executing test %s", id, testID)

	start := time.Now()
	exec, err := e.run(ctx, ws, stored, ilog)
	if err != nil {
		ilog.Errorf("execution failed: %v", err)
		return nil, err
	}
	exec.TestID = testID
	exec.InstanceID = id
	exec.Duration = time.Since(start)

	ilog.Infof("execution finished: success=%v progress=%d/%d (%.1f%%)",
		exec.Success, exec.Progress.StepsCompleted, exec.Progress.TotalSteps, exec.Progress.Percentage)

	if !e.cleanupAfter {
		if err := writeReport(ws.LogsDir(), exec); err != nil {
			ilog.Warnf("writing execution report: %v", err)
		}
	}
	return exec, nil
}

func (e *Executor) run(ctx context.Context, ws *workspace.Workspace, stored *storage.StoredTest, ilog *logging.Logger) (*Execution, error) {
	// Scripts saved by the generator already carry the harness.
	script := stored.Script
	if !instrument.IsInstrumented(script) {
		script = instrument.Instrument(script)
	}

	if _, err := e.workspaces.WriteScript(ws, script); err != nil {
		return nil, err
	}
	ilog.Block("test script", script)

	testDir, err := e.workspaces.EnsureTestLayout(ws)
	if err != nil {
		return nil, err
	}

	install, ok := e.runner.InstallDependencies(ctx, testDir)
	if !ok {
		return nil, types.DependencyInstallError("failed to install test dependencies", install.Output())
	}

	if err := instrument.ResetCompletedSteps(testDir); err != nil {
		return nil, types.WorkspaceError("failed to reset step log", err)
	}

	res := e.runner.Run(ctx, testDir)
	output := res.Output()
	ilog.Block(fmt.Sprintf("test execution (passed=%v, %s)", res.Success, res.Duration), output)

	completed, err := instrument.ReadCompletedSteps(testDir)
	if err != nil {
		ilog.Warnf("ignoring unreadable step log: %v", err)
		completed = instrument.StepsFromOutput(res.Stdout)
	}

	plan := stored.Plan
	if len(plan) == 0 {
		plan = instrument.ParseStepMarkers(script)
	}

	return &Execution{
		Success:  res.Success,
		Output:   output,
		Plan:     plan,
		Progress: instrument.ComputeProgress(len(completed), len(plan)),
		TimedOut: res.TimedOut,
	}, nil
}
