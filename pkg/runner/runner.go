// Package runner runs the package manager and the test runner as bounded
// subprocesses inside a tests directory.
//
// Nothing here returns an error for a failed, timed out or unstartable
// subprocess: those outcomes are reported in the Result so callers can feed
// them back to the agent as text.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultInstallTimeout = 120 * time.Second
	DefaultTestTimeout    = 60 * time.Second
	DefaultDependencyDir  = "node_modules"

	// DefaultMaxOutputBytes caps each captured stream.
	DefaultMaxOutputBytes = 1 << 20

	// DefaultWaitDelay bounds how long a killed process may hold its output
	// pipes open before Wait gives up on them.
	DefaultWaitDelay = 5 * time.Second
)

var (
	DefaultInstallCommand = []string{"npm", "install"}
	DefaultTestCommand    = []string{"npm", "run", "test"}
)

// Runner executes the install and test commands.
type Runner struct {
	installCmd     []string
	testCmd        []string
	env            []string
	depDir         string
	installTimeout time.Duration
	testTimeout    time.Duration
	waitDelay      time.Duration
	maxOutput      int
}

// Option configures a Runner.
type Option func(*Runner)

// WithInstallCommand sets the dependency install command line.
func WithInstallCommand(argv ...string) Option {
	return func(r *Runner) {
		if len(argv) > 0 {
			r.installCmd = argv
		}
	}
}

// WithTestCommand sets the test command line.
func WithTestCommand(argv ...string) Option {
	return func(r *Runner) {
		if len(argv) > 0 {
			r.testCmd = argv
		}
	}
}

// WithInstallTimeout bounds dependency installation.
func WithInstallTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.installTimeout = d
		}
	}
}

// WithTestTimeout bounds a test run.
func WithTestTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.testTimeout = d
		}
	}
}

// WithDependencyDir names the directory whose presence means dependencies
// are installed.
func WithDependencyDir(name string) Option {
	return func(r *Runner) {
		if name != "" {
			r.depDir = name
		}
	}
}

// WithMaxOutputBytes caps each captured stream.
func WithMaxOutputBytes(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxOutput = n
		}
	}
}

// WithWaitDelay overrides how long to wait for output after a kill.
func WithWaitDelay(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.waitDelay = d
		}
	}
}

// WithEnv appends KEY=VALUE pairs to the inherited environment.
func WithEnv(kv ...string) Option {
	return func(r *Runner) {
		r.env = append(r.env, kv...)
	}
}

// New creates a Runner with npm defaults.
func New(opts ...Option) *Runner {
	r := &Runner{
		installCmd:     DefaultInstallCommand,
		testCmd:        DefaultTestCommand,
		depDir:         DefaultDependencyDir,
		installTimeout: DefaultInstallTimeout,
		testTimeout:    DefaultTestTimeout,
		waitDelay:      DefaultWaitDelay,
		maxOutput:      DefaultMaxOutputBytes,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TestTimeout returns the configured test run deadline.
func (r *Runner) TestTimeout() time.Duration {
	return r.testTimeout
}

// Result is the outcome of one subprocess. It is not modified after it is
// returned.
type Result struct {
	StartErr error // set when the command could not be started
	Command  string
	Stdout   string
	Stderr   string
	Timeout  time.Duration
	Duration time.Duration
	ExitCode int
	Success  bool
	TimedOut bool
	Skipped  bool // installation was unnecessary
}

// Output renders the combined report fed back to the agent and to API
// clients.
func (res Result) Output() string {
	var b strings.Builder
	if res.TimedOut {
		fmt.Fprintf(&b, "Test execution timed out after %s\n\n", res.Timeout)
	}
	if res.StartErr != nil {
		fmt.Fprintf(&b, "Failed to start %q: %v\n\n", res.Command, res.StartErr)
	}
	fmt.Fprintf(&b, "STDOUT:\n%s\n\nSTDERR:\n%s\n\nReturn Code: %d", res.Stdout, res.Stderr, res.ExitCode)
	return b.String()
}

// InstallDependencies runs the install command in testDir unless the
// dependency directory already exists. It reports success as a bool and
// never returns an error.
func (r *Runner) InstallDependencies(ctx context.Context, testDir string) (Result, bool) {
	if info, err := os.Stat(filepath.Join(testDir, r.depDir)); err == nil && info.IsDir() {
		return Result{Command: strings.Join(r.installCmd, " "), Success: true, Skipped: true}, true
	}

	res := r.exec(ctx, testDir, r.installCmd, r.installTimeout)
	return res, res.Success
}

// Run runs the test command once in testDir.
func (r *Runner) Run(ctx context.Context, testDir string) Result {
	return r.exec(ctx, testDir, r.testCmd, r.testTimeout)
}

// RunTests runs the test command and returns whether it passed along with
// the combined report.
func (r *Runner) RunTests(ctx context.Context, testDir string) (bool, string) {
	res := r.Run(ctx, testDir)
	return res.Success, res.Output()
}

func (r *Runner) exec(ctx context.Context, dir string, argv []string, timeout time.Duration) Result {
	res := Result{Command: strings.Join(argv, " "), Timeout: timeout, ExitCode: -1}
	if len(argv) == 0 {
		res.StartErr = errors.New("empty command")
		return res
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout := newCappedBuffer(r.maxOutput)
	stderr := newCappedBuffer(r.maxOutput)

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = r.waitDelay
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}
	configureProcessGroup(cmd)

	start := time.Now()
	err := cmd.Start()
	if err != nil {
		res.StartErr = err
		res.Duration = time.Since(start)
		return res
	}

	err = cmd.Wait()
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	if runCtx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		return res
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		return res
	}

	res.ExitCode = 0
	res.Success = true
	return res
}
