//go:build unix

package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sh(script string) []string {
	return []string{"sh", "-c", script}
}

func TestRunPassing(t *testing.T) {
	r := New(WithTestCommand(sh("echo hello; echo warn 1>&2")...))

	res := r.Run(context.Background(), t.TempDir())
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.TimedOut)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, "warn\n", res.Stderr)
	assert.Equal(t, "STDOUT:\nhello\n\n\nSTDERR:\nwarn\n\n\nReturn Code: 0", res.Output())
}

func TestRunFailing(t *testing.T) {
	r := New(WithTestCommand(sh("echo 'expect failed' 1>&2; exit 3")...))

	passed, output := r.RunTests(context.Background(), t.TempDir())
	assert.False(t, passed)
	assert.Contains(t, output, "expect failed")
	assert.Contains(t, output, "Return Code: 3")
}

func TestRunUsesTestDir(t *testing.T) {
	dir := t.TempDir()
	r := New(WithTestCommand(sh("pwd")...))

	res := r.Run(context.Background(), dir)
	require.True(t, res.Success)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, want, strings.TrimSpace(res.Stdout))
}

func TestRunTimeout(t *testing.T) {
	r := New(
		WithTestCommand(sh("echo started; sleep 30")...),
		WithTestTimeout(200*time.Millisecond),
		WithWaitDelay(500*time.Millisecond),
	)

	start := time.Now()
	passed, output := r.RunTests(context.Background(), t.TempDir())
	elapsed := time.Since(start)

	assert.False(t, passed)
	assert.Contains(t, output, "timed out")
	assert.Less(t, elapsed, 5*time.Second)
}

func TestRunTimeoutKillsChildren(t *testing.T) {
	// The grandchild inherits stdout; without a group kill Wait would block
	// until it exits.
	r := New(
		WithTestCommand(sh("sleep 30 & sleep 30")...),
		WithTestTimeout(200*time.Millisecond),
		WithWaitDelay(time.Second),
	)

	start := time.Now()
	res := r.Run(context.Background(), t.TempDir())
	assert.True(t, res.TimedOut)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunStartFailure(t *testing.T) {
	r := New(WithTestCommand("definitely-not-a-real-binary-xyz"))

	passed, output := r.RunTests(context.Background(), t.TempDir())
	assert.False(t, passed)
	assert.Contains(t, output, "Failed to start")
}

func TestRunParentCancel(t *testing.T) {
	r := New(WithTestCommand(sh("sleep 30")...))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	res := r.Run(ctx, t.TempDir())
	assert.False(t, res.Success)
	assert.False(t, res.TimedOut)
}

func TestInstallDependencies(t *testing.T) {
	dir := t.TempDir()
	r := New(WithInstallCommand(sh("mkdir node_modules && echo installed")...))

	res, ok := r.InstallDependencies(context.Background(), dir)
	require.True(t, ok)
	assert.False(t, res.Skipped)
	assert.Contains(t, res.Stdout, "installed")
	assert.DirExists(t, filepath.Join(dir, "node_modules"))

	// Second call is a no-op.
	res, ok = r.InstallDependencies(context.Background(), dir)
	assert.True(t, ok)
	assert.True(t, res.Skipped)
}

func TestInstallDependenciesFailure(t *testing.T) {
	dir := t.TempDir()

	r := New(WithInstallCommand(sh("echo 'npm ERR! 404' 1>&2; exit 1")...))
	res, ok := r.InstallDependencies(context.Background(), dir)
	assert.False(t, ok)
	assert.Contains(t, res.Output(), "npm ERR! 404")

	slow := New(WithInstallCommand(sh("sleep 30")...), WithInstallTimeout(100*time.Millisecond))
	res, ok = slow.InstallDependencies(context.Background(), dir)
	assert.False(t, ok)
	assert.True(t, res.TimedOut)
}

func TestDependencyDirOption(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "vendor"), 0750))

	r := New(WithDependencyDir("vendor"), WithInstallCommand("false"))
	_, ok := r.InstallDependencies(context.Background(), dir)
	assert.True(t, ok)
}

func TestOutputCap(t *testing.T) {
	r := New(WithTestCommand(sh("head -c 5000 /dev/zero | tr '\\0' 'a'")...), WithMaxOutputBytes(100))

	res := r.Run(context.Background(), t.TempDir())
	require.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Stdout, strings.Repeat("a", 100)))
	assert.Contains(t, res.Stdout, "[4900 bytes truncated]")
}

func TestDefaults(t *testing.T) {
	r := New()
	assert.Equal(t, []string{"npm", "install"}, r.installCmd)
	assert.Equal(t, []string{"npm", "run", "test"}, r.testCmd)
	assert.Equal(t, 120*time.Second, r.installTimeout)
	assert.Equal(t, 60*time.Second, r.TestTimeout())
	assert.Equal(t, "node_modules", r.depDir)
}
