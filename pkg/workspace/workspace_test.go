package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/testforge/pkg/types"
)

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), nil, opts...)
	require.NoError(t, err)
	return m
}

func TestCreate(t *testing.T) {
	m := newTestManager(t, WithPrefix("playwright_test_"))

	ws, err := m.Create("abc123")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(m.Root(), "playwright_test_abc123"), ws.Path)
	for _, dir := range []string{ws.LogsDir(), ws.BrowserDataDir(), ws.SpecDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}
	assert.Equal(t, filepath.Join(ws.Path, "tests", "tests", "test.spec.js"), ws.ScriptPath())
}

func TestCreateIsIdempotent(t *testing.T) {
	m := newTestManager(t)

	ws, err := m.Create("same")
	require.NoError(t, err)
	marker := filepath.Join(ws.LogsDir(), "request.log")
	require.NoError(t, os.WriteFile(marker, []byte("kept"), 0600))

	again, err := m.Create("same")
	require.NoError(t, err)
	assert.Equal(t, ws.Path, again.Path)

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "kept", string(data))
}

func TestCreateRejectsUnsafeIDs(t *testing.T) {
	m := newTestManager(t)

	for _, id := range []string{"", "..", "../escape", "a/b", "x y"} {
		_, err := m.Create(id)
		require.Error(t, err, id)
		assert.True(t, types.IsKind(err, types.ErrKindWorkspace), id)
	}

	entries, err := os.ReadDir(m.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpenAndExists(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Open("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.False(t, m.Exists("missing"))

	_, err = m.Create("present")
	require.NoError(t, err)
	assert.True(t, m.Exists("present"))

	ws, err := m.Open("present")
	require.NoError(t, err)
	assert.Equal(t, "present", ws.ID)
}

func TestEnsureTestLayoutBuiltinTemplates(t *testing.T) {
	m := newTestManager(t)
	ws, err := m.Create("layout")
	require.NoError(t, err)

	testDir, err := m.EnsureTestLayout(ws)
	require.NoError(t, err)
	assert.Equal(t, ws.TestsDir(), testDir)

	pkg, err := os.ReadFile(filepath.Join(testDir, "package.json"))
	require.NoError(t, err)
	assert.Contains(t, string(pkg), `"test": "playwright test"`)

	cfg, err := os.ReadFile(filepath.Join(testDir, "playwright.config.js"))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "defineConfig")
}

func TestEnsureTestLayoutNeverOverwrites(t *testing.T) {
	m := newTestManager(t)
	ws, err := m.Create("keep")
	require.NoError(t, err)

	custom := filepath.Join(ws.TestsDir(), "package.json")
	require.NoError(t, os.WriteFile(custom, []byte(`{"custom":true}`), 0600))

	_, err = m.EnsureTestLayout(ws)
	require.NoError(t, err)
	_, err = m.EnsureTestLayout(ws)
	require.NoError(t, err)

	data, err := os.ReadFile(custom)
	require.NoError(t, err)
	assert.Equal(t, `{"custom":true}`, string(data))
	assert.FileExists(t, filepath.Join(ws.TestsDir(), "playwright.config.js"))
}

func TestEnsureTestLayoutTemplateDir(t *testing.T) {
	templates := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(templates, "package.json"), []byte("PKG"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(templates, "playwright.config.js"), []byte("CFG"), 0600))

	m := newTestManager(t, WithTemplateDir(templates))
	ws, err := m.Create("tpl")
	require.NoError(t, err)

	_, err = m.EnsureTestLayout(ws)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(ws.TestsDir(), "playwright.config.js"))
	require.NoError(t, err)
	assert.Equal(t, "CFG", string(data))

	// A missing template is a workspace error.
	m2 := newTestManager(t, WithTemplateDir(t.TempDir()))
	ws2, err := m2.Create("tpl")
	require.NoError(t, err)
	_, err = m2.EnsureTestLayout(ws2)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrKindWorkspace))
}

func TestWriteScriptOverwrites(t *testing.T) {
	m := newTestManager(t)
	ws, err := m.Create("script")
	require.NoError(t, err)

	path, err := m.WriteScript(ws, "first")
	require.NoError(t, err)
	_, err = m.WriteScript(ws, "second")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(ws.SpecDir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteScriptRejectsForeignWorkspace(t *testing.T) {
	m := newTestManager(t)
	foreign := &Workspace{ID: "x", Path: t.TempDir()}

	_, err := m.WriteScript(foreign, "script")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrKindWorkspace))
}

func populate(t *testing.T, m *Manager, id string) *Workspace {
	t.Helper()
	ws, err := m.Create(id)
	require.NoError(t, err)
	_, err = m.EnsureTestLayout(ws)
	require.NoError(t, err)
	_, err = m.WriteScript(ws, "test('x', async () => {})")
	require.NoError(t, err)

	nm := filepath.Join(ws.TestsDir(), "node_modules", "@playwright", "test")
	require.NoError(t, os.MkdirAll(nm, 0750))
	require.NoError(t, os.WriteFile(filepath.Join(nm, "index.js"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(ws.BrowserDataDir(), "Cookies"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(ws.LogsDir(), "request.log"), []byte("log"), 0600))
	return ws
}

func TestCleanupKeepArtifacts(t *testing.T) {
	m := newTestManager(t)
	ws := populate(t, m, "keepme")

	res, err := m.Cleanup("keepme", true)
	require.NoError(t, err)
	assert.True(t, res.KeptTests)
	assert.ElementsMatch(t, []string{"browser_data", "tests/node_modules"}, res.Removed)

	assert.NoDirExists(t, ws.BrowserDataDir())
	assert.NoDirExists(t, filepath.Join(ws.TestsDir(), "node_modules"))
	assert.FileExists(t, ws.ScriptPath())
	assert.FileExists(t, filepath.Join(ws.TestsDir(), "playwright.config.js"))
	assert.FileExists(t, filepath.Join(ws.LogsDir(), "request.log"))
}

func TestCleanupRemovesTree(t *testing.T) {
	m := newTestManager(t)
	ws := populate(t, m, "gone")

	res, err := m.Cleanup("gone", false)
	require.NoError(t, err)
	assert.True(t, res.WholeTree)
	assert.NoDirExists(t, ws.Path)

	// A second cleanup reports not found.
	_, err = m.Cleanup("gone", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCleanupNotFound(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Cleanup("never-created", true)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrKindNotFound))
}

func TestCustomPrunePatterns(t *testing.T) {
	m, err := NewManager(t.TempDir(), []string{"logs/*.log"})
	require.NoError(t, err)
	ws := populate(t, m, "custom")

	res, err := m.Cleanup("custom", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"logs/request.log"}, res.Removed)
	assert.DirExists(t, ws.BrowserDataDir())

	_, err = NewManager(t.TempDir(), []string{"[unclosed"})
	assert.Error(t, err)
}

func TestWorkspacesAreIsolated(t *testing.T) {
	m := newTestManager(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ws, err := m.Create(fmt.Sprintf("inst%d", i))
			if err != nil {
				errs <- err
				return
			}
			if _, err := m.WriteScript(ws, fmt.Sprintf("script-%d", i)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	_, err := m.Cleanup("inst3", false)
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		id := fmt.Sprintf("inst%d", i)
		if i == 3 {
			assert.False(t, m.Exists(id))
			continue
		}
		ws, err := m.Open(id)
		require.NoError(t, err)
		data, err := os.ReadFile(ws.ScriptPath())
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("script-%d", i), string(data))
	}
}
