// Package workspace owns the per-instance directory trees that hold a
// generated test, its browser profile and its logs.
//
// Layout of one workspace:
//
//	<root>/<prefix><id>/
//	    logs/request.log
//	    browser_data/
//	    tests/
//	        package.json
//	        playwright.config.js
//	        completed_steps.json
//	        node_modules/
//	        tests/test.spec.js
//
// Nothing outside that subtree is ever read or written.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/entrhq/testforge/pkg/types"
)

const (
	LogsDirName        = "logs"
	BrowserDataDirName = "browser_data"
	TestsDirName       = "tests"
	SpecDirName        = "tests"
	ScriptFileName     = "test.spec.js"
)

// Workspace is one instance's directory tree.
type Workspace struct {
	ID   string
	Path string
}

// LogsDir holds the instance's request log.
func (w *Workspace) LogsDir() string { return filepath.Join(w.Path, LogsDirName) }

// BrowserDataDir is the isolated browser profile.
func (w *Workspace) BrowserDataDir() string { return filepath.Join(w.Path, BrowserDataDirName) }

// TestsDir is the working directory for the package manager and test runner.
func (w *Workspace) TestsDir() string { return filepath.Join(w.Path, TestsDirName) }

// SpecDir contains the test script.
func (w *Workspace) SpecDir() string { return filepath.Join(w.TestsDir(), SpecDirName) }

// ScriptPath is the single test script of the instance.
func (w *Workspace) ScriptPath() string { return filepath.Join(w.SpecDir(), ScriptFileName) }

// Manager creates, resolves and removes workspaces under one root.
type Manager struct {
	guard       *guard
	pruner      *pruneMatcher
	root        string
	prefix      string
	templateDir string
}

// Option configures a Manager.
type Option func(*Manager)

// WithPrefix sets the directory name prefix placed before each instance id.
func WithPrefix(prefix string) Option {
	return func(m *Manager) { m.prefix = prefix }
}

// WithTemplateDir copies test scaffolding from dir instead of the built-in templates.
func WithTemplateDir(dir string) Option {
	return func(m *Manager) { m.templateDir = dir }
}

// DefaultPrunePatterns are removed by a cleanup that keeps test artifacts.
var DefaultPrunePatterns = []string{BrowserDataDirName, TestsDirName + "/node_modules"}

// NewManager creates a manager rooted at root. prunePatterns are glob
// patterns relative to a workspace; nil means DefaultPrunePatterns.
func NewManager(root string, prunePatterns []string, opts ...Option) (*Manager, error) {
	g, err := newGuard(root)
	if err != nil {
		return nil, err
	}

	if prunePatterns == nil {
		prunePatterns = DefaultPrunePatterns
	}
	pruner, err := newPruneMatcher(prunePatterns)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		guard:  g,
		pruner: pruner,
		root:   g.root,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Root returns the absolute directory holding every workspace.
func (m *Manager) Root() string {
	return m.root
}

// pathFor validates id and returns its workspace directory.
func (m *Manager) pathFor(id string) (string, error) {
	if err := types.ValidateInstanceID(id); err != nil {
		return "", types.WorkspaceError("invalid instance id", err)
	}
	p, err := m.guard.resolve(m.prefix + id)
	if err != nil {
		return "", types.WorkspaceError("invalid workspace path", err)
	}
	return p, nil
}

// Create makes the workspace tree for id. It is idempotent: an existing
// workspace is reused as is.
func (m *Manager) Create(id string) (*Workspace, error) {
	path, err := m.pathFor(id)
	if err != nil {
		return nil, err
	}

	ws := &Workspace{ID: id, Path: path}
	for _, dir := range []string{ws.LogsDir(), ws.BrowserDataDir(), ws.SpecDir()} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, types.WorkspaceError(fmt.Sprintf("failed to create %s", dir), err)
		}
	}
	return ws, nil
}

// Open returns the workspace for id, or a NotFound error.
func (m *Manager) Open(id string) (*Workspace, error) {
	path, err := m.pathFor(id)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, types.NotFoundError(fmt.Sprintf("workspace for instance %s not found", id))
		}
		return nil, types.WorkspaceError("failed to stat workspace", err)
	}
	if !info.IsDir() {
		return nil, types.WorkspaceError(fmt.Sprintf("%s is not a directory", path), nil)
	}
	return &Workspace{ID: id, Path: path}, nil
}

// Exists reports whether a workspace for id is present.
func (m *Manager) Exists(id string) bool {
	_, err := m.Open(id)
	return err == nil
}

// EnsureTestLayout makes sure the tests directory is ready for the package
// manager: the test file directory exists and each template file is present.
// Existing files are never overwritten. It returns the tests directory.
func (m *Manager) EnsureTestLayout(ws *Workspace) (string, error) {
	if !m.guard.contains(ws.Path) {
		return "", types.WorkspaceError(fmt.Sprintf("workspace %s is outside %s", ws.Path, m.root), nil)
	}
	if err := os.MkdirAll(ws.SpecDir(), 0750); err != nil {
		return "", types.WorkspaceError("failed to create test file directory", err)
	}

	for _, name := range TemplateFiles {
		dst := filepath.Join(ws.TestsDir(), name)
		if _, err := os.Stat(dst); err == nil {
			continue
		}

		data, err := readTemplate(m.templateDir, name)
		if err != nil {
			return "", types.WorkspaceError("failed to read test template", err)
		}
		if err := writeFileAtomic(dst, data); err != nil {
			return "", types.WorkspaceError(fmt.Sprintf("failed to write %s", name), err)
		}
	}

	return ws.TestsDir(), nil
}

// WriteScript replaces the instance's test script.
func (m *Manager) WriteScript(ws *Workspace, script string) (string, error) {
	if !m.guard.contains(ws.Path) {
		return "", types.WorkspaceError(fmt.Sprintf("workspace %s is outside %s", ws.Path, m.root), nil)
	}
	if err := os.MkdirAll(ws.SpecDir(), 0750); err != nil {
		return "", types.WorkspaceError("failed to create test file directory", err)
	}
	if err := writeFileAtomic(ws.ScriptPath(), []byte(script)); err != nil {
		return "", types.WorkspaceError("failed to write test script", err)
	}
	return ws.ScriptPath(), nil
}

// CleanupResult describes what a cleanup removed.
type CleanupResult struct {
	Removed   []string
	KeptTests bool
	WholeTree bool
}

// Cleanup removes a workspace. With keepArtifacts the test script, config
// and logs stay and only paths matching the prune patterns are removed.
func (m *Manager) Cleanup(id string, keepArtifacts bool) (*CleanupResult, error) {
	ws, err := m.Open(id)
	if err != nil {
		return nil, err
	}

	if keepArtifacts {
		removed, err := m.pruner.prune(ws.Path)
		if err != nil {
			return nil, types.WorkspaceError("failed to prune workspace", err)
		}
		return &CleanupResult{Removed: removed, KeptTests: true}, nil
	}

	if err := os.RemoveAll(ws.Path); err != nil {
		return nil, types.WorkspaceError("failed to remove workspace", err)
	}
	return &CleanupResult{Removed: []string{"."}, WholeTree: true}, nil
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// into place so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
