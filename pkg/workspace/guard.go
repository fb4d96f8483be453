package workspace

import (
	"fmt"
	"path/filepath"
	"strings"
)

// guard keeps file operations inside one directory tree.
type guard struct {
	root string // absolute, cleaned, symlinks evaluated when possible
}

func newGuard(root string) (*guard, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace root cannot be empty")
	}

	absPath, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	// The root may not exist yet; keep the cleaned absolute path then.
	if evalPath, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = evalPath
	}

	return &guard{root: filepath.Clean(absPath)}, nil
}

// resolve joins rel onto the root and rejects results that escape it.
func (g *guard) resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path %q must be relative to the workspace", rel)
	}

	joined := filepath.Join(g.root, rel)
	if !g.contains(joined) {
		return "", fmt.Errorf("path %q is outside workspace boundaries", rel)
	}
	return joined, nil
}

// contains reports whether absPath is the root or a descendant of it.
func (g *guard) contains(absPath string) bool {
	p := filepath.Clean(absPath)
	if evalPath, err := filepath.EvalSymlinks(p); err == nil {
		p = evalPath
	}
	sep := string(filepath.Separator)
	return p == g.root || strings.HasPrefix(p+sep, g.root+sep)
}
