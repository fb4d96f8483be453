package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"
)

// pruneMatcher selects workspace-relative paths removed by a cleanup that
// keeps test artifacts.
type pruneMatcher struct {
	patterns []glob.Glob
}

func newPruneMatcher(patterns []string) (*pruneMatcher, error) {
	pm := &pruneMatcher{}
	for _, pattern := range patterns {
		g, err := glob.Compile(filepath.ToSlash(pattern), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid prune pattern '%s': %w", pattern, err)
		}
		pm.patterns = append(pm.patterns, g)
	}
	return pm, nil
}

func (pm *pruneMatcher) match(rel string) bool {
	rel = filepath.ToSlash(filepath.Clean(rel))
	for _, g := range pm.patterns {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// prune walks root and removes every path matching a pattern. Matched
// directories are removed whole and not descended into.
func (pm *pruneMatcher) prune(root string) ([]string, error) {
	var removed []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if !pm.match(rel) {
			return nil
		}

		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", rel, err)
		}
		removed = append(removed, filepath.ToSlash(rel))
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})

	return removed, err
}
