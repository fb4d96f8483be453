package workspace

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// TemplateFiles are copied into every tests directory that lacks them.
var TemplateFiles = []string{"playwright.config.js", "package.json"}

//go:embed templates/*
var builtinTemplates embed.FS

// readTemplate returns a template's bytes from dir, or from the built-in set
// when dir is empty.
func readTemplate(dir, name string) ([]byte, error) {
	if dir == "" {
		data, err := fs.ReadFile(builtinTemplates, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("built-in template %s: %w", name, err)
		}
		return data, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	return data, nil
}
