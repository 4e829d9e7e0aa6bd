package commands

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed all:templates/project
var templateFS embed.FS

const projectRoot = "templates/project"

// dotfiles are stored without their leading dot so go:embed keeps them visible.
var dotfiles = map[string]string{"gitignore": ".gitignore"}

// writeProject writes the example project into dir and returns the written
// paths relative to dir. Existing files are left alone unless force is set.
func writeProject(dir string, force bool) ([]string, error) {
	var written []string
	err := fs.WalkDir(templateFS, projectRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(projectRoot, p)
		if err != nil || rel == "." {
			return err
		}
		if name, ok := dotfiles[filepath.Base(rel)]; ok {
			rel = filepath.Join(filepath.Dir(rel), name)
		}
		target := filepath.Join(dir, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0750)
		}
		if _, err := os.Stat(target); err == nil && !force {
			return nil
		}

		content, err := templateFS.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, content, 0600); err != nil {
			return err
		}
		written = append(written, rel)
		return nil
	})
	return written, err
}
