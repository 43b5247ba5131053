package server

import (
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
)

// LoadTemplates parses every HTML template under "templates" in fsys and returns them keyed
// by their path relative to that directory. Admin pages are parsed together with the admin
// layout; the layout itself is not a page.
func LoadTemplates(fsys fs.FS, funcMap template.FuncMap) (map[string]*template.Template, error) {
	const templatesDir = "templates"
	const adminLayout = "admin/layout.html"

	templates := make(map[string]*template.Template)
	if _, err := fs.Stat(fsys, path.Join(templatesDir, adminLayout)); err != nil {
		return nil, fmt.Errorf("admin layout template not found: %w", err)
	}

	err := fs.WalkDir(fsys, templatesDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".html") {
			return nil
		}

		name := strings.TrimPrefix(p, templatesDir+"/")
		if name == adminLayout {
			return nil
		}

		files := []string{p}
		if strings.HasPrefix(name, "admin/") {
			files = append(files, path.Join(templatesDir, adminLayout))
		}
		tmpl, err := template.New(path.Base(p)).Funcs(funcMap).ParseFS(fsys, files...)
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = tmpl
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking templates directory: %w", err)
	}

	return templates, nil
}
