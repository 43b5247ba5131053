// internal/server/templates.go
package server

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"
)

//go:embed web/templates
var rawContent embed.FS

// webContent holds the virtual filesystem for web assets.
var webContent fs.FS

func init() {
	var err error
	webContent, err = fs.Sub(rawContent, "web")
	if err != nil {
		panic(fmt.Sprintf("failed to create virtual filesystem: %v", err))
	}
}

func (s *Server) registerTemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return "never"
			}
			return t.UTC().Format("02/01/06 15:04")
		},
	}
}

// executeTemplate renders the named template into w. Admin pages are executed through the
// admin layout.
func (s *Server) executeTemplate(w io.Writer, name string, data any) error {
	tmpl, ok := s.templateCache[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}
	if strings.HasPrefix(name, "admin/") {
		return tmpl.ExecuteTemplate(w, "layout", data)
	}
	return tmpl.Execute(w, data)
}

// renderTemplate buffers the page so a failing template never leaves a half-written
// response behind.
func (s *Server) renderTemplate(w http.ResponseWriter, name string, data any) error {
	var buf bytes.Buffer
	if err := s.executeTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

// templateComponent exposes a template as a layout component.
type templateComponent struct {
	server *Server
	name   string
}

func (c templateComponent) Render(_ context.Context, w io.Writer, data any) error {
	return c.server.executeTemplate(w, c.name, data)
}
