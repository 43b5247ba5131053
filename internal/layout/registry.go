// Package layout holds the host's named UI components and the machinery that attaches the
// record-number widget to a rendered sign-in layout.
package layout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

var (
	ErrComponentExists   = errors.New("component already registered")
	ErrComponentNotFound = errors.New("component not registered")
)

// Component renders a fragment of a page.
type Component interface {
	Render(ctx context.Context, w io.Writer, data any) error
}

// ComponentFunc adapts a function to Component.
type ComponentFunc func(ctx context.Context, w io.Writer, data any) error

func (f ComponentFunc) Render(ctx context.Context, w io.Writer, data any) error {
	return f(ctx, w, data)
}

// Registry maps component names to components. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Component
}

func NewRegistry() *Registry {
	return &Registry{components: make(map[string]Component)}
}

// Add registers c under name. An existing registration is replaced only when override is
// set.
func (r *Registry) Add(name string, c Component, override bool) error {
	if name == "" {
		return fmt.Errorf("component name required")
	}
	if c == nil {
		return fmt.Errorf("component %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.components[name]; ok && !override {
		return fmt.Errorf("%w: %s", ErrComponentExists, name)
	}
	r.components[name] = c
	return nil
}

// Get returns the component registered under name.
func (r *Registry) Get(name string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[name]
	return c, ok
}

// Render renders the named component.
func (r *Registry) Render(ctx context.Context, name string, w io.Writer, data any) error {
	c, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrComponentNotFound, name)
	}
	return c.Render(ctx, w, data)
}

// Names lists registered component names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compose returns a component that renders base followed by widget. Both receive the same
// data.
func Compose(base, widget Component) Component {
	return ComponentFunc(func(ctx context.Context, w io.Writer, data any) error {
		if err := base.Render(ctx, w, data); err != nil {
			return err
		}
		return widget.Render(ctx, w, data)
	})
}
