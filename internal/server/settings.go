// internal/server/settings.go
package server

import (
	"fmt"
	"sync"
)

// SettingsPage is an entry in the admin settings menu. Component names the layout component
// that renders the page body.
type SettingsPage struct {
	Name      string
	Title     string
	Icon      string
	Component string
}

// SettingsPages is the host's settings-page registry.
type SettingsPages struct {
	mu    sync.RWMutex
	order []string
	pages map[string]SettingsPage
}

func NewSettingsPages() *SettingsPages {
	return &SettingsPages{pages: make(map[string]SettingsPage)}
}

// Add registers page. Names are unique.
func (p *SettingsPages) Add(page SettingsPage) error {
	if page.Name == "" || page.Component == "" {
		return fmt.Errorf("settings page requires a name and a component")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pages[page.Name]; ok {
		return fmt.Errorf("settings page %q already registered", page.Name)
	}
	p.pages[page.Name] = page
	p.order = append(p.order, page.Name)
	return nil
}

func (p *SettingsPages) Get(name string) (SettingsPage, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	page, ok := p.pages[name]
	return page, ok
}

// List returns pages in registration order.
func (p *SettingsPages) List() []SettingsPage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]SettingsPage, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.pages[name])
	}
	return out
}
