package layout

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Document is a parsed page that a renderer may fill in or replace while other goroutines
// inspect it. Every access goes through the document lock.
type Document struct {
	mu   sync.Mutex
	root *html.Node
}

// NewDocument returns an empty document (html, head and body only).
func NewDocument() *Document {
	root, _ := html.Parse(strings.NewReader(""))
	return &Document{root: root}
}

// ParseDocument parses r into a new document.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("error parsing document: %w", err)
	}
	return &Document{root: root}, nil
}

// Replace swaps the whole tree.
func (d *Document) Replace(root *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.root = root
}

// ReplaceHTML parses r and swaps it in as the whole tree.
func (d *Document) ReplaceHTML(r io.Reader) error {
	root, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("error parsing document: %w", err)
	}
	d.Replace(root)
	return nil
}

// Do runs fn with exclusive access to the tree. fn must not retain root.
func (d *Document) Do(fn func(root *html.Node) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d.root)
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// String renders the document, returning "" on failure.
func (d *Document) String() string {
	var b strings.Builder
	if err := d.Render(&b); err != nil {
		return ""
	}
	return b.String()
}
