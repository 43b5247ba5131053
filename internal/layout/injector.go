package layout

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	DefaultLayoutName        = "AuthLayout"
	DefaultAnchorSelector    = `div[class*="powered-by"] > a`
	DefaultContainerSelector = `div[style*="max-width: 320px"]`
	DefaultMountID           = "record-number-display-root"
	DefaultPollInterval      = 500 * time.Millisecond
	DefaultPollTimeout       = 10 * time.Second
)

// State is the injector lifecycle position.
type State int

const (
	StateInit State = iota
	StateComposed
	StatePolling
	StateMounted
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateComposed:
		return "composed"
	case StatePolling:
		return "polling"
	case StateMounted:
		return "mounted"
	case StateAbandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures where and how the widget is attached.
type Options struct {
	// LayoutName is the registry entry wrapped when composition is possible.
	LayoutName string
	// AnchorSelector finds the element the widget is placed in front of.
	AnchorSelector string
	// ContainerSelector is matched against the anchor's ancestors.
	ContainerSelector string
	MountID           string
	Interval          time.Duration
	Timeout           time.Duration
	// Verbose logs every unsuccessful search attempt.
	Verbose bool
}

func DefaultOptions() Options {
	return Options{
		LayoutName:        DefaultLayoutName,
		AnchorSelector:    DefaultAnchorSelector,
		ContainerSelector: DefaultContainerSelector,
		MountID:           DefaultMountID,
		Interval:          DefaultPollInterval,
		Timeout:           DefaultPollTimeout,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.LayoutName == "" {
		o.LayoutName = d.LayoutName
	}
	if o.AnchorSelector == "" {
		o.AnchorSelector = d.AnchorSelector
	}
	if o.ContainerSelector == "" {
		o.ContainerSelector = d.ContainerSelector
	}
	if o.MountID == "" {
		o.MountID = d.MountID
	}
	if o.Interval <= 0 {
		o.Interval = d.Interval
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	return o
}

// MaxAttempts is the number of searches Attach performs before giving up.
func (o Options) MaxAttempts() int {
	o = o.withDefaults()
	return int((o.Timeout + o.Interval - 1) / o.Interval)
}

// Result reports how an Attach call ended.
type Result struct {
	State    State
	Attempts int
}

// Injector places the widget on the sign-in layout. Install tries to wrap the registered
// layout; when that is impossible, Attach polls a rendered document for the layout's
// container and mounts the widget inside it.
type Injector struct {
	registry *Registry
	widget   Component
	opts     Options
	logger   *log.Logger

	anchor    cascadia.Selector
	container cascadia.Selector

	mu    sync.Mutex
	state State
}

// NewInjector validates the selectors in opts and returns an injector in StateInit.
func NewInjector(registry *Registry, widget Component, opts Options, logger *log.Logger) (*Injector, error) {
	opts = opts.withDefaults()
	anchor, err := cascadia.Compile(opts.AnchorSelector)
	if err != nil {
		return nil, fmt.Errorf("invalid anchor selector %q: %w", opts.AnchorSelector, err)
	}
	container, err := cascadia.Compile(opts.ContainerSelector)
	if err != nil {
		return nil, fmt.Errorf("invalid container selector %q: %w", opts.ContainerSelector, err)
	}
	return &Injector{
		registry:  registry,
		widget:    widget,
		opts:      opts,
		logger:    logger,
		anchor:    anchor,
		container: container,
		state:     StateInit,
	}, nil
}

// State returns the install-time state.
func (i *Injector) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Options returns the effective options.
func (i *Injector) Options() Options {
	return i.opts
}

// Install runs once. When the registry has the layout it is overridden with a composition of
// the original and the widget; otherwise the injector switches to polling.
func (i *Injector) Install() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != StateInit {
		return i.state
	}

	if original, ok := i.registry.Get(i.opts.LayoutName); ok {
		err := i.registry.Add(i.opts.LayoutName, Compose(original, i.widget), true)
		if err == nil {
			i.state = StateComposed
			return i.state
		}
		i.logger.Printf("Error composing %s: %v", i.opts.LayoutName, err)
	}
	i.state = StatePolling
	return i.state
}

// Attach polls doc until the widget is mounted, the timeout passes, the attempt budget is
// spent, or ctx is done. It blocks the caller. A composed injector returns immediately.
func (i *Injector) Attach(ctx context.Context, doc *Document, data any) Result {
	if i.State() == StateComposed {
		return Result{State: StateComposed}
	}

	maxAttempts := i.opts.MaxAttempts()
	ticker := time.NewTicker(i.opts.Interval)
	defer ticker.Stop()
	timer := time.NewTimer(i.opts.Timeout)
	defer timer.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return Result{State: StateAbandoned, Attempts: attempts}
		case <-timer.C:
			i.debugf("Widget target not found after %s, giving up", i.opts.Timeout)
			return Result{State: StateAbandoned, Attempts: attempts}
		case <-ticker.C:
			attempts++
			mounted, err := i.tryMount(ctx, doc, data)
			if err != nil {
				i.logger.Printf("Error attaching record number widget: %v", err)
			}
			if mounted {
				return Result{State: StateMounted, Attempts: attempts}
			}
			if attempts >= maxAttempts {
				i.debugf("Widget target not found after %d attempts, giving up", attempts)
				return Result{State: StateAbandoned, Attempts: attempts}
			}
		}
	}
}

// tryMount performs one search. It reports true once a mount node is in place, even when the
// widget itself failed to render.
func (i *Injector) tryMount(ctx context.Context, doc *Document, data any) (bool, error) {
	var mounted bool
	err := doc.Do(func(root *html.Node) error {
		anchor, container := i.findTarget(root)
		if container == nil {
			return nil
		}
		mount := findByID(root, i.opts.MountID)
		if mount == nil {
			mount = &html.Node{
				Type:     html.ElementNode,
				Data:     atom.Div.String(),
				DataAtom: atom.Div,
				Attr:     []html.Attribute{{Key: "id", Val: i.opts.MountID}},
			}
			if parent := anchor.Parent; parent != nil && parent.Parent == container {
				container.InsertBefore(mount, parent)
			} else {
				container.AppendChild(mount)
			}
		}
		mounted = true
		return i.renderInto(ctx, mount, data)
	})
	return mounted, err
}

// findTarget returns the first anchor that sits inside a container.
func (i *Injector) findTarget(root *html.Node) (*html.Node, *html.Node) {
	var anchor, container *html.Node
	goquery.NewDocumentFromNode(root).FindMatcher(i.anchor).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		c := s.ClosestMatcher(i.container)
		if c.Length() == 0 {
			return true
		}
		anchor, container = s.Get(0), c.Get(0)
		return false
	})
	return anchor, container
}

// renderInto replaces mount's children with the rendered widget.
func (i *Injector) renderInto(ctx context.Context, mount *html.Node, data any) error {
	for c := mount.FirstChild; c != nil; c = mount.FirstChild {
		mount.RemoveChild(c)
	}

	var buf bytes.Buffer
	if err := i.widget.Render(ctx, &buf, data); err != nil {
		return fmt.Errorf("error rendering widget: %w", err)
	}
	nodes, err := html.ParseFragment(&buf, mount)
	if err != nil {
		return fmt.Errorf("error parsing widget markup: %w", err)
	}
	for _, n := range nodes {
		mount.AppendChild(n)
	}
	return nil
}

func (i *Injector) debugf(format string, args ...any) {
	if i.opts.Verbose {
		i.logger.Printf(format, args...)
	}
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}
