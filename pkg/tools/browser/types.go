package browser

import (
	"context"
	"time"

	"github.com/entrhq/testforge/pkg/agent/tools"
)

const (
	// DefaultStartupTimeout bounds launching the browser.
	DefaultStartupTimeout = 30 * time.Second

	// DefaultActionTimeout is the per-action timeout in milliseconds.
	DefaultActionTimeout = 15000.0

	// DefaultSnapshotLength caps browser_snapshot output in characters.
	DefaultSnapshotLength = 20000

	// DefaultViewportWidth and DefaultViewportHeight size new pages.
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// Provider launches isolated browser sessions.
type Provider interface {
	// Open starts a browser whose profile lives in profileDir.
	Open(ctx context.Context, profileDir string) (Session, error)
}

// Session is one running browser.
type Session interface {
	// Tools returns the agent tools bound to this session.
	Tools() []tools.Tool

	// Close shuts the browser down. It is safe to call more than once.
	Close() error
}

// Driver is the page-level surface the tools use.
type Driver interface {
	Navigate(url string, opts NavigateOptions) error
	Click(opts ClickOptions) error
	Fill(opts FillOptions) error
	Wait(opts WaitOptions) error
	Content() (string, error)
	Info() PageInfo
}

// PageInfo describes the current page.
type PageInfo struct {
	URL   string
	Title string
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle"
	WaitUntil string

	// Timeout in milliseconds (0 means default)
	Timeout float64
}

// ClickOptions configures element clicking behavior.
type ClickOptions struct {
	Selector   string
	Button     string
	ClickCount int
	Timeout    float64
}

// FillOptions configures form input filling.
type FillOptions struct {
	Selector string
	Value    string
	Timeout  float64
}

// WaitOptions configures waiting for an element.
type WaitOptions struct {
	// Selector identifies the element to wait for
	Selector string

	// State is one of attached, detached, visible, hidden
	State string

	Timeout float64
}
