package browser

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Options configures a PlaywrightProvider.
type Options struct {
	Headless       bool
	StartupTimeout time.Duration
	ActionTimeout  float64 // milliseconds
	Viewport       Viewport

	// SkipInstall assumes the driver and browsers are already installed.
	SkipInstall bool
}

// DefaultOptions returns headless options with default timeouts.
func DefaultOptions() Options {
	return Options{
		Headless:       true,
		StartupTimeout: DefaultStartupTimeout,
		ActionTimeout:  DefaultActionTimeout,
		Viewport:       Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight},
	}
}

// PlaywrightProvider launches Chromium through playwright-go. The Playwright
// driver is started on first use and shared by all sessions.
type PlaywrightProvider struct {
	mu          sync.Mutex
	opts        Options
	playwright  *playwright.Playwright
	initialized bool
}

// NewPlaywrightProvider creates a provider. Zero-valued options take their
// defaults.
func NewPlaywrightProvider(opts Options) *PlaywrightProvider {
	def := DefaultOptions()
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = def.StartupTimeout
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = def.ActionTimeout
	}
	if opts.Viewport.Width <= 0 || opts.Viewport.Height <= 0 {
		opts.Viewport = def.Viewport
	}
	return &PlaywrightProvider{opts: opts}
}

// initialize installs (unless skipped) and starts the Playwright driver.
func (p *PlaywrightProvider) initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	// Keep driver chatter out of the server's stdout.
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if !p.opts.SkipInstall {
		if err := playwright.Install(runOpts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	p.playwright = pw
	p.initialized = true
	return nil
}

// Open implements Provider.
func (p *PlaywrightProvider) Open(ctx context.Context, profileDir string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(profileDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create browser profile dir: %w", err)
	}
	if err := p.initialize(); err != nil {
		return nil, err
	}

	timeout := float64(p.opts.StartupTimeout.Milliseconds())
	if deadline, ok := ctx.Deadline(); ok {
		if left := float64(time.Until(deadline).Milliseconds()); left < timeout {
			timeout = left
		}
	}

	bctx, err := p.playwright.Chromium.LaunchPersistentContext(profileDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(p.opts.Headless),
		Timeout:  playwright.Float(timeout),
		Viewport: &playwright.Size{
			Width:  p.opts.Viewport.Width,
			Height: p.opts.Viewport.Height,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	var page playwright.Page
	if pages := bctx.Pages(); len(pages) > 0 {
		page = pages[0]
	} else if page, err = bctx.NewPage(); err != nil {
		bctx.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(p.opts.ActionTimeout)

	return newSession(bctx, page), nil
}

// Shutdown stops the Playwright driver. Sessions must be closed first.
func (p *PlaywrightProvider) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized || p.playwright == nil {
		return nil
	}
	p.initialized = false
	if err := p.playwright.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}
