package browser

import (
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/testforge/pkg/agent/tools"
)

// pwSession is a Session backed by a persistent Chromium context.
type pwSession struct {
	bctx      playwright.BrowserContext
	page      playwright.Page
	closeOnce sync.Once
	closeErr  error
}

func newSession(bctx playwright.BrowserContext, page playwright.Page) *pwSession {
	return &pwSession{bctx: bctx, page: page}
}

// Tools implements Session.
func (s *pwSession) Tools() []tools.Tool {
	return ToolsFor(s)
}

// Close implements Session.
func (s *pwSession) Close() error {
	s.closeOnce.Do(func() {
		// Closing the persistent context also stops its browser process.
		if err := s.bctx.Close(); err != nil {
			s.closeErr = fmt.Errorf("failed to close browser: %w", err)
		}
	})
	return s.closeErr
}

// Navigate navigates the session's page to the specified URL.
func (s *pwSession) Navigate(url string, opts NavigateOptions) error {
	playwrightOpts := playwright.PageGotoOptions{}

	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}
	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if _, err := s.page.Goto(url, playwrightOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Click clicks an element matching the selector.
func (s *pwSession) Click(opts ClickOptions) error {
	playwrightOpts := playwright.PageClickOptions{}

	if opts.Button != "" {
		button := playwright.MouseButton(opts.Button)
		playwrightOpts.Button = &button
	}
	if opts.ClickCount > 0 {
		playwrightOpts.ClickCount = &opts.ClickCount
	}
	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if err := s.page.Click(opts.Selector, playwrightOpts); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Fill fills an input element with the specified value.
func (s *pwSession) Fill(opts FillOptions) error {
	playwrightOpts := playwright.PageFillOptions{}
	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if err := s.page.Fill(opts.Selector, opts.Value, playwrightOpts); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// Wait waits for an element to reach a state.
func (s *pwSession) Wait(opts WaitOptions) error {
	playwrightOpts := playwright.PageWaitForSelectorOptions{}

	if opts.State != "" {
		state := playwright.WaitForSelectorState(opts.State)
		playwrightOpts.State = &state
	}
	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if _, err := s.page.WaitForSelector(opts.Selector, playwrightOpts); err != nil {
		return fmt.Errorf("wait failed: %w", err)
	}
	return nil
}

// Content returns the page's current HTML.
func (s *pwSession) Content() (string, error) {
	content, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return content, nil
}

// Info returns the page URL and title.
func (s *pwSession) Info() PageInfo {
	title, err := s.page.Title()
	if err != nil {
		title = ""
	}
	return PageInfo{URL: s.page.URL(), Title: title}
}
