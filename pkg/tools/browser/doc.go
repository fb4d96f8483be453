// Package browser gives the test-writing agent a live browser to explore the
// target application with.
//
// A Provider opens one Session per instance. The session runs Chromium with a
// persistent profile in the instance's browser_data directory, so concurrent
// instances never share cookies or storage. Session.Tools returns the tools
// the agent drives it with:
//
//   - browser_navigate: load a URL
//   - browser_click: click an element
//   - browser_fill: type into an input
//   - browser_wait: wait for an element state
//   - browser_snapshot: cleaned HTML of the current page, for finding selectors
//
// Sessions must be closed on every exit path:
//
//	sess, err := provider.Open(ctx, ws.BrowserDataDir())
//	if err != nil { ... }
//	defer sess.Close()
package browser
