// Package browser drives a Chrome session that hosts WebRTC peers and the
// chrome://webrtc-internals page recording their statistics.
package browser

import (
	"context"

	"emperror.dev/errors"
)

// ErrNotFound is returned by Window.ClickX when no element matches.
var ErrNotFound = errors.New("element not found")

// Browser opens windows in one browser session.
type Browser interface {
	// OpenWindow opens a new, blank top-level window.
	OpenWindow(ctx context.Context) (Window, error)
	// Close ends the session and releases the browser process.
	Close() error
}

// Window is one top-level browser window.
type Window interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	// Activate brings the window to the foreground.
	Activate(ctx context.Context) error
	// ClickX clicks the first element matching xpath, or returns
	// ErrNotFound.
	ClickX(ctx context.Context, xpath string) error
}
