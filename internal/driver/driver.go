// Package driver is the boundary to the external page automation surface.
// The orchestration layers only ever see this interface; the chromedp
// implementation below is the production driver and drivertest holds the
// scripted fake used by tests.
package driver

import (
	"context"
	"errors"
)

// ErrSessionLost reports that the underlying browser session is gone and no
// further page operations can succeed. Callers treat it as fatal for the
// whole run, unlike ordinary element-level failures.
var ErrSessionLost = errors.New("automation session lost")

// Driver exposes the page primitives the session and configurators need.
// Every operation blocks on the external surface, so all of them take a
// context and honor its cancellation.
type Driver interface {
	// Navigate loads the given URL.
	Navigate(ctx context.Context, url string) error
	// Click clicks the first element matching the CSS selector.
	Click(ctx context.Context, selector string) error
	// Fill sets the value of the input or select matching the selector.
	Fill(ctx context.Context, selector, value string) error
	// SetChecked checks or unchecks the checkbox matching the selector.
	SetChecked(ctx context.Context, selector string, checked bool) error
	// WaitVisible blocks until the selector is visible or the context ends.
	WaitVisible(ctx context.Context, selector string) error
	// Value reads the current value property of the matching element.
	Value(ctx context.Context, selector string) (string, error)
	// Location returns the page's current URL.
	Location(ctx context.Context) (string, error)
	// Close releases the underlying browser. Safe to call more than once.
	Close() error
}
