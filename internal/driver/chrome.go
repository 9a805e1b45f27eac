package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/calcforge/calcforge/internal/ctxlog"
)

const defaultOpTimeout = 20 * time.Second

// Chrome drives a real Chrome instance over the DevTools protocol.
type Chrome struct {
	browserCtx  context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	opTimeout   time.Duration
}

// ChromeOptions configures the browser launch.
type ChromeOptions struct {
	// Headless runs the browser without a visible window.
	Headless bool
	// OpTimeout bounds each individual page operation. Zero means the
	// package default.
	OpTimeout time.Duration
}

// NewChrome launches a browser and verifies it is usable. The returned
// driver must be Closed by the caller.
func NewChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	logger := ctxlog.FromContext(ctx)

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", opts.Headless))

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so launch failures surface here, not on the
	// first page operation.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	timeout := opts.OpTimeout
	if timeout == 0 {
		timeout = defaultOpTimeout
	}
	logger.Debug("Browser launched.", "headless", opts.Headless, "op_timeout", timeout)

	return &Chrome{
		browserCtx:  browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		opTimeout:   timeout,
	}, nil
}

// run executes chromedp actions under the per-operation timeout, honoring
// both the caller's context and the browser's lifetime.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.browserCtx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionLost, err)
	}

	opCtx, opCancel := context.WithTimeout(c.browserCtx, c.opTimeout)
	defer opCancel()

	// Stop the operation early if the caller cancels.
	stop := context.AfterFunc(ctx, opCancel)
	defer stop()

	err := chromedp.Run(opCtx, actions...)
	if err != nil && c.browserCtx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrSessionLost, err)
	}
	return err
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *Chrome) Click(ctx context.Context, selector string) error {
	return c.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (c *Chrome) Fill(ctx context.Context, selector, value string) error {
	return c.run(ctx, chromedp.SetValue(selector, value, chromedp.ByQuery))
}

func (c *Chrome) SetChecked(ctx context.Context, selector string, checked bool) error {
	js := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); if (!el) { return false; } el.checked = %t; el.dispatchEvent(new Event("change", { bubbles: true })); return true; })()`,
		selector, checked,
	)
	var ok bool
	if err := c.run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no element matches selector %q", selector)
	}
	return nil
}

func (c *Chrome) WaitVisible(ctx context.Context, selector string) error {
	return c.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (c *Chrome) Value(ctx context.Context, selector string) (string, error) {
	var value string
	if err := c.run(ctx, chromedp.Value(selector, &value, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return value, nil
}

func (c *Chrome) Location(ctx context.Context) (string, error) {
	var url string
	if err := c.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Close tears the browser down. Subsequent operations fail with
// ErrSessionLost.
func (c *Chrome) Close() error {
	c.cancel()
	c.allocCancel()
	return nil
}

// IsFatal reports whether err means the whole automation session is gone.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSessionLost)
}
