// Package session owns the one live handle to the pricing calculator.
// Exactly one Session exists per run: it is opened by the orchestrator,
// mutated by every item added to the cumulative estimate, and always closed
// when the run ends.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/calcforge/calcforge/internal/ctxlog"
	"github.com/calcforge/calcforge/internal/driver"
)

// DefaultBaseURL is the calculator entry point.
const DefaultBaseURL = "https://calculator.aws/#/"

// Page selectors shared by the session flows and the configurators.
const (
	SelCreateEstimate    = "button[data-cy='create-estimate']"
	SelServiceSearch     = "input[data-cy='service-search-input']"
	SelAddService        = "button[data-cy='add-service']"
	SelViewSummary       = ".appFooter button[id='estimate-button']"
	SelShare             = "button[data-cy='save-and-share']"
	SelNotificationClose = "button[data-testid='notification-bubble-close-icon']"
	SelAgreeContinue     = "button[data-id='agree-continue']"
	SelShareURLInput     = "input[aria-label='Copy public link']"
	SelMonthlyTotal      = "[data-cy='monthly-estimate-total']"
)

// Options configures Open.
type Options struct {
	// BaseURL overrides the calculator entry point, mainly for tests.
	BaseURL string
}

// Session is the single shared estimate session. It is not safe for
// concurrent use; the orchestrator serializes all access.
type Session struct {
	drv     driver.Driver
	baseURL string
	total   decimal.Decimal
	closed  bool
}

// Open navigates to the calculator and creates a fresh estimate. A failure
// here means no progress is possible for the whole run.
func Open(ctx context.Context, drv driver.Driver, opts Options) (*Session, error) {
	logger := ctxlog.FromContext(ctx)

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	logger.Info("Opening estimate session.", "url", baseURL)
	if err := drv.Navigate(ctx, baseURL); err != nil {
		return nil, fmt.Errorf("navigating to calculator: %w", err)
	}
	if err := drv.WaitVisible(ctx, SelCreateEstimate); err != nil {
		return nil, fmt.Errorf("waiting for calculator landing page: %w", err)
	}
	if err := drv.Click(ctx, SelCreateEstimate); err != nil {
		return nil, fmt.Errorf("creating estimate: %w", err)
	}
	if err := drv.WaitVisible(ctx, SelServiceSearch); err != nil {
		return nil, fmt.Errorf("waiting for service search: %w", err)
	}

	logger.Info("Estimate session open.")
	return &Session{drv: drv, baseURL: baseURL}, nil
}

// Click clicks an element on the current page.
func (s *Session) Click(ctx context.Context, selector string) error {
	return s.drv.Click(ctx, selector)
}

// Fill sets the value of an input or select.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	return s.drv.Fill(ctx, selector, value)
}

// SetChecked checks or unchecks a checkbox.
func (s *Session) SetChecked(ctx context.Context, selector string, checked bool) error {
	return s.drv.SetChecked(ctx, selector, checked)
}

// WaitVisible waits for an element to render.
func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	return s.drv.WaitVisible(ctx, selector)
}

// Search types a term into the service search box.
func (s *Session) Search(ctx context.Context, term string) error {
	return s.drv.Fill(ctx, SelServiceSearch, term)
}

// ReturnToSearch brings the session back to the "add new item" state after
// an item was committed, or after a failed item left the page somewhere
// unexpected. Falls back to reloading the calculator, which keeps the
// accumulated estimate because it is tied to the session, not the page.
func (s *Session) ReturnToSearch(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if err := s.drv.Click(ctx, SelAddService); err == nil {
		if err := s.drv.WaitVisible(ctx, SelServiceSearch); err == nil {
			return nil
		}
	}

	logger.Warn("Add-service button not reachable, reloading calculator.")
	if err := s.drv.Navigate(ctx, s.baseURL); err != nil {
		return fmt.Errorf("reloading calculator: %w", err)
	}
	if err := s.drv.WaitVisible(ctx, SelServiceSearch); err != nil {
		return fmt.Errorf("waiting for service search after reload: %w", err)
	}
	return nil
}

// RefreshTotal reads the calculator's running monthly total from the page
// footer and caches it on the session.
func (s *Session) RefreshTotal(ctx context.Context) error {
	raw, err := s.drv.Value(ctx, SelMonthlyTotal)
	if err != nil {
		return err
	}
	total, err := parseMoney(raw)
	if err != nil {
		return fmt.Errorf("parsing monthly total %q: %w", raw, err)
	}
	s.total = total
	return nil
}

// MonthlyTotal returns the last total read by RefreshTotal.
func (s *Session) MonthlyTotal() decimal.Decimal {
	return s.total
}

// Finalize walks the share flow (view summary, share, agree-and-continue)
// and returns the public estimate URL.
func (s *Session) Finalize(ctx context.Context) (string, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Finalizing estimate.")

	if err := s.drv.Click(ctx, SelViewSummary); err != nil {
		return "", fmt.Errorf("opening estimate summary: %w", err)
	}
	if err := s.drv.Click(ctx, SelShare); err != nil {
		return "", fmt.Errorf("opening share dialog: %w", err)
	}

	// A notification bubble sometimes covers the consent button; closing it
	// is best-effort.
	if err := s.drv.Click(ctx, SelNotificationClose); err != nil {
		logger.Debug("No notification bubble to dismiss.")
	}

	if err := s.drv.Click(ctx, SelAgreeContinue); err != nil {
		return "", fmt.Errorf("accepting share consent: %w", err)
	}
	if err := s.drv.WaitVisible(ctx, SelShareURLInput); err != nil {
		return "", fmt.Errorf("waiting for share link: %w", err)
	}

	url, err := s.drv.Value(ctx, SelShareURLInput)
	if err != nil {
		return "", fmt.Errorf("reading share link: %w", err)
	}
	if strings.HasPrefix(url, "https://calculator.aws") {
		logger.Info("Estimate finalized.", "url", url)
		return url, nil
	}

	// Fall back to the page URL, which also carries the estimate reference.
	current, err := s.drv.Location(ctx)
	if err == nil && strings.Contains(current, "calculator.aws") {
		logger.Info("Estimate finalized via page URL.", "url", current)
		return current, nil
	}
	return "", fmt.Errorf("no shareable estimate URL produced (got %q)", url)
}

// Close releases the underlying driver. Idempotent; always called at run
// end regardless of item outcomes.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	ctxlog.FromContext(ctx).Info("Closing estimate session.")
	return s.drv.Close()
}

// parseMoney strips currency formatting ("$1,234.56 USD") down to a decimal.
func parseMoney(raw string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", "USD", "", " ", "").Replace(raw)
	if cleaned == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(cleaned)
}
