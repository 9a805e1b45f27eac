// Package configurator holds the per-service capability that knows how to
// drive the calculator's configuration surface for exactly one service
// type, plus the registry resolving service-type keys to capabilities.
//
// All services share one page-driving implementation parameterized by a
// declarative control table; nothing is inherited, the table is the only
// thing that differs between services.
package configurator

import (
	"context"
	"fmt"

	"github.com/calcforge/calcforge/internal/ctxlog"
	"github.com/calcforge/calcforge/internal/driver"
	"github.com/calcforge/calcforge/internal/session"
	"github.com/calcforge/calcforge/internal/validate"
)

// SelAddToEstimate commits the configured item into the cumulative estimate.
const SelAddToEstimate = "button[data-cy='add-to-estimate']"

// Configurator drives the configuration surface for one service type. A
// Configurator never retains the session beyond a call.
type Configurator interface {
	// ServiceType returns the registry key this capability serves.
	ServiceType() string
	// SearchTerms returns the identifiers Locate tries, primary first.
	SearchTerms() []string
	// Locate finds and enters this service's configuration surface
	// starting from the session's service-search state.
	Locate(ctx context.Context, sess *session.Session) error
	// Apply populates the surface from the validated config and commits
	// the item into the estimate.
	Apply(ctx context.Context, sess *session.Session, cfg *validate.Config) error
}

// ControlKind says how a page control is driven.
type ControlKind int

const (
	// ControlText is a plain input; the field renders through Fill.
	ControlText ControlKind = iota
	// ControlSelect is a dropdown; driven through Fill with the option value.
	ControlSelect
	// ControlCheckbox is a checkbox driven from a bool field.
	ControlCheckbox
)

// Control binds one schema field to one page control.
type Control struct {
	Field    string
	Selector string
	Kind     ControlKind
}

// pageConfigurator is the shared implementation behind every service type.
type pageConfigurator struct {
	serviceType   string
	searchTerms   []string
	cardSelector  string
	readySelector string
	controls      []Control
}

func (c *pageConfigurator) ServiceType() string {
	return c.serviceType
}

func (c *pageConfigurator) SearchTerms() []string {
	return append([]string(nil), c.searchTerms...)
}

// Locate searches for the service and opens its configuration page. Each
// term is tried in order; the first card that renders wins. A fatal session
// loss stops the term fallback, further terms cannot succeed on a dead
// session.
func (c *pageConfigurator) Locate(ctx context.Context, sess *session.Session) error {
	logger := ctxlog.FromContext(ctx).With("service", c.serviceType)

	var lastErr error
	for _, term := range c.searchTerms {
		logger.Debug("Searching for service.", "term", term)
		err := c.tryTerm(ctx, sess, term)
		if err == nil {
			logger.Debug("Configuration surface located.", "term", term)
			return nil
		}
		lastErr = err
		if driver.IsFatal(err) {
			break
		}
	}
	return fmt.Errorf("service %q not reachable via any search term: %w", c.serviceType, lastErr)
}

func (c *pageConfigurator) tryTerm(ctx context.Context, sess *session.Session, term string) error {
	if err := sess.Search(ctx, term); err != nil {
		return err
	}
	if err := sess.WaitVisible(ctx, c.cardSelector); err != nil {
		return err
	}
	if err := sess.Click(ctx, c.cardSelector); err != nil {
		return err
	}
	return sess.WaitVisible(ctx, c.readySelector)
}

// Apply fills every bound control that has a validated value and commits
// the item. Nothing is committed if any control fails, so a retry cannot
// double-add the item.
func (c *pageConfigurator) Apply(ctx context.Context, sess *session.Session, cfg *validate.Config) error {
	if cfg.ServiceType != c.serviceType {
		return fmt.Errorf("config for %q handed to the %q configurator", cfg.ServiceType, c.serviceType)
	}
	logger := ctxlog.FromContext(ctx).With("service", c.serviceType)

	for _, control := range c.controls {
		if !cfg.Has(control.Field) {
			continue
		}
		var err error
		switch control.Kind {
		case ControlCheckbox:
			err = sess.SetChecked(ctx, control.Selector, cfg.Bool(control.Field))
		default:
			err = sess.Fill(ctx, control.Selector, cfg.String(control.Field))
		}
		if err != nil {
			return fmt.Errorf("setting %s: %w", control.Field, err)
		}
	}

	if err := sess.Click(ctx, SelAddToEstimate); err != nil {
		return fmt.Errorf("committing item to estimate: %w", err)
	}
	logger.Debug("Item committed to estimate.")
	return nil
}
