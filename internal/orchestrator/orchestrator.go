// Package orchestrator runs the session lifecycle: open the single estimate
// session, walk the planned items strictly in submission order, finalize,
// and always release the session. Item failures are contained; only losing
// the session itself fails the run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/calcforge/calcforge/internal/configurator"
	"github.com/calcforge/calcforge/internal/ctxlog"
	"github.com/calcforge/calcforge/internal/driver"
	"github.com/calcforge/calcforge/internal/estimate"
	"github.com/calcforge/calcforge/internal/schema"
	"github.com/calcforge/calcforge/internal/session"
	"github.com/calcforge/calcforge/internal/validate"
)

// Defaults for the per-operation retry budget. Flat and small on purpose:
// a calculator page that does not respond after a few tries will not
// respond after twenty, and the session must move on to the next item.
const (
	DefaultAttempts   = 3
	DefaultRetryDelay = 500 * time.Millisecond
)

// finalizeTimeout bounds the share flow once item processing is over, so a
// cancelled run still gets a chance to produce a share URL without hanging.
const finalizeTimeout = 45 * time.Second

// SessionFatalError marks a run-level failure: the session could not be
// opened or became unusable mid-run. It never describes a single item.
type SessionFatalError struct {
	Err error
}

func (e *SessionFatalError) Error() string {
	return fmt.Sprintf("fatal session error: %v", e.Err)
}

func (e *SessionFatalError) Unwrap() error {
	return e.Err
}

// Planned is one item as it enters the orchestrator: the raw request, plus
// either its validated config or the validation error that stops it from
// ever touching the session.
type Planned struct {
	Item          estimate.Item
	Config        *validate.Config
	ValidationErr error
}

// Options tunes a run.
type Options struct {
	// Attempts is the per-operation try budget for locate and apply.
	Attempts int
	// RetryDelay is the fixed pause between tries.
	RetryDelay time.Duration
	// Session is passed through to session.Open.
	Session session.Options
}

func (o Options) withDefaults() Options {
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	return o
}

// Result is what a run produced: one outcome per planned item in submission
// order, plus whatever the finalized session yielded.
type Result struct {
	Outcomes     []estimate.ItemOutcome
	ShareURL     string
	MonthlyTotal decimal.Decimal
}

// Orchestrator owns the run state machine. Safe to reuse across runs; each
// Run call carries its own state.
type Orchestrator struct {
	configurators *configurator.Registry
	opts          Options
}

// New creates an orchestrator over the given configurator registry.
func New(configurators *configurator.Registry, opts Options) *Orchestrator {
	return &Orchestrator{configurators: configurators, opts: opts.withDefaults()}
}

// Run executes the full lifecycle against one driver. The returned error is
// non-nil only for run-level failures (always a *SessionFatalError); item
// failures are reported through Result.Outcomes. When the session opened at
// all, a Result is returned even alongside a fatal error so the caller can
// still report per-item outcomes.
func (o *Orchestrator) Run(ctx context.Context, drv driver.Driver, planned []Planned) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	state := StateIdle
	transition := func(to State) {
		logger.Debug("State transition.", "from", state.String(), "to", to.String())
		state = to
	}

	transition(StateSessionOpen)
	sess, err := session.Open(ctx, drv, o.opts.Session)
	if err != nil {
		transition(StateFailed)
		// No session to close, but the driver still holds a browser.
		if cerr := drv.Close(); cerr != nil {
			logger.Warn("Closing driver after failed open.", "error", cerr)
		}
		return nil, &SessionFatalError{Err: fmt.Errorf("opening session: %w", err)}
	}
	// The session is released no matter how the run ends. Close must not be
	// tied to the run context, which may already be cancelled.
	defer func() {
		if cerr := sess.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Warn("Closing session failed.", "error", cerr)
		}
	}()

	result := &Result{Outcomes: make([]estimate.ItemOutcome, 0, len(planned))}
	var fatal *SessionFatalError

	for i, p := range planned {
		itemLogger := logger.With("service", p.Item.ServiceType, "ordinal", p.Item.Ordinal)
		itemCtx := ctxlog.WithLogger(ctx, itemLogger)

		if fatal != nil {
			result.Outcomes = append(result.Outcomes, automationOutcome(p.Item, errors.New("session lost before item was attempted")))
			continue
		}
		if ctx.Err() != nil {
			result.Outcomes = append(result.Outcomes, automationOutcome(p.Item, fmt.Errorf("run cancelled before item was attempted: %w", ctx.Err())))
			continue
		}

		transition(StateItemPending)
		outcome, itemFatal := o.runItem(itemCtx, sess, p, transition)
		result.Outcomes = append(result.Outcomes, outcome)
		if itemFatal != nil {
			itemLogger.Error("Session became unusable, aborting remaining items.", "error", itemFatal)
			fatal = &SessionFatalError{Err: itemFatal}
			continue
		}
		if outcome.Succeeded() {
			itemLogger.Info("Item added to estimate.", "position", fmt.Sprintf("%d/%d", i+1, len(planned)))
		} else {
			itemLogger.Warn("Item failed, continuing with next item.", "reason", string(outcome.Reason), "error", outcome.Error)
		}
	}

	if fatal != nil {
		transition(StateFailed)
		return result, fatal
	}

	transition(StateFinalizing)
	// Finalization runs even after cancellation; the items already in the
	// estimate are worth a share URL.
	finCtx, finCancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer finCancel()
	finCtx = ctxlog.WithLogger(finCtx, logger)

	shareURL, ferr := sess.Finalize(finCtx)
	switch {
	case ferr == nil:
		result.ShareURL = shareURL
	case driver.IsFatal(ferr):
		transition(StateFailed)
		return result, &SessionFatalError{Err: fmt.Errorf("finalizing estimate: %w", ferr)}
	default:
		// Expected when nothing was added; a curiosity otherwise. Either way
		// the per-item outcomes stand on their own.
		logger.Warn("Finalize produced no share URL.", "error", ferr)
	}
	result.MonthlyTotal = sess.MonthlyTotal()

	transition(StateFinalized)
	return result, nil
}

// runItem drives one item through locate and apply. The second return value
// is non-nil only when the session itself was lost.
func (o *Orchestrator) runItem(ctx context.Context, sess *session.Session, p Planned, transition func(State)) (estimate.ItemOutcome, error) {
	logger := ctxlog.FromContext(ctx)

	// Items that failed validation never touch the session.
	if p.ValidationErr != nil {
		return ValidationOutcome(p.Item, p.ValidationErr), nil
	}

	cfgr, err := o.configurators.Resolve(p.Item.ServiceType)
	if err != nil {
		return estimate.ItemOutcome{
			ServiceType: p.Item.ServiceType,
			Ordinal:     p.Item.Ordinal,
			Status:      estimate.StatusValidationFailed,
			Reason:      estimate.ReasonUnsupportedService,
			Error:       err.Error(),
		}, nil
	}

	transition(StateItemLocating)
	if err := retryOp(ctx, o.opts.Attempts, o.opts.RetryDelay, func() error {
		return cfgr.Locate(ctx, sess)
	}); err != nil {
		if driver.IsFatal(err) {
			return automationOutcome(p.Item, err), err
		}
		// A failed locate never committed anything; bring the page back to
		// the search state for the next item.
		o.recover(ctx, sess)
		return automationOutcome(p.Item, err), nil
	}

	transition(StateItemApplying)
	if err := retryOp(ctx, o.opts.Attempts, o.opts.RetryDelay, func() error {
		return cfgr.Apply(ctx, sess, p.Config)
	}); err != nil {
		if driver.IsFatal(err) {
			return automationOutcome(p.Item, err), err
		}
		o.recover(ctx, sess)
		return automationOutcome(p.Item, err), nil
	}

	// Best-effort total read; the committed item is a success regardless.
	if err := sess.RefreshTotal(ctx); err != nil {
		if driver.IsFatal(err) {
			return successOutcome(p.Item), err
		}
		logger.Debug("Could not refresh monthly total.", "error", err)
	}

	if err := sess.ReturnToSearch(ctx); err != nil && driver.IsFatal(err) {
		return successOutcome(p.Item), err
	}

	transition(StateItemDone)
	return successOutcome(p.Item), nil
}

// recover brings the session back to the search state after a failed item,
// best effort. A recovery failure is logged, not reported; the next item's
// locate will surface any lasting damage.
func (o *Orchestrator) recover(ctx context.Context, sess *session.Session) {
	if ctx.Err() != nil {
		return
	}
	if err := sess.ReturnToSearch(ctx); err != nil {
		ctxlog.FromContext(ctx).Warn("Session recovery after failed item did not complete.", "error", err)
	}
}

func successOutcome(item estimate.Item) estimate.ItemOutcome {
	return estimate.ItemOutcome{
		ServiceType: item.ServiceType,
		Ordinal:     item.Ordinal,
		Status:      estimate.StatusSucceeded,
	}
}

func automationOutcome(item estimate.Item, err error) estimate.ItemOutcome {
	return estimate.ItemOutcome{
		ServiceType: item.ServiceType,
		Ordinal:     item.Ordinal,
		Status:      estimate.StatusAutomationFailed,
		Reason:      estimate.ReasonAutomation,
		Error:       err.Error(),
	}
}

// ValidationOutcome classifies a pre-session failure: a missing schema and a
// bad config are different reasons even though both stop the item equally
// early.
func ValidationOutcome(item estimate.Item, err error) estimate.ItemOutcome {
	reason := estimate.ReasonValidation
	if errors.Is(err, schema.ErrNotFound) {
		reason = estimate.ReasonSchemaNotFound
	}
	var verr *validate.ValidationError
	if errors.As(err, &verr) {
		reason = estimate.ReasonValidation
	}
	return estimate.ItemOutcome{
		ServiceType: item.ServiceType,
		Ordinal:     item.Ordinal,
		Status:      estimate.StatusValidationFailed,
		Reason:      reason,
		Error:       err.Error(),
	}
}
