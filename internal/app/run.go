package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/calcforge/calcforge/internal/ctxlog"
	"github.com/calcforge/calcforge/internal/estimate"
	"github.com/calcforge/calcforge/internal/input"
	"github.com/calcforge/calcforge/internal/orchestrator"
	"github.com/calcforge/calcforge/internal/session"
	"github.com/calcforge/calcforge/internal/validate"
)

// RunOptions selects how one estimate run behaves.
type RunOptions struct {
	// Headless runs the browser without a visible window.
	Headless bool
	// ValidateOnly stops after validation; no browser is launched.
	ValidateOnly bool
	// BaseURL overrides the calculator entry point, mainly for tests.
	BaseURL string
}

// RunEstimate validates every item in the document and, unless validation-only
// was asked for, drives them through one browser session. The report always
// covers every item in submission order. A non-nil error alongside a non-nil
// report means the session died mid-run; the report still holds the per-item
// truth up to that point.
func (a *App) RunEstimate(ctx context.Context, doc *input.Document, opts RunOptions) (*estimate.Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := a.logger

	logger.Info("Validating items.", "items", len(doc.Items), "project", doc.ProjectName)
	results := a.validator.ValidateAll(ctx, doc.Items)

	if opts.ValidateOnly {
		return a.validationReport(doc, results), nil
	}

	planned := make([]orchestrator.Planned, len(doc.Items))
	for i, item := range doc.Items {
		planned[i] = orchestrator.Planned{
			Item:          item,
			Config:        results[i].Config,
			ValidationErr: results[i].Err,
		}
	}

	// No browser means no session can ever be acquired, which is a run-level
	// failure, not a usage problem.
	drv, err := a.DriverFactory(ctx, opts.Headless)
	if err != nil {
		return nil, &orchestrator.SessionFatalError{Err: fmt.Errorf("starting browser: %w", err)}
	}

	orch := orchestrator.New(a.configurators, orchestrator.Options{
		Session: session.Options{BaseURL: opts.BaseURL},
	})

	result, runErr := orch.Run(ctx, drv, planned)
	if result == nil {
		return nil, runErr
	}

	report := estimate.Aggregate(doc.ProjectName, result.Outcomes, result.ShareURL, result.MonthlyTotal)
	logger.Info("Run complete.",
		"run_id", report.RunID,
		"succeeded", report.Overall.Succeeded,
		"total", report.Overall.Total,
	)
	return report, runErr
}

// validationReport folds pure validation results into a report with no
// session artifacts: every valid item counts as succeeded, because in this
// mode validation is the whole job.
func (a *App) validationReport(doc *input.Document, results []validate.ItemResult) *estimate.Report {
	outcomes := make([]estimate.ItemOutcome, len(doc.Items))
	for i, item := range doc.Items {
		if err := results[i].Err; err != nil {
			outcomes[i] = orchestrator.ValidationOutcome(item, err)
			continue
		}
		outcomes[i] = estimate.ItemOutcome{
			ServiceType: item.ServiceType,
			Ordinal:     item.Ordinal,
			Status:      estimate.StatusSucceeded,
		}
	}
	return estimate.Aggregate(doc.ProjectName, outcomes, "", decimal.Zero)
}
