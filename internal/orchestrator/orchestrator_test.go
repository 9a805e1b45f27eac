package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calcforge/calcforge/internal/configurator"
	"github.com/calcforge/calcforge/internal/driver/drivertest"
	"github.com/calcforge/calcforge/internal/estimate"
	"github.com/calcforge/calcforge/internal/schema"
	"github.com/calcforge/calcforge/internal/session"
	"github.com/calcforge/calcforge/internal/validate"
)

const s3Card = "button[aria-label='Configure Amazon Simple Storage Service (S3)']"

func testOptions() Options {
	return Options{Attempts: 2, RetryDelay: time.Millisecond}
}

// plan validates raw items against the builtin schemas, mirroring what the
// app layer hands to Run.
func plan(t *testing.T, items []estimate.Item) []Planned {
	t.Helper()
	reg, err := schema.LoadBuiltin(context.Background())
	require.NoError(t, err)
	v := validate.New(reg)

	planned := make([]Planned, len(items))
	for i, item := range items {
		cfg, err := v.Validate(item.ServiceType, item.Fields)
		planned[i] = Planned{Item: item, Config: cfg, ValidationErr: err}
	}
	return planned
}

func items(types ...string) []estimate.Item {
	out := make([]estimate.Item, len(types))
	for i, st := range types {
		fields := map[string]any{}
		switch st {
		case "s3":
			fields["storage_gb"] = 100
		case "sqs":
			fields["requests_per_month"] = 1000
		case "lambda":
			fields["number_of_requests"] = 1
		}
		out[i] = estimate.Item{ServiceType: st, Ordinal: i, Fields: fields}
	}
	return out
}

func TestRunAllSucceed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	drv := drivertest.New()
	drv.SetValue(session.SelShareURLInput, "https://calculator.aws/#/estimate?id=ok")
	drv.SetValue(session.SelMonthlyTotal, "$42.00")

	orch := New(configurator.NewDefault(), testOptions())
	result, err := orch.Run(ctx, drv, plan(t, items("s3", "sqs", "lambda")))
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Len(t, result.Outcomes, 3)
	for i, o := range result.Outcomes {
		assert.Equal(t, i, o.Ordinal)
		assert.Equal(t, estimate.StatusSucceeded, o.Status, "item %d", i)
	}

	assert.Equal(t, "https://calculator.aws/#/estimate?id=ok", result.ShareURL)
	assert.Equal(t, "42", result.MonthlyTotal.String())
	assert.True(t, drv.Closed(), "session must be released")

	// One commit per item, in order.
	assert.Len(t, drv.CallsFor(configurator.SelAddToEstimate), 3)
}

func TestRunFailedItemDoesNotStopTheRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	drv := drivertest.New()
	drv.SetValue(session.SelShareURLInput, "https://calculator.aws/#/estimate?id=partial")
	// Exhaust the retry budget for the s3 card on every search term.
	drv.FailTimes(s3Card, 100)

	orch := New(configurator.NewDefault(), testOptions())
	result, err := orch.Run(ctx, drv, plan(t, items("sqs", "s3", "lambda")))
	require.NoError(t, err, "an item failure is not a run failure")

	require.Len(t, result.Outcomes, 3)
	assert.Equal(t, estimate.StatusSucceeded, result.Outcomes[0].Status)
	assert.Equal(t, estimate.StatusAutomationFailed, result.Outcomes[1].Status)
	assert.Equal(t, estimate.ReasonAutomation, result.Outcomes[1].Reason)
	assert.Equal(t, estimate.StatusSucceeded, result.Outcomes[2].Status, "the item after the failure still runs")

	// Only the two successful items were committed.
	assert.Len(t, drv.CallsFor(configurator.SelAddToEstimate), 2)
	assert.Equal(t, "https://calculator.aws/#/estimate?id=partial", result.ShareURL)
	assert.True(t, drv.Closed())
}

func TestRunUnsupportedAndInvalidItems(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	raw := []estimate.Item{
		{ServiceType: "s3", Ordinal: 0, Fields: map[string]any{"storage_gb": 1}},
		{ServiceType: "dynamodb", Ordinal: 1, Fields: map[string]any{}},
		{ServiceType: "s3", Ordinal: 2, Fields: map[string]any{"storage_gb": 1, "bogus": true}},
	}

	drv := drivertest.New()
	drv.SetValue(session.SelShareURLInput, "https://calculator.aws/#/estimate?id=x")

	orch := New(configurator.NewDefault(), testOptions())
	result, err := orch.Run(ctx, drv, plan(t, raw))
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 3)
	assert.Equal(t, estimate.StatusSucceeded, result.Outcomes[0].Status)

	// No schema means the item never reaches the page.
	assert.Equal(t, estimate.StatusValidationFailed, result.Outcomes[1].Status)
	assert.Equal(t, estimate.ReasonSchemaNotFound, result.Outcomes[1].Reason)

	assert.Equal(t, estimate.StatusValidationFailed, result.Outcomes[2].Status)
	assert.Equal(t, estimate.ReasonValidation, result.Outcomes[2].Reason)

	// Exactly one item touched the estimate.
	assert.Len(t, drv.CallsFor(configurator.SelAddToEstimate), 1)
}

func TestRunUnsupportedServiceType(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// A schema without a configurator: validation passes, automation cannot.
	reg := configurator.New()
	drv := drivertest.New()

	orch := New(reg, testOptions())
	result, err := orch.Run(ctx, drv, plan(t, items("s3")))
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, estimate.StatusValidationFailed, result.Outcomes[0].Status)
	assert.Equal(t, estimate.ReasonUnsupportedService, result.Outcomes[0].Reason)
	assert.Empty(t, drv.CallsFor(configurator.SelAddToEstimate))
}

func TestRunSessionOpenFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	drv := drivertest.New()
	drv.FailTimes(session.SelCreateEstimate, 5)

	orch := New(configurator.NewDefault(), testOptions())
	result, err := orch.Run(ctx, drv, plan(t, items("s3")))

	require.Error(t, err)
	var fatal *SessionFatalError
	require.ErrorAs(t, err, &fatal)
	assert.Nil(t, result, "no items were processed")
	assert.True(t, drv.Closed(), "the browser is released even when the session never opened")
}

func TestRunSessionLostMidRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	drv := drivertest.New()
	// The browser dies the moment the second item's card is touched.
	drv.FailFatal(s3Card)

	orch := New(configurator.NewDefault(), testOptions())
	result, err := orch.Run(ctx, drv, plan(t, items("sqs", "s3", "lambda")))

	require.Error(t, err)
	var fatal *SessionFatalError
	require.ErrorAs(t, err, &fatal)

	// The partial result still enumerates every item.
	require.NotNil(t, result)
	require.Len(t, result.Outcomes, 3)
	assert.Equal(t, estimate.StatusSucceeded, result.Outcomes[0].Status)
	assert.Equal(t, estimate.StatusAutomationFailed, result.Outcomes[1].Status)
	assert.Equal(t, estimate.StatusAutomationFailed, result.Outcomes[2].Status)
	assert.Contains(t, result.Outcomes[2].Error, "before item was attempted")

	assert.True(t, drv.Closed())
	// No finalize on a dead session.
	assert.Empty(t, drv.CallsFor(session.SelShare))
}

// cancellingDriver cancels the run context the moment a given value is
// typed into the search box, simulating an operator interrupt mid-item.
type cancellingDriver struct {
	*drivertest.Driver
	cancel  context.CancelFunc
	trigger string
}

func (d *cancellingDriver) Fill(ctx context.Context, selector, value string) error {
	if value == d.trigger {
		d.cancel()
	}
	return d.Driver.Fill(ctx, selector, value)
}

func TestRunCancellationMidItem(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := drivertest.New()
	inner.SetValue(session.SelShareURLInput, "https://calculator.aws/#/estimate?id=cancelled")
	// Fire the cancel when the second item starts searching.
	drv := &cancellingDriver{
		Driver:  inner,
		cancel:  cancel,
		trigger: "Amazon Simple Queue Service (SQS)",
	}

	orch := New(configurator.NewDefault(), testOptions())
	result, err := orch.Run(ctx, drv, plan(t, items("s3", "sqs", "lambda")))
	require.NoError(t, err, "cancellation is not a fatal session error")

	require.Len(t, result.Outcomes, 3)
	assert.Equal(t, estimate.StatusSucceeded, result.Outcomes[0].Status)
	assert.Equal(t, estimate.StatusAutomationFailed, result.Outcomes[1].Status, "the in-flight item fails soft")
	assert.Equal(t, estimate.StatusAutomationFailed, result.Outcomes[2].Status)
	assert.Contains(t, result.Outcomes[2].Error, "cancelled")

	// Finalization still ran for the item already in the estimate.
	assert.NotEmpty(t, inner.CallsFor(session.SelShare))
	assert.Equal(t, "https://calculator.aws/#/estimate?id=cancelled", result.ShareURL)
	assert.True(t, inner.Closed())
}
