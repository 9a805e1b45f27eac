package session

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calcforge/calcforge/internal/driver/drivertest"
)

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("walks the create-estimate flow", func(t *testing.T) {
		drv := drivertest.New()
		sess, err := Open(ctx, drv, Options{})
		require.NoError(t, err)
		require.NotNil(t, sess)

		calls := drv.Calls()
		require.Len(t, calls, 4)
		assert.Equal(t, "navigate", calls[0].Op)
		assert.Equal(t, DefaultBaseURL, calls[0].Selector)
		assert.Equal(t, SelCreateEstimate, calls[1].Selector)
		assert.Equal(t, SelCreateEstimate, calls[2].Selector)
		assert.Equal(t, SelServiceSearch, calls[3].Selector)
	})

	t.Run("fails when the landing page never renders", func(t *testing.T) {
		drv := drivertest.New()
		drv.FailTimes(SelCreateEstimate, 1)
		_, err := Open(ctx, drv, Options{})
		require.Error(t, err)
	})

	t.Run("honors a base URL override", func(t *testing.T) {
		drv := drivertest.New()
		_, err := Open(ctx, drv, Options{BaseURL: "http://localhost:9000/calc"})
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:9000/calc", drv.Calls()[0].Selector)
	})
}

func TestReturnToSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("prefers the add-service button", func(t *testing.T) {
		drv := drivertest.New()
		sess, err := Open(ctx, drv, Options{})
		require.NoError(t, err)

		require.NoError(t, sess.ReturnToSearch(ctx))
		assert.Len(t, drv.CallsFor(SelAddService), 1)
	})

	t.Run("falls back to a reload", func(t *testing.T) {
		drv := drivertest.New()
		sess, err := Open(ctx, drv, Options{})
		require.NoError(t, err)

		drv.FailTimes(SelAddService, 1)
		require.NoError(t, sess.ReturnToSearch(ctx))

		// Second navigate is the reload.
		navigates := drv.CallsFor(DefaultBaseURL)
		assert.Len(t, navigates, 2)
	})
}

func TestMonthlyTotal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	drv := drivertest.New()
	sess, err := Open(ctx, drv, Options{})
	require.NoError(t, err)

	assert.True(t, sess.MonthlyTotal().IsZero())

	drv.SetValue(SelMonthlyTotal, "$1,234.56 USD")
	require.NoError(t, sess.RefreshTotal(ctx))
	assert.True(t, sess.MonthlyTotal().Equal(decimal.RequireFromString("1234.56")))

	drv.SetValue(SelMonthlyTotal, "garbage")
	require.Error(t, sess.RefreshTotal(ctx))
	// A failed refresh keeps the previous figure.
	assert.True(t, sess.MonthlyTotal().Equal(decimal.RequireFromString("1234.56")))
}

func TestFinalize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("reads the share link", func(t *testing.T) {
		drv := drivertest.New()
		sess, err := Open(ctx, drv, Options{})
		require.NoError(t, err)

		drv.SetValue(SelShareURLInput, "https://calculator.aws/#/estimate?id=deadbeef")
		url, err := sess.Finalize(ctx)
		require.NoError(t, err)
		assert.Equal(t, "https://calculator.aws/#/estimate?id=deadbeef", url)

		// The consent dialog was walked in order.
		assert.Len(t, drv.CallsFor(SelViewSummary), 1)
		assert.Len(t, drv.CallsFor(SelShare), 1)
		assert.Len(t, drv.CallsFor(SelAgreeContinue), 1)
	})

	t.Run("dismissing the notification bubble is best-effort", func(t *testing.T) {
		drv := drivertest.New()
		sess, err := Open(ctx, drv, Options{})
		require.NoError(t, err)

		drv.FailTimes(SelNotificationClose, 1)
		drv.SetValue(SelShareURLInput, "https://calculator.aws/#/estimate?id=ok")
		url, err := sess.Finalize(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, url)
	})

	t.Run("falls back to the page URL", func(t *testing.T) {
		drv := drivertest.New()
		sess, err := Open(ctx, drv, Options{})
		require.NoError(t, err)

		drv.SetValue(SelShareURLInput, "")
		drv.SetLocation("https://calculator.aws/#/estimate?id=fromlocation")
		url, err := sess.Finalize(ctx)
		require.NoError(t, err)
		assert.Equal(t, "https://calculator.aws/#/estimate?id=fromlocation", url)
	})

	t.Run("errors when no usable URL appears", func(t *testing.T) {
		drv := drivertest.New()
		sess, err := Open(ctx, drv, Options{})
		require.NoError(t, err)

		drv.SetValue(SelShareURLInput, "about:blank")
		drv.SetLocation("about:blank")
		_, err = sess.Finalize(ctx)
		require.Error(t, err)
	})
}

func TestClose(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	drv := drivertest.New()
	sess, err := Open(ctx, drv, Options{})
	require.NoError(t, err)

	require.NoError(t, sess.Close(ctx))
	assert.True(t, drv.Closed())
	// Idempotent.
	require.NoError(t, sess.Close(ctx))
}

func TestParseMoney(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"$1,234.56 USD": "1234.56",
		"$0.00":         "0",
		"12.5":          "12.5",
	}
	for raw, want := range cases {
		got, err := parseMoney(raw)
		require.NoError(t, err, "parseMoney(%q)", raw)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "parseMoney(%q) = %s", raw, got)
	}

	empty, err := parseMoney("")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())

	_, err = parseMoney("n/a")
	require.Error(t, err)
}
