package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calcforge/calcforge/internal/app"
	"github.com/calcforge/calcforge/internal/configurator"
	"github.com/calcforge/calcforge/internal/estimate"
	"github.com/calcforge/calcforge/internal/input"
	"github.com/calcforge/calcforge/internal/orchestrator"
	"github.com/calcforge/calcforge/internal/schema"
)

type stubEstimator struct {
	report  *estimate.Report
	err     error
	gotDoc  *input.Document
	gotOpts app.RunOptions
}

func (s *stubEstimator) RunEstimate(ctx context.Context, doc *input.Document, opts app.RunOptions) (*estimate.Report, error) {
	s.gotDoc = doc
	s.gotOpts = opts
	return s.report, s.err
}

func newTestServer(t *testing.T, est Estimator) *Server {
	t.Helper()
	schemas, err := schema.LoadBuiltin(context.Background())
	require.NoError(t, err)
	return NewServer(est, schemas, configurator.NewDefault(), DefaultConfig())
}

func doRequest(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubEstimator{})

	rec := doRequest(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListServices(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubEstimator{})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/services", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []serviceSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 8)
	for _, s := range summaries {
		assert.True(t, s.Automatable, "builtin service %q should have a configurator", s.ServiceType)
	}
}

func TestDescribeService(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubEstimator{})

	t.Run("known service", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/services/s3", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var detail struct {
			ServiceType string        `json:"service_type"`
			Fields      []fieldDetail `json:"fields"`
			SearchTerms []string      `json:"search_terms"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
		assert.Equal(t, "s3", detail.ServiceType)
		assert.NotEmpty(t, detail.SearchTerms)

		byName := make(map[string]fieldDetail)
		for _, f := range detail.Fields {
			byName[f.Name] = f
		}
		assert.True(t, byName["storage_gb"].Required)
		assert.Equal(t, "us-east-1", byName["region"].Default)
		assert.NotEmpty(t, byName["storage_class"].Values)
	})

	t.Run("unknown service", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/services/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestEstimateEndpoint(t *testing.T) {
	t.Parallel()

	doc := `{"project_name":"p","services":{"s3":[{"storage_gb":1}]}}`

	t.Run("runs an estimate", func(t *testing.T) {
		stub := &stubEstimator{report: estimate.Aggregate("p", []estimate.ItemOutcome{
			{ServiceType: "s3", Ordinal: 0, Status: estimate.StatusSucceeded},
		}, "https://calculator.aws/#/estimate?id=x", decimal.Zero)}
		srv := newTestServer(t, stub)

		rec := doRequest(t, srv, http.MethodPost, "/api/v1/estimate", doc)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		require.NotNil(t, stub.gotDoc)
		assert.Len(t, stub.gotDoc.Items, 1)
		assert.True(t, stub.gotOpts.Headless, "headless defaults on")
		assert.False(t, stub.gotOpts.ValidateOnly)

		var resp estimateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.Report)
		assert.Equal(t, 1, resp.Report.Overall.Succeeded)
	})

	t.Run("query flags select the run mode", func(t *testing.T) {
		stub := &stubEstimator{report: estimate.Aggregate("p", nil, "", decimal.Zero)}
		srv := newTestServer(t, stub)

		rec := doRequest(t, srv, http.MethodPost, "/api/v1/estimate?validate_only=true&headless=false", doc)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, stub.gotOpts.ValidateOnly)
		assert.False(t, stub.gotOpts.Headless)
	})

	t.Run("rejects malformed documents", func(t *testing.T) {
		srv := newTestServer(t, &stubEstimator{})
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/estimate", `{"nope":1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects an empty body", func(t *testing.T) {
		srv := newTestServer(t, &stubEstimator{})
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/estimate", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("a fatal session failure maps to 502", func(t *testing.T) {
		stub := &stubEstimator{
			report: estimate.Aggregate("p", []estimate.ItemOutcome{
				{ServiceType: "s3", Ordinal: 0, Status: estimate.StatusAutomationFailed, Reason: estimate.ReasonAutomation},
			}, "", decimal.Zero),
			err: &orchestrator.SessionFatalError{Err: errors.New("browser crashed")},
		}
		srv := newTestServer(t, stub)

		rec := doRequest(t, srv, http.MethodPost, "/api/v1/estimate", doc)
		require.Equal(t, http.StatusBadGateway, rec.Code)

		var resp estimateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Error, "browser crashed")
		require.NotNil(t, resp.Report, "the partial report still ships")
	})

	t.Run("refuses a second concurrent run", func(t *testing.T) {
		srv := newTestServer(t, &stubEstimator{report: estimate.Aggregate("p", nil, "", decimal.Zero)})
		srv.running.Lock()
		defer srv.running.Unlock()

		rec := doRequest(t, srv, http.MethodPost, "/api/v1/estimate", doc)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
