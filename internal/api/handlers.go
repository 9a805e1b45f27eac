package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/calcforge/calcforge/internal/app"
	"github.com/calcforge/calcforge/internal/ctxlog"
	"github.com/calcforge/calcforge/internal/estimate"
	"github.com/calcforge/calcforge/internal/input"
	"github.com/calcforge/calcforge/internal/orchestrator"
	"github.com/calcforge/calcforge/internal/schema"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// serviceSummary is one row of the discovery listing.
type serviceSummary struct {
	ServiceType string `json:"service_type"`
	Description string `json:"description,omitempty"`
	// Automatable says whether a configurator exists, not just a schema.
	Automatable bool `json:"automatable"`
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	summaries := make([]serviceSummary, 0, s.schemas.Len())
	for _, serviceType := range s.schemas.Types() {
		svc, err := s.schemas.Get(serviceType)
		if err != nil {
			continue
		}
		_, cerr := s.configurators.Resolve(serviceType)
		summaries = append(summaries, serviceSummary{
			ServiceType: serviceType,
			Description: svc.Description,
			Automatable: cerr == nil,
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

// fieldDetail describes one schema field for discovery clients.
type fieldDetail struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Required bool     `json:"required"`
	Default  any      `json:"default,omitempty"`
	Values   []string `json:"values,omitempty"`
}

func (s *Server) handleDescribeService(w http.ResponseWriter, r *http.Request) {
	serviceType := chi.URLParam(r, "serviceType")
	svc, err := s.schemas.Get(serviceType)
	if err != nil {
		if errors.Is(err, schema.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no schema for service type %q", serviceType))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	fields := make([]fieldDetail, 0, len(svc.Fields))
	for _, f := range svc.Fields {
		detail := fieldDetail{
			Name:     f.Name,
			Kind:     f.Kind.String(),
			Required: f.Required,
			Values:   f.Values,
		}
		if f.HasDefault() {
			detail.Default = renderDefault(f)
		}
		fields = append(fields, detail)
	}

	var terms []string
	if cfgr, cerr := s.configurators.Resolve(serviceType); cerr == nil {
		terms = cfgr.SearchTerms()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"service_type": svc.Type,
		"description":  svc.Description,
		"fields":       fields,
		"search_terms": terms,
	})
}

// estimateResponse wraps the run report for the wire.
type estimateResponse struct {
	Report  *estimate.Report `json:"report"`
	Skipped []string         `json:"skipped_services,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.FromContext(ctx)

	if !s.running.TryLock() {
		writeError(w, http.StatusConflict, "an estimate run is already in progress")
		return
	}
	defer s.running.Unlock()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("reading request body: %v", err))
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty request body")
		return
	}

	doc, err := input.Parse(ctx, body, formatFor(r.Header.Get("Content-Type")))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid document: %v", err))
		return
	}
	if len(doc.Items) == 0 {
		writeError(w, http.StatusBadRequest, "document contains no service items")
		return
	}

	opts := app.RunOptions{
		Headless:     queryBool(r, "headless", true),
		ValidateOnly: queryBool(r, "validate_only", false),
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	report, err := s.estimator.RunEstimate(runCtx, doc, opts)
	if err != nil {
		var fatal *orchestrator.SessionFatalError
		if errors.As(err, &fatal) {
			logger.Error("Estimate run failed fatally.", "error", err)
			writeJSON(w, http.StatusBadGateway, estimateResponse{
				Report:  report,
				Skipped: doc.Skipped,
				Error:   err.Error(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, estimateResponse{Report: report, Skipped: doc.Skipped})
}

// formatFor maps a Content-Type to a document format; JSON is the default.
func formatFor(contentType string) input.Format {
	if strings.Contains(contentType, "yaml") || strings.Contains(contentType, "yml") {
		return input.FormatYAML
	}
	return input.FormatJSON
}

func queryBool(r *http.Request, name string, fallback bool) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return fallback
	}
}

// renderDefault converts a schema default into a JSON-friendly value.
func renderDefault(f schema.Field) any {
	switch f.Kind {
	case schema.KindNumber:
		f64, _ := f.Default.AsBigFloat().Float64()
		return f64
	case schema.KindBool:
		return f.Default.True()
	default:
		return f.Default.AsString()
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
