// Package estimate defines the request, outcome and report types shared by
// the validator, the orchestrator and the front ends.
package estimate

import (
	"github.com/shopspring/decimal"
)

// Item is one service request in caller-supplied order: a service type plus
// the raw, not-yet-validated field map.
type Item struct {
	ServiceType string         `json:"service_type"`
	Ordinal     int            `json:"ordinal"`
	Fields      map[string]any `json:"fields"`
}

// Status is the terminal state of one item.
type Status string

const (
	StatusSucceeded        Status = "succeeded"
	StatusValidationFailed Status = "validation_failed"
	StatusAutomationFailed Status = "automation_failed"
)

// Reason classifies why a non-succeeded item failed, following the error
// taxonomy: item-level reasons only, a fatal session error never appears
// in an outcome.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonSchemaNotFound     Reason = "schema_not_found"
	ReasonValidation         Reason = "validation"
	ReasonUnsupportedService Reason = "unsupported_service_type"
	ReasonAutomation         Reason = "automation"
)

// ItemOutcome records what happened to one item.
type ItemOutcome struct {
	ServiceType string `json:"service_type"`
	Ordinal     int    `json:"ordinal"`
	Status      Status `json:"status"`
	Reason      Reason `json:"reason,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Succeeded reports whether the item landed in the estimate.
func (o ItemOutcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}

// Counts is a succeeded/total pair.
type Counts struct {
	Succeeded int `json:"succeeded"`
	Total     int `json:"total"`
}

// Report is the authoritative answer to "what happened" for one run.
type Report struct {
	RunID       string `json:"run_id"`
	ProjectName string `json:"project_name,omitempty"`

	Outcomes   []ItemOutcome     `json:"outcomes"`
	PerService map[string]Counts `json:"per_service"`
	Overall    Counts            `json:"overall"`

	// ShareURL is empty when the session never reached a finalizable state.
	ShareURL string `json:"share_url,omitempty"`
	// MonthlyTotal is the calculator's running monthly figure after the last
	// successful item, zero when nothing was added.
	MonthlyTotal decimal.Decimal `json:"monthly_total"`
}

// AllSucceeded reports whether every submitted item landed in the estimate.
func (r *Report) AllSucceeded() bool {
	return r.Overall.Total > 0 && r.Overall.Succeeded == r.Overall.Total
}

// AnySucceeded reports whether at least one item landed in the estimate.
func (r *Report) AnySucceeded() bool {
	return r.Overall.Succeeded > 0
}
