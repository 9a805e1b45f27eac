package estimate

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate folds the ordered outcome list into the final report. It is a
// pure function of its inputs: outcome order is preserved, counts are
// computed per service type and overall, and the share URL is attached only
// when at least one item succeeded.
func Aggregate(projectName string, outcomes []ItemOutcome, shareURL string, monthlyTotal decimal.Decimal) *Report {
	report := &Report{
		RunID:        uuid.NewString(),
		ProjectName:  projectName,
		Outcomes:     append([]ItemOutcome(nil), outcomes...),
		PerService:   make(map[string]Counts),
		MonthlyTotal: monthlyTotal,
	}

	for _, o := range outcomes {
		c := report.PerService[o.ServiceType]
		c.Total++
		report.Overall.Total++
		if o.Succeeded() {
			c.Succeeded++
			report.Overall.Succeeded++
		}
		report.PerService[o.ServiceType] = c
	}

	if report.Overall.Succeeded > 0 {
		report.ShareURL = shareURL
	}
	return report
}
