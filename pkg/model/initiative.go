package model

import "time"

// Initiative is a value-tracking record: a named piece of business value an
// organization is pursuing, with metric values keyed by metric name.
type Initiative struct {
	ID     string `json:"id"`
	OrgID  string `json:"org_id"`
	Name   string `json:"name"`
	Status string `json:"status"`

	// Metrics maps metric names (see MetricCategories) to delivered value.
	Metrics map[string]float64 `json:"metrics,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// MetricCategories groups value metric names into the reporting categories
// used by the KVI dashboard.
var MetricCategories = map[string][]string{
	"efficiency": {
		"Efficiency Gains - FTE Hour Reduction (Hrs)",
		"Efficiency Gains - FTE Fee Reduction (£)",
		"Efficiency Gains - Asset Cost Reduction (£)",
	},
	"revenue": {
		"Revenue - Pipeline Increase (£)",
		"Revenue - Conversion Rate Increase (%)",
	},
	"brand": {
		"Brand & Experience - NPS Score (%)",
		"Brand & Experience - Customer Satisfaction (%)",
	},
}
