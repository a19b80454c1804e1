// Package kvi computes key value indicator rollups for a portfolio:
// project health, initiative value delivered, and schedule variance.
// All rollups are read-only single passes over the organization's data.
package kvi

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/me/teamplan/internal/store"
	"github.com/me/teamplan/pkg/model"
)

// healthWeights scores each project health state for the portfolio-wide
// weighted average. Projects without a recorded health count as Unknown.
var healthWeights = map[string]int{
	string(model.HealthOnTrack): 100,
	string(model.HealthAtRisk):  50,
	string(model.HealthOffTrack): 0,
	"Unknown":                   50,
}

// Service computes KVI rollups.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a Service.
func New(st store.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger.With("component", "kvi"),
	}
}

// HealthReport summarizes project health across the portfolio.
type HealthReport struct {
	HealthScore     int            `json:"health_score"`
	TotalProjects   int            `json:"total_projects"`
	StatusBreakdown map[string]int `json:"status_breakdown"`
	Trend           string         `json:"trend"`
}

// InitiativeValue is the value delivered by one initiative, keyed by
// metric name, with the sum across all its metrics.
type InitiativeValue struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Status     string             `json:"status"`
	Values     map[string]float64 `json:"values"`
	TotalValue float64            `json:"total_value"`
}

// ValueReport aggregates initiative value across the portfolio.
// Category totals only count metrics listed in model.MetricCategories;
// an initiative's TotalValue counts every metric it carries.
type ValueReport struct {
	Initiatives      []InitiativeValue  `json:"initiatives"`
	TotalsByCategory map[string]float64 `json:"totals_by_category"`
	GrandTotal       float64            `json:"grand_total"`
}

// VarianceReport summarizes schedule slip across the portfolio. A project
// is at risk when its end date moved past the originally committed one.
type VarianceReport struct {
	AverageVarianceDays float64         `json:"average_variance_days"`
	ProjectsAtRisk      int             `json:"projects_at_risk"`
	TotalProjects       int             `json:"total_projects"`
	AtRiskDetails       []AtRiskProject `json:"at_risk_details"`
}

// AtRiskProject details one late project.
type AtRiskProject struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	DaysLate    int         `json:"days_late"`
	OriginalEnd *model.Date `json:"original_end"`
	CurrentEnd  *model.Date `json:"current_end"`
}

// PortfolioReport is the combined KVI dashboard payload.
type PortfolioReport struct {
	PortfolioHealth  *HealthReport   `json:"portfolio_health"`
	InitiativeValue  *ValueReport    `json:"initiative_value"`
	ScheduleVariance *VarianceReport `json:"schedule_variance"`
}

// Portfolio runs all three rollups for one organization.
func (s *Service) Portfolio(ctx context.Context, orgID string) (*PortfolioReport, error) {
	health, err := s.PortfolioHealth(ctx, orgID)
	if err != nil {
		return nil, err
	}
	value, err := s.InitiativeValue(ctx, orgID)
	if err != nil {
		return nil, err
	}
	variance, err := s.ScheduleVariance(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return &PortfolioReport{
		PortfolioHealth:  health,
		InitiativeValue:  value,
		ScheduleVariance: variance,
	}, nil
}

// PortfolioHealth counts projects by health state and computes the
// weighted average score. An empty portfolio scores 0.
func (s *Service) PortfolioHealth(ctx context.Context, orgID string) (*HealthReport, error) {
	projects, err := s.store.ListProjects(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	breakdown := map[string]int{}
	for _, p := range projects {
		health := string(p.Health)
		if health == "" {
			health = "Unknown"
		}
		breakdown[health]++
	}

	weightedSum, total := 0, 0
	for health, count := range breakdown {
		weight, ok := healthWeights[health]
		if !ok {
			weight = 50
		}
		weightedSum += weight * count
		total += count
	}
	score := 0
	if total > 0 {
		score = int(math.Round(float64(weightedSum) / float64(total)))
	}

	return &HealthReport{
		HealthScore:     score,
		TotalProjects:   len(projects),
		StatusBreakdown: breakdown,
		Trend:           "stable",
	}, nil
}

// InitiativeValue totals delivered value per initiative and per reporting
// category.
func (s *Service) InitiativeValue(ctx context.Context, orgID string) (*ValueReport, error) {
	initiatives, err := s.store.ListInitiatives(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load initiatives: %w", err)
	}

	report := &ValueReport{
		Initiatives:      []InitiativeValue{},
		TotalsByCategory: map[string]float64{},
	}
	for category := range model.MetricCategories {
		report.TotalsByCategory[category] = 0
	}

	for _, in := range initiatives {
		entry := InitiativeValue{
			ID:     in.ID,
			Name:   in.Name,
			Status: in.Status,
			Values: in.Metrics,
		}
		for _, v := range in.Metrics {
			entry.TotalValue += v
		}
		report.Initiatives = append(report.Initiatives, entry)

		for category, metrics := range model.MetricCategories {
			for _, metric := range metrics {
				if v, ok := in.Metrics[metric]; ok {
					report.TotalsByCategory[category] += v
				}
			}
		}
	}
	for _, v := range report.TotalsByCategory {
		report.GrandTotal += v
	}
	return report, nil
}

// ScheduleVariance computes per-project end-date slip in days against the
// originally committed end date and lists the late projects.
func (s *Service) ScheduleVariance(ctx context.Context, orgID string) (*VarianceReport, error) {
	projects, err := s.store.ListProjects(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	report := &VarianceReport{
		TotalProjects: len(projects),
		AtRiskDetails: []AtRiskProject{},
	}
	sum := 0
	for _, p := range projects {
		variance := p.VarianceDays()
		sum += variance
		if variance > 0 {
			report.AtRiskDetails = append(report.AtRiskDetails, AtRiskProject{
				ID:          p.ID,
				Name:        p.Name,
				DaysLate:    variance,
				OriginalEnd: p.OriginalEndDate,
				CurrentEnd:  p.EndDate,
			})
		}
	}
	report.ProjectsAtRisk = len(report.AtRiskDetails)
	if len(projects) > 0 {
		avg := float64(sum) / float64(len(projects))
		report.AverageVarianceDays = math.Round(avg*10) / 10
	}
	return report, nil
}
