package usage

import (
	"time"

	"github.com/jwalitptl/care-portal/internal/model"
)

func counter(feature string, used, limit int) model.UsageCounter {
	c := model.UsageCounter{Feature: feature, Used: used, Limit: limit, Remaining: limit - used}
	if limit > 0 {
		c.Percent = float64(used*100) / float64(limit)
	}
	return c
}

func demoCounters() []model.UsageCounter {
	return []model.UsageCounter{
		counter("api_calls", 7420, 10000),
		counter("ai_diagnoses", 186, 250),
		counter("radiology_studies", 42, 100),
		counter("storage_gb", 12, 50),
		counter("active_users", 18, 25),
	}
}

func demoAlerts(now time.Time) []model.UsageAlert {
	return []model.UsageAlert{
		{
			ID:        "demo-ai-diagnoses",
			Feature:   "ai_diagnoses",
			Level:     "warning",
			Message:   "AI diagnoses are at 74% of the monthly limit",
			CreatedAt: now.Add(-2 * time.Hour).UTC(),
		},
		{
			ID:        "demo-api-calls",
			Feature:   "api_calls",
			Level:     "info",
			Message:   "API usage is at 74% of the monthly limit",
			CreatedAt: now.Add(-26 * time.Hour).UTC(),
		},
	}
}

func demoDashboard(now time.Time) *model.UsageDashboard {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return &model.UsageDashboard{
		PlanName:     "Demo Trial",
		PeriodStart:  start,
		PeriodEnd:    start.AddDate(0, 1, 0),
		Counters:     demoCounters(),
		ActiveAlerts: len(demoAlerts(now)),
		Fallback:     true,
	}
}
