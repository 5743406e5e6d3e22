package model

import "time"

// UsageDashboard is the aggregate shown on the usage analytics view.
type UsageDashboard struct {
	PlanName        string         `json:"plan_name"`
	PeriodStart     time.Time      `json:"period_start"`
	PeriodEnd       time.Time      `json:"period_end"`
	Counters        []UsageCounter `json:"counters"`
	ActiveAlerts    int            `json:"active_alerts"`
	MonthlyActiveMS int64          `json:"monthly_active_ms"`
	Fallback        bool           `json:"fallback"`
}

// UsageCounter tracks consumption of one metered feature.
type UsageCounter struct {
	Feature   string  `json:"feature"`
	Used      int     `json:"used"`
	Limit     int     `json:"limit"`
	Remaining int     `json:"remaining"`
	Percent   float64 `json:"percent"`
}

// UsageAlert is raised by the API when a counter approaches its limit.
type UsageAlert struct {
	ID        string    `json:"id"`
	Feature   string    `json:"feature"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Dismissed bool      `json:"dismissed"`
	CreatedAt time.Time `json:"created_at"`
}

// TrackRequest reports feature usage or active time to the API.
type TrackRequest struct {
	Feature  string  `json:"feature" binding:"required"`
	Quantity int     `json:"quantity" binding:"omitempty,min=1"`
	Metadata JSONMap `json:"metadata,omitempty"`
}

// UsageSnapshot is one message on the usage stream view.
type UsageSnapshot struct {
	Dashboard *UsageDashboard `json:"dashboard"`
	Counters  []UsageCounter  `json:"counters"`
	Alerts    []UsageAlert    `json:"alerts"`
	At        time.Time       `json:"at"`
}
