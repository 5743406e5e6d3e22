package model

import "time"

// Subscription sources
const (
	SourceRemote      = "remote"
	SourceUnlimited   = "unlimited"
	SourceDemo        = "demo"
	SourceOfflineDemo = "offline_demo"
)

// SubscriptionStatus describes which paid features are enabled for a user.
type SubscriptionStatus struct {
	PlanID            string          `json:"plan_id,omitempty"`
	PlanName          string          `json:"plan_name"`
	IsActive          bool            `json:"is_active"`
	IsTrial           bool            `json:"is_trial"`
	IsCurrentlyActive bool            `json:"is_currently_active"`
	Features          map[string]bool `json:"features"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
	Source            string          `json:"source"`
}

// HasFeature reports whether the named capability is enabled.
func (s *SubscriptionStatus) HasFeature(name string) bool {
	if s == nil {
		return false
	}
	return s.Features[name]
}

// Feature names used by the portal dashboards
var AllFeatures = []string{
	"hospital_dashboard",
	"clinic_dashboard",
	"ai_diagnosis",
	"radiology",
	"pathology",
	"secure_neat",
	"usage_analytics",
	"lab_tests",
}

func allFeatures() map[string]bool {
	features := make(map[string]bool, len(AllFeatures))
	for _, f := range AllFeatures {
		features[f] = true
	}
	return features
}

// UnlimitedSubscription is granted to administrators without a lookup.
func UnlimitedSubscription() *SubscriptionStatus {
	return &SubscriptionStatus{
		PlanID:            "unlimited",
		PlanName:          "Unlimited Access",
		IsActive:          true,
		IsCurrentlyActive: true,
		Features:          allFeatures(),
		Source:            SourceUnlimited,
	}
}

// DemoSubscription is used when the API rejects the subscription lookup.
func DemoSubscription(now time.Time) *SubscriptionStatus {
	expires := now.Add(14 * 24 * time.Hour)
	return &SubscriptionStatus{
		PlanID:            "demo",
		PlanName:          "Demo Trial",
		IsActive:          true,
		IsTrial:           true,
		IsCurrentlyActive: true,
		Features:          allFeatures(),
		ExpiresAt:         &expires,
		Source:            SourceDemo,
	}
}

// OfflineDemoSubscription is used when the API cannot be reached.
func OfflineDemoSubscription(now time.Time) *SubscriptionStatus {
	expires := now.Add(24 * time.Hour)
	return &SubscriptionStatus{
		PlanID:            "offline_demo",
		PlanName:          "Offline Demo",
		IsActive:          true,
		IsTrial:           true,
		IsCurrentlyActive: true,
		Features:          allFeatures(),
		ExpiresAt:         &expires,
		Source:            SourceOfflineDemo,
	}
}
