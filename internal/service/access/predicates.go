// Package access holds the coarse role-derived capability checks used by the
// route guard and the dashboards. All checks are pure and treat a nil user as
// having no capabilities.
package access

import (
	"sort"

	"github.com/jwalitptl/care-portal/internal/model"
)

// Capability names
const (
	CapAdmin               = "admin"
	CapManageUsers         = "manage_users"
	CapManageSubscriptions = "manage_subscriptions"
	CapSystemSettings      = "system_settings"
	CapSubscriptionBypass  = "subscription_bypass"
)

func IsSuperAdmin(u *model.User) bool {
	if u == nil {
		return false
	}
	return u.Role == model.RoleSuperAdmin || u.UserRole == model.RoleSuperAdmin || u.IsSuperuser
}

// IsAdmin is true for plain administrators; super admins are reported by
// IsSuperAdmin.
func IsAdmin(u *model.User) bool {
	return u.EffectiveRole() == model.RoleAdmin
}

func IsDoctor(u *model.User) bool {
	return u.EffectiveRole() == model.RoleDoctor
}

func IsNurse(u *model.User) bool {
	return u.EffectiveRole() == model.RoleNurse
}

func IsPatient(u *model.User) bool {
	return u.EffectiveRole() == model.RolePatient
}

func IsPharmacist(u *model.User) bool {
	return u.EffectiveRole() == model.RolePharmacist
}

// HasSubscriptionBypass reports whether subscription checks are skipped.
func HasSubscriptionBypass(u *model.User) bool {
	return IsSuperAdmin(u) || IsAdmin(u)
}

func CanAccessAdmin(u *model.User) bool {
	return IsAdmin(u) || IsSuperAdmin(u)
}

func CanManageUsers(u *model.User) bool {
	return CanAccessAdmin(u)
}

func CanManageSubscriptions(u *model.User) bool {
	return CanAccessAdmin(u)
}

func CanAccessSystemSettings(u *model.User) bool {
	return IsSuperAdmin(u)
}

// Capabilities lists the granted capability names in sorted order.
func Capabilities(u *model.User) []string {
	checks := map[string]func(*model.User) bool{
		CapAdmin:               CanAccessAdmin,
		CapManageUsers:         CanManageUsers,
		CapManageSubscriptions: CanManageSubscriptions,
		CapSystemSettings:      CanAccessSystemSettings,
		CapSubscriptionBypass:  HasSubscriptionBypass,
	}

	caps := make([]string, 0, len(checks))
	for name, check := range checks {
		if check(u) {
			caps = append(caps, name)
		}
	}
	sort.Strings(caps)
	return caps
}
