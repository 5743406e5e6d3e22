// Package dashboard builds the hospital dashboard view models.
package dashboard

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/care-portal/internal/model"
	"github.com/jwalitptl/care-portal/internal/service/access"
	"github.com/jwalitptl/care-portal/internal/upstream"
)

// Permission sources
const (
	SourceRemote  = "remote"
	SourceDerived = "derived"
)

// PermissionsAPI fetches the hospital permissions of the caller
type PermissionsAPI interface {
	HospitalPermissions(ctx context.Context, token string) upstream.Result[*model.HospitalPermissions]
}

// LabTestFilter narrows the lab test catalogue. Empty fields match all.
type LabTestFilter struct {
	Category string `form:"category"`
	Search   string `form:"search"`
}

type Service struct {
	api PermissionsAPI
}

func NewService(api PermissionsAPI) *Service {
	return &Service{api: api}
}

// HospitalStats returns the summary shown on the hospital dashboard.
func (s *Service) HospitalStats() *model.HospitalStats {
	return hospitalStats()
}

// LabTests returns the catalogue entries matching f, ordered by category and
// name.
func (s *Service) LabTests(f LabTestFilter) []model.LabTest {
	category := strings.TrimSpace(f.Category)
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]model.LabTest, 0, len(labTests))
	for _, t := range labTests {
		if category != "" && !strings.EqualFold(t.Category, category) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Name), search) &&
			!strings.Contains(strings.ToLower(t.Code), search) {
			continue
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// LabCategories lists the distinct catalogue categories in sorted order.
func (s *Service) LabCategories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range labTests {
		if _, ok := seen[t.Category]; ok {
			continue
		}
		seen[t.Category] = struct{}{}
		out = append(out, t.Category)
	}
	sort.Strings(out)
	return out
}

// Permissions returns the caller's hospital permissions. When the API does
// not answer, they are derived from the user's role.
func (s *Service) Permissions(ctx context.Context, token string, user *model.User) *model.HospitalPermissions {
	res := s.api.HospitalPermissions(ctx, token)
	if res.OK() && res.Data != nil {
		res.Data.Source = SourceRemote
		return res.Data
	}

	log.Warn().Err(res.Err).Str("outcome", res.Outcome.String()).Msg("Deriving hospital permissions from role")
	return DerivedPermissions(user)
}

// DerivedPermissions maps a role to its default hospital permissions.
func DerivedPermissions(user *model.User) *model.HospitalPermissions {
	role := user.EffectiveRole()
	perms := append([]string(nil), rolePermissions[role]...)
	if access.CanAccessAdmin(user) {
		perms = append(perms, adminPermissions...)
	}
	if access.CanAccessSystemSettings(user) {
		perms = append(perms, "system.settings")
	}
	sort.Strings(perms)
	return &model.HospitalPermissions{Role: role, Permissions: dedupe(perms), Source: SourceDerived}
}

var adminPermissions = []string{
	"patients.view",
	"appointments.view",
	"staff.view",
	"staff.manage",
	"billing.view",
	"subscriptions.manage",
	"users.manage",
	"reports.view",
}

var rolePermissions = map[model.Role][]string{
	model.RoleDoctor:     {"patients.view", "patients.edit", "appointments.view", "appointments.manage", "lab.order", "prescriptions.write"},
	model.RoleNurse:      {"patients.view", "appointments.view", "vitals.record", "lab.collect"},
	model.RolePharmacist: {"prescriptions.view", "inventory.view", "inventory.manage"},
	model.RolePatient:    {"appointments.book", "records.own"},
}

func dedupe(sorted []string) []string {
	out := make([]string, 0, len(sorted))
	for _, p := range sorted {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	return out
}
