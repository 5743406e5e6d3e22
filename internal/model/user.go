package model

// Role is the single authoritative role of a portal user.
type Role string

// Role constants
const (
	RoleUnknown    Role = ""
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleDoctor     Role = "doctor"
	RoleNurse      Role = "nurse"
	RolePatient    Role = "patient"
	RolePharmacist Role = "pharmacist"
)

var knownRoles = map[Role]struct{}{
	RoleSuperAdmin: {},
	RoleAdmin:      {},
	RoleDoctor:     {},
	RoleNurse:      {},
	RolePatient:    {},
	RolePharmacist: {},
}

// ParseRole returns the role for s and whether s names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := knownRoles[r]
	return r, ok
}

func (r Role) String() string {
	return string(r)
}

// User represents a portal user as returned by the healthcare API.
// UserRole, IsSuperuser, IsStaff and IsAdmin are legacy fields that
// duplicate Role; they are folded into Role by Normalize.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Role        Role   `json:"role"`
	UserRole    Role   `json:"user_role,omitempty"`
	IsSuperuser bool   `json:"is_superuser"`
	IsStaff     bool   `json:"is_staff"`
	IsAdmin     bool   `json:"is_admin"`
}

// EffectiveRole folds the legacy flags into a single role.
func (u *User) EffectiveRole() Role {
	if u == nil {
		return RoleUnknown
	}
	switch {
	case u.Role == RoleSuperAdmin || u.UserRole == RoleSuperAdmin || u.IsSuperuser:
		return RoleSuperAdmin
	case u.Role == RoleAdmin || u.UserRole == RoleAdmin || u.IsAdmin || u.IsStaff:
		return RoleAdmin
	case u.Role != RoleUnknown:
		return u.Role
	default:
		return u.UserRole
	}
}

// Normalize migrates the legacy flags into Role. It is applied once when a
// user enters the session store.
func (u *User) Normalize() {
	if u == nil {
		return
	}
	u.Role = u.EffectiveRole()
	u.UserRole = u.Role
	if u.Role == RoleSuperAdmin {
		u.IsSuperuser = true
	}
	if u.Role == RoleAdmin || u.Role == RoleSuperAdmin {
		u.IsAdmin = true
	}
}

// DisplayName returns Name, falling back to Username and Email.
func (u *User) DisplayName() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}
