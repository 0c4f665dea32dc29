package domain

// PrincipalKind distinguishes human callers from background processing.
type PrincipalKind string

// Principal kinds
const (
	PrincipalKindUser   PrincipalKind = "user"
	PrincipalKindSystem PrincipalKind = "system"
)

// Role is the authorization role carried by a principal
type Role string

// Supported roles
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// systemPrincipalID identifies writes that originate from the job queue.
const systemPrincipalID = "system"

// Principal is the actor on whose behalf an operation runs. Ownership checks
// branch on Kind rather than on a magic user ID.
type Principal struct {
	Kind   PrincipalKind
	UserID string
	Role   Role
}

// SystemPrincipal returns the actor used for queue-originated writes.
func SystemPrincipal() Principal {
	return Principal{
		Kind:   PrincipalKindSystem,
		UserID: systemPrincipalID,
		Role:   RoleAdmin,
	}
}

// UserPrincipal returns a principal for an authenticated end user.
func UserPrincipal(userID string, role Role) Principal {
	if role == "" {
		role = RoleUser
	}
	return Principal{
		Kind:   PrincipalKindUser,
		UserID: userID,
		Role:   role,
	}
}

// IsSystem reports whether the principal represents background processing.
func (p Principal) IsSystem() bool {
	return p.Kind == PrincipalKindSystem
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanModify reports whether the principal may change a task owned by ownerID.
// System principals bypass ownership; users must own the task or be admins.
func (p Principal) CanModify(ownerID string) bool {
	if p.IsSystem() {
		return true
	}
	if p.Kind != PrincipalKindUser || p.UserID == "" {
		return false
	}
	return p.UserID == ownerID || p.IsAdmin()
}
