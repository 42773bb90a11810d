package domain

// Actor is the authenticated caller, passed explicitly into every service operation.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsAuthenticated() bool {
	return a.ID != ""
}

// RequireAdmin returns Unauthorized unless the actor is an admin.
func RequireAdmin(a Actor) error {
	if !a.IsAuthenticated() || !a.IsAdmin() {
		return Unauthorized("admin role required")
	}
	return nil
}

// RequireAuthenticated returns Unauthorized for an anonymous actor.
func RequireAuthenticated(a Actor) error {
	if !a.IsAuthenticated() {
		return Unauthorized("authentication required")
	}
	return nil
}
