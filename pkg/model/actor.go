package model

// Actor roles. Supplied per call by the gateway, never derived here.
const (
	RoleResident   = "resident"
	RoleJanitorial = "janitorial"
	RoleAdmin      = "admin"
)

// Actor is the authenticated caller context for a single operation.
type Actor struct {
	UserID      string `json:"user_id" validate:"required"`
	CommunityID string `json:"community_id" validate:"required,mongodb"`
	Role        string `json:"role" validate:"required,oneof=resident janitorial admin"`
}

// Staff reports whether the actor holds a janitorial or admin role.
func (a Actor) Staff() bool {
	return a.Role == RoleJanitorial || a.Role == RoleAdmin
}
