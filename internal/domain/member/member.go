package member

import "time"

// Project-scoped roles, from most to least privileged.
const (
	RoleAdmin        = "admin"
	RoleProjectAdmin = "project_admin"
	RoleMember       = "member"
)

// AllRoles lists every project role; handy for guards that admit any member.
var AllRoles = []string{RoleAdmin, RoleProjectAdmin, RoleMember}

func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleProjectAdmin, RoleMember:
		return true
	default:
		return false
	}
}

// ProjectMember is the membership tuple consumed by the access guard.
// Unique per (project, user).
type ProjectMember struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
