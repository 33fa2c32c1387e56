// internal/domain/models/roles.go
package models

// Role is the set of user roles known to the system.
//
// Roles are stored as strings in Mongo but handled through this type so
// comparisons don't scatter raw literals across handlers.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTeamLeader Role = "team_leader"
	RoleTeamMember Role = "team_member"
	RoleUser       Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeamLeader, RoleTeamMember, RoleUser:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
