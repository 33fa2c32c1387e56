// internal/app/system/authz/roles.go
package authz

import (
	"net/http"

	"taskhub/internal/domain/models"
)

// HasAnyRole reports whether the current request's user has any of the given
// roles. Returns false if no user is present (i.e., not signed in).
func HasAnyRole(r *http.Request, roles ...models.Role) bool {
	cur, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if cur == want {
			return true
		}
	}
	return false
}

// HasRole is a convenience wrapper for a single role.
func HasRole(r *http.Request, role models.Role) bool {
	return HasAnyRole(r, role)
}

// Role returns the current user's role and whether a user is present.
func Role(r *http.Request) (models.Role, bool) {
	role, _, ok := UserCtx(r)
	return role, ok
}
