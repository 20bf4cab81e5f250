package middleware

// identity.go defines the authenticated principal shared across
// middleware files and handlers.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-booking/internal/model"
)

// principalKey is the echo context key JWTAuth stores the Principal under.
const principalKey = "principal"

// Principal is the identity resolved from a verified access token.
type Principal struct {
	UserID uint64
	Role   model.Role
}

// Is reports whether the principal holds one of roles.
func (p Principal) Is(roles ...model.Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// SetPrincipal stores p on the request context.
func SetPrincipal(c echo.Context, p Principal) {
	c.Set(principalKey, p)
}

// PrincipalFrom returns the principal stored by JWTAuth.  ok is false
// on unauthenticated routes.
func PrincipalFrom(c echo.Context) (Principal, bool) {
	p, ok := c.Get(principalKey).(Principal)
	return p, ok && p.UserID != 0
}

// userID returns the caller's id for cache keys, or "guest" when no
// user is authenticated.
func userID(c echo.Context) string {
	p, ok := PrincipalFrom(c)
	if !ok {
		return "guest"
	}
	return strconv.FormatUint(p.UserID, 10)
}
