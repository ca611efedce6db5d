package mw

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Roles known to the planner.
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RolePlanner    = "planner"
	RoleOperator   = "operator"
)

// Headers set by the authenticating proxy in front of the service.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserRoles = "X-User-Roles"
)

// AllRoles grants access to any authenticated user.
var AllRoles = []string{RoleAdmin, RoleSupervisor, RolePlanner, RoleOperator}

const rolesKey = "mw.roles"

// Roles returns the caller's roles, lower-cased.
func Roles(c *gin.Context) []string {
	if v, ok := c.Get(rolesKey); ok {
		return v.([]string)
	}
	var roles []string
	for _, r := range strings.Split(c.GetHeader(HeaderUserRoles), ",") {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			roles = append(roles, r)
		}
	}
	c.Set(rolesKey, roles)
	return roles
}

// HasRole reports whether the caller holds at least one of roles.
func HasRole(c *gin.Context, roles ...string) bool {
	for _, have := range Roles(c) {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// UserID returns the caller's numeric id, or nil when absent or malformed.
func UserID(c *gin.Context) *int64 {
	raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

// RequireRole rejects callers without any role (401) or without one of roles (403).
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(Roles(c)) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if !HasRole(c, roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
			return
		}
		c.Next()
	}
}
