package config

import (
	"slices"
	"strings"
)

// DefaultAdminRoles are granted admin access when OXTRUST_ADMIN_ROLES is blank.
var DefaultAdminRoles = []string{"admin", "superadmin"}

// ParseAdminRoleNames splits a comma separated role list, falling back to
// DefaultAdminRoles.
func ParseAdminRoleNames(value string) []string {
	if roles := SplitAndTrim(value, ","); len(roles) > 0 {
		return roles
	}
	return slices.Clone(DefaultAdminRoles)
}

// HasAnyAdminRole reports whether any of userRoles is an admin role.
// Role names compare case-insensitively.
func HasAnyAdminRole(userRoles, adminRoles []string) bool {
	return slices.ContainsFunc(userRoles, func(role string) bool {
		return slices.ContainsFunc(adminRoles, func(admin string) bool {
			return strings.EqualFold(admin, role)
		})
	})
}
