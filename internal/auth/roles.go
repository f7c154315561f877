package auth

import "strings"

// Canonical roles a Wampums account can hold on this station.
const (
	RoleAdmin     = "admin"
	RoleAnimation = "animation"
	RoleParent    = "parent"
)

// NormalizeFlag interprets the backend's loose boolean role flags, which
// arrive as true/false, "true"/"false", "1"/"0" or 1/0 depending on the
// endpoint version.
func NormalizeFlag(v any) bool {
	switch f := v.(type) {
	case bool:
		return f
	case string:
		return f == "true" || f == "1"
	case float64:
		return f == 1
	case int:
		return f == 1
	}
	return false
}

// RoleFromFlags derives the canonical role from the flag map the
// authenticate endpoint returns. Admin wins over animation; accounts with
// neither flag are parents.
func RoleFromFlags(flags map[string]any) string {
	if NormalizeFlag(flags["isAdmin"]) || NormalizeFlag(flags["is_admin"]) {
		return RoleAdmin
	}
	if NormalizeFlag(flags["isAnimation"]) || NormalizeFlag(flags["is_animation"]) {
		return RoleAnimation
	}
	return RoleParent
}

// NormalizeRole maps a free-form role string onto a canonical role,
// returning the empty string for anything unknown.
func NormalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleAdmin:
		return RoleAdmin
	case RoleAnimation:
		return RoleAnimation
	case RoleParent:
		return RoleParent
	}
	return ""
}

// DashboardRoute returns the dashboard path for a stored role. Unknown
// roles land back on the login screen.
func DashboardRoute(role string) string {
	switch role {
	case RoleAdmin:
		return "/dashboard/admin"
	case RoleAnimation:
		return "/dashboard/animation"
	case RoleParent:
		return "/dashboard/parent"
	}
	return "/login"
}

// CanAwardHonors reports whether a role may grant honors.
func CanAwardHonors(role string) bool {
	return role == RoleAdmin || role == RoleAnimation
}

// CanManageEquipment reports whether a role may reserve equipment.
func CanManageEquipment(role string) bool {
	return role == RoleAdmin || role == RoleAnimation
}
