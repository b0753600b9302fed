package session

import "patient-portal/internal/model"

// Allows reports whether the session holder has one of the given roles.
func Allows(claims *Claims, roles ...string) bool {
	if claims == nil {
		return false
	}
	for _, role := range roles {
		if claims.UserRole == role {
			return true
		}
	}
	return false
}

// DashboardFor is where a freshly authenticated user of the role is sent.
func DashboardFor(role string) string {
	switch role {
	case model.RoleAdmin:
		return "/admin"
	case model.RoleDoctor:
		return "/doctor"
	case model.RolePatient:
		return "/patient"
	}
	return "/"
}

// LandingFor is where a user is sent when wandering into another role's pages.
func LandingFor(role string) string {
	switch role {
	case model.RoleAdmin:
		return "/admin/users"
	case model.RoleDoctor:
		return "/doctor/results"
	case model.RolePatient:
		return "/patient"
	}
	return "/"
}
