package models

import "strings"

// Role is the single authoritative privilege discriminant of an Account.
type Role string

const (
	RoleApplicant      Role = "applicant"
	RoleAdmin          Role = "admin"
	RoleExaminer       Role = "examiner"
	RoleTrafficOfficer Role = "traffic_officer"
)

var roleAliases = map[string]Role{
	"applicant":       RoleApplicant,
	"user":            RoleApplicant,
	"admin":           RoleAdmin,
	"administrator":   RoleAdmin,
	"examiner":        RoleExaminer,
	"traffic_officer": RoleTrafficOfficer,
	"traffic-officer": RoleTrafficOfficer,
	"officer":         RoleTrafficOfficer,
	"traffic_police":  RoleTrafficOfficer,
}

// ParseRole maps current and historical role spellings onto a Role.
func ParseRole(s string) (Role, bool) {
	r, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]
	return r, ok
}

// ResolveRole collapses the stored role string and the legacy admin flag into one Role.
// Either signal marks an administrator; unknown or empty strings fall back to applicant.
func ResolveRole(stored string, isAdminFlag bool) Role {
	if isAdminFlag {
		return RoleAdmin
	}
	if r, ok := ParseRole(stored); ok {
		return r
	}
	return RoleApplicant
}

func (r Role) IsAdmin() bool { return r == RoleAdmin }

// Label is the human readable role name used in emails.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrator"
	case RoleExaminer:
		return "Examiner"
	case RoleTrafficOfficer:
		return "Traffic Officer"
	default:
		return "Applicant"
	}
}
