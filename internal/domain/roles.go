package domain

import (
	"fmt"
	"strings"
)

// Role is the closed set of staff roles.
type Role string

const (
	RoleStaff         Role = "STAFF"
	RoleFaculty       Role = "FACULTY"
	RoleManager       Role = "MANAGER"
	RolePrincipal     Role = "PRINCIPAL"
	RoleDistrictAdmin Role = "DISTRICT_ADMIN"
)

// AllRoles lists every role in ascending privilege order.
var AllRoles = []Role{RoleStaff, RoleFaculty, RoleManager, RolePrincipal, RoleDistrictAdmin}

var roleAliases = map[string]Role{
	"STAFF":             RoleStaff,
	"FACULTY":           RoleFaculty,
	"FULL_TIME_FACULTY": RoleFaculty,
	"MANAGER":           RoleManager,
	"PRINCIPAL":         RolePrincipal,
	"DISTRICT_ADMIN":    RoleDistrictAdmin,
	"ADMIN":             RoleDistrictAdmin,
}

// ParseRole accepts canonical names and the legacy aliases FULL_TIME_FACULTY and ADMIN.
func ParseRole(s string) (Role, error) {
	if r, ok := roleAliases[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return r, nil
	}
	return "", NewError(KindValidation, fmt.Sprintf("unknown role %q", s))
}

// Valid reports whether r is a canonical role name.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Principal is the authenticated identity acting on an operation.
type Principal struct {
	ID         string `json:"id"`
	Role       Role   `json:"role"`
	Building   string `json:"building,omitempty"`
	Department string `json:"department,omitempty"`
}

// PrincipalOf builds the identity of a stored user.
func PrincipalOf(u User) Principal {
	return Principal{ID: u.ID, Role: u.Role, Building: u.Building, Department: u.Department}
}

// CanAdminister reports district-wide administrative rights.
func (p Principal) CanAdminister() bool {
	return p.Role == RoleDistrictAdmin
}

// IsBuildingLead reports building-scoped supervision rights.
func (p Principal) IsBuildingLead() bool {
	return p.Role == RolePrincipal
}
