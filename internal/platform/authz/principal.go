// Package authz holds the access predicates and collection scoping rules that
// gate every read and write of users' clinical data. Everything here is pure:
// callers resolve a Principal and the entity first, then ask.
package authz

import (
	"context"
	"fmt"
)

// Role is the single role a user holds.
type Role string

const (
	RoleNone      Role = "none"
	RolePatient   Role = "patient"
	RoleDoctor    Role = "doctor"
	RoleSuperuser Role = "superuser"
)

// ParseRole converts a stored role name into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleNone, RolePatient, RoleDoctor, RoleSuperuser:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// RoleFromFlags builds a Role from the is_patient / is_doctor pair used by the
// registration payload. Exactly one flag must be set.
func RoleFromFlags(isPatient, isDoctor bool) (Role, error) {
	switch {
	case isPatient && isDoctor:
		return "", fmt.Errorf("a user cannot be both a patient and a doctor")
	case isPatient:
		return RolePatient, nil
	case isDoctor:
		return RoleDoctor, nil
	}
	return "", fmt.Errorf("a user must be either a patient or a doctor")
}

// Principal is the caller of a request.
type Principal struct {
	UserID        int64
	Username      string
	Role          Role
	Authenticated bool
	// DepartmentID is the department of the caller's doctor or patient
	// profile, nil when the caller has no profile.
	DepartmentID *int64
}

// Anonymous is the principal of a request without credentials.
var Anonymous = Principal{Role: RoleNone}

func (p Principal) IsAnonymous() bool { return !p.Authenticated }

type contextKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFromContext returns the principal stored in ctx, or Anonymous.
func PrincipalFromContext(ctx context.Context) Principal {
	if ctx == nil {
		return Anonymous
	}
	if p, ok := ctx.Value(contextKey{}).(Principal); ok {
		return p
	}
	return Anonymous
}
