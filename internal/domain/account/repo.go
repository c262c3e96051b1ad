package account

import (
	"context"

	"github.com/medapi/medapi/internal/platform/authz"
)

// UserRepository defines the persistence interface for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Delete(ctx context.Context, id int64) error
	// LoadPrincipal returns the user's role and the department of their
	// profile, if any.
	LoadPrincipal(ctx context.Context, id int64) (authz.Principal, error)
}

// ProfileCreator creates the doctor or patient profile that accompanies a
// registration. It is implemented outside this package by the profile
// repositories.
type ProfileCreator interface {
	DepartmentExists(ctx context.Context, id int64) (bool, error)
	CreateProfile(ctx context.Context, role authz.Role, userID, departmentID int64) error
}
