package doctor

import (
	"context"

	"github.com/medapi/medapi/internal/domain/account"
	"github.com/medapi/medapi/internal/platform/authz"
	"github.com/medapi/medapi/pkg/pagination"
)

// Repository defines the persistence interface for doctor profiles.
type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id int64) (*Doctor, error)
	GetByUserID(ctx context.Context, userID int64) (*Doctor, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, scope authz.Scope, page pagination.Params) ([]*Doctor, int, error)
	ListByDepartment(ctx context.Context, departmentID int64) ([]*Doctor, error)
	SetDepartment(ctx context.Context, ids []int64, departmentID int64) error
}

// UserLookup finds the user a new profile is attached to.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*account.User, error)
}

// DepartmentLookup reports whether a department exists.
type DepartmentLookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
}
