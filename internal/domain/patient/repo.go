package patient

import (
	"context"

	"github.com/medapi/medapi/internal/domain/account"
	"github.com/medapi/medapi/internal/platform/authz"
	"github.com/medapi/medapi/pkg/pagination"
)

// Repository defines the persistence interface for patient profiles.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	GetByUserID(ctx context.Context, userID int64) (*Patient, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, scope authz.Scope, page pagination.Params) ([]*Patient, int, error)
	ListByDepartment(ctx context.Context, departmentID int64) ([]*Patient, error)
	SetDepartment(ctx context.Context, ids []int64, departmentID int64) error
}

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*account.User, error)
}

type DepartmentLookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
}
