package department

import (
	"context"

	"github.com/medapi/medapi/internal/domain/doctor"
	"github.com/medapi/medapi/internal/domain/patient"
	"github.com/medapi/medapi/internal/platform/authz"
	"github.com/medapi/medapi/pkg/pagination"
)

// Repository defines the persistence interface for departments.
type Repository interface {
	Create(ctx context.Context, d *Department) error
	GetByID(ctx context.Context, id int64) (*Department, error)
	Update(ctx context.Context, d *Department) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, scope authz.Scope, page pagination.Params) ([]*Department, int, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// Members is the part of a profile store used for department membership.
// doctor.Repository and patient.Repository satisfy it.
type Members[T member] interface {
	GetByIDs(ctx context.Context, ids []int64) ([]T, error)
	ListByDepartment(ctx context.Context, departmentID int64) ([]T, error)
	SetDepartment(ctx context.Context, ids []int64, departmentID int64) error
}

type member interface {
	authz.OwnedEntity
	ProfileID() int64
}

var (
	_ Members[*doctor.Doctor]   = doctor.Repository(nil)
	_ Members[*patient.Patient] = patient.Repository(nil)
)
