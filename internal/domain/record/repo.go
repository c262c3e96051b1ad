package record

import (
	"context"

	"github.com/medapi/medapi/internal/domain/patient"
	"github.com/medapi/medapi/internal/platform/authz"
	"github.com/medapi/medapi/pkg/pagination"
)

// Repository defines the persistence interface for patient records.
type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id int64) (*Record, error)
	Update(ctx context.Context, r *Record) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, scope authz.Scope, page pagination.Params) ([]*Record, int, error)
}

// PatientLookup resolves the patient a record belongs to.
type PatientLookup interface {
	GetByID(ctx context.Context, id int64) (*patient.Patient, error)
}
