package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/medapi/medapi/internal/domain/patient"
	"github.com/medapi/medapi/internal/platform/authz"
	"github.com/medapi/medapi/internal/platform/db"
	"github.com/medapi/medapi/internal/platform/validation"
	"github.com/medapi/medapi/pkg/pagination"
)

const msgDepartmentMismatch = "Department must match the patient's department."

type Service struct {
	repo     Repository
	patients PatientLookup
}

func NewService(repo Repository, patients PatientLookup) *Service {
	return &Service{repo: repo, patients: patients}
}

// List returns the records in p's scope.
func (s *Service) List(ctx context.Context, p authz.Principal, page pagination.Params) ([]*Record, int, error) {
	return s.repo.List(ctx, authz.RecordScope(p), page)
}

// Create stores a new record. Only superusers and doctors of the patient's
// department author records.
func (s *Service) Create(ctx context.Context, p authz.Principal, req *Request) (*Record, error) {
	if err := req.validate(false); err != nil {
		return nil, err
	}
	pt, err := s.patient(ctx, *req.Patient)
	if err != nil {
		return nil, err
	}
	if !authz.CanWriteRecord(p, pt.DepartmentID) {
		return nil, authz.ErrForbidden
	}
	if err := checkDepartment(req, pt); err != nil {
		return nil, err
	}

	rec := &Record{}
	req.apply(rec)
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// patient resolves a referenced patient, reporting a missing one as a field
// error on "patient".
func (s *Service) patient(ctx context.Context, id int64) (*patient.Patient, error) {
	pt, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, validation.New("patient", validation.InvalidPK(id))
	}
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	return pt, nil
}

func checkDepartment(req *Request, pt *patient.Patient) error {
	if req.Department != nil && *req.Department != pt.DepartmentID {
		return validation.New("department", msgDepartmentMismatch)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (*Record, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanReadRecord(p, rec.DepartmentID, rec.PatientUserID) {
		return nil, authz.ErrForbidden
	}
	return rec, nil
}

// Update changes a record. Moving it to another patient also requires write
// access to that patient's department.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, req *Request, partial bool) (*Record, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanWriteRecord(p, rec.DepartmentID) {
		return nil, authz.ErrForbidden
	}
	if err := req.validate(partial); err != nil {
		return nil, err
	}

	target := &patient.Patient{ID: rec.PatientID, UserID: rec.PatientUserID, DepartmentID: rec.DepartmentID}
	if req.Patient != nil && *req.Patient != rec.PatientID {
		if target, err = s.patient(ctx, *req.Patient); err != nil {
			return nil, err
		}
		if !authz.CanWriteRecord(p, target.DepartmentID) {
			return nil, authz.ErrForbidden
		}
	}
	if err := checkDepartment(req, target); err != nil {
		return nil, err
	}

	req.apply(rec)
	rec.DepartmentID, rec.PatientUserID = target.DepartmentID, target.UserID
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) error {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !authz.CanWriteRecord(p, rec.DepartmentID) {
		return authz.ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}
