package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/medapi/medapi/internal/platform/authz"
	"github.com/medapi/medapi/internal/platform/db"
	"github.com/medapi/medapi/internal/platform/validation"
	"github.com/medapi/medapi/pkg/pagination"
)

const (
	msgProfileExists = "Patient with this user already exists."
	msgNotPatient    = "User must have the patient role."
)

type Service struct {
	repo  Repository
	users UserLookup
	depts DepartmentLookup
}

func NewService(repo Repository, users UserLookup, depts DepartmentLookup) *Service {
	return &Service{repo: repo, users: users, depts: depts}
}

// List returns the patients in p's scope: everyone for doctors and
// superusers, the caller's own profile for patients.
func (s *Service) List(ctx context.Context, p authz.Principal, page pagination.Params) ([]*Patient, int, error) {
	return s.repo.List(ctx, authz.PatientScope(p), page)
}

func (s *Service) Create(ctx context.Context, p authz.Principal, req *CreateRequest) (*Patient, error) {
	errs := validation.Errors{}
	if req.User == nil {
		errs.Add("user", validation.MsgRequired)
	} else if err := s.checkUser(ctx, *req.User, errs); err != nil {
		return nil, err
	}
	if req.Department == nil {
		errs.Add("department", validation.MsgRequired)
	} else if err := s.checkDepartment(ctx, *req.Department, errs); err != nil {
		return nil, err
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	pt := &Patient{UserID: *req.User, DepartmentID: *req.Department}
	if !authz.CanAccessOwnedEntity(p, pt) {
		return nil, authz.ErrForbidden
	}
	if err := s.repo.Create(ctx, pt); err != nil {
		return nil, err
	}
	return pt, nil
}

func (s *Service) checkUser(ctx context.Context, userID int64, errs validation.Errors) error {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		errs.Add("user", validation.InvalidPK(userID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if !u.IsPatient() {
		errs.Add("user", msgNotPatient)
		return nil
	}
	_, err = s.repo.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		errs.Add("user", msgProfileExists)
	case !errors.Is(err, db.ErrNotFound):
		return fmt.Errorf("load patient profile: %w", err)
	}
	return nil
}

func (s *Service) checkDepartment(ctx context.Context, id int64, errs validation.Errors) error {
	ok, err := s.depts.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("check department: %w", err)
	}
	if !ok {
		errs.Add("department", validation.InvalidPK(id))
	}
	return nil
}

func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (*Patient, error) {
	pt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccessOwnedEntity(p, pt) {
		return nil, authz.ErrForbidden
	}
	return pt, nil
}

func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, req *UpdateRequest, partial bool) (*Patient, error) {
	pt, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}

	errs := validation.Errors{}
	switch {
	case req.Department != nil:
		if err := s.checkDepartment(ctx, *req.Department, errs); err != nil {
			return nil, err
		}
	case !partial:
		errs.Add("department", validation.MsgRequired)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if req.Department != nil && *req.Department != pt.DepartmentID {
		pt.DepartmentID = *req.Department
		if err := s.repo.Update(ctx, pt); err != nil {
			return nil, err
		}
	}
	return pt, nil
}

func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) error {
	if _, err := s.Get(ctx, p, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
