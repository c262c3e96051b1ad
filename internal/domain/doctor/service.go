package doctor

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
	msgProfileExists = "Doctor with this user already exists."
	msgNotDoctor     = "User must have the doctor role."
	msgUpdated       = "Doctor profile updated successfully."
)

type Service struct {
	repo  Repository
	users UserLookup
	depts DepartmentLookup
}

func NewService(repo Repository, users UserLookup, depts DepartmentLookup) *Service {
	return &Service{repo: repo, users: users, depts: depts}
}

// List returns the doctors visible to p. Only doctors and superusers may
// list doctors at all.
func (s *Service) List(ctx context.Context, p authz.Principal, page pagination.Params) ([]*Doctor, int, error) {
	if !authz.CanListDoctors(p) {
		return nil, 0, authz.ErrForbidden
	}
	return s.repo.List(ctx, authz.DoctorScope(p), page)
}

// Create attaches a doctor profile to an existing doctor-role user. A doctor
// may only create profiles inside their own department.
func (s *Service) Create(ctx context.Context, p authz.Principal, req *CreateRequest) (*Doctor, error) {
	if !authz.CanListDoctors(p) {
		return nil, authz.ErrForbidden
	}

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

	d := &Doctor{UserID: *req.User, DepartmentID: *req.Department}
	if !authz.CanAccessOwnedEntity(p, d) {
		return nil, authz.ErrForbidden
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
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
	if !u.IsDoctor() {
		errs.Add("user", msgNotDoctor)
		return nil
	}
	_, err = s.repo.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		errs.Add("user", msgProfileExists)
	case !errors.Is(err, db.ErrNotFound):
		return fmt.Errorf("load doctor profile: %w", err)
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

// Get loads a doctor and checks p may see it. A missing doctor is reported
// before any permission check.
func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (*Doctor, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccessOwnedEntity(p, d) {
		return nil, authz.ErrForbidden
	}
	return d, nil
}

// Update changes the doctor's department. With partial unset (PUT) the
// department is required.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, req *UpdateRequest, partial bool) (*UpdateResponse, error) {
	d, err := s.Get(ctx, p, id)
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

	if req.Department != nil && *req.Department != d.DepartmentID {
		d.DepartmentID = *req.Department
		if err := s.repo.Update(ctx, d); err != nil {
			return nil, err
		}
	}
	return &UpdateResponse{Message: msgUpdated, Data: d}, nil
}

func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) error {
	if _, err := s.Get(ctx, p, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
