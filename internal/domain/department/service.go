package department

import (
	"context"
	"sort"

	"github.com/medapi/medapi/internal/domain/doctor"
	"github.com/medapi/medapi/internal/domain/patient"
	"github.com/medapi/medapi/internal/platform/authz"
	"github.com/medapi/medapi/internal/platform/db"
	"github.com/medapi/medapi/internal/platform/validation"
	"github.com/medapi/medapi/pkg/pagination"
)

type Service struct {
	repo     Repository
	doctors  Members[*doctor.Doctor]
	patients Members[*patient.Patient]
	tx       db.Transactor
}

func NewService(repo Repository, doctors Members[*doctor.Doctor], patients Members[*patient.Patient], tx db.Transactor) *Service {
	return &Service{repo: repo, doctors: doctors, patients: patients, tx: tx}
}

// List returns the department directory, which is public.
func (s *Service) List(ctx context.Context, p authz.Principal, page pagination.Params) ([]*Department, int, error) {
	return s.repo.List(ctx, authz.DepartmentScope(p), page)
}

func (s *Service) Get(ctx context.Context, id int64) (*Department, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, p authz.Principal, req *Request) (*Department, error) {
	if !authz.CanAdministerDepartments(p) {
		return nil, authz.ErrForbidden
	}
	if err := req.Validate(false); err != nil {
		return nil, err
	}
	d := &Department{}
	req.Apply(d)
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, req *Request, partial bool) (*Department, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanAdministerDepartments(p) {
		return nil, authz.ErrForbidden
	}
	if err := req.Validate(partial); err != nil {
		return nil, err
	}
	req.Apply(d)
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if !authz.CanAdministerDepartments(p) {
		return authz.ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, p authz.Principal, id int64) ([]*doctor.Doctor, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if !authz.CanListDepartmentDoctors(p, id) {
		return nil, authz.ErrForbidden
	}
	return s.doctors.ListByDepartment(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, p authz.Principal, id int64) ([]*patient.Patient, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if !authz.CanListDepartmentPatients(p, id) {
		return nil, authz.ErrForbidden
	}
	return s.patients.ListByDepartment(ctx, id)
}

// TransferDoctors moves the listed doctors into department id and returns
// its doctors afterwards.
func (s *Service) TransferDoctors(ctx context.Context, p authz.Principal, id int64, ids []int64) ([]*doctor.Doctor, error) {
	return transfer(ctx, s, p, id, "doctors", ids, s.doctors)
}

// TransferPatients moves the listed patients into department id. Their
// records follow, since a record's department is its patient's.
func (s *Service) TransferPatients(ctx context.Context, p authz.Principal, id int64, ids []int64) ([]*patient.Patient, error) {
	return transfer(ctx, s, p, id, "patients", ids, s.patients)
}

// transfer runs in one transaction: the profiles are locked, every id must
// exist and the caller must be allowed to touch each profile it moves.
//
// A doctor may only manage their own department and only access profiles
// already in it, so for doctors a transfer never moves anyone and acts as an
// authorization check that returns the member list. Superusers move profiles.
func transfer[T member](ctx context.Context, s *Service, p authz.Principal, id int64, field string, ids []int64, store Members[T]) ([]T, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if !authz.CanManageDepartment(p, id) {
		return nil, authz.ErrForbidden
	}

	ids = uniqueIDs(ids)
	var members []T
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if len(ids) > 0 {
			found, err := store.GetByIDs(ctx, ids)
			if err != nil {
				return err
			}
			if err := checkFound(field, ids, found); err != nil {
				return err
			}

			var move []int64
			for _, m := range found {
				if !authz.CanAccessOwnedEntity(p, m) {
					return authz.ErrForbidden
				}
				if m.OwnerDepartmentID() != id {
					move = append(move, m.ProfileID())
				}
			}
			if len(move) > 0 {
				if err := store.SetDepartment(ctx, move, id); err != nil {
					return err
				}
			}
		}

		var err error
		members, err = store.ListByDepartment(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

func checkFound[T member](field string, ids []int64, found []T) error {
	seen := make(map[int64]bool, len(found))
	for _, m := range found {
		seen[m.ProfileID()] = true
	}
	errs := validation.Errors{}
	for _, id := range ids {
		if !seen[id] {
			errs.Add(field, validation.InvalidPK(id))
		}
	}
	return errs.Err()
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
