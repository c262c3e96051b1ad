package doctor

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/medapi/medapi/internal/domain/account"
	"github.com/medapi/medapi/internal/platform/authz"
	"github.com/medapi/medapi/internal/platform/db"
	"github.com/medapi/medapi/internal/platform/validation"
	"github.com/medapi/medapi/pkg/pagination"
)

// -- Mocks --

type mockRepo struct {
	doctors map[int64]*Doctor
	users   *mockUsers
	nextID  int64
}

func newMockRepo(users *mockUsers) *mockRepo {
	return &mockRepo{doctors: make(map[int64]*Doctor), users: users}
}

func (m *mockRepo) Create(_ context.Context, d *Doctor) error {
	for _, existing := range m.doctors {
		if existing.UserID == d.UserID {
			return validation.New("user", msgProfileExists)
		}
	}
	m.nextID++
	d.ID = m.nextID
	if u, ok := m.users.users[d.UserID]; ok {
		d.User = u.Summary()
	}
	m.doctors[d.ID] = d
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockRepo) GetByUserID(_ context.Context, userID int64) (*Doctor, error) {
	for _, d := range m.doctors {
		if d.UserID == userID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockRepo) GetByIDs(_ context.Context, ids []int64) ([]*Doctor, error) {
	var out []*Doctor
	for _, id := range ids {
		if d, ok := m.doctors[id]; ok {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) Update(_ context.Context, d *Doctor) error {
	if _, ok := m.doctors[d.ID]; !ok {
		return db.ErrNotFound
	}
	cp := *d
	m.doctors[d.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.doctors[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.doctors, id)
	return nil
}

func (m *mockRepo) sorted(keep func(*Doctor) bool) []*Doctor {
	out := []*Doctor{}
	for _, d := range m.doctors {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockRepo) List(_ context.Context, scope authz.Scope, page pagination.Params) ([]*Doctor, int, error) {
	all := m.sorted(func(d *Doctor) bool {
		switch scope.Kind {
		case authz.ScopeAll:
			return true
		case authz.ScopeDepartment:
			return d.DepartmentID == scope.DepartmentID
		case authz.ScopeOwner:
			return d.UserID == scope.UserID
		}
		return false
	})
	start, end := page.Window(len(all))
	return all[start:end], len(all), nil
}

func (m *mockRepo) ListByDepartment(_ context.Context, departmentID int64) ([]*Doctor, error) {
	return m.sorted(func(d *Doctor) bool { return d.DepartmentID == departmentID }), nil
}

func (m *mockRepo) SetDepartment(_ context.Context, ids []int64, departmentID int64) error {
	for _, id := range ids {
		if d, ok := m.doctors[id]; ok {
			d.DepartmentID = departmentID
		}
	}
	return nil
}

type mockUsers struct {
	users map[int64]*account.User
}

func (m *mockUsers) GetByID(_ context.Context, id int64) (*account.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return u, nil
}

type mockDepartments map[int64]bool

func (m mockDepartments) Exists(_ context.Context, id int64) (bool, error) {
	return m[id], nil
}

// -- Fixtures --
//
// Departments 1 (cardiology) and 2 (neurology). Users 10 and 11 are doctors
// with profiles in departments 1 and 2, user 12 is a doctor without a
// profile, user 20 is a patient, user 30 a superuser.

const (
	cardiology = int64(1)
	neurology  = int64(2)
)

func deptp(id int64) *int64 { return &id }

var (
	house    = authz.Principal{UserID: 10, Role: authz.RoleDoctor, Authenticated: true, DepartmentID: deptp(cardiology)}
	strange  = authz.Principal{UserID: 11, Role: authz.RoleDoctor, Authenticated: true, DepartmentID: deptp(neurology)}
	patient  = authz.Principal{UserID: 20, Role: authz.RolePatient, Authenticated: true, DepartmentID: deptp(cardiology)}
	admin    = authz.Principal{UserID: 30, Role: authz.RoleSuperuser, Authenticated: true}
	roleless = authz.Principal{UserID: 40, Role: authz.RoleNone, Authenticated: true}
)

type fixture struct {
	svc       *Service
	repo      *mockRepo
	houseID   int64
	strangeID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := &mockUsers{users: map[int64]*account.User{
		10: {ID: 10, Username: "house", Role: authz.RoleDoctor},
		11: {ID: 11, Username: "strange", Role: authz.RoleDoctor},
		12: {ID: 12, Username: "newbie", Role: authz.RoleDoctor},
		20: {ID: 20, Username: "pat", Role: authz.RolePatient},
		30: {ID: 30, Username: "root", Role: authz.RoleSuperuser},
	}}
	repo := newMockRepo(users)
	ctx := context.Background()
	h := &Doctor{UserID: 10, DepartmentID: cardiology}
	s := &Doctor{UserID: 11, DepartmentID: neurology}
	repo.Create(ctx, h)
	repo.Create(ctx, s)

	svc := NewService(repo, users, mockDepartments{cardiology: true, neurology: true})
	return &fixture{svc: svc, repo: repo, houseID: h.ID, strangeID: s.ID}
}

func expectErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("expected %v, got %v", target, err)
	}
}

func expectField(t *testing.T, err error, field string) {
	t.Helper()
	ve, ok := validation.As(err)
	if !ok {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if len(ve[field]) == 0 {
		t.Errorf("expected %s error, got %v", field, ve)
	}
}

// -- Tests --

func TestList_Gate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, p := range []authz.Principal{house, admin} {
		doctors, total, err := f.svc.List(ctx, p, pagination.Params{})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", p.Role, err)
		}
		if total != 2 || len(doctors) != 2 {
			t.Errorf("%s: expected all doctors, got %d", p.Role, total)
		}
	}
	for _, p := range []authz.Principal{patient, roleless, authz.Anonymous} {
		_, _, err := f.svc.List(ctx, p, pagination.Params{})
		expectErr(t, err, authz.ErrForbidden)
	}
}

func TestGet_NotFoundBeforeForbidden(t *testing.T) {
	f := newFixture(t)
	for _, p := range []authz.Principal{house, strange, patient, admin, roleless} {
		_, err := f.svc.Get(context.Background(), p, 999)
		expectErr(t, err, db.ErrNotFound)
	}
}

func TestGet_Access(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Get(ctx, house, f.houseID); err != nil {
		t.Errorf("doctor reads own department: %v", err)
	}
	if _, err := f.svc.Get(ctx, admin, f.strangeID); err != nil {
		t.Errorf("superuser reads anything: %v", err)
	}
	_, err := f.svc.Get(ctx, house, f.strangeID)
	expectErr(t, err, authz.ErrForbidden)
	_, err = f.svc.Get(ctx, patient, f.houseID)
	expectErr(t, err, authz.ErrForbidden)
}

func TestGet_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Get(ctx, house, f.houseID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := f.svc.Get(ctx, house, f.houseID)
	if *first != *second {
		t.Errorf("repeated reads differ: %+v vs %+v", first, second)
	}
	if len(f.repo.doctors) != 2 {
		t.Error("a read must not create rows")
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("doctor in own department", func(t *testing.T) {
		f := newFixture(t)
		d, err := f.svc.Create(ctx, house, &CreateRequest{User: deptp(12), Department: deptp(cardiology)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.ID == 0 || d.User.Username != "newbie" || !d.User.IsDoctor {
			t.Errorf("unexpected doctor %+v", d)
		}
	})

	t.Run("doctor in other department", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, house, &CreateRequest{User: deptp(12), Department: deptp(neurology)})
		expectErr(t, err, authz.ErrForbidden)
	})

	t.Run("superuser anywhere", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.svc.Create(ctx, admin, &CreateRequest{User: deptp(12), Department: deptp(neurology)}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("patient forbidden", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, patient, &CreateRequest{User: deptp(12), Department: deptp(cardiology)})
		expectErr(t, err, authz.ErrForbidden)
	})

	fieldCases := []struct {
		name  string
		req   CreateRequest
		field string
	}{
		{"missing user", CreateRequest{Department: deptp(cardiology)}, "user"},
		{"missing department", CreateRequest{User: deptp(12)}, "department"},
		{"unknown user", CreateRequest{User: deptp(99), Department: deptp(cardiology)}, "user"},
		{"patient user", CreateRequest{User: deptp(20), Department: deptp(cardiology)}, "user"},
		{"existing profile", CreateRequest{User: deptp(10), Department: deptp(cardiology)}, "user"},
		{"unknown department", CreateRequest{User: deptp(12), Department: deptp(77)}, "department"},
	}
	for _, tt := range fieldCases {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Create(ctx, admin, &tt.req)
			expectField(t, err, tt.field)
		})
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("put requires department", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Update(ctx, house, f.houseID, &UpdateRequest{}, false)
		expectField(t, err, "department")
	})

	t.Run("patch without fields is a no-op", func(t *testing.T) {
		f := newFixture(t)
		resp, err := f.svc.Update(ctx, house, f.houseID, &UpdateRequest{}, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Message != msgUpdated || resp.Data.DepartmentID != cardiology {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("move department", func(t *testing.T) {
		f := newFixture(t)
		resp, err := f.svc.Update(ctx, admin, f.houseID, &UpdateRequest{Department: deptp(neurology)}, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Data.DepartmentID != neurology || f.repo.doctors[f.houseID].DepartmentID != neurology {
			t.Errorf("department not updated: %+v", resp.Data)
		}
	})

	t.Run("unknown department", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Update(ctx, admin, f.houseID, &UpdateRequest{Department: deptp(77)}, true)
		expectField(t, err, "department")
	})

	t.Run("other department forbidden before validation", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Update(ctx, strange, f.houseID, &UpdateRequest{}, false)
		expectErr(t, err, authz.ErrForbidden)
	})

	t.Run("missing doctor", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Update(ctx, admin, 999, &UpdateRequest{Department: deptp(cardiology)}, false)
		expectErr(t, err, db.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expectErr(t, f.svc.Delete(ctx, strange, f.houseID), authz.ErrForbidden)
	expectErr(t, f.svc.Delete(ctx, patient, 999), db.ErrNotFound)

	if err := f.svc.Delete(ctx, house, f.houseID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := f.repo.doctors[f.houseID]; ok {
		t.Error("doctor not deleted")
	}
}
