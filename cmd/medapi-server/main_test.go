package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medapi/medapi/internal/config"
	"github.com/medapi/medapi/internal/domain/doctor"
	"github.com/medapi/medapi/internal/domain/patient"
	"github.com/medapi/medapi/internal/platform/authz"
	"github.com/medapi/medapi/internal/platform/middleware"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:                "test",
		JWTSigningKey:      strings.Repeat("k", 48),
		AccessTokenTTL:     5 * time.Minute,
		RefreshTokenTTL:    24 * time.Hour,
		BcryptCost:         4,
		CORSOrigins:        []string{"http://localhost:3000"},
		AuthRateLimitRPS:   5,
		AuthRateLimitBurst: 10,
		TokenBlacklist:     config.BlacklistMemory,
	}
}

// newTestServer wires the full middleware stack without a database. Only
// requests that never reach a repository can be served.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	a := newApp(testConfig(), zerolog.Nop(), nil)
	t.Cleanup(a.Close)
	return a.server()
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		header string
		want   int
	}{
		{"liveness", http.MethodGet, "/health", "", http.StatusOK},
		{"doctors with slash", http.MethodGet, "/doctors/", "", http.StatusUnauthorized},
		{"doctors without slash", http.MethodGet, "/doctors", "", http.StatusUnauthorized},
		{"patient item", http.MethodGet, "/patients/1/", "", http.StatusUnauthorized},
		{"records", http.MethodGet, "/patient_records/", "", http.StatusUnauthorized},
		{"department create", http.MethodPost, "/departments/", "", http.StatusUnauthorized},
		{"department members", http.MethodGet, "/departments/1/doctors/", "", http.StatusUnauthorized},
		{"logout", http.MethodPost, "/logout/", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/patients/", "Bearer not-a-token", http.StatusUnauthorized},
		{"unknown route", http.MethodGet, "/admin/", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if rec.Header().Get(middleware.RequestIDHeader) == "" {
				t.Error("expected a request id on every response")
			}
			if tt.want == http.StatusNotFound && rec.Body.Len() != 0 {
				t.Errorf("expected empty 404 body, got %q", rec.Body.String())
			}
		})
	}
}

func TestServer_UnauthorizedBody(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/doctors/", nil))

	if !strings.Contains(rec.Body.String(), `"error"`) {
		t.Errorf("expected an error body, got %s", rec.Body.String())
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("expected WWW-Authenticate on 401")
	}
}

func TestServer_ValidationFieldMap(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/register/", strings.NewReader(`{"username":"bob"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected a field map, got %s: %v", rec.Body.String(), err)
	}
	if len(body["password"]) == 0 {
		t.Errorf("expected a password error, got %v", body)
	}
	if _, ok := body["error"]; ok {
		t.Errorf("field errors must not be flattened, got %v", body)
	}
}

func TestServer_BodyLimit(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/register/", strings.NewReader(strings.Repeat("x", 2<<20)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

type fakeDepartments map[int64]bool

func (f fakeDepartments) Exists(_ context.Context, id int64) (bool, error) { return f[id], nil }

type fakeDoctors struct{ created []*doctor.Doctor }

func (f *fakeDoctors) Create(_ context.Context, d *doctor.Doctor) error {
	f.created = append(f.created, d)
	return nil
}

type fakePatients struct{ created []*patient.Patient }

func (f *fakePatients) Create(_ context.Context, p *patient.Patient) error {
	f.created = append(f.created, p)
	return nil
}

func TestProfileCreator(t *testing.T) {
	doctors, patients := &fakeDoctors{}, &fakePatients{}
	pc := profileCreator{departments: fakeDepartments{3: true}, doctors: doctors, patients: patients}
	ctx := context.Background()

	if ok, _ := pc.DepartmentExists(ctx, 3); !ok {
		t.Error("expected department 3 to exist")
	}
	if ok, _ := pc.DepartmentExists(ctx, 4); ok {
		t.Error("expected department 4 to be missing")
	}

	if err := pc.CreateProfile(ctx, authz.RoleDoctor, 10, 3); err != nil {
		t.Fatalf("doctor profile: %v", err)
	}
	if err := pc.CreateProfile(ctx, authz.RolePatient, 20, 3); err != nil {
		t.Fatalf("patient profile: %v", err)
	}
	if len(doctors.created) != 1 || doctors.created[0].UserID != 10 || doctors.created[0].DepartmentID != 3 {
		t.Errorf("unexpected doctors %+v", doctors.created)
	}
	if len(patients.created) != 1 || patients.created[0].UserID != 20 {
		t.Errorf("unexpected patients %+v", patients.created)
	}

	if err := pc.CreateProfile(ctx, authz.RoleSuperuser, 30, 3); err == nil {
		t.Error("expected an error for a superuser profile")
	}
}
