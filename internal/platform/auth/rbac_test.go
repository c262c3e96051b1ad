package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medapi/medapi/internal/platform/authz"
)

func runGuard(t *testing.T, mw echo.MiddlewareFunc, method string, p authz.Principal) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", nil)
	req = req.WithContext(authz.WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	return mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return -1
}

var (
	doctor  = authz.Principal{UserID: 1, Role: authz.RoleDoctor, Authenticated: true}
	patient = authz.Principal{UserID: 2, Role: authz.RolePatient, Authenticated: true}
	admin   = authz.Principal{UserID: 3, Role: authz.RoleSuperuser, Authenticated: true}
)

func TestRequireAuthenticated(t *testing.T) {
	if got := statusOf(runGuard(t, RequireAuthenticated(), http.MethodGet, authz.Anonymous)); got != http.StatusUnauthorized {
		t.Errorf("expected 401 for anonymous, got %d", got)
	}
	if got := statusOf(runGuard(t, RequireAuthenticated(), http.MethodGet, patient)); got != http.StatusOK {
		t.Errorf("expected 200 for patient, got %d", got)
	}
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole(authz.RoleDoctor, authz.RoleSuperuser)
	tests := []struct {
		name string
		p    authz.Principal
		want int
	}{
		{"doctor", doctor, http.StatusOK},
		{"superuser", admin, http.StatusOK},
		{"patient", patient, http.StatusForbidden},
		{"anonymous", authz.Anonymous, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusOf(runGuard(t, mw, http.MethodGet, tt.p)); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
