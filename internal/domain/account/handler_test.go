package account

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medapi/medapi/internal/platform/authz"
)

func newTestHandler() (*Handler, *testEnv, *echo.Echo) {
	env := newTestEnv()
	return NewHandler(env.svc), env, echo.New()
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he.Code
}

func TestHandler_Register(t *testing.T) {
	h, env, e := newTestHandler()

	body := `{"username":"alice","email":"alice@example.com","password":"pw-123456","is_patient":true,"is_doctor":false,"department":1}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, body), rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "pw-123456") {
		t.Error("password must not be echoed")
	}

	var resp RegisterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.User.Username != "alice" || !resp.User.IsPatient || resp.User.Department == nil || *resp.User.Department != 1 {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(env.profiles.created) != 1 {
		t.Errorf("expected patient profile, got %v", env.profiles.created)
	}
}

func TestHandler_Register_BothFlags(t *testing.T) {
	h, _, e := newTestHandler()

	body := `{"username":"bob","password":"pw","is_patient":true,"is_doctor":true}`
	c := e.NewContext(jsonRequest(http.MethodPost, body), httptest.NewRecorder())

	if code := httpCode(t, h.Register(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_Login(t *testing.T) {
	h, env, e := newTestHandler()
	registerAndLogin(t, env, "carol")

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"username":"carol","password":"s3cret-pass"}`), rec)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["access"] == "" || body["refresh"] == "" {
		t.Errorf("expected token pair, got %v", body)
	}

	c = e.NewContext(jsonRequest(http.MethodPost, `{"username":"carol","password":"nope"}`), httptest.NewRecorder())
	err := h.Login(c)
	if code := httpCode(t, err); code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}
	if msg := err.(*echo.HTTPError).Message; msg != "No active account found with the given credentials" {
		t.Errorf("unexpected message %v", msg)
	}
}

func TestHandler_Refresh(t *testing.T) {
	h, env, e := newTestHandler()
	pair := registerAndLogin(t, env, "dan")

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"refresh":"`+pair.Refresh+`"}`), rec)
	if err := h.Refresh(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body RefreshResponse
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Access == "" {
		t.Error("expected access token")
	}

	c = e.NewContext(jsonRequest(http.MethodPost, `{}`), httptest.NewRecorder())
	if code := httpCode(t, h.Refresh(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing refresh, got %d", code)
	}

	c = e.NewContext(jsonRequest(http.MethodPost, `{"refresh":"junk"}`), httptest.NewRecorder())
	if code := httpCode(t, h.Refresh(c)); code != http.StatusUnauthorized {
		t.Errorf("expected 401 for junk refresh, got %d", code)
	}
}

func logoutContext(e *echo.Echo, body string, p authz.Principal) (echo.Context, *httptest.ResponseRecorder) {
	req := jsonRequest(http.MethodPost, body)
	req = req.WithContext(authz.WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_Logout(t *testing.T) {
	h, env, e := newTestHandler()
	pair := registerAndLogin(t, env, "eve")
	p := principalFor(env, "eve")

	c, rec := logoutContext(e, `{"refresh_token":"`+pair.Refresh+`"}`, p)
	if err := h.Logout(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusResetContent {
		t.Errorf("expected 205, got %d", rec.Code)
	}

	// refreshing with the revoked token fails
	c = e.NewContext(jsonRequest(http.MethodPost, `{"refresh":"`+pair.Refresh+`"}`), httptest.NewRecorder())
	if code := httpCode(t, h.Refresh(c)); code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", code)
	}

	// second logout reports the blacklisted token
	c, _ = logoutContext(e, `{"refresh_token":"`+pair.Refresh+`"}`, p)
	err := h.Logout(c)
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	msg := err.(*echo.HTTPError).Message.(map[string]string)
	if msg["code"] != "token_blacklisted" {
		t.Errorf("expected token_blacklisted, got %v", msg)
	}
}

func TestHandler_Logout_StoreFailure(t *testing.T) {
	h, env, e := newTestHandler()
	pair := registerAndLogin(t, env, "gus")
	env.svc.blacklist = unavailableBlacklist{env.blacklist}

	c, _ := logoutContext(e, `{"refresh_token":"`+pair.Refresh+`"}`, principalFor(env, "gus"))
	err := h.Logout(c)
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	msg := err.(*echo.HTTPError).Message.(map[string]string)
	if msg["code"] != "token_not_revoked" || strings.Contains(msg["error"], "connection refused") {
		t.Errorf("unexpected body %v", msg)
	}
}

func TestHandler_Logout_MissingToken(t *testing.T) {
	h, env, e := newTestHandler()
	registerAndLogin(t, env, "fay")

	c, _ := logoutContext(e, `{}`, principalFor(env, "fay"))
	err := h.Logout(c)
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
	if msg := err.(*echo.HTTPError).Message; msg != msgMissingRefresh {
		t.Errorf("unexpected message %v", msg)
	}
}
