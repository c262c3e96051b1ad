package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medapi/medapi/internal/platform/authz"
)

// AuditEntry describes one access to patient-identifying data.
type AuditEntry struct {
	UserID     int64
	Role       authz.Role
	Resource   string
	ResourceID int64
	Action     string
	IPAddress  string
	UserAgent  string
	Method     string
	Path       string
	RequestID  string
	StatusCode int
	Timestamp  time.Time
}

// AuditRecorder persists audit entries in addition to the log line.
type AuditRecorder interface {
	RecordAccess(ctx context.Context, entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(ctx context.Context, entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(ctx context.Context, entry AuditEntry) error {
	return f(ctx, entry)
}

// phiResources are the first path segments whose responses contain
// patient data.
var phiResources = map[string]bool{
	"patients":        true,
	"patient_records": true,
	"doctors":         true,
	"departments":     true,
}

// Audit logs every request that touches doctor, patient or record data with
// the caller's identity. Department directory reads are only audited for
// their member listings.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			resource, id, sub := parseResourcePath(req.URL.Path)
			if !isAuditable(resource, sub) {
				return next(c)
			}

			// The status is only known once the error handler has written
			// the response.
			if err := next(c); err != nil {
				c.Error(err)
			}

			p := authz.PrincipalFromContext(req.Context())
			entry := AuditEntry{
				UserID:     p.UserID,
				Role:       p.Role,
				Resource:   resource,
				ResourceID: id,
				Action:     httpMethodToAction(req.Method, id),
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				Method:     req.Method,
				Path:       req.URL.Path,
				StatusCode: c.Response().Status,
				Timestamp:  time.Now().UTC(),
			}
			if sub != "" {
				entry.Resource = resource + "/" + sub
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			// The entry is written even when the request deadline has passed.
			ctx := context.WithoutCancel(req.Context())
			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(ctx, entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "phi_audit").
				Str("request_id", entry.RequestID).
				Int64("user_id", entry.UserID).
				Str("role", string(entry.Role)).
				Str("resource", entry.Resource).
				Int64("resource_id", entry.ResourceID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("phi_access")

			return nil
		}
	}
}

func isAuditable(resource, sub string) bool {
	if !phiResources[resource] {
		return false
	}
	if resource == "departments" {
		return sub == "doctors" || sub == "patients"
	}
	return true
}

// parseResourcePath splits /resource/{id}/sub/ into its parts. id is 0 when
// absent or not numeric.
func parseResourcePath(path string) (resource string, id int64, sub string) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 {
		return "", 0, ""
	}
	resource = segments[0]
	if len(segments) > 1 {
		id, _ = strconv.ParseInt(segments[1], 10, 64)
	}
	if len(segments) > 2 {
		sub = segments[2]
	}
	return resource, id, sub
}

func httpMethodToAction(method string, id int64) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	}
	if id == 0 {
		return "search"
	}
	return "read"
}
