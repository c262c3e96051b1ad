package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medapi/medapi/internal/config"
	"github.com/medapi/medapi/internal/domain/account"
	"github.com/medapi/medapi/internal/domain/department"
	"github.com/medapi/medapi/internal/domain/doctor"
	"github.com/medapi/medapi/internal/domain/patient"
	"github.com/medapi/medapi/internal/domain/record"
	"github.com/medapi/medapi/internal/platform/apierror"
	"github.com/medapi/medapi/internal/platform/auditlog"
	"github.com/medapi/medapi/internal/platform/auth"
	"github.com/medapi/medapi/internal/platform/authz"
	"github.com/medapi/medapi/internal/platform/db"
	"github.com/medapi/medapi/internal/platform/middleware"
)

const tokenIssuer = "medapi"

// app holds the wired services. The pool may be nil in tests that never
// reach the database.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	pool   *pgxpool.Pool

	tokens    *auth.TokenManager
	blacklist auth.Blacklist
	users     account.UserRepository

	accounts    *account.Service
	departments *department.Service
	doctors     *doctor.Service
	patients    *patient.Service
	records     *record.Service

	closers []func()
}

func newApp(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool) *app {
	a := &app{cfg: cfg, logger: logger, pool: pool}

	a.tokens = auth.NewTokenManager(auth.TokenConfig{
		SigningKey: []byte(cfg.JWTSigningKey),
		Issuer:     tokenIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	if cfg.TokenBlacklist == config.BlacklistMemory {
		mem := auth.NewMemoryBlacklist(time.Hour)
		a.closers = append(a.closers, mem.Close)
		a.blacklist = mem
	} else {
		a.blacklist = auth.NewPGBlacklist(pool)
	}

	tx := db.NewTransactor(pool)
	a.users = account.NewUserRepo(pool)
	deptRepo := department.NewRepo(pool)
	doctorRepo := doctor.NewRepo(pool)
	patientRepo := patient.NewRepo(pool)

	a.accounts = account.NewService(
		a.users,
		profileCreator{departments: deptRepo, doctors: doctorRepo, patients: patientRepo},
		tx,
		auth.NewPasswordHasher(cfg.BcryptCost),
		a.tokens,
		a.blacklist,
		logger.With().Str("component", "account").Logger(),
	)
	a.doctors = doctor.NewService(doctorRepo, a.users, deptRepo)
	a.patients = patient.NewService(patientRepo, a.users, deptRepo)
	a.departments = department.NewService(deptRepo, doctorRepo, patientRepo, tx)
	a.records = record.NewService(record.NewRepo(pool), patientRepo)
	return a
}

func (a *app) Close() {
	for _, fn := range a.closers {
		fn()
	}
}

// server builds the HTTP server. Routes are registered without a trailing
// slash; RemoveTrailingSlash makes "/doctors/" and "/doctors" equivalent.
func (a *app) server() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apierror.Handler(a.logger)

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.BodyLimit(a.cfg.MaxBodySize))
	e.Use(middleware.RequestTimeout(a.cfg.RequestTimeout))
	e.Use(middleware.SecurityHeaders(a.cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  a.cfg.CORSOrigins,
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders: []string{"X-Total-Count", "Link", middleware.RequestIDHeader},
	}))
	e.Use(auth.Authenticate(a.tokens, a.users))
	if a.pool != nil {
		e.Use(middleware.Audit(a.logger, auditlog.NewStore(a.pool)))
	} else {
		e.Use(middleware.Audit(a.logger))
	}

	e.GET("/health", db.LivenessHandler())
	if a.pool != nil {
		e.GET("/health/db", db.HealthHandler(a.pool, func() *db.PoolStats { return db.GetPoolStats(a.pool) }))
	}

	credentials := middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: a.cfg.AuthRateLimitRPS,
		BurstSize:         a.cfg.AuthRateLimitBurst,
		IdleTTL:           middleware.DefaultRateLimitConfig().IdleTTL,
	})

	root := e.Group("")
	account.NewHandler(a.accounts).RegisterRoutes(root, credentials)
	department.NewHandler(a.departments).RegisterRoutes(root)
	doctor.NewHandler(a.doctors).RegisterRoutes(root)
	patient.NewHandler(a.patients).RegisterRoutes(root)
	record.NewHandler(a.records).RegisterRoutes(root)
	return e
}

// profileCreator creates the profile that accompanies a registration.
type profileCreator struct {
	departments interface {
		Exists(ctx context.Context, id int64) (bool, error)
	}
	doctors interface {
		Create(ctx context.Context, d *doctor.Doctor) error
	}
	patients interface {
		Create(ctx context.Context, p *patient.Patient) error
	}
}

func (p profileCreator) DepartmentExists(ctx context.Context, id int64) (bool, error) {
	return p.departments.Exists(ctx, id)
}

func (p profileCreator) CreateProfile(ctx context.Context, role authz.Role, userID, departmentID int64) error {
	switch role {
	case authz.RoleDoctor:
		return p.doctors.Create(ctx, &doctor.Doctor{UserID: userID, DepartmentID: departmentID})
	case authz.RolePatient:
		return p.patients.Create(ctx, &patient.Patient{UserID: userID, DepartmentID: departmentID})
	}
	return fmt.Errorf("role %q has no profile", role)
}
