package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medapi/medapi/internal/platform/auth"
	"github.com/medapi/medapi/internal/platform/authz"
	"github.com/medapi/medapi/internal/platform/db"
	"github.com/medapi/medapi/internal/platform/validation"
)

const (
	msgUsernameTaken   = "A user with that username already exists."
	msgRoleConflict    = "A user must be either a patient or a doctor, not both or neither."
	msgPasswordTooLong = "Ensure this field has no more than 72 bytes."
)

// ErrInvalidCredentials is returned by Login for an unknown user and for a
// wrong password alike.
var ErrInvalidCredentials = errors.New("no active account found with the given credentials")

type Service struct {
	users     UserRepository
	profiles  ProfileCreator
	tx        db.Transactor
	hasher    *auth.PasswordHasher
	tokens    *auth.TokenManager
	blacklist auth.Blacklist
	logger    zerolog.Logger
}

func NewService(
	users UserRepository,
	profiles ProfileCreator,
	tx db.Transactor,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenManager,
	blacklist auth.Blacklist,
	logger zerolog.Logger,
) *Service {
	return &Service{
		users:     users,
		profiles:  profiles,
		tx:        tx,
		hasher:    hasher,
		tokens:    tokens,
		blacklist: blacklist,
		logger:    logger,
	}
}

// Register creates a user and, when a department is given, the profile
// matching the user's role. Both happen in one transaction.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	errs := validation.Errors{}

	errs.Required("username", req.Username)
	if req.Username != nil && strings.TrimSpace(*req.Username) != "" {
		errs.Username("username", *req.Username)
	}
	var email string
	if req.Email != nil {
		email = strings.TrimSpace(*req.Email)
		errs.Email("email", email)
		errs.MaxLength("email", email, 254)
	}
	errs.Required("password", req.Password)
	if req.Password != nil && len(*req.Password) > auth.MaxPasswordBytes {
		errs.Add("password", msgPasswordTooLong)
	}
	if req.IsPatient == nil {
		errs.Add("is_patient", validation.MsgRequired)
	}
	if req.IsDoctor == nil {
		errs.Add("is_doctor", validation.MsgRequired)
	}

	var role authz.Role
	if req.IsPatient != nil && req.IsDoctor != nil {
		var err error
		if role, err = authz.RoleFromFlags(*req.IsPatient, *req.IsDoctor); err != nil {
			errs.Add("is_patient", msgRoleConflict)
		}
	}

	if req.Department != nil {
		ok, err := s.profiles.DepartmentExists(ctx, *req.Department)
		if err != nil {
			return nil, fmt.Errorf("check department: %w", err)
		}
		if !ok {
			errs.Add("department", validation.InvalidPK(*req.Department))
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(*req.Password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Username:     *req.Username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		if req.Department == nil {
			return nil
		}
		return s.profiles.CreateProfile(ctx, role, user.ID, *req.Department)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", user.ID).Str("role", string(role)).Msg("user registered")

	return &RegisterResponse{
		Message: "Registration successful",
		User: Registered{
			Username:   user.Username,
			Email:      user.Email,
			IsPatient:  user.IsPatient(),
			IsDoctor:   user.IsDoctor(),
			Department: req.Department,
		},
	}, nil
}

// Login checks credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (auth.TokenPair, error) {
	errs := validation.Errors{}
	errs.Required("username", req.Username)
	errs.Required("password", req.Password)
	if err := errs.Err(); err != nil {
		return auth.TokenPair{}, err
	}

	user, err := s.users.GetByUsername(ctx, *req.Username)
	if errors.Is(err, db.ErrNotFound) {
		s.hasher.CompareMissing(*req.Password)
		return auth.TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("load user: %w", err)
	}
	if !s.hasher.Compare(user.PasswordHash, *req.Password) {
		return auth.TokenPair{}, ErrInvalidCredentials
	}

	return s.tokens.IssuePair(user.ID)
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, req *RefreshRequest) (string, error) {
	errs := validation.Errors{}
	errs.Required("refresh", req.Refresh)
	if err := errs.Err(); err != nil {
		return "", err
	}

	claims, err := s.tokens.Parse(*req.Refresh, auth.RefreshToken)
	if err != nil {
		return "", err
	}
	revoked, err := s.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", &auth.TokenError{Kind: auth.TokenBlacklisted, Err: fmt.Errorf("jti %s", claims.ID)}
	}

	userID, _ := claims.UserID()
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", &auth.TokenError{Kind: auth.TokenInvalid, Err: fmt.Errorf("user %d no longer exists", userID)}
		}
		return "", err
	}
	return s.tokens.IssueAccess(userID)
}

// Logout blacklists the caller's refresh token. Every failure, including a
// blacklist store error, is returned as *auth.TokenError and logged with its
// cause.
func (s *Service) Logout(ctx context.Context, p authz.Principal, raw string) error {
	err := s.logout(ctx, p, raw)
	if te, ok := auth.AsTokenError(err); ok {
		s.logger.Warn().
			Err(te.Err).
			Str("code", string(te.Kind)).
			Int64("user_id", p.UserID).
			Msg("logout rejected")
	}
	return err
}

func (s *Service) logout(ctx context.Context, p authz.Principal, raw string) error {
	claims, err := s.tokens.Parse(raw, auth.RefreshToken)
	if err != nil {
		return err
	}
	owner, _ := claims.UserID()
	if owner != p.UserID {
		return &auth.TokenError{Kind: auth.TokenNotOwned, Err: fmt.Errorf("token subject %d, caller %d", owner, p.UserID)}
	}

	err = s.blacklist.Add(ctx, claims.ID, owner, claims.ExpiresAt.Time)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrAlreadyBlacklisted):
		return &auth.TokenError{Kind: auth.TokenBlacklisted, Err: err}
	default:
		return &auth.TokenError{Kind: auth.TokenNotRevoked, Err: err}
	}
}

// CreateSuperuser creates an administrative account. It is used by the CLI.
func (s *Service) CreateSuperuser(ctx context.Context, username, email, password string) (*User, error) {
	errs := validation.Errors{}
	errs.Username("username", username)
	errs.Email("email", email)
	if password == "" {
		errs.Add("password", validation.MsgBlank)
	}
	if len(password) > auth.MaxPasswordBytes {
		errs.Add("password", msgPasswordTooLong)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u := &User{Username: username, Email: email, PasswordHash: hash, Role: authz.RoleSuperuser}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("user_id", u.ID).Msg("superuser created")
	return u, nil
}

// DeleteUser removes a user by username; profiles, records and blacklisted
// tokens cascade.
func (s *Service) DeleteUser(ctx context.Context, username string) error {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("find user %q: %w", username, err)
	}
	if err := s.users.Delete(ctx, u.ID); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", u.ID).Msg("user deleted")
	return nil
}
