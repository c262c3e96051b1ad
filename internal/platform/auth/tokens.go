package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims are carried by both access and refresh tokens. Subject holds the
// user id in decimal.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
}

// UserID parses the subject claim.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid subject %q", c.Subject)
	}
	return id, nil
}

// TokenPair is the login response body.
type TokenPair struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

type TokenConfig struct {
	SigningKey []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenManager issues and verifies HS256 tokens.
type TokenManager struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenManager(cfg TokenConfig) *TokenManager {
	return &TokenManager{cfg: cfg, now: time.Now}
}

// IssuePair mints a refresh token and an access token for userID.
func (m *TokenManager) IssuePair(userID int64) (TokenPair, error) {
	refresh, err := m.issue(userID, RefreshToken, m.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	access, err := m.issue(userID, AccessToken, m.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Refresh: refresh, Access: access}, nil
}

// IssueAccess mints an access token for userID.
func (m *TokenManager) IssueAccess(userID int64) (string, error) {
	return m.issue(userID, AccessToken, m.cfg.AccessTTL)
}

func (m *TokenManager) issue(userID int64, typ TokenType, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    m.cfg.Issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: typ,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// Parse verifies raw and checks that it is a token of type want. Failures
// are returned as *TokenError.
func (m *TokenManager) Parse(raw string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.cfg.Issuer))
	}

	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return m.cfg.SigningKey, nil
	}, opts...)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, &TokenError{Kind: TokenMalformed, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, &TokenError{Kind: TokenExpired, Err: err}
	default:
		return nil, &TokenError{Kind: TokenInvalid, Err: err}
	}

	if claims.TokenType != want {
		return nil, &TokenError{Kind: TokenInvalid, Err: fmt.Errorf("token type %q, want %q", claims.TokenType, want)}
	}
	if _, err := claims.UserID(); err != nil {
		return nil, &TokenError{Kind: TokenInvalid, Err: err}
	}
	if claims.ID == "" {
		return nil, &TokenError{Kind: TokenInvalid, Err: errors.New("token has no jti")}
	}
	return claims, nil
}

// TokenErrorKind classifies why a token was rejected. The values double as
// the "code" field in logout error bodies.
type TokenErrorKind string

const (
	TokenMalformed   TokenErrorKind = "token_malformed"
	TokenInvalid     TokenErrorKind = "token_invalid"
	TokenExpired     TokenErrorKind = "token_expired"
	TokenBlacklisted TokenErrorKind = "token_blacklisted"
	TokenNotOwned    TokenErrorKind = "token_not_owned"
	// TokenNotRevoked means the token was valid but the blacklist write failed.
	TokenNotRevoked  TokenErrorKind = "token_not_revoked"
)

var tokenMessages = map[TokenErrorKind]string{
	TokenMalformed:   "Token is malformed.",
	TokenInvalid:     "Token is invalid or expired.",
	TokenExpired:     "Token is expired.",
	TokenBlacklisted: "Token is blacklisted.",
	TokenNotOwned:    "Token does not belong to the authenticated user.",
	TokenNotRevoked:  "Token could not be invalidated.",
}

type TokenError struct {
	Kind TokenErrorKind
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TokenError) Unwrap() error { return e.Err }

// Message is the client-facing text for the error kind. It never includes
// the underlying cause.
func (e *TokenError) Message() string {
	if msg, ok := tokenMessages[e.Kind]; ok {
		return msg
	}
	return tokenMessages[TokenInvalid]
}

// AsTokenError extracts a *TokenError from err.
func AsTokenError(err error) (*TokenError, bool) {
	var te *TokenError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
