package account

import (
	"time"

	"github.com/medapi/medapi/internal/platform/authz"
)

// User maps to the users table.
type User struct {
	ID           int64      `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         authz.Role `db:"role" json:"-"`
	DateJoined   time.Time  `db:"date_joined" json:"date_joined"`
}

func (u *User) IsPatient() bool { return u.Role == authz.RolePatient }
func (u *User) IsDoctor() bool  { return u.Role == authz.RoleDoctor }

// Summary is the nested user representation inside doctor and patient
// payloads.
func (u *User) Summary() Summary {
	return Summary{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		IsPatient: u.IsPatient(),
		IsDoctor:  u.IsDoctor(),
	}
}

// Summary is the read-only user view embedded in profile responses.
type Summary struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	IsPatient bool   `json:"is_patient"`
	IsDoctor  bool   `json:"is_doctor"`
}

// RegisterRequest is the body of POST /register/. Pointers distinguish
// missing fields from zero values.
type RegisterRequest struct {
	Username   *string `json:"username"`
	Email      *string `json:"email"`
	Password   *string `json:"password"`
	IsPatient  *bool   `json:"is_patient"`
	IsDoctor   *bool   `json:"is_doctor"`
	Department *int64  `json:"department"`
}

// Registered is the user part of a successful registration response.
type Registered struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	IsPatient  bool   `json:"is_patient"`
	IsDoctor   bool   `json:"is_doctor"`
	Department *int64 `json:"department"`
}

type RegisterResponse struct {
	Message string     `json:"message"`
	User    Registered `json:"user"`
}

type LoginRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

type RefreshRequest struct {
	Refresh *string `json:"refresh"`
}

type RefreshResponse struct {
	Access string `json:"access"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}
