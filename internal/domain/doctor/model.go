package doctor

import (
	"github.com/medapi/medapi/internal/domain/account"
)

// Doctor maps to the doctors table, joined with its user.
type Doctor struct {
	ID           int64           `db:"id" json:"id"`
	UserID       int64           `db:"user_id" json:"-"`
	User         account.Summary `json:"user"`
	DepartmentID int64           `db:"department_id" json:"department"`
}

func (d *Doctor) OwnerUserID() int64       { return d.UserID }
func (d *Doctor) OwnerDepartmentID() int64 { return d.DepartmentID }
func (d *Doctor) ProfileID() int64         { return d.ID }

// CreateRequest is the body of POST /doctors/.
type CreateRequest struct {
	User       *int64 `json:"user"`
	Department *int64 `json:"department"`
}

// UpdateRequest is the body of PUT and PATCH /doctors/{id}/. The user of a
// profile cannot be changed.
type UpdateRequest struct {
	Department *int64 `json:"department"`
}

// UpdateResponse wraps an updated doctor.
type UpdateResponse struct {
	Message string  `json:"message"`
	Data    *Doctor `json:"data"`
}
