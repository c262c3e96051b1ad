package patient

import (
	"github.com/medapi/medapi/internal/domain/account"
)

// Patient maps to the patients table, joined with its user.
type Patient struct {
	ID           int64           `db:"id" json:"id"`
	UserID       int64           `db:"user_id" json:"-"`
	User         account.Summary `json:"user"`
	DepartmentID int64           `db:"department_id" json:"department"`
}

func (p *Patient) OwnerUserID() int64       { return p.UserID }
func (p *Patient) OwnerDepartmentID() int64 { return p.DepartmentID }
func (p *Patient) ProfileID() int64         { return p.ID }

type CreateRequest struct {
	User       *int64 `json:"user"`
	Department *int64 `json:"department"`
}

type UpdateRequest struct {
	Department *int64 `json:"department"`
}
