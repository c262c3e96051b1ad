package patient

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medapi/medapi/internal/platform/authz"
	"github.com/medapi/medapi/internal/platform/db"
	"github.com/medapi/medapi/internal/platform/validation"
	"github.com/medapi/medapi/pkg/pagination"
)

const (
	userConstraint       = "patients_user_id_key"
	roleConstraint       = "patients_role_check"
	departmentConstraint = "patients_department_id_fkey"
)

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientSelect = `
	SELECT p.id, p.user_id, p.department_id,
	       u.id, u.username, u.email, u.role = 'patient', u.role = 'doctor'
	FROM patients p
	JOIN users u ON u.id = p.user_id`

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO patients (user_id, department_id) VALUES ($1, $2) RETURNING id`,
		p.UserID, p.DepartmentID,
	).Scan(&p.ID)
	if err != nil {
		return mapWriteError(err, p)
	}
	saved, err := r.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = *saved
	return nil
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, patientSelect+` WHERE p.id = $1`, id))
}

func (r *patientRepoPG) GetByUserID(ctx context.Context, userID int64) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, patientSelect+` WHERE p.user_id = $1`, userID))
}

// GetByIDs locks the selected rows; call it inside a transaction.
func (r *patientRepoPG) GetByIDs(ctx context.Context, ids []int64) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, patientSelect+` WHERE p.id = ANY($1) ORDER BY p.id FOR UPDATE OF p`, ids)
	if err != nil {
		return nil, fmt.Errorf("query patients: %w", err)
	}
	return collectPatients(rows)
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET department_id = $2 WHERE id = $1`, p.ID, p.DepartmentID)
	if err != nil {
		return mapWriteError(err, p)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, scope authz.Scope, page pagination.Params) ([]*Patient, int, error) {
	where, args := db.ScopeFilter(scope, "p.department_id", "p.user_id", 1)

	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients p WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	n := len(args)
	args = append(args, page.LimitArg(), page.Offset)
	rows, err := r.conn(ctx).Query(ctx,
		patientSelect+` WHERE `+where+fmt.Sprintf(` ORDER BY p.id LIMIT $%d OFFSET $%d`, n+1, n+2), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	patients, err := collectPatients(rows)
	if err != nil {
		return nil, 0, err
	}
	return patients, total, nil
}

func (r *patientRepoPG) ListByDepartment(ctx context.Context, departmentID int64) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, patientSelect+` WHERE p.department_id = $1 ORDER BY p.id`, departmentID)
	if err != nil {
		return nil, fmt.Errorf("list department patients: %w", err)
	}
	return collectPatients(rows)
}

func (r *patientRepoPG) SetDepartment(ctx context.Context, ids []int64, departmentID int64) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET department_id = $1 WHERE id = ANY($2)`, departmentID, ids)
	if err != nil {
		return fmt.Errorf("move patients: %w", err)
	}
	return nil
}

func mapWriteError(err error, p *Patient) error {
	switch {
	case db.IsUniqueViolation(err, userConstraint):
		return validation.New("user", msgProfileExists)
	case db.IsForeignKeyViolation(err, departmentConstraint):
		return validation.New("department", validation.InvalidPK(p.DepartmentID))
	case db.IsCheckViolation(err, roleConstraint):
		return validation.New("user", msgNotPatient)
	}
	return fmt.Errorf("write patient: %w", err)
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UserID, &p.DepartmentID,
		&p.User.ID, &p.User.Username, &p.User.Email, &p.User.IsPatient, &p.User.IsDoctor)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &p, nil
}

func collectPatients(rows pgx.Rows) ([]*Patient, error) {
	defer rows.Close()

	patients := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}
