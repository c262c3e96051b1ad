package doctor

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
	userConstraint       = "doctors_user_id_key"
	roleConstraint       = "doctors_role_check"
	departmentConstraint = "doctors_department_id_fkey"
)

type doctorRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &doctorRepoPG{pool: pool}
}

func (r *doctorRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const doctorSelect = `
	SELECT d.id, d.user_id, d.department_id,
	       u.id, u.username, u.email, u.role = 'patient', u.role = 'doctor'
	FROM doctors d
	JOIN users u ON u.id = d.user_id`

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO doctors (user_id, department_id) VALUES ($1, $2) RETURNING id`,
		d.UserID, d.DepartmentID,
	).Scan(&d.ID)
	if err != nil {
		return mapWriteError(err, d)
	}
	saved, err := r.GetByID(ctx, d.ID)
	if err != nil {
		return err
	}
	*d = *saved
	return nil
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id int64) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, doctorSelect+` WHERE d.id = $1`, id))
}

func (r *doctorRepoPG) GetByUserID(ctx context.Context, userID int64) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, doctorSelect+` WHERE d.user_id = $1`, userID))
}

func (r *doctorRepoPG) GetByIDs(ctx context.Context, ids []int64) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx, doctorSelect+` WHERE d.id = ANY($1) ORDER BY d.id FOR UPDATE OF d`, ids)
	if err != nil {
		return nil, fmt.Errorf("query doctors: %w", err)
	}
	return collectDoctors(rows)
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctors SET department_id = $2 WHERE id = $1`, d.ID, d.DepartmentID)
	if err != nil {
		return mapWriteError(err, d)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *doctorRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete doctor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *doctorRepoPG) List(ctx context.Context, scope authz.Scope, page pagination.Params) ([]*Doctor, int, error) {
	where, args := db.ScopeFilter(scope, "d.department_id", "d.user_id", 1)

	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors d WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count doctors: %w", err)
	}

	n := len(args)
	args = append(args, page.LimitArg(), page.Offset)
	rows, err := r.conn(ctx).Query(ctx,
		doctorSelect+` WHERE `+where+fmt.Sprintf(` ORDER BY d.id LIMIT $%d OFFSET $%d`, n+1, n+2), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list doctors: %w", err)
	}
	doctors, err := collectDoctors(rows)
	if err != nil {
		return nil, 0, err
	}
	return doctors, total, nil
}

func (r *doctorRepoPG) ListByDepartment(ctx context.Context, departmentID int64) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx, doctorSelect+` WHERE d.department_id = $1 ORDER BY d.id`, departmentID)
	if err != nil {
		return nil, fmt.Errorf("list department doctors: %w", err)
	}
	return collectDoctors(rows)
}

func (r *doctorRepoPG) SetDepartment(ctx context.Context, ids []int64, departmentID int64) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctors SET department_id = $1 WHERE id = ANY($2)`, departmentID, ids)
	if err != nil {
		return fmt.Errorf("move doctors: %w", err)
	}
	return nil
}

func mapWriteError(err error, d *Doctor) error {
	switch {
	case db.IsUniqueViolation(err, userConstraint):
		return validation.New("user", msgProfileExists)
	case db.IsForeignKeyViolation(err, departmentConstraint):
		return validation.New("department", validation.InvalidPK(d.DepartmentID))
	case db.IsCheckViolation(err, roleConstraint):
		return validation.New("user", msgNotDoctor)
	}
	return fmt.Errorf("write doctor: %w", err)
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.DepartmentID,
		&d.User.ID, &d.User.Username, &d.User.Email, &d.User.IsPatient, &d.User.IsDoctor)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &d, nil
}

func collectDoctors(rows pgx.Rows) ([]*Doctor, error) {
	defer rows.Close()

	doctors := []*Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, d)
	}
	return doctors, rows.Err()
}
