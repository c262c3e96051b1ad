package department

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medapi/medapi/internal/platform/authz"
	"github.com/medapi/medapi/internal/platform/db"
	"github.com/medapi/medapi/pkg/pagination"
)

type departmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &departmentRepoPG{pool: pool}
}

func (r *departmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const departmentColumns = `id, name, diagnostics, location, specialization`

func (r *departmentRepoPG) Create(ctx context.Context, d *Department) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO departments (name, diagnostics, location, specialization)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		d.Name, d.Diagnostics, d.Location, d.Specialization,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("insert department: %w", err)
	}
	return nil
}

func (r *departmentRepoPG) GetByID(ctx context.Context, id int64) (*Department, error) {
	return scanDepartment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+departmentColumns+` FROM departments WHERE id = $1`, id))
}

func (r *departmentRepoPG) Update(ctx context.Context, d *Department) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE departments SET name = $2, diagnostics = $3, location = $4, specialization = $5
		 WHERE id = $1`,
		d.ID, d.Name, d.Diagnostics, d.Location, d.Specialization)
	if err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// Delete removes the department. Its doctors, patients and their records go
// with it through ON DELETE CASCADE.
func (r *departmentRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *departmentRepoPG) List(ctx context.Context, scope authz.Scope, page pagination.Params) ([]*Department, int, error) {
	where, args := db.ScopeFilter(scope, "id", "NULL", 1)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM departments WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count departments: %w", err)
	}

	n := len(args)
	args = append(args, page.LimitArg(), page.Offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+departmentColumns+` FROM departments WHERE `+where+
			fmt.Sprintf(` ORDER BY id LIMIT $%d OFFSET $%d`, n+1, n+2), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	departments := []*Department{}
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, 0, err
		}
		departments = append(departments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list departments: %w", err)
	}
	return departments, total, nil
}

func (r *departmentRepoPG) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM departments WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check department: %w", err)
	}
	return ok, nil
}

func scanDepartment(row pgx.Row) (*Department, error) {
	var d Department
	if err := row.Scan(&d.ID, &d.Name, &d.Diagnostics, &d.Location, &d.Specialization); err != nil {
		return nil, db.NotFound(err)
	}
	return &d, nil
}
