package record

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

const patientConstraint = "patient_records_patient_id_fkey"

type recordRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &recordRepoPG{pool: pool}
}

func (r *recordRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const recordSelect = `
	SELECT r.id, r.patient_id, p.department_id, p.user_id, r.created_date,
	       r.diagnostics, r.observations, r.treatments, r.misc
	FROM patient_records r
	JOIN patients p ON p.id = r.patient_id`

func (r *recordRepoPG) Create(ctx context.Context, rec *Record) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO patient_records (patient_id, diagnostics, observations, treatments, misc)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		rec.PatientID, rec.Diagnostics, rec.Observations, rec.Treatments, rec.Misc,
	).Scan(&rec.ID)
	if err != nil {
		return mapWriteError(err, rec)
	}
	return r.reload(ctx, rec)
}

func (r *recordRepoPG) GetByID(ctx context.Context, id int64) (*Record, error) {
	return scanRecord(r.conn(ctx).QueryRow(ctx, recordSelect+` WHERE r.id = $1`, id))
}

// Update writes the mutable columns. created_date is never touched.
func (r *recordRepoPG) Update(ctx context.Context, rec *Record) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient_records
		 SET patient_id = $2, diagnostics = $3, observations = $4, treatments = $5, misc = $6
		 WHERE id = $1`,
		rec.ID, rec.PatientID, rec.Diagnostics, rec.Observations, rec.Treatments, rec.Misc)
	if err != nil {
		return mapWriteError(err, rec)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return r.reload(ctx, rec)
}

func (r *recordRepoPG) reload(ctx context.Context, rec *Record) error {
	saved, err := r.GetByID(ctx, rec.ID)
	if err != nil {
		return err
	}
	*rec = *saved
	return nil
}

func (r *recordRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *recordRepoPG) List(ctx context.Context, scope authz.Scope, page pagination.Params) ([]*Record, int, error) {
	where, args := db.ScopeFilter(scope, "p.department_id", "p.user_id", 1)

	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient_records r JOIN patients p ON p.id = r.patient_id WHERE `+where,
		args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	n := len(args)
	args = append(args, page.LimitArg(), page.Offset)
	rows, err := r.conn(ctx).Query(ctx,
		recordSelect+` WHERE `+where+fmt.Sprintf(` ORDER BY r.id LIMIT $%d OFFSET $%d`, n+1, n+2), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	return records, total, nil
}

func mapWriteError(err error, rec *Record) error {
	if db.IsForeignKeyViolation(err, patientConstraint) {
		return validation.New("patient", validation.InvalidPK(rec.PatientID))
	}
	return fmt.Errorf("write record: %w", err)
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.DepartmentID, &rec.PatientUserID, &rec.CreatedDate,
		&rec.Diagnostics, &rec.Observations, &rec.Treatments, &rec.Misc)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &rec, nil
}
