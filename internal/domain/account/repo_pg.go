package account

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medapi/medapi/internal/platform/authz"
	"github.com/medapi/medapi/internal/platform/db"
	"github.com/medapi/medapi/internal/platform/validation"
)

const usernameConstraint = "users_username_key"

type userRepoPG struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

func (r *userRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const userColumns = `id, username, email, password_hash, role, date_joined`

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, date_joined`,
		u.Username, u.Email, u.PasswordHash, string(u.Role),
	).Scan(&u.ID, &u.DateJoined)
	if db.IsUniqueViolation(err, usernameConstraint) {
		return validation.New("username", msgUsernameTaken)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepoPG) GetByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (r *userRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *userRepoPG) LoadPrincipal(ctx context.Context, id int64) (authz.Principal, error) {
	var (
		p    authz.Principal
		role string
	)
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT u.id, u.username, u.role, COALESCE(d.department_id, pt.department_id)
		FROM users u
		LEFT JOIN doctors d ON d.user_id = u.id
		LEFT JOIN patients pt ON pt.user_id = u.id
		WHERE u.id = $1`, id,
	).Scan(&p.UserID, &p.Username, &role, &p.DepartmentID)
	if err != nil {
		return authz.Principal{}, db.NotFound(err)
	}
	if p.Role, err = authz.ParseRole(role); err != nil {
		return authz.Principal{}, err
	}
	return p, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u    User
		role string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.DateJoined); err != nil {
		return nil, db.NotFound(err)
	}
	var err error
	if u.Role, err = authz.ParseRole(role); err != nil {
		return nil, err
	}
	return &u, nil
}
