package directory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the users table the Postgres directory reads. Provisioning owns writes.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	role       TEXT NOT NULL,
	department TEXT NOT NULL DEFAULT '',
	active     BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS users_role_department_idx ON users (role, department) WHERE active;
`

const userColumns = `id, name, email, role, department, active`

// PostgresStore is a read-only Directory over the users table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping reports whether the pool can reach the database.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) FindByIDs(ctx context.Context, ids []string) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}
	// array_position keeps the caller's order
	query := `SELECT ` + userColumns + ` FROM users
		WHERE id = ANY($1)
		ORDER BY array_position($1::text[], id)`
	users, err := s.query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("find users by ids: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) ActiveFacultyByDepartments(ctx context.Context, departments []string) ([]User, error) {
	if len(departments) == 0 {
		return []User{}, nil
	}
	query := `SELECT ` + userColumns + ` FROM users
		WHERE active AND role = $1 AND department = ANY($2)
		ORDER BY name, id`
	users, err := s.query(ctx, query, string(RoleFaculty), departments)
	if err != nil {
		return nil, fmt.Errorf("find faculty by departments: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) ActiveAdmins(ctx context.Context) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE active AND role = $1
		ORDER BY name, id`
	users, err := s.query(ctx, query, string(RoleAdmin))
	if err != nil {
		return nil, fmt.Errorf("find active admins: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		var u User
		var role string
		if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.Department, &u.Active); err != nil {
			return User{}, fmt.Errorf("scan user: %w", err)
		}
		u.Role = Role(role)
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}
