package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"donorhub/internal/auth/models"
	"donorhub/internal/platform/postgres"
	id "donorhub/pkg/domain"
	"donorhub/pkg/platform/sentinel"
)

// PostgresStore persists accounts in PostgreSQL. The users_email_key unique
// index on lower(email) is the source of truth for uniqueness.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, email, password_hash, role, is_active, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID.String(), user.Email, user.PasswordHash, string(user.Role), user.IsActive, user.CreatedAt, user.UpdatedAt)
	return postgres.TranslateWriteError("create user", err)
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID.String())
	return scanUser(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) Update(ctx context.Context, user *models.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = $2, password_hash = $3, role = $4, is_active = $5, updated_at = $6
		WHERE id = $1
	`, user.ID.String(), user.Email, user.PasswordHash, string(user.Role), user.IsActive, user.UpdatedAt)
	if err != nil {
		return postgres.TranslateWriteError("update user", err)
	}
	return requireAffected(res, "update user")
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID.String())
	if err != nil {
		return postgres.TranslateDeleteError("delete user", err)
	}
	return requireAffected(res, "delete user")
}

func (s *PostgresStore) ExistsWithRole(ctx context.Context, role id.Role) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)`, string(role)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	return exists, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u      models.User
		userID string
		role   string
	)
	err := row.Scan(&userID, &u.Email, &u.PasswordHash, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("scan user id: %w", err)
	}
	u.ID = parsed
	u.Role = id.Role(role)
	return &u, nil
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
