// Package repository provides SQL persistence for users, counters and labels.
// Queries use $n placeholders, which both lib/pq and modernc sqlite accept.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/models"
)

// AuthRepository stores accounts and their preferences.
type AuthRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewAuthRepository creates a new AuthRepository with the given database connection.
func NewAuthRepository(db *sql.DB) *AuthRepository {
	return &AuthRepository{DB: db}
}

// isUniqueViolation reports whether err is a unique constraint failure of either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// CreateUser inserts u. A taken email yields ErrEmailInUse.
func (r *AuthRepository) CreateUser(ctx context.Context, u models.User) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, theme, language, default_view, created_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, u.ID, u.Email, u.DisplayName, u.PasswordHash,
		u.Preferences.Theme, u.Preferences.Language, u.Preferences.DefaultView,
		u.CreatedAt, u.LastLoginAt)
	if isUniqueViolation(err) {
		return domainerrors.ErrEmailInUse.WithCause(err)
	}
	if err != nil {
		return fmt.Errorf("CreateUser: %w", err)
	}
	return nil
}

const selectUser = `
		SELECT id, email, display_name, password_hash, theme, language, default_view, created_at, last_login_at
		  FROM users`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash,
		&u.Preferences.Theme, &u.Preferences.Language, &u.Preferences.DefaultView,
		&u.CreatedAt, &u.LastLoginAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// GetUserByEmail looks an account up by its sign-in address.
func (r *AuthRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, selectUser+` WHERE email = $1`, email))
}

// GetUserByID looks an account up by id.
func (r *AuthRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, selectUser+` WHERE id = $1`, id))
}

// TouchLastLogin stamps the sign-in time.
func (r *AuthRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id)
	return err
}

// GetPreferences returns the preferences of user id.
func (r *AuthRepository) GetPreferences(ctx context.Context, id string) (models.Preferences, error) {
	var p models.Preferences
	err := r.DB.QueryRowContext(ctx,
		`SELECT theme, language, default_view FROM users WHERE id = $1`, id,
	).Scan(&p.Theme, &p.Language, &p.DefaultView)
	if errors.Is(err, sql.ErrNoRows) {
		return p, domainerrors.ErrUserNotFound
	}
	if err != nil {
		return p, fmt.Errorf("GetPreferences: %w", err)
	}
	return p, nil
}

// UpdatePreferences overwrites the preferences of user id.
func (r *AuthRepository) UpdatePreferences(ctx context.Context, id string, p models.Preferences) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET theme = $1, language = $2, default_view = $3 WHERE id = $4`,
		p.Theme, p.Language, p.DefaultView, id)
	if err != nil {
		return fmt.Errorf("UpdatePreferences: %w", err)
	}
	return requireRow(res, domainerrors.ErrUserNotFound)
}

// requireRow turns an update that matched nothing into missing.
func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
