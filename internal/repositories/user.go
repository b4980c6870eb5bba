package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
)

const userColumns = `user_id, username, email, password_hash, created_at, updated_at`

type UserReadRepository struct {
	db *sqlx.DB
}

func NewUserReadRepository(db *sqlx.DB) *UserReadRepository {
	return &UserReadRepository{db: db}
}

// GetByUsernameOrEmail returns a user whose username equals username or whose
// email equals email (case-insensitively). A nil argument takes no part in the match.
func (r *UserReadRepository) GetByUsernameOrEmail(ctx context.Context, username, email *string) (*models.UserDB, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE ($1::VARCHAR IS NOT NULL AND username = $1)
		   OR ($2::VARCHAR IS NOT NULL AND LOWER(email) = LOWER($2))
		LIMIT 1
	`
	args := []any{username, email}

	var user models.UserDB
	err := r.db.GetContext(ctx, &user, query, args...)
	logQuery(query, args, user.UserID, err)

	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail resolves a recipient email to its user. Emails are compared case-insensitively.
func (r *UserReadRepository) GetByEmail(ctx context.Context, email string) (*models.UserDB, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	args := []any{email}

	var user models.UserDB
	err := r.db.GetContext(ctx, &user, query, args...)
	logQuery(query, args, user.UserID, err)

	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID returns the user with the given id.
func (r *UserReadRepository) GetByID(ctx context.Context, userID uuid.UUID) (*models.UserDB, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	args := []any{userID}

	var user models.UserDB
	err := r.db.GetContext(ctx, &user, query, args...)
	logQuery(query, args, user.UserID, err)

	if err != nil {
		return nil, err
	}
	return &user, nil
}

type UserWriteRepository struct {
	db *sqlx.DB
}

func NewUserWriteRepository(db *sqlx.DB) *UserWriteRepository {
	return &UserWriteRepository{db: db}
}

// Save inserts a new user. An existing username or email (in any letter case)
// yields models.ErrUserAlreadyExists; existing rows are never modified.
func (r *UserWriteRepository) Save(ctx context.Context, username, password, email string) error {
	query := `
		INSERT INTO users (username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`
	args := []any{username, email, password}

	res, err := r.db.ExecContext(ctx, query, args...)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}
	// Password hash stays out of the log.
	logQuery(query, []any{username, email}, rowsAffected, err)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, models.ErrUserAlreadyExists)
	}
	return err
}
