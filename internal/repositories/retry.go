package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/logger"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
)

// Postgres error codes that mean another writer won the race.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// errVersionConflict is returned when the account version moved between read and write.
var errVersionConflict = errors.New("account version changed")

// RetryConfig bounds the transparent retry of conflicting atomic steps.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig returns the retry bounds used when none are configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 5,
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   250 * time.Millisecond,
	}
}

func normalizeRetryConfig(cfg RetryConfig) RetryConfig {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 10 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 250 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	return cfg
}

// isConflict reports whether err is a write-write race that a fresh attempt may resolve.
func isConflict(err error) bool {
	if errors.Is(err, errVersionConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgUniqueViolation:
			return true
		}
	}
	return false
}

func newConflictRetryPolicy[T any](cfg RetryConfig) retrypolicy.RetryPolicy[T] {
	return retrypolicy.NewBuilder[T]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ T, err error) bool {
			return isConflict(err)
		}).
		ReturnLastFailure().
		Build()
}

// Metrics receives counters about the atomic step.
type Metrics interface {
	ObserveCommit(op string, d time.Duration)
	ConflictRetried(op string)
	ConflictExhausted(op string)
	InsufficientBalance(op string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveCommit(string, time.Duration) {}

func (nopMetrics) ConflictRetried(string) {}

func (nopMetrics) ConflictExhausted(string) {}

func (nopMetrics) InsufficientBalance(string) {}

// runSerializable executes fn in a serializable transaction, starting over from a
// fresh transaction whenever a conflict is detected, up to the configured bound.
func runSerializable[T any](
	ctx context.Context,
	db *sqlx.DB,
	cfg RetryConfig,
	metrics Metrics,
	op string,
	fn func(tx *sqlx.Tx) (T, error),
) (T, error) {
	attempts := 0
	start := time.Now()

	result, err := failsafe.With[T](newConflictRetryPolicy[T](cfg)).WithContext(ctx).Get(func() (T, error) {
		attempts++
		if attempts > 1 {
			metrics.ConflictRetried(op)
			logger.Log.Warnw("retrying atomic step after conflict", "op", op, "attempt", attempts)
		}
		return inSerializableTx(ctx, db, fn)
	})
	if err != nil {
		switch {
		case isConflict(err):
			metrics.ConflictExhausted(op)
			logger.Log.Errorw("atomic step conflict, retries exhausted", "op", op, "attempts", attempts, "error", err)
			var zero T
			return zero, fmt.Errorf("%s: %w", op, models.ErrConflict)
		case errors.Is(err, models.ErrInsufficientBalance):
			metrics.InsufficientBalance(op)
		}
		var zero T
		return zero, err
	}

	metrics.ObserveCommit(op, time.Since(start))
	return result, nil
}

func inSerializableTx[T any](ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) (T, error)) (result T, err error) {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return result, fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			_ = tx.Rollback()
			panic(rec)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err = fn(tx)
	if err != nil {
		return result, err
	}

	if err = tx.Commit(); err != nil {
		return result, fmt.Errorf("commit transaction: %w", err)
	}
	return result, nil
}
