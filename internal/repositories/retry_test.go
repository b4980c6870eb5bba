package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
)

type countingMetrics struct {
	mu           sync.Mutex
	commits      int
	retried      int
	exhausted    int
	insufficient int
}

func (m *countingMetrics) ObserveCommit(string, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits++
}

func (m *countingMetrics) ConflictRetried(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retried++
}

func (m *countingMetrics) ConflictExhausted(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exhausted++
}

func (m *countingMetrics) InsufficientBalance(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insufficient++
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "sqlmock"), mock
}

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{MaxRetries: maxRetries, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func execStep(ctx context.Context) func(tx *sqlx.Tx) (int, error) {
	return func(tx *sqlx.Tx) (int, error) {
		_, err := tx.ExecContext(ctx, "UPDATE ledger_accounts SET balance = 1")
		return 1, err
	}
}

func TestIsConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"VersionConflict", errVersionConflict, true},
		{"WrappedVersionConflict", errors.Join(errors.New("ctx"), errVersionConflict), true},
		{"SerializationFailure", &pgconn.PgError{Code: pgSerializationFailure}, true},
		{"Deadlock", &pgconn.PgError{Code: pgDeadlockDetected}, true},
		{"UniqueViolation", &pgconn.PgError{Code: pgUniqueViolation}, true},
		{"CheckViolation", &pgconn.PgError{Code: "23514"}, false},
		{"Insufficient", models.ErrInsufficientBalance, false},
		{"Nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isConflict(tt.err))
		})
	}
}

func TestNormalizeRetryConfig(t *testing.T) {
	cfg := normalizeRetryConfig(RetryConfig{MaxRetries: -1, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Millisecond})
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.BaseDelay)
	assert.Equal(t, 50*time.Millisecond, cfg.MaxDelay)

	cfg = normalizeRetryConfig(RetryConfig{})
	assert.Equal(t, 10*time.Millisecond, cfg.BaseDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.MaxDelay)
}

func TestRunSerializable_RetriesConflictThenCommits(t *testing.T) {
	db, mock := newMockDB(t)
	metrics := &countingMetrics{}
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE ledger_accounts").WillReturnError(&pgconn.PgError{Code: pgSerializationFailure})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE ledger_accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := runSerializable(ctx, db, fastRetry(3), metrics, "test", execStep(ctx))
	assert.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Equal(t, 1, metrics.retried)
	assert.Equal(t, 1, metrics.commits)
	assert.Equal(t, 0, metrics.exhausted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunSerializable_ExhaustedReturnsConflict(t *testing.T) {
	db, mock := newMockDB(t)
	metrics := &countingMetrics{}
	ctx := context.Background()

	// MaxRetries 2 means three attempts in total.
	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE ledger_accounts").WillReturnError(&pgconn.PgError{Code: pgDeadlockDetected})
		mock.ExpectRollback()
	}

	_, err := runSerializable(ctx, db, fastRetry(2), metrics, "test", execStep(ctx))
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Equal(t, 2, metrics.retried)
	assert.Equal(t, 1, metrics.exhausted)
	assert.Equal(t, 0, metrics.commits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunSerializable_NonConflictIsNotRetried(t *testing.T) {
	db, mock := newMockDB(t)
	metrics := &countingMetrics{}
	ctx := context.Background()
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE ledger_accounts").WillReturnError(boom)
	mock.ExpectRollback()

	_, err := runSerializable(ctx, db, fastRetry(3), metrics, "test", execStep(ctx))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, metrics.retried)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunSerializable_CommitFailureIsRetried(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE ledger_accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	// A failed commit already ends the transaction, so no rollback reaches the driver.
	mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: pgSerializationFailure})
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE ledger_accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := runSerializable(ctx, db, fastRetry(1), nopMetrics{}, "test", execStep(ctx))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func accountRows(ref models.AccountRef, balance string, version int64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"wallet_kind", "owner_id", "currency", "balance", "version", "created_at", "updated_at"}).
		AddRow(string(ref.Kind), ref.OwnerID.String(), "USD", balance, version, now, now)
}

func TestLedgerWriter_Mutate_InsufficientBalanceRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	metrics := &countingMetrics{}
	repo := NewLedgerWriterRepository(db, WithRetryConfig(fastRetry(3)), WithMetrics(metrics))
	ref := models.AccountRef{Kind: models.WalletGuest, OwnerID: uuid.New()}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ledger_accounts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM ledger_accounts").WillReturnRows(accountRows(ref, "10.00", 3))
	mock.ExpectRollback()

	_, err := repo.Mutate(context.Background(), models.MutationRequest{
		Account:  ref,
		Currency: "USD",
		Delta:    decimal.RequireFromString("-25.00"),
		Type:     models.TxWithdraw,
	})
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)
	assert.Equal(t, 1, metrics.insufficient)
	assert.Equal(t, 0, metrics.retried)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerWriter_Mutate_VersionMovedIsRetried(t *testing.T) {
	db, mock := newMockDB(t)
	metrics := &countingMetrics{}
	repo := NewLedgerWriterRepository(db, WithRetryConfig(fastRetry(3)), WithMetrics(metrics))
	ref := models.AccountRef{Kind: models.WalletGuest, OwnerID: uuid.New()}

	// First attempt: the version changed under us.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ledger_accounts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM ledger_accounts").WillReturnRows(accountRows(ref, "10.00", 3))
	mock.ExpectExec("UPDATE ledger_accounts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	// Second attempt succeeds against the fresh state.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ledger_accounts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM ledger_accounts").WillReturnRows(accountRows(ref, "15.00", 4))
	mock.ExpectExec("UPDATE ledger_accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO ledger_transactions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := repo.Mutate(context.Background(), models.MutationRequest{
		Account:  ref,
		Currency: "USD",
		Delta:    decimal.RequireFromString("5.00"),
		Type:     models.TxTopUp,
		Method:   "card",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.retried)
	assert.Equal(t, int64(5), res.Transaction.Seq)
	assert.Equal(t, int64(5), res.Account.Version)
	assert.True(t, decimal.RequireFromString("20.00").Equal(res.Transaction.BalanceAfter))
	assert.True(t, decimal.RequireFromString("20.00").Equal(res.Account.Balance))
	assert.False(t, res.Replayed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerWriter_RejectsMalformedRequests(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerWriterRepository(db)
	ref := models.AccountRef{Kind: models.WalletGuest, OwnerID: uuid.New()}

	_, err := repo.Mutate(context.Background(), models.MutationRequest{Account: ref, Delta: decimal.Zero})
	assert.Error(t, err)

	_, err = repo.Transfer(context.Background(), models.TransferRequest{From: ref, To: ref, Amount: decimal.NewFromInt(1)})
	assert.Error(t, err)

	_, err = repo.Transfer(context.Background(), models.TransferRequest{
		From:   ref,
		To:     models.AccountRef{Kind: models.WalletGuest, OwnerID: uuid.New()},
		Amount: decimal.NewFromInt(-1),
	})
	assert.Error(t, err)

	// Nothing reached the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrefixed(t *testing.T) {
	assert.Equal(t, "t.a, t.b, t.c", prefixed("t.", "a, b,\n\tc"))
}
