package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
)

// LedgerWriterRepository is the only write path to balances and ledger entries.
// Every operation runs as one serializable transaction and is retried as a whole
// when a concurrent writer invalidates it.
type LedgerWriterRepository struct {
	db      *sqlx.DB
	retry   RetryConfig
	metrics Metrics
	now     func() time.Time
}

// LedgerWriterOption configures a LedgerWriterRepository.
type LedgerWriterOption func(*LedgerWriterRepository)

// WithRetryConfig overrides the conflict retry bounds.
func WithRetryConfig(cfg RetryConfig) LedgerWriterOption {
	return func(r *LedgerWriterRepository) {
		r.retry = normalizeRetryConfig(cfg)
	}
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) LedgerWriterOption {
	return func(r *LedgerWriterRepository) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithClock overrides the time source used for entry timestamps.
func WithClock(now func() time.Time) LedgerWriterOption {
	return func(r *LedgerWriterRepository) {
		r.now = now
	}
}

func NewLedgerWriterRepository(db *sqlx.DB, opts ...LedgerWriterOption) *LedgerWriterRepository {
	r := &LedgerWriterRepository{
		db:      db,
		retry:   DefaultRetryConfig(),
		metrics: nopMetrics{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mutate changes one account balance by req.Delta and appends exactly one matching
// ledger entry carrying the resulting balance. The account is created at zero
// balance inside the same step when absent.
func (r *LedgerWriterRepository) Mutate(ctx context.Context, req models.MutationRequest) (*models.MutationResult, error) {
	if req.Delta.IsZero() {
		return nil, errors.New("mutation delta must be non-zero")
	}
	return runSerializable(ctx, r.db, r.retry, r.metrics, "mutate", func(tx *sqlx.Tx) (*models.MutationResult, error) {
		return r.mutate(ctx, tx, req)
	})
}

func (r *LedgerWriterRepository) mutate(ctx context.Context, tx *sqlx.Tx, req models.MutationRequest) (*models.MutationResult, error) {
	if req.IdempotencyKey != "" {
		prev, err := findByIdempotencyKey(ctx, tx, req.Account, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			if prev.Type != req.Type || !prev.Delta.Equal(req.Delta) {
				return nil, reusedKey(req.IdempotencyKey, prev)
			}
			acc, err := selectAccount(ctx, tx, req.Account)
			if err != nil {
				return nil, err
			}
			return &models.MutationResult{Transaction: *prev, Account: *acc, Replayed: true}, nil
		}
	}

	now := r.now()
	acc, err := ensureAccount(ctx, tx, req.Account, req.Currency, now)
	if err != nil {
		return nil, err
	}

	newBalance := acc.Balance.Add(req.Delta)
	if req.Delta.IsNegative() && newBalance.IsNegative() {
		return nil, fmt.Errorf("%s has %s, needs %s: %w",
			req.Account, acc.Balance.StringFixed(2), req.Delta.Abs().StringFixed(2), models.ErrInsufficientBalance)
	}

	entry := models.Transaction{
		ID:           uuid.New(),
		Kind:         req.Account.Kind,
		OwnerID:      req.Account.OwnerID,
		Seq:          acc.Version + 1,
		Type:         req.Type,
		Delta:        req.Delta,
		Amount:       req.Delta.Abs(),
		Status:       models.StatusCompleted,
		Method:       req.Method,
		Note:         req.Note,
		BalanceAfter: newBalance,
		BookingID:    req.BookingID,
		Metadata:     req.Metadata,
		CreatedAt:    now,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		entry.IdempotencyKey = &key
	}

	if err := advanceAccount(ctx, tx, acc, newBalance, now); err != nil {
		return nil, err
	}
	if err := insertTransaction(ctx, tx, entry); err != nil {
		return nil, err
	}
	if req.IdempotencyKey != "" {
		if err := insertIdempotencyKey(ctx, tx, req.Account, req.IdempotencyKey, entry.ID, now); err != nil {
			return nil, err
		}
	}

	return &models.MutationResult{Transaction: entry, Account: *acc}, nil
}

// Transfer debits req.From and credits req.To by req.Amount as one atomic unit.
// Both entries share one correlation id; the four writes commit together or not at all.
func (r *LedgerWriterRepository) Transfer(ctx context.Context, req models.TransferRequest) (*models.TransferResult, error) {
	if !req.Amount.IsPositive() {
		return nil, errors.New("transfer amount must be positive")
	}
	if req.From == req.To {
		return nil, errors.New("transfer source and destination must differ")
	}
	return runSerializable(ctx, r.db, r.retry, r.metrics, "transfer", func(tx *sqlx.Tx) (*models.TransferResult, error) {
		return r.transfer(ctx, tx, req)
	})
}

func (r *LedgerWriterRepository) transfer(ctx context.Context, tx *sqlx.Tx, req models.TransferRequest) (*models.TransferResult, error) {
	if req.IdempotencyKey != "" {
		prev, err := findByIdempotencyKey(ctx, tx, req.From, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			if prev.Type != req.OutType || !prev.Amount.Equal(req.Amount) ||
				prev.Counterparty == nil || prev.Counterparty.Ref() != req.To {
				return nil, reusedKey(req.IdempotencyKey, prev)
			}
			return replayTransfer(ctx, tx, req, prev)
		}
	}

	now := r.now()

	// Touch both accounts in key order so concurrent opposite transfers queue instead of deadlocking.
	first, second := req.From, req.To
	if refLess(second, first) {
		first, second = second, first
	}
	accounts := make(map[models.AccountRef]*models.Account, 2)
	for _, ref := range []models.AccountRef{first, second} {
		acc, err := ensureAccount(ctx, tx, ref, req.Currency, now)
		if err != nil {
			return nil, err
		}
		accounts[ref] = acc
	}
	from, to := accounts[req.From], accounts[req.To]

	if from.Balance.LessThan(req.Amount) {
		return nil, fmt.Errorf("%s has %s, needs %s: %w",
			req.From, from.Balance.StringFixed(2), req.Amount.StringFixed(2), models.ErrInsufficientBalance)
	}

	sharedID := uuid.New()
	fromAfter := from.Balance.Sub(req.Amount)
	toAfter := to.Balance.Add(req.Amount)

	out := models.Transaction{
		ID:      uuid.New(),
		Kind:    req.From.Kind,
		OwnerID: req.From.OwnerID,
		Seq:     from.Version + 1,
		Type:    req.OutType,
		Delta:   req.Amount.Neg(),
		Amount:  req.Amount,
		Status:  models.StatusCompleted,
		Method:  req.Method,
		Note:    req.Note,
		Counterparty: &models.Counterparty{
			Kind:    req.To.Kind,
			OwnerID: req.To.OwnerID,
			Label:   req.ToLabel,
		},
		SharedID:     &sharedID,
		BalanceAfter: fromAfter,
		BookingID:    req.BookingID,
		CreatedAt:    now,
	}
	in := models.Transaction{
		ID:      uuid.New(),
		Kind:    req.To.Kind,
		OwnerID: req.To.OwnerID,
		Seq:     to.Version + 1,
		Type:    req.InType,
		Delta:   req.Amount,
		Amount:  req.Amount,
		Status:  models.StatusCompleted,
		Method:  req.Method,
		Note:    req.Note,
		Counterparty: &models.Counterparty{
			Kind:    req.From.Kind,
			OwnerID: req.From.OwnerID,
			Label:   req.FromLabel,
		},
		SharedID:     &sharedID,
		BalanceAfter: toAfter,
		BookingID:    req.BookingID,
		CreatedAt:    now,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		out.IdempotencyKey = &key
	}

	newBalances := map[models.AccountRef]decimal.Decimal{req.From: fromAfter, req.To: toAfter}
	for _, ref := range []models.AccountRef{first, second} {
		if err := advanceAccount(ctx, tx, accounts[ref], newBalances[ref], now); err != nil {
			return nil, err
		}
	}
	for _, entry := range []models.Transaction{out, in} {
		if err := insertTransaction(ctx, tx, entry); err != nil {
			return nil, err
		}
	}
	if req.IdempotencyKey != "" {
		if err := insertIdempotencyKey(ctx, tx, req.From, req.IdempotencyKey, out.ID, now); err != nil {
			return nil, err
		}
	}

	return &models.TransferResult{
		SharedID: sharedID,
		Out:      out,
		In:       in,
		From:     *from,
		To:       *to,
	}, nil
}

func replayTransfer(ctx context.Context, tx *sqlx.Tx, req models.TransferRequest, prev *models.Transaction) (*models.TransferResult, error) {
	if prev.SharedID == nil {
		return nil, reusedKey(req.IdempotencyKey, prev)
	}
	legs, err := selectBySharedID(ctx, tx, *prev.SharedID)
	if err != nil {
		return nil, err
	}
	res := &models.TransferResult{SharedID: *prev.SharedID, Replayed: true}
	for _, leg := range legs {
		if leg.Delta.IsNegative() {
			res.Out = leg
		} else {
			res.In = leg
		}
	}
	from, err := selectAccount(ctx, tx, res.Out.Ref())
	if err != nil {
		return nil, err
	}
	to, err := selectAccount(ctx, tx, res.In.Ref())
	if err != nil {
		return nil, err
	}
	res.From, res.To = *from, *to
	return res, nil
}

// reusedKey reports a key whose recorded entry does not match the retried request.
func reusedKey(key string, prev *models.Transaction) error {
	return fmt.Errorf("key %q recorded %s of %s: %w",
		key, prev.Type, prev.Amount.StringFixed(2), models.ErrIdempotencyKeyReused)
}

func refLess(a, b models.AccountRef) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return strings.Compare(a.OwnerID.String(), b.OwnerID.String()) < 0
}

// ensureAccount creates the account at zero balance when absent and returns its current state.
func ensureAccount(ctx context.Context, tx *sqlx.Tx, ref models.AccountRef, currency string, now time.Time) (*models.Account, error) {
	const insert = `
		INSERT INTO ledger_accounts (wallet_kind, owner_id, currency, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, $4, $4)
		ON CONFLICT (wallet_kind, owner_id) DO NOTHING
	`
	args := []any{string(ref.Kind), ref.OwnerID, currency, now}
	res, err := tx.ExecContext(ctx, insert, args...)
	var created int64
	if res != nil {
		created, _ = res.RowsAffected()
	}
	logQuery(insert, args, created, err)
	if err != nil {
		return nil, err
	}

	acc, err := selectAccount(ctx, tx, ref)
	if err != nil {
		return nil, err
	}
	if currency != "" && acc.Currency != currency {
		return nil, fmt.Errorf("%s holds %s, got %s: %w", ref, acc.Currency, currency, models.ErrCurrencyMismatch)
	}
	return acc, nil
}

func selectAccount(ctx context.Context, tx *sqlx.Tx, ref models.AccountRef) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM ledger_accounts WHERE wallet_kind = $1 AND owner_id = $2`
	args := []any{string(ref.Kind), ref.OwnerID}

	var acc models.Account
	err := tx.GetContext(ctx, &acc, query, args...)
	logQuery(query, args, acc, err)
	if errors.Is(err, sql.ErrNoRows) {
		// Row created by a concurrent transaction outside this snapshot.
		return nil, errVersionConflict
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// advanceAccount writes the new balance only if nobody moved the version since it was read.
func advanceAccount(ctx context.Context, tx *sqlx.Tx, acc *models.Account, newBalance decimal.Decimal, now time.Time) error {
	const query = `
		UPDATE ledger_accounts
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE wallet_kind = $3 AND owner_id = $4 AND version = $5
	`
	args := []any{newBalance, now, string(acc.Kind), acc.OwnerID, acc.Version}
	res, err := tx.ExecContext(ctx, query, args...)
	var affected int64
	if res != nil {
		affected, _ = res.RowsAffected()
	}
	logQuery(query, args, affected, err)
	if err != nil {
		return err
	}
	if affected != 1 {
		return errVersionConflict
	}

	acc.Balance = newBalance
	acc.Version++
	acc.UpdatedAt = now
	return nil
}

func insertTransaction(ctx context.Context, tx *sqlx.Tx, t models.Transaction) error {
	query := `INSERT INTO ledger_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	args := insertArgs(t)
	_, err := tx.ExecContext(ctx, query, args...)
	logQuery(query, args, t.ID, err)
	return err
}

func insertIdempotencyKey(ctx context.Context, tx *sqlx.Tx, ref models.AccountRef, key string, txID uuid.UUID, now time.Time) error {
	const query = `
		INSERT INTO ledger_idempotency_keys (wallet_kind, owner_id, idempotency_key, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	args := []any{string(ref.Kind), ref.OwnerID, key, txID, now}
	_, err := tx.ExecContext(ctx, query, args...)
	logQuery(query, args, txID, err)
	return err
}

// findByIdempotencyKey returns the entry recorded under key, or nil when the key is new.
func findByIdempotencyKey(ctx context.Context, tx *sqlx.Tx, ref models.AccountRef, key string) (*models.Transaction, error) {
	query := `
		SELECT ` + prefixed("t.", transactionColumns) + `
		FROM ledger_idempotency_keys k
		JOIN ledger_transactions t ON t.transaction_id = k.transaction_id
		WHERE k.wallet_kind = $1 AND k.owner_id = $2 AND k.idempotency_key = $3
	`
	args := []any{string(ref.Kind), ref.OwnerID, key}

	var row transactionRow
	err := tx.GetContext(ctx, &row, query, args...)
	logQuery(query, args, row.ID, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t := row.toModel()
	return &t, nil
}

func selectBySharedID(ctx context.Context, q sqlx.QueryerContext, sharedID uuid.UUID) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ledger_transactions WHERE shared_id = $1 ORDER BY delta ASC`
	args := []any{sharedID}

	var rows []transactionRow
	err := sqlx.SelectContext(ctx, q, &rows, query, args...)
	logQuery(query, args, len(rows), err)
	if err != nil {
		return nil, err
	}
	out := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

// prefixed qualifies every column in a comma separated list with p.
func prefixed(p, columns string) string {
	parts := strings.Split(columns, ",")
	for i, c := range parts {
		parts[i] = p + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}
