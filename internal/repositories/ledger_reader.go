package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
)

// LedgerReaderRepository handles ledger read operations
type LedgerReaderRepository struct {
	db *sqlx.DB
}

func NewLedgerReaderRepository(db *sqlx.DB) *LedgerReaderRepository {
	return &LedgerReaderRepository{db: db}
}

// GetAccount returns the current account state. An account that was never written
// is reported at zero balance and version 0 rather than as an error.
func (r *LedgerReaderRepository) GetAccount(ctx context.Context, ref models.AccountRef, currency string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM ledger_accounts WHERE wallet_kind = $1 AND owner_id = $2`
	args := []any{string(ref.Kind), ref.OwnerID}

	var acc models.Account
	err := r.db.GetContext(ctx, &acc, query, args...)
	logQuery(query, args, acc, err)

	if errors.Is(err, sql.ErrNoRows) {
		return &models.Account{
			Kind:     ref.Kind,
			OwnerID:  ref.OwnerID,
			Currency: currency,
			Balance:  decimal.Zero,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// ListTransactions returns up to limit entries of one account, newest first.
// When beforeSeq is set only entries with a smaller seq are returned.
func (r *LedgerReaderRepository) ListTransactions(ctx context.Context, ref models.AccountRef, limit int, beforeSeq *int64) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE wallet_kind = $1 AND owner_id = $2
		  AND ($3::BIGINT IS NULL OR seq < $3)
		ORDER BY seq DESC
		LIMIT $4
	`
	args := []any{string(ref.Kind), ref.OwnerID, beforeSeq, limit}
	return r.selectTransactions(ctx, query, args)
}

// ScanTransactions returns every entry of one account in commit order.
func (r *LedgerReaderRepository) ScanTransactions(ctx context.Context, ref models.AccountRef) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE wallet_kind = $1 AND owner_id = $2
		ORDER BY seq ASC
	`
	args := []any{string(ref.Kind), ref.OwnerID}
	return r.selectTransactions(ctx, query, args)
}

// GetTransactionsBySharedID returns both legs of a transfer.
func (r *LedgerReaderRepository) GetTransactionsBySharedID(ctx context.Context, sharedID uuid.UUID) ([]models.Transaction, error) {
	return selectBySharedID(ctx, r.db, sharedID)
}

func (r *LedgerReaderRepository) selectTransactions(ctx context.Context, query string, args []any) ([]models.Transaction, error) {
	var rows []transactionRow
	err := r.db.SelectContext(ctx, &rows, query, args...)
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
