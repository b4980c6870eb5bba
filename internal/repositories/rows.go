package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
)

const accountColumns = `wallet_kind, owner_id, currency, balance, version, created_at, updated_at`

const transactionColumns = `transaction_id, wallet_kind, owner_id, seq, tx_type, delta, amount, status,
	method, note, counterparty_kind, counterparty_id, counterparty_label, shared_id,
	balance_after, booking_id, metadata, idempotency_key, created_at`

// transactionRow is the flat database shape of a ledger entry.
type transactionRow struct {
	ID                uuid.UUID       `db:"transaction_id"`
	Kind              string          `db:"wallet_kind"`
	OwnerID           uuid.UUID       `db:"owner_id"`
	Seq               int64           `db:"seq"`
	Type              string          `db:"tx_type"`
	Delta             decimal.Decimal `db:"delta"`
	Amount            decimal.Decimal `db:"amount"`
	Status            string          `db:"status"`
	Method            string          `db:"method"`
	Note              string          `db:"note"`
	CounterpartyKind  sql.NullString  `db:"counterparty_kind"`
	CounterpartyID    uuid.NullUUID   `db:"counterparty_id"`
	CounterpartyLabel sql.NullString  `db:"counterparty_label"`
	SharedID          uuid.NullUUID   `db:"shared_id"`
	BalanceAfter      decimal.Decimal `db:"balance_after"`
	BookingID         sql.NullString  `db:"booking_id"`
	Metadata          models.Metadata `db:"metadata"`
	IdempotencyKey    sql.NullString  `db:"idempotency_key"`
	CreatedAt         time.Time       `db:"created_at"`
}

func (r transactionRow) toModel() models.Transaction {
	t := models.Transaction{
		ID:           r.ID,
		Kind:         models.WalletKind(r.Kind),
		OwnerID:      r.OwnerID,
		Seq:          r.Seq,
		Type:         models.TransactionType(r.Type),
		Delta:        r.Delta,
		Amount:       r.Amount,
		Status:       models.TransactionStatus(r.Status),
		Method:       r.Method,
		Note:         r.Note,
		BalanceAfter: r.BalanceAfter,
		Metadata:     r.Metadata,
		CreatedAt:    r.CreatedAt,
	}
	if r.CounterpartyID.Valid {
		t.Counterparty = &models.Counterparty{
			Kind:    models.WalletKind(r.CounterpartyKind.String),
			OwnerID: r.CounterpartyID.UUID,
			Label:   r.CounterpartyLabel.String,
		}
	}
	if r.SharedID.Valid {
		id := r.SharedID.UUID
		t.SharedID = &id
	}
	if r.BookingID.Valid {
		b := r.BookingID.String
		t.BookingID = &b
	}
	if r.IdempotencyKey.Valid {
		k := r.IdempotencyKey.String
		t.IdempotencyKey = &k
	}
	return t
}

// insertArgs returns the values for transactionColumns in order.
func insertArgs(t models.Transaction) []any {
	var (
		cpKind  sql.NullString
		cpID    uuid.NullUUID
		cpLabel sql.NullString
		shared  uuid.NullUUID
		booking sql.NullString
		idemKey sql.NullString
	)
	if t.Counterparty != nil {
		cpKind = sql.NullString{String: string(t.Counterparty.Kind), Valid: true}
		cpID = uuid.NullUUID{UUID: t.Counterparty.OwnerID, Valid: true}
		cpLabel = sql.NullString{String: t.Counterparty.Label, Valid: t.Counterparty.Label != ""}
	}
	if t.SharedID != nil {
		shared = uuid.NullUUID{UUID: *t.SharedID, Valid: true}
	}
	if t.BookingID != nil {
		booking = sql.NullString{String: *t.BookingID, Valid: true}
	}
	if t.IdempotencyKey != nil {
		idemKey = sql.NullString{String: *t.IdempotencyKey, Valid: true}
	}
	return []any{
		t.ID, string(t.Kind), t.OwnerID, t.Seq, string(t.Type), t.Delta, t.Amount, string(t.Status),
		t.Method, t.Note, cpKind, cpID, cpLabel, shared,
		t.BalanceAfter, booking, t.Metadata, idemKey, t.CreatedAt,
	}
}
