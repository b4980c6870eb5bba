package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the closed set of ledger entry kinds, fixed at write time.
type TransactionType string

// Supported transaction types
const (
	TxTopUp       TransactionType = "topup"
	TxWithdraw    TransactionType = "withdraw"
	TxTransferOut TransactionType = "transfer_out"
	TxTransferIn  TransactionType = "transfer_in"
	TxReward      TransactionType = "reward"
	TxRedemption  TransactionType = "redemption"
	TxServiceFee  TransactionType = "service_fee"
)

// ParseTransactionType validates a transaction type string.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
	return t, nil
}

// Valid reports whether t is one of the supported types.
func (t TransactionType) Valid() bool {
	switch t {
	case TxTopUp, TxWithdraw, TxTransferOut, TxTransferIn, TxReward, TxRedemption, TxServiceFee:
		return true
	}
	return false
}

// IsCredit reports whether entries of this type add to the balance.
func (t TransactionType) IsCredit() bool {
	switch t {
	case TxTopUp, TxTransferIn, TxReward:
		return true
	}
	return false
}

// TransactionStatus is the settlement state of a ledger entry.
type TransactionStatus string

// Supported statuses
const (
	StatusCompleted TransactionStatus = "completed"
	StatusPending   TransactionStatus = "pending"
	StatusFailed    TransactionStatus = "failed"
)

// Counterparty identifies the other side of a transfer.
type Counterparty struct {
	Kind    WalletKind `json:"kind"`
	OwnerID uuid.UUID  `json:"owner_id"`
	Label   string     `json:"label,omitempty"` // Display info, e.g. email
}

// Ref returns the counterparty's account.
func (c Counterparty) Ref() AccountRef {
	return AccountRef{Kind: c.Kind, OwnerID: c.OwnerID}
}

// Transaction is one immutable ledger entry owned by exactly one account.
type Transaction struct {
	ID             uuid.UUID         `json:"id"`
	Kind           WalletKind        `json:"kind"`
	OwnerID        uuid.UUID         `json:"owner_id"`
	Seq            int64             `json:"seq"`
	Type           TransactionType   `json:"type"`
	Delta          decimal.Decimal   `json:"delta"`
	Amount         decimal.Decimal   `json:"amount"`
	Status         TransactionStatus `json:"status"`
	Method         string            `json:"method"`
	Note           string            `json:"note,omitempty"`
	Counterparty   *Counterparty     `json:"counterparty,omitempty"`
	SharedID       *uuid.UUID        `json:"shared_id,omitempty"`
	BalanceAfter   decimal.Decimal   `json:"balance_after"`
	BookingID      *string           `json:"booking_id,omitempty"`
	Metadata       Metadata          `json:"metadata,omitempty"`
	IdempotencyKey *string           `json:"-"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Ref returns the key of the owning account.
func (t Transaction) Ref() AccountRef {
	return AccountRef{Kind: t.Kind, OwnerID: t.OwnerID}
}

// Metadata is a free-form JSON object attached to a ledger entry.
type Metadata map[string]any

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata source %T", src)
	}
}

// LedgerEvent is the message published for every committed ledger entry.
type LedgerEvent struct {
	EventID       string          `json:"event_id"`
	TransactionID string          `json:"transaction_id"`
	Timestamp     int64           `json:"timestamp"` // Unix seconds of the commit
	Kind          WalletKind      `json:"kind"`
	OwnerID       string          `json:"owner_id"`
	Type          TransactionType `json:"type"`
	Delta         decimal.Decimal `json:"delta"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	SharedID      string          `json:"shared_id,omitempty"`
	BookingID     string          `json:"booking_id,omitempty"`
}
