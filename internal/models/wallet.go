package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletKind identifies which wallet of an owner an account belongs to.
type WalletKind string

// Supported wallet kinds
const (
	WalletGuest    WalletKind = "guest"    // Guest spending wallet
	WalletPlatform WalletKind = "platform" // Shared platform wallet, one well-known owner
	WalletPoints   WalletKind = "points"   // Loyalty points wallet
)

// ParseWalletKind converts a path or config value into a WalletKind.
func ParseWalletKind(s string) (WalletKind, error) {
	switch k := WalletKind(s); k {
	case WalletGuest, WalletPlatform, WalletPoints:
		return k, nil
	}
	return "", fmt.Errorf("unknown wallet kind %q", s)
}

// AccountRef is the key of a single account: one balance per (kind, owner).
type AccountRef struct {
	Kind    WalletKind `json:"kind" db:"wallet_kind"`
	OwnerID uuid.UUID  `json:"owner_id" db:"owner_id"`
}

func (r AccountRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.OwnerID)
}

// Account represents a balance row in the database
type Account struct {
	Kind      WalletKind      `json:"kind" db:"wallet_kind"`      // Wallet kind
	OwnerID   uuid.UUID       `json:"owner_id" db:"owner_id"`     // Identifier of the account owner
	Currency  string          `json:"currency" db:"currency"`     // Currency code of the balance
	Balance   decimal.Decimal `json:"balance" db:"balance"`       // Sum of all ledger deltas
	Version   int64           `json:"version" db:"version"`       // Seq of the last committed ledger entry
	CreatedAt time.Time       `json:"created_at" db:"created_at"` // Timestamp when the account was created
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"` // Timestamp of the last balance change
}

// Ref returns the key of the account.
func (a Account) Ref() AccountRef {
	return AccountRef{Kind: a.Kind, OwnerID: a.OwnerID}
}

// Snapshot converts the account into the value pushed to live subscribers.
func (a Account) Snapshot() AccountSnapshot {
	return AccountSnapshot{
		Kind:      a.Kind,
		OwnerID:   a.OwnerID,
		Currency:  a.Currency,
		Balance:   a.Balance,
		Version:   a.Version,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountSnapshot is a point-in-time view of an account balance.
type AccountSnapshot struct {
	Kind      WalletKind      `json:"kind"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}
