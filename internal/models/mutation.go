package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MutationRequest describes a single balance change plus its ledger entry.
type MutationRequest struct {
	Account        AccountRef
	Currency       string
	Delta          decimal.Decimal
	Type           TransactionType
	Method         string
	Note           string
	BookingID      *string
	Metadata       Metadata
	IdempotencyKey string
}

// MutationResult is the committed entry and the resulting account state.
type MutationResult struct {
	Transaction Transaction
	Account     Account
	Replayed    bool // true when the idempotency key had already been applied
}

// TransferRequest describes a debit/credit pair between two accounts.
type TransferRequest struct {
	From           AccountRef
	To             AccountRef
	Currency       string
	Amount         decimal.Decimal
	OutType        TransactionType // transfer_out or service_fee
	InType         TransactionType // transfer_in
	Method         string
	Note           string
	FromLabel      string // Display info stored as the recipient's counterparty
	ToLabel        string // Display info stored as the sender's counterparty
	BookingID      *string
	IdempotencyKey string
}

// TransferResult holds both legs of a committed transfer.
type TransferResult struct {
	SharedID uuid.UUID
	Out      Transaction
	In       Transaction
	From     Account
	To       Account
	Replayed bool
}
