package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExportRow is one flattened ledger entry for audit.
type ExportRow struct {
	Date         time.Time         `json:"date"`
	Type         TransactionType   `json:"type"`
	Status       TransactionStatus `json:"status"`
	Method       string            `json:"method"`
	Note         string            `json:"note"`
	Counterparty string            `json:"counterparty"`
	Amount       decimal.Decimal   `json:"amount"` // Signed delta
	BalanceAfter decimal.Decimal   `json:"balance_after"`
}

// ExportHeader is the column order used by tabular sinks.
var ExportHeader = []string{"date", "type", "status", "method", "note", "counterparty", "amount", "balance_after"}

// Record renders the row in ExportHeader order.
func (r ExportRow) Record() []string {
	return []string{
		r.Date.UTC().Format(time.RFC3339),
		string(r.Type),
		string(r.Status),
		r.Method,
		r.Note,
		r.Counterparty,
		r.Amount.StringFixed(2),
		r.BalanceAfter.StringFixed(2),
	}
}

// ReconciliationMismatch describes one entry that does not replay cleanly.
type ReconciliationMismatch struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Seq           int64           `json:"seq"`
	Expected      decimal.Decimal `json:"expected"`
	Recorded      decimal.Decimal `json:"recorded"`
	Reason        string          `json:"reason"`
}

// ReconciliationReport is the result of replaying an account's history.
type ReconciliationReport struct {
	Account         AccountRef               `json:"account"`
	Entries         int                      `json:"entries"`
	ReplayedBalance decimal.Decimal          `json:"replayed_balance"`
	AccountBalance  decimal.Decimal          `json:"account_balance"`
	Consistent      bool                     `json:"consistent"`
	Mismatches      []ReconciliationMismatch `json:"mismatches,omitempty"`
}
