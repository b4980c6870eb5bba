package services

//go:generate mockgen -source=export.go -destination=export_mock.go -package=services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/logger"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
)

// maxReportedMismatches bounds the mismatch list of a reconciliation report.
const maxReportedMismatches = 20

// LedgerScanner reads an account's full history in commit order.
type LedgerScanner interface {
	GetAccount(ctx context.Context, ref models.AccountRef, currency string) (*models.Account, error)
	ScanTransactions(ctx context.Context, ref models.AccountRef) ([]models.Transaction, error)
}

// ExportService flattens and audits account histories. It never writes.
type ExportService struct {
	cfg     LedgerConfig
	scanner LedgerScanner
}

func NewExportService(cfg LedgerConfig, scanner LedgerScanner) *ExportService {
	return &ExportService{cfg: cfg, scanner: scanner}
}

// Export returns every entry of the account as a flat row, oldest first.
func (s *ExportService) Export(ctx context.Context, ref models.AccountRef) ([]models.ExportRow, error) {
	entries, err := s.scanner.ScanTransactions(ctx, ref)
	if err != nil {
		logger.Log.Errorw("failed to scan transactions for export", "account", ref.String(), "error", err)
		return nil, err
	}

	rows := make([]models.ExportRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, models.ExportRow{
			Date:         e.CreatedAt,
			Type:         e.Type,
			Status:       e.Status,
			Method:       e.Method,
			Note:         e.Note,
			Counterparty: counterpartyLabel(e.Counterparty),
			Amount:       e.Delta,
			BalanceAfter: e.BalanceAfter,
		})
	}

	logger.Log.Infow("ledger exported", "account", ref.String(), "rows", len(rows))
	return rows, nil
}

func counterpartyLabel(c *models.Counterparty) string {
	if c == nil {
		return ""
	}
	if c.Label != "" {
		return c.Label
	}
	return fmt.Sprintf("%s:%s", c.Kind, c.OwnerID)
}

// Reconcile replays the account's history from zero and checks that every
// balance_after, the seq sequence and the stored balance agree with it.
func (s *ExportService) Reconcile(ctx context.Context, ref models.AccountRef) (*models.ReconciliationReport, error) {
	acc, err := s.scanner.GetAccount(ctx, ref, s.cfg.CurrencyFor(ref.Kind))
	if err != nil {
		return nil, err
	}
	entries, err := s.scanner.ScanTransactions(ctx, ref)
	if err != nil {
		return nil, err
	}

	report := &models.ReconciliationReport{
		Account:        ref,
		Entries:        len(entries),
		AccountBalance: acc.Balance,
	}
	mismatch := func(m models.ReconciliationMismatch) {
		if len(report.Mismatches) < maxReportedMismatches {
			report.Mismatches = append(report.Mismatches, m)
		}
	}

	running := decimal.Zero
	for i, e := range entries {
		running = running.Add(e.Delta)

		if want := int64(i + 1); e.Seq != want {
			mismatch(models.ReconciliationMismatch{
				TransactionID: e.ID,
				Seq:           e.Seq,
				Reason:        fmt.Sprintf("seq gap: expected %d", want),
			})
		}
		if !e.Amount.Equal(e.Delta.Abs()) {
			mismatch(models.ReconciliationMismatch{
				TransactionID: e.ID,
				Seq:           e.Seq,
				Expected:      e.Delta.Abs(),
				Recorded:      e.Amount,
				Reason:        "amount differs from |delta|",
			})
		}
		if !running.Equal(e.BalanceAfter) {
			mismatch(models.ReconciliationMismatch{
				TransactionID: e.ID,
				Seq:           e.Seq,
				Expected:      running,
				Recorded:      e.BalanceAfter,
				Reason:        "balance_after differs from replayed balance",
			})
		}
	}
	report.ReplayedBalance = running

	if !running.Equal(acc.Balance) {
		mismatch(models.ReconciliationMismatch{
			Expected: running,
			Recorded: acc.Balance,
			Reason:   "account balance differs from replayed balance",
		})
	}
	if acc.Version != int64(len(entries)) {
		mismatch(models.ReconciliationMismatch{
			Reason: fmt.Sprintf("account version %d, entries %d", acc.Version, len(entries)),
		})
	}
	report.Consistent = len(report.Mismatches) == 0

	if report.Consistent {
		logger.Log.Infow("ledger reconciled", "account", ref.String(), "entries", report.Entries)
	} else {
		logger.Log.Errorw("ledger reconciliation mismatch",
			"account", ref.String(), "entries", report.Entries, "mismatches", len(report.Mismatches))
	}
	return report, nil
}
