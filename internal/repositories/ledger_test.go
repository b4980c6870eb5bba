package repositories

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/logger"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/pagination"
)

// --- Setup Postgres ---
func setupPostgres(t *testing.T) (*sqlx.DB, func()) {
	t.Helper()
	logger.Initialize("error")
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_PASSWORD": "secret", "POSTGRES_DB": "testdb", "POSTGRES_USER": "postgres"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:secret@%s:%s/testdb?sslmode=disable", host, port.Port())

	var db *sqlx.DB
	for i := 0; i < 10; i++ {
		db, err = sqlx.Connect("pgx", dsn)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err)

	db.SetMaxOpenConns(40)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(5 * time.Minute)

	require.NoError(t, ApplySchema(ctx, db))

	return db, func() {
		db.Close()
		container.Terminate(ctx)
	}
}

// --- Helpers ---
func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func guest() models.AccountRef {
	return models.AccountRef{Kind: models.WalletGuest, OwnerID: uuid.New()}
}

func topUp(ref models.AccountRef, amount string) models.MutationRequest {
	return models.MutationRequest{
		Account:  ref,
		Currency: "USD",
		Delta:    dec(amount),
		Type:     models.TxTopUp,
		Method:   "card",
	}
}

func withdraw(ref models.AccountRef, amount string) models.MutationRequest {
	return models.MutationRequest{
		Account:  ref,
		Currency: "USD",
		Delta:    dec(amount).Neg(),
		Type:     models.TxWithdraw,
		Method:   "bank",
	}
}

func countEntries(t *testing.T, db *sqlx.DB, ref models.AccountRef) int {
	var n int
	err := db.Get(&n, `SELECT COUNT(*) FROM ledger_transactions WHERE wallet_kind=$1 AND owner_id=$2`, string(ref.Kind), ref.OwnerID)
	require.NoError(t, err)
	return n
}

// --- Mutate ---
func TestLedgerWriter_Mutate(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	writer := NewLedgerWriterRepository(db)
	reader := NewLedgerReaderRepository(db)

	t.Run("TopUpCreatesAccount", func(t *testing.T) {
		ref := guest()

		res, err := writer.Mutate(ctx, topUp(ref, "100.00"))
		require.NoError(t, err)
		assert.True(t, dec("100.00").Equal(res.Account.Balance))
		assert.Equal(t, int64(1), res.Account.Version)
		assert.Equal(t, int64(1), res.Transaction.Seq)
		assert.Equal(t, models.TxTopUp, res.Transaction.Type)
		assert.Equal(t, models.StatusCompleted, res.Transaction.Status)
		assert.True(t, dec("100.00").Equal(res.Transaction.BalanceAfter))

		acc, err := reader.GetAccount(ctx, ref, "USD")
		require.NoError(t, err)
		assert.True(t, dec("100.00").Equal(acc.Balance))
	})

	t.Run("InsufficientWithdrawalChangesNothing", func(t *testing.T) {
		ref := guest()
		_, err := writer.Mutate(ctx, topUp(ref, "50.00"))
		require.NoError(t, err)

		_, err = writer.Mutate(ctx, withdraw(ref, "80.00"))
		assert.ErrorIs(t, err, models.ErrInsufficientBalance)

		acc, err := reader.GetAccount(ctx, ref, "USD")
		require.NoError(t, err)
		assert.True(t, dec("50.00").Equal(acc.Balance))
		assert.Equal(t, 1, countEntries(t, db, ref))
	})

	t.Run("WithdrawToZero", func(t *testing.T) {
		ref := guest()
		_, err := writer.Mutate(ctx, topUp(ref, "30.00"))
		require.NoError(t, err)

		res, err := writer.Mutate(ctx, withdraw(ref, "30.00"))
		require.NoError(t, err)
		assert.True(t, res.Account.Balance.IsZero())
		assert.True(t, dec("-30.00").Equal(res.Transaction.Delta))
		assert.True(t, dec("30.00").Equal(res.Transaction.Amount))
	})

	t.Run("CurrencyMismatch", func(t *testing.T) {
		ref := guest()
		_, err := writer.Mutate(ctx, topUp(ref, "10.00"))
		require.NoError(t, err)

		req := topUp(ref, "10.00")
		req.Currency = "EUR"
		_, err = writer.Mutate(ctx, req)
		assert.ErrorIs(t, err, models.ErrCurrencyMismatch)
	})

	t.Run("IdempotencyKeyReplays", func(t *testing.T) {
		ref := guest()
		req := topUp(ref, "25.00")
		req.IdempotencyKey = "topup-1"

		first, err := writer.Mutate(ctx, req)
		require.NoError(t, err)
		assert.False(t, first.Replayed)

		second, err := writer.Mutate(ctx, req)
		require.NoError(t, err)
		assert.True(t, second.Replayed)
		assert.Equal(t, first.Transaction.ID, second.Transaction.ID)
		assert.True(t, dec("25.00").Equal(second.Account.Balance))
		assert.Equal(t, 1, countEntries(t, db, ref))
	})

	t.Run("IdempotencyKeyWithDifferentAmountIsRejected", func(t *testing.T) {
		ref := guest()
		req := topUp(ref, "25.00")
		req.IdempotencyKey = "topup-2"
		_, err := writer.Mutate(ctx, req)
		require.NoError(t, err)

		req.Delta = dec("250.00")
		_, err = writer.Mutate(ctx, req)
		assert.ErrorIs(t, err, models.ErrIdempotencyKeyReused)

		acc, err := reader.GetAccount(ctx, ref, "USD")
		require.NoError(t, err)
		assert.True(t, dec("25.00").Equal(acc.Balance))
		assert.Equal(t, 1, countEntries(t, db, ref))
	})

	t.Run("IdempotencyKeyOfTopUpIsNotReplayedAsWithdrawal", func(t *testing.T) {
		ref := guest()
		req := topUp(ref, "25.00")
		req.IdempotencyKey = "topup-3"
		_, err := writer.Mutate(ctx, req)
		require.NoError(t, err)

		w := withdraw(ref, "25.00")
		w.IdempotencyKey = "topup-3"
		_, err = writer.Mutate(ctx, w)
		assert.ErrorIs(t, err, models.ErrIdempotencyKeyReused)
		assert.Equal(t, 1, countEntries(t, db, ref))
	})

	t.Run("MetadataRoundTrips", func(t *testing.T) {
		ref := models.AccountRef{Kind: models.WalletPoints, OwnerID: uuid.New()}
		booking := "booking-42"
		res, err := writer.Mutate(ctx, models.MutationRequest{
			Account:   ref,
			Currency:  "PTS",
			Delta:     dec("120"),
			Type:      models.TxReward,
			Method:    "booking",
			BookingID: &booking,
			Metadata:  models.Metadata{"nights": float64(3)},
		})
		require.NoError(t, err)

		page, err := reader.ListTransactions(ctx, ref, 10, nil)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, res.Transaction.ID, page[0].ID)
		assert.Equal(t, booking, *page[0].BookingID)
		assert.Equal(t, float64(3), page[0].Metadata["nights"])
	})

	t.Run("EntriesAreImmutable", func(t *testing.T) {
		ref := guest()
		res, err := writer.Mutate(ctx, topUp(ref, "5.00"))
		require.NoError(t, err)

		_, err = db.Exec(`UPDATE ledger_transactions SET note='x' WHERE transaction_id=$1`, res.Transaction.ID)
		assert.Error(t, err)
		_, err = db.Exec(`DELETE FROM ledger_transactions WHERE transaction_id=$1`, res.Transaction.ID)
		assert.Error(t, err)
	})
}

// --- Transfer ---
func TestLedgerWriter_Transfer(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	writer := NewLedgerWriterRepository(db)
	reader := NewLedgerReaderRepository(db)

	transfer := func(from, to models.AccountRef, amount string) models.TransferRequest {
		return models.TransferRequest{
			From:      from,
			To:        to,
			Currency:  "USD",
			Amount:    dec(amount),
			OutType:   models.TxTransferOut,
			InType:    models.TxTransferIn,
			Method:    "wallet",
			FromLabel: "a@example.com",
			ToLabel:   "b@example.com",
		}
	}

	t.Run("MovesFundsWithSharedID", func(t *testing.T) {
		a, b := guest(), guest()
		_, err := writer.Mutate(ctx, topUp(a, "100.00"))
		require.NoError(t, err)

		res, err := writer.Transfer(ctx, transfer(a, b, "40.00"))
		require.NoError(t, err)
		assert.True(t, dec("60.00").Equal(res.From.Balance))
		assert.True(t, dec("40.00").Equal(res.To.Balance))
		assert.Equal(t, res.SharedID, *res.Out.SharedID)
		assert.Equal(t, res.SharedID, *res.In.SharedID)
		assert.Equal(t, b.OwnerID, res.Out.Counterparty.OwnerID)
		assert.Equal(t, "a@example.com", res.In.Counterparty.Label)

		legs, err := reader.GetTransactionsBySharedID(ctx, res.SharedID)
		require.NoError(t, err)
		require.Len(t, legs, 2)
		assert.True(t, legs[0].Delta.Add(legs[1].Delta).IsZero())
	})

	t.Run("InsufficientLeavesBothUntouched", func(t *testing.T) {
		a, b := guest(), guest()
		_, err := writer.Mutate(ctx, topUp(a, "10.00"))
		require.NoError(t, err)

		_, err = writer.Transfer(ctx, transfer(a, b, "10.01"))
		assert.ErrorIs(t, err, models.ErrInsufficientBalance)

		accA, _ := reader.GetAccount(ctx, a, "USD")
		accB, _ := reader.GetAccount(ctx, b, "USD")
		assert.True(t, dec("10.00").Equal(accA.Balance))
		assert.True(t, accB.Balance.IsZero())
		assert.Equal(t, 0, countEntries(t, db, b))
	})

	t.Run("IdempotencyKeyReplays", func(t *testing.T) {
		a, b := guest(), guest()
		_, err := writer.Mutate(ctx, topUp(a, "50.00"))
		require.NoError(t, err)

		req := transfer(a, b, "20.00")
		req.IdempotencyKey = "transfer-1"
		first, err := writer.Transfer(ctx, req)
		require.NoError(t, err)
		second, err := writer.Transfer(ctx, req)
		require.NoError(t, err)

		assert.True(t, second.Replayed)
		assert.Equal(t, first.SharedID, second.SharedID)
		assert.Equal(t, first.Out.ID, second.Out.ID)
		assert.Equal(t, first.In.ID, second.In.ID)
		assert.True(t, dec("30.00").Equal(second.From.Balance))
	})

	t.Run("TransferKeyReusedForWithdrawal", func(t *testing.T) {
		a, b := guest(), guest()
		_, err := writer.Mutate(ctx, topUp(a, "50.00"))
		require.NoError(t, err)

		req := transfer(a, b, "20.00")
		req.IdempotencyKey = "shared-key-1"
		_, err = writer.Transfer(ctx, req)
		require.NoError(t, err)

		w := withdraw(a, "20.00")
		w.IdempotencyKey = "shared-key-1"
		_, err = writer.Mutate(ctx, w)
		assert.ErrorIs(t, err, models.ErrIdempotencyKeyReused)

		acc, err := reader.GetAccount(ctx, a, "USD")
		require.NoError(t, err)
		assert.True(t, dec("30.00").Equal(acc.Balance))
		assert.Equal(t, 2, countEntries(t, db, a))
	})

	t.Run("TopUpKeyReusedForTransfer", func(t *testing.T) {
		a, b := guest(), guest()
		top := topUp(a, "50.00")
		top.IdempotencyKey = "shared-key-2"
		_, err := writer.Mutate(ctx, top)
		require.NoError(t, err)

		req := transfer(a, b, "50.00")
		req.IdempotencyKey = "shared-key-2"
		_, err = writer.Transfer(ctx, req)
		assert.ErrorIs(t, err, models.ErrIdempotencyKeyReused)
		assert.Equal(t, 1, countEntries(t, db, a))
		assert.Equal(t, 0, countEntries(t, db, b))
	})

	t.Run("TransferKeyReusedForAnotherRecipientOrAmount", func(t *testing.T) {
		a, b, c := guest(), guest(), guest()
		_, err := writer.Mutate(ctx, topUp(a, "50.00"))
		require.NoError(t, err)

		req := transfer(a, b, "10.00")
		req.IdempotencyKey = "shared-key-3"
		_, err = writer.Transfer(ctx, req)
		require.NoError(t, err)

		other := transfer(a, c, "10.00")
		other.IdempotencyKey = "shared-key-3"
		_, err = writer.Transfer(ctx, other)
		assert.ErrorIs(t, err, models.ErrIdempotencyKeyReused)

		bigger := transfer(a, b, "15.00")
		bigger.IdempotencyKey = "shared-key-3"
		_, err = writer.Transfer(ctx, bigger)
		assert.ErrorIs(t, err, models.ErrIdempotencyKeyReused)

		assert.Equal(t, 0, countEntries(t, db, c))
		assert.Equal(t, 1, countEntries(t, db, b))
	})

	t.Run("ConcurrentOppositeTransfersConserveTotal", func(t *testing.T) {
		a, b := guest(), guest()
		_, err := writer.Mutate(ctx, topUp(a, "500.00"))
		require.NoError(t, err)
		_, err = writer.Mutate(ctx, topUp(b, "500.00"))
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, _ = writer.Transfer(ctx, transfer(a, b, "5.00"))
			}()
			go func() {
				defer wg.Done()
				_, _ = writer.Transfer(ctx, transfer(b, a, "3.00"))
			}()
		}
		wg.Wait()

		accA, _ := reader.GetAccount(ctx, a, "USD")
		accB, _ := reader.GetAccount(ctx, b, "USD")
		assert.True(t, dec("1000.00").Equal(accA.Balance.Add(accB.Balance)))
	})
}

// --- Concurrency ---
func TestLedgerWriter_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	writer := NewLedgerWriterRepository(db, WithRetryConfig(RetryConfig{
		MaxRetries: 20,
		BaseDelay:  5 * time.Millisecond,
		MaxDelay:   100 * time.Millisecond,
	}))
	reader := NewLedgerReaderRepository(db)

	ref := guest()
	_, err := writer.Mutate(ctx, topUp(ref, "1000.00"))
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		failures  []error
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := writer.Mutate(ctx, withdraw(ref, "600.00"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			failures = append(failures, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], models.ErrInsufficientBalance)

	acc, err := reader.GetAccount(ctx, ref, "USD")
	require.NoError(t, err)
	assert.True(t, dec("400.00").Equal(acc.Balance))
}

func TestLedgerWriter_ConcurrentTopUpsAllLand(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	writer := NewLedgerWriterRepository(db, WithRetryConfig(RetryConfig{
		MaxRetries: 50,
		BaseDelay:  5 * time.Millisecond,
		MaxDelay:   100 * time.Millisecond,
	}))
	reader := NewLedgerReaderRepository(db)
	ref := guest()

	const numGoroutines = 50
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			_, err := writer.Mutate(ctx, topUp(ref, "1.00"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	acc, err := reader.GetAccount(ctx, ref, "USD")
	require.NoError(t, err)
	assert.True(t, dec("50.00").Equal(acc.Balance))
	assert.Equal(t, int64(numGoroutines), acc.Version)

	// Replaying the history reproduces the stored balance and each balance_after.
	entries, err := reader.ScanTransactions(ctx, ref)
	require.NoError(t, err)
	require.Len(t, entries, numGoroutines)
	running := decimal.Zero
	for i, e := range entries {
		running = running.Add(e.Delta)
		assert.Equal(t, int64(i+1), e.Seq)
		assert.True(t, running.Equal(e.BalanceAfter))
	}
	assert.True(t, running.Equal(acc.Balance))
}

// --- Reader ---
func TestLedgerReader(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	writer := NewLedgerWriterRepository(db)
	reader := NewLedgerReaderRepository(db)

	t.Run("MissingAccountIsZero", func(t *testing.T) {
		ref := guest()
		acc, err := reader.GetAccount(ctx, ref, "USD")
		require.NoError(t, err)
		assert.True(t, acc.Balance.IsZero())
		assert.Equal(t, int64(0), acc.Version)
		assert.Equal(t, "USD", acc.Currency)
	})

	t.Run("PagesNewestFirstWithoutOverlap", func(t *testing.T) {
		ref := guest()
		for i := 0; i < 45; i++ {
			_, err := writer.Mutate(ctx, topUp(ref, "1.00"))
			require.NoError(t, err)
		}

		seen := make(map[uuid.UUID]bool)
		var before *int64
		pages := 0
		for {
			page, err := reader.ListTransactions(ctx, ref, 15, before)
			require.NoError(t, err)
			if len(page) == 0 {
				break
			}
			pages++
			for i, e := range page {
				assert.False(t, seen[e.ID])
				seen[e.ID] = true
				if i > 0 {
					assert.Greater(t, page[i-1].Seq, e.Seq)
				}
			}
			last := page[len(page)-1].Seq
			before = &last
		}
		assert.Equal(t, 3, pages)
		assert.Len(t, seen, 45)
	})

	t.Run("RefetchingAPageAfterNewWritesIsStable", func(t *testing.T) {
		ref := guest()
		for i := 0; i < 45; i++ {
			_, err := writer.Mutate(ctx, topUp(ref, "1.00"))
			require.NoError(t, err)
		}

		first, err := reader.ListTransactions(ctx, ref, 15, nil)
		require.NoError(t, err)
		require.Len(t, first, 15)
		last := first[len(first)-1]
		cursor := pagination.Cursor{Seq: last.Seq, ID: last.ID.String()}.Encode()

		page := func() []models.Transaction {
			c, err := pagination.Decode(cursor)
			require.NoError(t, err)
			entries, err := reader.ListTransactions(ctx, ref, 15, &c.Seq)
			require.NoError(t, err)
			return entries
		}

		before := page()
		require.Len(t, before, 15)

		for i := 0; i < 10; i++ {
			_, err := writer.Mutate(ctx, topUp(ref, "2.00"))
			require.NoError(t, err)
		}

		after := page()
		require.Len(t, after, len(before))
		for i := range before {
			assert.Equal(t, before[i].ID, after[i].ID)
			assert.Equal(t, before[i].Seq, after[i].Seq)
			assert.True(t, before[i].BalanceAfter.Equal(after[i].BalanceAfter))
		}
		assert.Equal(t, int64(30), before[0].Seq)
		assert.Equal(t, int64(16), before[len(before)-1].Seq)
	})
}
