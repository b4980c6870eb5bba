package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
)

var testConfig = LedgerConfig{
	PlatformAccountID: uuid.MustParse("00000000-0000-0000-0000-00000000a001"),
	Currency:          "USD",
	PointsCurrency:    "PTS",
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type ledgerMocks struct {
	writer    *MockLedgerWriter
	reader    *MockAccountReader
	publisher *MockSnapshotPublisher
	resolver  *MockRecipientResolver
	kafka     *MockKafkaWriter
	metrics   *MockEntryMetrics
}

func newLedgerService(t *testing.T) (*LedgerService, ledgerMocks) {
	ctrl := gomock.NewController(t)
	m := ledgerMocks{
		writer:    NewMockLedgerWriter(ctrl),
		reader:    NewMockAccountReader(ctrl),
		publisher: NewMockSnapshotPublisher(ctrl),
		resolver:  NewMockRecipientResolver(ctrl),
		kafka:     NewMockKafkaWriter(ctrl),
		metrics:   NewMockEntryMetrics(ctrl),
	}
	svc := NewLedgerService(testConfig, m.writer, m.reader, m.publisher, m.resolver, m.kafka, m.metrics)
	return svc, m
}

func mutationResult(req models.MutationRequest, balance string, seq int64) *models.MutationResult {
	now := time.Now().UTC()
	return &models.MutationResult{
		Transaction: models.Transaction{
			ID:           uuid.New(),
			Kind:         req.Account.Kind,
			OwnerID:      req.Account.OwnerID,
			Seq:          seq,
			Type:         req.Type,
			Delta:        req.Delta,
			Amount:       req.Delta.Abs(),
			Status:       models.StatusCompleted,
			BalanceAfter: dec(balance),
			BookingID:    req.BookingID,
			CreatedAt:    now,
		},
		Account: models.Account{
			Kind:      req.Account.Kind,
			OwnerID:   req.Account.OwnerID,
			Currency:  req.Currency,
			Balance:   dec(balance),
			Version:   seq,
			UpdatedAt: now,
		},
	}
}

func TestLedgerService_TopUp(t *testing.T) {
	ctx := context.Background()
	svc, m := newLedgerService(t)
	ref := models.AccountRef{Kind: models.WalletGuest, OwnerID: uuid.New()}

	m.writer.EXPECT().Mutate(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req models.MutationRequest) (*models.MutationResult, error) {
			assert.Equal(t, ref, req.Account)
			assert.Equal(t, "USD", req.Currency)
			assert.Equal(t, models.TxTopUp, req.Type)
			assert.True(t, dec("500").Equal(req.Delta))
			assert.Equal(t, "card", req.Method)
			assert.Equal(t, "key-1", req.IdempotencyKey)
			return mutationResult(req, "500", 1), nil
		})
	m.publisher.EXPECT().Publish(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, snap models.AccountSnapshot) error {
			assert.Equal(t, ref.OwnerID, snap.OwnerID)
			assert.True(t, dec("500").Equal(snap.Balance))
			return nil
		})
	m.metrics.EXPECT().EntryCommitted("guest", "topup")
	m.kafka.EXPECT().WriteMessages(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, msgs ...kafka.Message) error {
			require.Len(t, msgs, 1)
			var event models.LedgerEvent
			require.NoError(t, json.Unmarshal(msgs[0].Value, &event))
			assert.Equal(t, models.TxTopUp, event.Type)
			assert.Equal(t, ref.OwnerID.String(), event.OwnerID)
			assert.Equal(t, ref.String(), string(msgs[0].Key))
			return nil
		})

	res, err := svc.TopUp(ctx, ref, dec("500"), "card", "", "key-1")
	require.NoError(t, err)
	assert.True(t, dec("500").Equal(res.Account.Balance))
	assert.True(t, dec("500").Equal(res.Transaction.BalanceAfter))
}

func TestLedgerService_Withdraw_NegatesAndRounds(t *testing.T) {
	ctx := context.Background()
	svc, m := newLedgerService(t)
	ref := models.AccountRef{Kind: models.WalletGuest, OwnerID: uuid.New()}

	m.writer.EXPECT().Mutate(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req models.MutationRequest) (*models.MutationResult, error) {
			assert.True(t, dec("-10.13").Equal(req.Delta))
			assert.Equal(t, models.TxWithdraw, req.Type)
			return mutationResult(req, "89.87", 2), nil
		})
	m.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)
	m.metrics.EXPECT().EntryCommitted("guest", "withdraw")
	m.kafka.EXPECT().WriteMessages(ctx, gomock.Any()).Return(nil)

	_, err := svc.Withdraw(ctx, ref, dec("10.125"), "bank", "", "")
	assert.NoError(t, err)
}

func TestLedgerService_InsufficientBalancePublishesNothing(t *testing.T) {
	ctx := context.Background()
	svc, m := newLedgerService(t)
	ref := models.AccountRef{Kind: models.WalletGuest, OwnerID: uuid.New()}

	m.writer.EXPECT().Mutate(ctx, gomock.Any()).Return(nil, models.ErrInsufficientBalance)

	_, err := svc.Withdraw(ctx, ref, dec("150"), "bank", "", "")
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)
}

func TestLedgerService_ReplayedMutationPublishesNothing(t *testing.T) {
	ctx := context.Background()
	svc, m := newLedgerService(t)
	ref := models.AccountRef{Kind: models.WalletGuest, OwnerID: uuid.New()}

	m.writer.EXPECT().Mutate(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req models.MutationRequest) (*models.MutationResult, error) {
			res := mutationResult(req, "20", 1)
			res.Replayed = true
			return res, nil
		})

	res, err := svc.TopUp(ctx, ref, dec("20"), "card", "", "same-key")
	require.NoError(t, err)
	assert.True(t, res.Replayed)
}

func TestLedgerService_ValidationHappensBeforeStore(t *testing.T) {
	ctx := context.Background()
	svc, _ := newLedgerService(t)
	ref := models.AccountRef{Kind: models.WalletGuest, OwnerID: uuid.New()}

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{"ZeroTopUp", func() error {
			_, err := svc.TopUp(ctx, ref, decimal.Zero, "card", "", "")
			return err
		}, ErrInvalidAmount},
		{"NegativeWithdraw", func() error {
			_, err := svc.Withdraw(ctx, ref, dec("-5"), "bank", "", "")
			return err
		}, ErrInvalidAmount},
		{"RoundsToZero", func() error {
			_, err := svc.TopUp(ctx, ref, dec("0.004"), "card", "", "")
			return err
		}, ErrInvalidAmount},
		{"UnknownKind", func() error {
			_, err := svc.Mutate(ctx, models.MutationRequest{
				Account: models.AccountRef{Kind: "savings", OwnerID: uuid.New()},
				Delta:   dec("1"),
				Type:    models.TxTopUp,
			})
			return err
		}, ErrInvalidWalletKind},
		{"UnknownType", func() error {
			_, err := svc.Mutate(ctx, models.MutationRequest{Account: ref, Delta: dec("1"), Type: "gift"})
			return err
		}, ErrInvalidTransactionType},
		{"SignDisagreesWithType", func() error {
			_, err := svc.Mutate(ctx, models.MutationRequest{Account: ref, Delta: dec("-1"), Type: models.TxReward})
			return err
		}, ErrInvalidAmount},
		{"TransferFromPlatform", func() error {
			_, err := svc.Transfer(ctx, TransferCommand{
				From:           testConfig.PlatformAccount(),
				RecipientEmail: "a@example.com",
				Amount:         dec("1"),
			})
			return err
		}, ErrInvalidWalletKind},
		{"ServiceFeeFromPoints", func() error {
			_, err := svc.ChargeServiceFee(ctx, models.AccountRef{Kind: models.WalletPoints, OwnerID: uuid.New()}, dec("1"), "", "", "")
			return err
		}, ErrInvalidWalletKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), tt.wantErr)
		})
	}
}

func TestLedgerService_RewardAndRedeem(t *testing.T) {
	ctx := context.Background()
	svc, m := newLedgerService(t)
	ownerID := uuid.New()

	gomock.InOrder(
		m.writer.EXPECT().Mutate(ctx, gomock.Any()).DoAndReturn(
			func(_ context.Context, req models.MutationRequest) (*models.MutationResult, error) {
				assert.Equal(t, models.WalletPoints, req.Account.Kind)
				assert.Equal(t, "PTS", req.Currency)
				assert.Equal(t, models.TxReward, req.Type)
				require.NotNil(t, req.BookingID)
				assert.Equal(t, "booking-7", *req.BookingID)
				assert.Equal(t, "3", req.Metadata["nights"])
				return mutationResult(req, "120", 1), nil
			}),
		m.writer.EXPECT().Mutate(ctx, gomock.Any()).DoAndReturn(
			func(_ context.Context, req models.MutationRequest) (*models.MutationResult, error) {
				assert.Equal(t, models.TxRedemption, req.Type)
				assert.True(t, dec("-20").Equal(req.Delta))
				return mutationResult(req, "100", 2), nil
			}),
	)
	m.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(2)
	m.metrics.EXPECT().EntryCommitted("points", gomock.Any()).Times(2)
	m.kafka.EXPECT().WriteMessages(ctx, gomock.Any()).Return(nil).Times(2)

	_, err := svc.Reward(ctx, ownerID, dec("120"), "booking-7", models.Metadata{"nights": "3"}, "")
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, ownerID, dec("20"), "voucher", "")
	require.NoError(t, err)
}

func transferResult(req models.TransferRequest, fromBalance, toBalance string) *models.TransferResult {
	shared := uuid.New()
	return &models.TransferResult{
		SharedID: shared,
		Out: models.Transaction{
			ID: uuid.New(), Kind: req.From.Kind, OwnerID: req.From.OwnerID, Type: req.OutType,
			Delta: req.Amount.Neg(), Amount: req.Amount, SharedID: &shared, BalanceAfter: dec(fromBalance),
		},
		In: models.Transaction{
			ID: uuid.New(), Kind: req.To.Kind, OwnerID: req.To.OwnerID, Type: req.InType,
			Delta: req.Amount, Amount: req.Amount, SharedID: &shared, BalanceAfter: dec(toBalance),
		},
		From: models.Account{Kind: req.From.Kind, OwnerID: req.From.OwnerID, Balance: dec(fromBalance), Version: 2},
		To:   models.Account{Kind: req.To.Kind, OwnerID: req.To.OwnerID, Balance: dec(toBalance), Version: 1},
	}
}

func TestLedgerService_Transfer(t *testing.T) {
	ctx := context.Background()
	svc, m := newLedgerService(t)
	from := models.AccountRef{Kind: models.WalletGuest, OwnerID: uuid.New()}
	recipient := models.DirectoryEntry{UserID: uuid.New(), Email: "b@example.com"}
	sender := models.DirectoryEntry{UserID: from.OwnerID, Email: "a@example.com"}

	m.resolver.EXPECT().ResolveByEmail(ctx, "b@example.com").Return(&recipient, nil)
	m.resolver.EXPECT().ResolveByID(ctx, from.OwnerID).Return(&sender, nil)
	m.writer.EXPECT().Transfer(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req models.TransferRequest) (*models.TransferResult, error) {
			assert.Equal(t, from, req.From)
			assert.Equal(t, models.AccountRef{Kind: models.WalletGuest, OwnerID: recipient.UserID}, req.To)
			assert.Equal(t, models.TxTransferOut, req.OutType)
			assert.Equal(t, models.TxTransferIn, req.InType)
			assert.Equal(t, "b@example.com", req.ToLabel)
			assert.Equal(t, "a@example.com", req.FromLabel)
			assert.True(t, dec("300").Equal(req.Amount))
			return transferResult(req, "700", "300"), nil
		})
	m.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(2)
	m.metrics.EXPECT().EntryCommitted("guest", "transfer_out")
	m.metrics.EXPECT().EntryCommitted("guest", "transfer_in")
	// Both legs go out in one batch, each keyed by its own account.
	m.kafka.EXPECT().WriteMessages(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, msgs ...kafka.Message) error {
			require.Len(t, msgs, 2)
			assert.Equal(t, from.String(), string(msgs[0].Key))
			assert.Equal(t, models.AccountRef{Kind: models.WalletGuest, OwnerID: recipient.UserID}.String(), string(msgs[1].Key))
			return nil
		})

	res, err := svc.Transfer(ctx, TransferCommand{
		From:           from,
		RecipientEmail: "b@example.com",
		Amount:         dec("300"),
		Method:         "wallet",
	})
	require.NoError(t, err)
	assert.Equal(t, res.SharedID, *res.Out.SharedID)
	assert.Equal(t, res.SharedID, *res.In.SharedID)
	assert.True(t, res.Out.Delta.Add(res.In.Delta).IsZero())
}

func TestLedgerService_TransferFailuresBeforeStore(t *testing.T) {
	ctx := context.Background()
	svc, m := newLedgerService(t)
	from := models.AccountRef{Kind: models.WalletGuest, OwnerID: uuid.New()}

	t.Run("RecipientNotFound", func(t *testing.T) {
		m.resolver.EXPECT().ResolveByEmail(ctx, "ghost@example.com").Return(nil, ErrRecipientNotFound)
		_, err := svc.Transfer(ctx, TransferCommand{From: from, RecipientEmail: "ghost@example.com", Amount: dec("1")})
		assert.ErrorIs(t, err, ErrRecipientNotFound)
	})

	t.Run("SelfTransfer", func(t *testing.T) {
		m.resolver.EXPECT().ResolveByEmail(ctx, "me@example.com").
			Return(&models.DirectoryEntry{UserID: from.OwnerID, Email: "me@example.com"}, nil)
		_, err := svc.Transfer(ctx, TransferCommand{From: from, RecipientEmail: "me@example.com", Amount: dec("1")})
		assert.ErrorIs(t, err, ErrSelfTransfer)
	})

	t.Run("SenderLookupFails", func(t *testing.T) {
		m.resolver.EXPECT().ResolveByEmail(ctx, "b@example.com").
			Return(&models.DirectoryEntry{UserID: uuid.New(), Email: "b@example.com"}, nil)
		m.resolver.EXPECT().ResolveByID(ctx, from.OwnerID).Return(nil, errors.New("db down"))
		_, err := svc.Transfer(ctx, TransferCommand{From: from, RecipientEmail: "b@example.com", Amount: dec("1")})
		assert.Error(t, err)
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		_, err := svc.Transfer(ctx, TransferCommand{From: from, RecipientEmail: "b@example.com", Amount: dec("0")})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestLedgerService_ChargeServiceFee(t *testing.T) {
	ctx := context.Background()
	svc, m := newLedgerService(t)
	guest := models.AccountRef{Kind: models.WalletGuest, OwnerID: uuid.New()}

	m.writer.EXPECT().Transfer(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req models.TransferRequest) (*models.TransferResult, error) {
			assert.Equal(t, guest, req.From)
			assert.Equal(t, testConfig.PlatformAccount(), req.To)
			assert.Equal(t, models.TxServiceFee, req.OutType)
			assert.Equal(t, models.TxTransferIn, req.InType)
			require.NotNil(t, req.BookingID)
			assert.Equal(t, "booking-9", *req.BookingID)
			return transferResult(req, "90", "10"), nil
		})
	m.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(2)
	m.metrics.EXPECT().EntryCommitted(gomock.Any(), gomock.Any()).Times(2)
	m.kafka.EXPECT().WriteMessages(ctx, gomock.Any()).Return(nil)

	_, err := svc.ChargeServiceFee(ctx, guest, dec("10"), "booking-9", "cleaning", "")
	assert.NoError(t, err)

	_, err = svc.ChargeServiceFee(ctx, testConfig.PlatformAccount(), dec("10"), "", "", "")
	assert.ErrorIs(t, err, ErrInvalidWalletKind)
}

func TestLedgerService_PublishFailuresDoNotFailCommit(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	writer := NewMockLedgerWriter(ctrl)
	publisher := NewMockSnapshotPublisher(ctrl)
	kafkaWriter := NewMockKafkaWriter(ctrl)
	svc := NewLedgerService(testConfig, writer, nil, publisher, nil, kafkaWriter, nil)
	ref := models.AccountRef{Kind: models.WalletGuest, OwnerID: uuid.New()}

	writer.EXPECT().Mutate(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req models.MutationRequest) (*models.MutationResult, error) {
			return mutationResult(req, "5", 1), nil
		})
	publisher.EXPECT().Publish(ctx, gomock.Any()).Return(errors.New("redis down"))
	kafkaWriter.EXPECT().WriteMessages(ctx, gomock.Any()).Return(errors.New("kafka down"))

	_, err := svc.TopUp(ctx, ref, dec("5"), "card", "", "")
	assert.NoError(t, err)
}

func TestLedgerService_NoPublishersConfigured(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	writer := NewMockLedgerWriter(ctrl)
	svc := NewLedgerService(testConfig, writer, nil, nil, nil, nil, nil)
	ref := models.AccountRef{Kind: models.WalletGuest, OwnerID: uuid.New()}

	writer.EXPECT().Mutate(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req models.MutationRequest) (*models.MutationResult, error) {
			return mutationResult(req, "5", 1), nil
		})

	_, err := svc.TopUp(ctx, ref, dec("5"), "card", "", "")
	assert.NoError(t, err)
}

func TestLedgerService_GetBalance(t *testing.T) {
	ctx := context.Background()
	svc, m := newLedgerService(t)
	ref := models.AccountRef{Kind: models.WalletPoints, OwnerID: uuid.New()}

	m.reader.EXPECT().GetAccount(ctx, ref, "PTS").Return(&models.Account{
		Kind: ref.Kind, OwnerID: ref.OwnerID, Currency: "PTS", Balance: dec("42"), Version: 3,
	}, nil)

	snap, err := svc.GetBalance(ctx, ref)
	require.NoError(t, err)
	assert.True(t, dec("42").Equal(snap.Balance))
	assert.Equal(t, int64(3), snap.Version)

	m.reader.EXPECT().GetAccount(ctx, ref, "PTS").Return(nil, errors.New("db down"))
	_, err = svc.GetBalance(ctx, ref)
	assert.Error(t, err)
}

func TestNewLedgerEvent(t *testing.T) {
	shared := uuid.New()
	booking := "b-1"
	entry := models.Transaction{
		ID:           uuid.New(),
		Kind:         models.WalletGuest,
		OwnerID:      uuid.New(),
		Type:         models.TxServiceFee,
		Delta:        dec("-3"),
		BalanceAfter: dec("7"),
		SharedID:     &shared,
		BookingID:    &booking,
		CreatedAt:    time.Unix(1700000000, 0),
	}

	event := newLedgerEvent(entry)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, entry.ID.String(), event.TransactionID)
	assert.Equal(t, int64(1700000000), event.Timestamp)
	assert.Equal(t, shared.String(), event.SharedID)
	assert.Equal(t, "b-1", event.BookingID)
}
