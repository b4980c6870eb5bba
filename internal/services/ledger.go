package services

//go:generate mockgen -source=ledger.go -destination=ledger_mock.go -package=services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/logger"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
)

// Validation errors, detected before the ledger is touched.
var (
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrSelfTransfer           = errors.New("cannot transfer to the same wallet")
	ErrInvalidWalletKind      = errors.New("invalid wallet kind")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
)

// LedgerWriter is the atomic write path for balances and ledger entries.
type LedgerWriter interface {
	Mutate(ctx context.Context, req models.MutationRequest) (*models.MutationResult, error)   // Applies one balance change with its entry
	Transfer(ctx context.Context, req models.TransferRequest) (*models.TransferResult, error) // Moves funds between two accounts
}

// AccountReader reads current account state.
type AccountReader interface {
	GetAccount(ctx context.Context, ref models.AccountRef, currency string) (*models.Account, error)
}

// SnapshotPublisher announces committed account states to live subscribers.
type SnapshotPublisher interface {
	Publish(ctx context.Context, snap models.AccountSnapshot) error
}

// RecipientResolver maps a human-facing identifier to an account owner.
type RecipientResolver interface {
	ResolveByEmail(ctx context.Context, email string) (*models.DirectoryEntry, error)
	ResolveByID(ctx context.Context, userID uuid.UUID) (*models.DirectoryEntry, error)
}

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
	Close() error                                                   // Closes the Kafka writer
}

// EntryMetrics counts committed ledger entries.
type EntryMetrics interface {
	EntryCommitted(kind, txType string)
}

// LedgerConfig carries the deployment-specific ledger settings.
type LedgerConfig struct {
	PlatformAccountID uuid.UUID // Owner id of the single shared platform wallet
	Currency          string    // Currency of guest and platform wallets
	PointsCurrency    string    // Unit of the points wallet
}

// CurrencyFor returns the currency held by wallets of kind.
func (c LedgerConfig) CurrencyFor(kind models.WalletKind) string {
	if kind == models.WalletPoints {
		return c.PointsCurrency
	}
	return c.Currency
}

// PlatformAccount returns the platform wallet reference.
func (c LedgerConfig) PlatformAccount() models.AccountRef {
	return models.AccountRef{Kind: models.WalletPlatform, OwnerID: c.PlatformAccountID}
}

// TransferCommand is a caller request to move funds to another owner's wallet of the same kind.
type TransferCommand struct {
	From           models.AccountRef
	RecipientEmail string
	Amount         decimal.Decimal
	Method         string
	Note           string
	IdempotencyKey string
}

// LedgerService validates caller operations, runs them through the atomic
// write path and publishes their outcome once committed.
type LedgerService struct {
	cfg         LedgerConfig
	writer      LedgerWriter
	reader      AccountReader
	publisher   SnapshotPublisher
	resolver    RecipientResolver
	kafkaWriter KafkaWriter
	metrics     EntryMetrics
}

// NewLedgerService creates a new LedgerService. publisher, kafkaWriter and metrics may be nil.
func NewLedgerService(
	cfg LedgerConfig,
	writer LedgerWriter,
	reader AccountReader,
	publisher SnapshotPublisher,
	resolver RecipientResolver,
	kafkaWriter KafkaWriter,
	metrics EntryMetrics,
) *LedgerService {
	return &LedgerService{
		cfg:         cfg,
		writer:      writer,
		reader:      reader,
		publisher:   publisher,
		resolver:    resolver,
		kafkaWriter: kafkaWriter,
		metrics:     metrics,
	}
}

// normalizeAmount rounds to the currency minor unit and requires a positive result.
func normalizeAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	rounded := amount.Round(2)
	if !rounded.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return rounded, nil
}

// TopUp credits an already-settled deposit to the account.
func (s *LedgerService) TopUp(ctx context.Context, ref models.AccountRef, amount decimal.Decimal, method, note, key string) (*models.MutationResult, error) {
	return s.apply(ctx, ref, models.TxTopUp, amount, method, note, nil, nil, key)
}

// Withdraw debits an already-settled payout from the account.
func (s *LedgerService) Withdraw(ctx context.Context, ref models.AccountRef, amount decimal.Decimal, method, note, key string) (*models.MutationResult, error) {
	return s.apply(ctx, ref, models.TxWithdraw, amount, method, note, nil, nil, key)
}

// Reward credits loyalty points earned by a booking.
func (s *LedgerService) Reward(ctx context.Context, ownerID uuid.UUID, points decimal.Decimal, bookingID string, metadata models.Metadata, key string) (*models.MutationResult, error) {
	ref := models.AccountRef{Kind: models.WalletPoints, OwnerID: ownerID}
	var booking *string
	if bookingID != "" {
		booking = &bookingID
	}
	return s.apply(ctx, ref, models.TxReward, points, "booking", "", booking, metadata, key)
}

// Redeem debits loyalty points spent by the owner.
func (s *LedgerService) Redeem(ctx context.Context, ownerID uuid.UUID, points decimal.Decimal, note, key string) (*models.MutationResult, error) {
	ref := models.AccountRef{Kind: models.WalletPoints, OwnerID: ownerID}
	return s.apply(ctx, ref, models.TxRedemption, points, "points", note, nil, nil, key)
}

func (s *LedgerService) apply(
	ctx context.Context,
	ref models.AccountRef,
	txType models.TransactionType,
	amount decimal.Decimal,
	method, note string,
	bookingID *string,
	metadata models.Metadata,
	key string,
) (*models.MutationResult, error) {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return nil, err
	}
	delta := amount
	if !txType.IsCredit() {
		delta = amount.Neg()
	}
	return s.Mutate(ctx, models.MutationRequest{
		Account:        ref,
		Delta:          delta,
		Type:           txType,
		Method:         method,
		Note:           note,
		BookingID:      bookingID,
		Metadata:       metadata,
		IdempotencyKey: key,
	})
}

// Mutate validates a generic mutation and applies it atomically. The currency is
// always derived from the wallet kind.
func (s *LedgerService) Mutate(ctx context.Context, req models.MutationRequest) (*models.MutationResult, error) {
	if _, err := models.ParseWalletKind(string(req.Account.Kind)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWalletKind, err)
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTransactionType, req.Type)
	}
	req.Delta = req.Delta.Round(2)
	if req.Delta.IsZero() || req.Delta.IsPositive() != req.Type.IsCredit() {
		return nil, ErrInvalidAmount
	}
	req.Currency = s.cfg.CurrencyFor(req.Account.Kind)

	res, err := s.writer.Mutate(ctx, req)
	if err != nil {
		logger.Log.Errorw("ledger mutation failed",
			"account", req.Account.String(), "type", req.Type, "delta", req.Delta.String(), "error", err)
		return nil, err
	}

	logger.Log.Infow("ledger mutation committed",
		"account", req.Account.String(), "type", req.Type, "seq", res.Transaction.Seq,
		"balance", res.Account.Balance.String(), "replayed", res.Replayed)

	if !res.Replayed {
		s.afterCommit(ctx, []models.Account{res.Account}, []models.Transaction{res.Transaction})
	}
	return res, nil
}

// Transfer moves funds from the caller's wallet to the wallet of the same kind
// owned by the recipient resolved from RecipientEmail.
func (s *LedgerService) Transfer(ctx context.Context, cmd TransferCommand) (*models.TransferResult, error) {
	amount, err := normalizeAmount(cmd.Amount)
	if err != nil {
		return nil, err
	}
	if cmd.From.Kind == models.WalletPlatform {
		return nil, fmt.Errorf("%w: transfers from the platform wallet are not allowed", ErrInvalidWalletKind)
	}

	recipient, err := s.resolver.ResolveByEmail(ctx, cmd.RecipientEmail)
	if err != nil {
		return nil, err
	}
	to := models.AccountRef{Kind: cmd.From.Kind, OwnerID: recipient.UserID}
	if to == cmd.From {
		return nil, ErrSelfTransfer
	}

	// The recipient sees the sender's registered email, never caller-supplied text.
	sender, err := s.resolver.ResolveByID(ctx, cmd.From.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("resolve sender %s: %w", cmd.From.OwnerID, err)
	}

	return s.transfer(ctx, models.TransferRequest{
		From:           cmd.From,
		To:             to,
		Currency:       s.cfg.CurrencyFor(cmd.From.Kind),
		Amount:         amount,
		OutType:        models.TxTransferOut,
		InType:         models.TxTransferIn,
		Method:         cmd.Method,
		Note:           cmd.Note,
		FromLabel:      sender.Email,
		ToLabel:        recipient.Email,
		IdempotencyKey: cmd.IdempotencyKey,
	})
}

// ChargeServiceFee moves a fee from a guest wallet into the platform wallet.
func (s *LedgerService) ChargeServiceFee(ctx context.Context, guest models.AccountRef, amount decimal.Decimal, bookingID, note, key string) (*models.TransferResult, error) {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return nil, err
	}
	if guest.Kind != models.WalletGuest {
		return nil, fmt.Errorf("%w: service fees are charged to guest wallets", ErrInvalidWalletKind)
	}
	platform := s.cfg.PlatformAccount()
	if guest.OwnerID == platform.OwnerID {
		return nil, ErrSelfTransfer
	}
	if s.cfg.CurrencyFor(guest.Kind) != s.cfg.CurrencyFor(platform.Kind) {
		return nil, models.ErrCurrencyMismatch
	}

	var booking *string
	if bookingID != "" {
		booking = &bookingID
	}
	return s.transfer(ctx, models.TransferRequest{
		From:           guest,
		To:             platform,
		Currency:       s.cfg.CurrencyFor(guest.Kind),
		Amount:         amount,
		OutType:        models.TxServiceFee,
		InType:         models.TxTransferIn,
		Method:         "wallet",
		Note:           note,
		ToLabel:        "platform",
		BookingID:      booking,
		IdempotencyKey: key,
	})
}

func (s *LedgerService) transfer(ctx context.Context, req models.TransferRequest) (*models.TransferResult, error) {
	res, err := s.writer.Transfer(ctx, req)
	if err != nil {
		logger.Log.Errorw("ledger transfer failed",
			"from", req.From.String(), "to", req.To.String(), "amount", req.Amount.String(), "error", err)
		return nil, err
	}

	logger.Log.Infow("ledger transfer committed",
		"shared_id", res.SharedID, "from", req.From.String(), "to", req.To.String(),
		"amount", req.Amount.String(), "replayed", res.Replayed)

	if !res.Replayed {
		s.afterCommit(ctx, []models.Account{res.From, res.To}, []models.Transaction{res.Out, res.In})
	}
	return res, nil
}

// GetBalance returns the current snapshot of an account, zero when it was never written.
func (s *LedgerService) GetBalance(ctx context.Context, ref models.AccountRef) (*models.AccountSnapshot, error) {
	acc, err := s.reader.GetAccount(ctx, ref, s.cfg.CurrencyFor(ref.Kind))
	if err != nil {
		logger.Log.Errorw("failed to get balance", "account", ref.String(), "error", err)
		return nil, err
	}
	snap := acc.Snapshot()
	return &snap, nil
}

// afterCommit publishes snapshots and ledger events. Failures are logged only;
// the commit already happened.
func (s *LedgerService) afterCommit(ctx context.Context, accounts []models.Account, entries []models.Transaction) {
	for _, acc := range accounts {
		s.publishSnapshot(ctx, acc.Snapshot())
	}
	for _, entry := range entries {
		if s.metrics != nil {
			s.metrics.EntryCommitted(string(entry.Kind), string(entry.Type))
		}
	}
	s.publishEvents(ctx, entries)
}

func (s *LedgerService) publishSnapshot(ctx context.Context, snap models.AccountSnapshot) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, snap); err != nil {
		logger.Log.Errorw("failed to publish account snapshot",
			"kind", snap.Kind, "owner_id", snap.OwnerID, "version", snap.Version, "error", err)
	}
}

// publishEvents publishes the ledger events of one commit to Kafka in a single batch.
func (s *LedgerService) publishEvents(ctx context.Context, entries []models.Transaction) {
	if len(entries) == 0 {
		return
	}
	if s.kafkaWriter == nil {
		logger.Log.Warnw("Kafka writer not configured, skipping publishing", "transaction_id", entries[0].ID)
		return
	}

	msgs := make([]kafka.Message, 0, len(entries))
	for _, entry := range entries {
		data, err := json.Marshal(newLedgerEvent(entry))
		if err != nil {
			logger.Log.Errorw("Failed to marshal ledger event for Kafka", "transaction_id", entry.ID, "error", err)
			continue
		}
		msgs = append(msgs, kafka.Message{
			// Keyed by account so one account's events stay ordered within a partition.
			Key:   []byte(entry.Ref().String()),
			Value: data,
			Time:  entry.CreatedAt,
		})
	}
	if len(msgs) == 0 {
		return
	}

	if err := s.kafkaWriter.WriteMessages(ctx, msgs...); err != nil {
		logger.Log.Errorw("Failed to publish ledger events to Kafka", "transaction_id", entries[0].ID, "count", len(msgs), "error", err)
	} else {
		logger.Log.Infow("Ledger events published to Kafka", "transaction_id", entries[0].ID, "count", len(msgs))
	}
}

func newLedgerEvent(entry models.Transaction) models.LedgerEvent {
	ts := entry.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	event := models.LedgerEvent{
		EventID:       uuid.NewString(),
		TransactionID: entry.ID.String(),
		Timestamp:     ts.Unix(),
		Kind:          entry.Kind,
		OwnerID:       entry.OwnerID.String(),
		Type:          entry.Type,
		Delta:         entry.Delta,
		BalanceAfter:  entry.BalanceAfter,
	}
	if entry.SharedID != nil {
		event.SharedID = entry.SharedID.String()
	}
	if entry.BookingID != nil {
		event.BookingID = *entry.BookingID
	}
	return event
}
