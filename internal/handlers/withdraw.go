package handlers

//go:generate mockgen -source=withdraw.go -destination=withdraw_mock.go -package=handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/logger"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/middlewares"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/services"
)

// Withdrawer defines the interface that the service must implement.
type Withdrawer interface {
	Withdraw(ctx context.Context, ref models.AccountRef, amount decimal.Decimal, method, note, key string) (*models.MutationResult, error)
}

// NewWithdrawHandler handles withdrawing funds from a wallet
// @Summary Withdraw funds
// @Description Debits an already-settled payout from the caller's wallet. Fails without changes when the balance is insufficient.
// @Tags wallet
// @Accept json
// @Produce json
// @Param kind path string true "Wallet kind" Enums(guest, platform)
// @Param Idempotency-Key header string false "Client retry key"
// @Param request body handlers.BalanceChangeRequest true "Withdraw Request"
// @Success 200 {object} handlers.MutationResponse "Withdrawal recorded"
// @Failure 400 {object} handlers.ErrorResponse "Invalid amount or wallet"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 409 {object} handlers.ErrorResponse "Wallet is busy"
// @Failure 422 {object} handlers.ErrorResponse "Insufficient balance"
// @Router /wallets/{kind}/withdraw [post]
// @Security BearerAuth
func NewWithdrawHandler(svc Withdrawer, platformID uuid.UUID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := callerAccount(w, r, platformID)
		if !ok {
			return
		}
		if ref.Kind == models.WalletPoints {
			writeServiceError(w, services.ErrInvalidWalletKind)
			return
		}

		var req BalanceChangeRequest
		if !decodeBody(w, r, &req) {
			return
		}

		ctx := r.Context()
		res, err := svc.Withdraw(ctx, ref, req.Amount, req.Method, req.Note, middlewares.IdempotencyKeyFromContext(ctx))
		if err != nil {
			logger.Log.Errorw("failed to withdraw funds", "account", ref.String(), "amount", req.Amount.String(), "error", err)
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newMutationResponse(res))
	}
}
