package handlers

//go:generate mockgen -source=topup.go -destination=topup_mock.go -package=handlers

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

// TopUpper defines the interface that the service must implement.
type TopUpper interface {
	TopUp(ctx context.Context, ref models.AccountRef, amount decimal.Decimal, method, note, key string) (*models.MutationResult, error)
}

// BalanceChangeRequest represents the JSON body of a top-up or withdrawal
// swagger:model BalanceChangeRequest
type BalanceChangeRequest struct {
	// Amount, rounded to 2 decimal places
	// required: true
	// default: 100.00
	Amount decimal.Decimal `json:"amount" swaggertype:"string"`

	// Settlement method, e.g. card or bank
	// required: true
	// default: card
	Method string `json:"method" validate:"required,max=32"`

	// Optional free-text note
	Note string `json:"note" validate:"max=256"`
}

// NewTopUpHandler returns an HTTP handler that records a settled deposit.
// @Summary Top up wallet
// @Description Credits an already-settled deposit to the caller's wallet. Honours the Idempotency-Key header.
// @Tags wallet
// @Accept json
// @Produce json
// @Param kind path string true "Wallet kind" Enums(guest, platform)
// @Param Idempotency-Key header string false "Client retry key"
// @Param request body handlers.BalanceChangeRequest true "Top-up Request"
// @Success 200 {object} handlers.MutationResponse "Wallet topped up"
// @Failure 400 {object} handlers.ErrorResponse "Invalid amount or wallet"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 409 {object} handlers.ErrorResponse "Wallet is busy"
// @Failure 500 {object} handlers.ErrorResponse "Internal server error"
// @Router /wallets/{kind}/topup [post]
// @Security BearerAuth
func NewTopUpHandler(svc TopUpper, platformID uuid.UUID) http.HandlerFunc {
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
		res, err := svc.TopUp(ctx, ref, req.Amount, req.Method, req.Note, middlewares.IdempotencyKeyFromContext(ctx))
		if err != nil {
			logger.Log.Errorw("failed to top up wallet", "account", ref.String(), "amount", req.Amount.String(), "error", err)
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newMutationResponse(res))
	}
}
