package handlers

//go:generate mockgen -source=transfer.go -destination=transfer_mock.go -package=handlers

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

// Transferer defines the interface that the service must implement.
type Transferer interface {
	Transfer(ctx context.Context, cmd services.TransferCommand) (*models.TransferResult, error)
}

// TransferRequest represents the JSON body of a transfer
// swagger:model TransferRequest
type TransferRequest struct {
	// Email of the recipient; funds go to their wallet of the same kind
	// required: true
	// default: jane@example.com
	RecipientEmail string `json:"recipient_email" validate:"required,email"`

	// Amount, rounded to 2 decimal places
	// required: true
	// default: 25.00
	Amount decimal.Decimal `json:"amount" swaggertype:"string"`

	// Optional method label
	// default: wallet
	Method string `json:"method" validate:"max=32"`

	// Optional free-text note
	Note string `json:"note" validate:"max=256"`
}

// NewTransferHandler returns an HTTP handler that moves funds to another user.
// @Summary Transfer funds
// @Description Atomically debits the caller's wallet and credits the recipient's wallet of the same kind. Both legs share one id.
// @Tags wallet
// @Accept json
// @Produce json
// @Param kind path string true "Wallet kind" Enums(guest, points)
// @Param Idempotency-Key header string false "Client retry key"
// @Param request body handlers.TransferRequest true "Transfer Request"
// @Success 200 {object} handlers.TransferResponse "Transfer committed"
// @Failure 400 {object} handlers.ErrorResponse "Invalid amount, wallet or recipient"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 404 {object} handlers.ErrorResponse "Recipient not found"
// @Failure 409 {object} handlers.ErrorResponse "Wallet is busy"
// @Failure 422 {object} handlers.ErrorResponse "Insufficient balance"
// @Router /wallets/{kind}/transfer [post]
// @Security BearerAuth
func NewTransferHandler(svc Transferer, platformID uuid.UUID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := callerAccount(w, r, platformID)
		if !ok {
			return
		}

		var req TransferRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Method == "" {
			req.Method = "wallet"
		}

		ctx := r.Context()
		res, err := svc.Transfer(ctx, services.TransferCommand{
			From:           ref,
			RecipientEmail: req.RecipientEmail,
			Amount:         req.Amount,
			Method:         req.Method,
			Note:           req.Note,
			IdempotencyKey: middlewares.IdempotencyKeyFromContext(ctx),
		})
		if err != nil {
			logger.Log.Errorw("failed to transfer funds",
				"account", ref.String(), "recipient", req.RecipientEmail, "amount", req.Amount.String(), "error", err)
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newTransferResponse(res))
	}
}
