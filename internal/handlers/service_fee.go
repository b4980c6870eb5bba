package handlers

//go:generate mockgen -source=service_fee.go -destination=service_fee_mock.go -package=handlers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/logger"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/middlewares"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
)

// FeeCharger defines the interface that the service must implement.
type FeeCharger interface {
	ChargeServiceFee(ctx context.Context, guest models.AccountRef, amount decimal.Decimal, bookingID, note, key string) (*models.TransferResult, error)
}

// ServiceFeeRequest represents the JSON body of a service fee charge
// swagger:model ServiceFeeRequest
type ServiceFeeRequest struct {
	// Fee amount
	// required: true
	// default: 12.50
	Amount decimal.Decimal `json:"amount" swaggertype:"string"`

	// Booking the fee belongs to
	BookingID string `json:"booking_id" validate:"max=64"`

	// Optional free-text note
	Note string `json:"note" validate:"max=256"`
}

// NewServiceFeeHandler returns an HTTP handler that moves a fee from the
// caller's guest wallet into the platform wallet.
// @Summary Charge service fee
// @Description Debits the caller's guest wallet and credits the platform wallet in one atomic transfer.
// @Tags wallet
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client retry key"
// @Param request body handlers.ServiceFeeRequest true "Service Fee Request"
// @Success 200 {object} handlers.TransferResponse "Fee charged"
// @Failure 400 {object} handlers.ErrorResponse "Invalid amount"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 409 {object} handlers.ErrorResponse "Wallet is busy"
// @Failure 422 {object} handlers.ErrorResponse "Insufficient balance"
// @Router /wallets/guest/service-fee [post]
// @Security BearerAuth
func NewServiceFeeHandler(svc FeeCharger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, ok := middlewares.UserIDFromContext(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req ServiceFeeRequest
		if !decodeBody(w, r, &req) {
			return
		}

		guest := models.AccountRef{Kind: models.WalletGuest, OwnerID: userID}
		res, err := svc.ChargeServiceFee(ctx, guest, req.Amount, req.BookingID, req.Note, middlewares.IdempotencyKeyFromContext(ctx))
		if err != nil {
			logger.Log.Errorw("failed to charge service fee",
				"account", guest.String(), "booking_id", req.BookingID, "amount", req.Amount.String(), "error", err)
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newTransferResponse(res))
	}
}
