package handlers

//go:generate mockgen -source=balance.go -destination=balance_mock.go -package=handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
)

// BalanceReader defines the interface that the service must implement.
type BalanceReader interface {
	GetBalance(ctx context.Context, ref models.AccountRef) (*models.AccountSnapshot, error)
}

// NewGetBalanceHandler returns an HTTP handler for fetching a wallet balance.
// @Summary Get wallet balance
// @Description Returns the current balance snapshot of one of the caller's wallets. A wallet that was never written reports zero.
// @Tags wallet
// @Produce json
// @Param kind path string true "Wallet kind" Enums(guest, points, platform)
// @Success 200 {object} models.AccountSnapshot "Wallet balance"
// @Failure 400 {object} handlers.ErrorResponse "Unknown wallet kind"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 403 {object} handlers.ErrorResponse "Forbidden"
// @Failure 500 {object} handlers.ErrorResponse "Internal server error"
// @Router /wallets/{kind} [get]
// @Security BearerAuth
func NewGetBalanceHandler(svc BalanceReader, platformID uuid.UUID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := callerAccount(w, r, platformID)
		if !ok {
			return
		}

		snap, err := svc.GetBalance(r.Context(), ref)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, snap)
	}
}
