package handlers

//go:generate mockgen -source=points.go -destination=points_mock.go -package=handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/logger"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/middlewares"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
)

// PointsService defines the loyalty operations the handlers need.
type PointsService interface {
	Reward(ctx context.Context, ownerID uuid.UUID, points decimal.Decimal, bookingID string, metadata models.Metadata, key string) (*models.MutationResult, error)
	Redeem(ctx context.Context, ownerID uuid.UUID, points decimal.Decimal, note, key string) (*models.MutationResult, error)
}

// RewardRequest represents a booking reward event
// swagger:model RewardRequest
type RewardRequest struct {
	// Points earned
	// required: true
	// default: 120
	Points decimal.Decimal `json:"points" swaggertype:"string"`

	// Booking that earned the points
	// required: true
	// default: bk_2024_0001
	BookingID string `json:"booking_id" validate:"required,max=64"`

	// Free-form booking details
	Metadata models.Metadata `json:"metadata"`
}

// RedeemRequest represents a points redemption
// swagger:model RedeemRequest
type RedeemRequest struct {
	// Points spent
	// required: true
	// default: 50
	Points decimal.Decimal `json:"points" swaggertype:"string"`

	// Optional free-text note
	Note string `json:"note" validate:"max=256"`
}

// NewRewardHandler returns an HTTP handler that credits booking rewards.
// @Summary Credit booking reward
// @Description Credits loyalty points earned by a booking to the caller's points wallet.
// @Tags points
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client retry key"
// @Param request body handlers.RewardRequest true "Reward Request"
// @Success 200 {object} handlers.MutationResponse "Points credited"
// @Failure 400 {object} handlers.ErrorResponse "Invalid request"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 409 {object} handlers.ErrorResponse "Wallet is busy"
// @Router /points/rewards [post]
// @Security BearerAuth
func NewRewardHandler(svc PointsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, ok := middlewares.UserIDFromContext(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req RewardRequest
		if !decodeBody(w, r, &req) {
			return
		}

		res, err := svc.Reward(ctx, userID, req.Points, req.BookingID, req.Metadata, middlewares.IdempotencyKeyFromContext(ctx))
		if err != nil {
			logger.Log.Errorw("failed to credit reward", "user_id", userID, "booking_id", req.BookingID, "error", err)
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newMutationResponse(res))
	}
}

// NewRedeemHandler returns an HTTP handler that spends loyalty points.
// @Summary Redeem points
// @Description Debits points from the caller's points wallet. Fails without changes when the balance is insufficient.
// @Tags points
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client retry key"
// @Param request body handlers.RedeemRequest true "Redeem Request"
// @Success 200 {object} handlers.MutationResponse "Points redeemed"
// @Failure 400 {object} handlers.ErrorResponse "Invalid request"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 422 {object} handlers.ErrorResponse "Insufficient balance"
// @Router /points/redeem [post]
// @Security BearerAuth
func NewRedeemHandler(svc PointsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, ok := middlewares.UserIDFromContext(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req RedeemRequest
		if !decodeBody(w, r, &req) {
			return
		}

		res, err := svc.Redeem(ctx, userID, req.Points, req.Note, middlewares.IdempotencyKeyFromContext(ctx))
		if err != nil {
			logger.Log.Errorw("failed to redeem points", "user_id", userID, "points", req.Points.String(), "error", err)
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newMutationResponse(res))
	}
}
