package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/logger"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/middlewares"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/pagination"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/services"
)

var validate = validator.New()

// ErrorResponse represents an error response
// swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	// default: Insufficient balance
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeServiceError maps ledger errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrSelfTransfer),
		errors.Is(err, services.ErrInvalidWalletKind),
		errors.Is(err, services.ErrInvalidTransactionType),
		errors.Is(err, services.ErrInvalidRecipient),
		errors.Is(err, models.ErrCurrencyMismatch),
		errors.Is(err, pagination.ErrInvalidCursor):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrRecipientNotFound):
		writeError(w, http.StatusNotFound, "Recipient not found")
	case errors.Is(err, models.ErrIdempotencyKeyReused):
		writeError(w, http.StatusBadRequest, "Idempotency-Key was already used for a different request")
	case errors.Is(err, models.ErrConflict):
		writeError(w, http.StatusConflict, "Wallet is busy, retry later")
	case errors.Is(err, models.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, "Insufficient balance")
	default:
		logger.Log.Errorw("internal server error", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeBody decodes and validates a JSON request body.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Log.Warnw("failed to decode request body", "uri", r.RequestURI, "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		logger.Log.Warnw("request validation failed", "uri", r.RequestURI, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// callerAccount resolves the wallet addressed by the {kind} path parameter.
// Guest and points wallets belong to the caller; the platform wallet is
// reachable only by its configured owner.
func callerAccount(w http.ResponseWriter, r *http.Request, platformID uuid.UUID) (models.AccountRef, bool) {
	userID, ok := middlewares.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return models.AccountRef{}, false
	}

	kind, err := models.ParseWalletKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return models.AccountRef{}, false
	}

	if kind == models.WalletPlatform {
		if userID != platformID {
			logger.Log.Warnw("platform wallet access denied", "user_id", userID)
			writeError(w, http.StatusForbidden, "Forbidden")
			return models.AccountRef{}, false
		}
		return models.AccountRef{Kind: kind, OwnerID: platformID}, true
	}
	return models.AccountRef{Kind: kind, OwnerID: userID}, true
}

// MutationResponse is the committed entry and the resulting balance.
// swagger:model MutationResponse
type MutationResponse struct {
	Transaction models.Transaction     `json:"transaction"`
	Balance     models.AccountSnapshot `json:"balance"`
	Replayed    bool                   `json:"replayed"`
}

func newMutationResponse(res *models.MutationResult) MutationResponse {
	return MutationResponse{
		Transaction: res.Transaction,
		Balance:     res.Account.Snapshot(),
		Replayed:    res.Replayed,
	}
}

// TransferResponse is the sender's side of a committed transfer. The
// recipient's leg is never returned to the sender.
// swagger:model TransferResponse
type TransferResponse struct {
	SharedID    uuid.UUID              `json:"shared_id"`
	Transaction models.Transaction     `json:"transaction"`
	Balance     models.AccountSnapshot `json:"balance"`
	Replayed    bool                   `json:"replayed"`
}

func newTransferResponse(res *models.TransferResult) TransferResponse {
	return TransferResponse{
		SharedID:    res.SharedID,
		Transaction: res.Out,
		Balance:     res.From.Snapshot(),
		Replayed:    res.Replayed,
	}
}
