package handlers

//go:generate mockgen -source=history.go -destination=history_mock.go -package=handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/services"
)

// HistoryLister defines the interface that the service must implement.
type HistoryLister interface {
	List(ctx context.Context, ref models.AccountRef, pageSize int, cursor string) (*services.Page, error)
}

// NewHistoryHandler returns an HTTP handler for one page of wallet history.
// @Summary List wallet transactions
// @Description Returns one page of the wallet history, newest first. Pass next_cursor back as cursor for the following page. q and type narrow the records of the fetched page only.
// @Tags wallet
// @Produce json
// @Param kind path string true "Wallet kind" Enums(guest, points, platform)
// @Param limit query int false "Page size, 1-100" default(15)
// @Param cursor query string false "Opaque cursor from a previous page"
// @Param q query string false "Case-insensitive text filter"
// @Param type query string false "Comma-separated transaction types"
// @Success 200 {object} services.Page "History page"
// @Failure 400 {object} handlers.ErrorResponse "Invalid query"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 500 {object} handlers.ErrorResponse "Internal server error"
// @Router /wallets/{kind}/transactions [get]
// @Security BearerAuth
func NewHistoryHandler(svc HistoryLister, platformID uuid.UUID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := callerAccount(w, r, platformID)
		if !ok {
			return
		}

		query := r.URL.Query()

		limit := 0
		if raw := query.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "limit must be an integer")
				return
			}
			limit = n
		}

		filter := services.Filter{Query: query.Get("q")}
		if raw := query.Get("type"); raw != "" {
			for _, part := range strings.Split(raw, ",") {
				t, err := models.ParseTransactionType(strings.TrimSpace(part))
				if err != nil {
					writeError(w, http.StatusBadRequest, err.Error())
					return
				}
				filter.Types = append(filter.Types, t)
			}
		}

		page, err := svc.List(r.Context(), ref, limit, query.Get("cursor"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		resp := *page
		resp.Records = filter.Apply(page.Records)

		writeJSON(w, http.StatusOK, resp)
	}
}
