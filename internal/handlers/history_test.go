package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/pagination"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/services"
)

func TestHistoryHandler(t *testing.T) {
	userID := uuid.New()
	ref := models.AccountRef{Kind: models.WalletGuest, OwnerID: userID}
	page := func() *services.Page {
		return &services.Page{
			Records: []models.Transaction{
				{Seq: 3, Type: models.TxTransferOut, Method: "wallet", Counterparty: &models.Counterparty{Label: "jane@example.com"}},
				{Seq: 2, Type: models.TxWithdraw, Method: "bank"},
				{Seq: 1, Type: models.TxTopUp, Method: "card"},
			},
			NextCursor: "abc",
			HasMore:    true,
		}
	}

	tests := []struct {
		name               string
		query              string
		setupMocks         func(m *MockHistoryLister)
		expectedStatusCode int
		expectedSeqs       []int64
	}{
		{
			name:  "first page",
			query: "",
			setupMocks: func(m *MockHistoryLister) {
				m.EXPECT().List(gomock.Any(), ref, 0, "").Return(page(), nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedSeqs:       []int64{3, 2, 1},
		},
		{
			name:  "limit and cursor forwarded",
			query: "?limit=2&cursor=xyz",
			setupMocks: func(m *MockHistoryLister) {
				m.EXPECT().List(gomock.Any(), ref, 2, "xyz").Return(page(), nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedSeqs:       []int64{3, 2, 1},
		},
		{
			name:  "text filter",
			query: "?q=JANE",
			setupMocks: func(m *MockHistoryLister) {
				m.EXPECT().List(gomock.Any(), ref, 0, "").Return(page(), nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedSeqs:       []int64{3},
		},
		{
			name:  "type filter",
			query: "?type=topup,withdraw",
			setupMocks: func(m *MockHistoryLister) {
				m.EXPECT().List(gomock.Any(), ref, 0, "").Return(page(), nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedSeqs:       []int64{2, 1},
		},
		{
			name:               "bad limit",
			query:              "?limit=ten",
			setupMocks:         func(m *MockHistoryLister) {},
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "unknown type",
			query:              "?type=gift",
			setupMocks:         func(m *MockHistoryLister) {},
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:  "bad cursor",
			query: "?cursor=%25%25",
			setupMocks: func(m *MockHistoryLister) {
				m.EXPECT().List(gomock.Any(), ref, 0, "%%").Return(nil, pagination.ErrInvalidCursor)
			},
			expectedStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockSvc := NewMockHistoryLister(ctrl)
			tt.setupMocks(mockSvc)

			req := newWalletRequest(http.MethodGet, "/wallets/guest/transactions"+tt.query, "guest", nil, userID)
			rr := httptest.NewRecorder()

			NewHistoryHandler(mockSvc, platformID).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatusCode, rr.Code)
			if tt.expectedStatusCode != http.StatusOK {
				return
			}

			var resp services.Page
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			seqs := make([]int64, 0, len(resp.Records))
			for _, r := range resp.Records {
				seqs = append(seqs, r.Seq)
			}
			assert.Equal(t, tt.expectedSeqs, seqs)
			assert.Equal(t, "abc", resp.NextCursor)
			assert.True(t, resp.HasMore)
		})
	}
}
