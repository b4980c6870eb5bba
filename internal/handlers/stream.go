package handlers

//go:generate mockgen -source=stream.go -destination=stream_mock.go -package=handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/logger"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SnapshotStreamer defines the interface that the service must implement.
type SnapshotStreamer interface {
	Subscribe(ctx context.Context, ref models.AccountRef) (<-chan models.AccountSnapshot, error)
}

// NewStreamHandler returns a websocket handler pushing live balance snapshots.
// @Summary Live wallet balance
// @Description Upgrades to a websocket. The first message is the current snapshot, then one message per committed change.
// @Tags wallet
// @Param kind path string true "Wallet kind" Enums(guest, points, platform)
// @Success 101 {object} models.AccountSnapshot "Snapshot stream"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 500 {object} handlers.ErrorResponse "Internal server error"
// @Router /wallets/{kind}/stream [get]
// @Security BearerAuth
func NewStreamHandler(svc SnapshotStreamer, platformID uuid.UUID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := callerAccount(w, r, platformID)
		if !ok {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Subscribe before upgrading so a failure is still a plain HTTP error.
		updates, err := svc.Subscribe(ctx, ref)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Log.Errorw("failed to upgrade websocket connection", "account", ref.String(), "error", err)
			return
		}
		defer conn.Close()

		go readPump(conn, cancel)
		writePump(ctx, conn, updates)

		logger.Log.Infow("live balance stream closed", "account", ref.String())
	}
}

// readPump discards client frames and cancels the stream once the peer goes away.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Warnw("websocket connection error", "error", err)
			}
			return
		}
	}
}

func writePump(ctx context.Context, conn *websocket.Conn, updates <-chan models.AccountSnapshot) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
