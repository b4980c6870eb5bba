package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/logger"
)

// IdempotencyHeader is the request header carrying a client-chosen retry key.
const IdempotencyHeader = "Idempotency-Key"

// MaxIdempotencyKeyLen bounds the accepted key length.
const MaxIdempotencyKeyLen = 128

type idempotencyKey struct{}

// IdempotencyMiddleware moves the Idempotency-Key header into the request
// context. Requests without the header pass through unchanged; oversized keys
// are rejected.
func IdempotencyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		if len(key) > MaxIdempotencyKeyLen {
			logger.Log.Warnw("idempotency key rejected", "length", len(key))
			http.Error(w, "idempotency key too long", http.StatusBadRequest)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdempotencyKey(r.Context(), key)))
	})
}

// WithIdempotencyKey stores key in the context.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey{}, key)
}

// IdempotencyKeyFromContext retrieves the idempotency key. Returns "" if not present.
func IdempotencyKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKey{}).(string)
	return key
}
