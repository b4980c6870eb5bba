package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/logger"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
)

// DirectoryCacheRepository caches recipient lookups by email using Redis
type DirectoryCacheRepository struct {
	client *redis.Client
	exp    time.Duration // expiration duration for cached entries
}

// NewDirectoryCacheRepository creates a new repository instance with the given TTL
func NewDirectoryCacheRepository(client *redis.Client, expiration time.Duration) *DirectoryCacheRepository {
	return &DirectoryCacheRepository{
		client: client,
		exp:    expiration,
	}
}

func directoryKey(email string) string {
	return fmt.Sprintf("directory:email:%s", strings.ToLower(strings.TrimSpace(email)))
}

// Get returns the cached entry for email. A miss is reported as (nil, nil).
func (r *DirectoryCacheRepository) Get(ctx context.Context, email string) (*models.DirectoryEntry, error) {
	key := directoryKey(email)

	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		logger.Log.Debugw("directory cache miss", "key", key)
		return nil, nil
	}
	if err != nil {
		logger.Log.Warnw("directory cache get", "key", key, "error", err)
		return nil, err
	}

	var entry models.DirectoryEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		logger.Log.Warnw("directory cache decode", "key", key, "value", val, "error", err)
		return nil, err
	}

	logger.Log.Debugw("directory cache hit", "key", key, "user_id", entry.UserID)
	return &entry, nil
}

// Set caches entry under its email with expiration
func (r *DirectoryCacheRepository) Set(ctx context.Context, entry models.DirectoryEntry) error {
	key := directoryKey(entry.Email)

	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	err = r.client.Set(ctx, key, b, r.exp).Err()

	logger.Log.Debugw("directory cache set", "key", key, "user_id", entry.UserID, "error", err)
	return err
}
