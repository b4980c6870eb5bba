package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/logger"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
)

// SnapshotPubSubRepository fans committed account snapshots out to live subscribers via Redis pub/sub
type SnapshotPubSubRepository struct {
	client *redis.Client
}

func NewSnapshotPubSubRepository(client *redis.Client) *SnapshotPubSubRepository {
	return &SnapshotPubSubRepository{client: client}
}

func snapshotChannel(ref models.AccountRef) string {
	return fmt.Sprintf("ledger:snapshot:%s:%s", ref.Kind, ref.OwnerID)
}

// Publish announces a committed account state.
func (r *SnapshotPubSubRepository) Publish(ctx context.Context, snap models.AccountSnapshot) error {
	channel := snapshotChannel(models.AccountRef{Kind: snap.Kind, OwnerID: snap.OwnerID})

	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	receivers, err := r.client.Publish(ctx, channel, b).Result()

	logger.Log.Debugw("snapshot published", "channel", channel, "version", snap.Version, "receivers", receivers, "error", err)
	return err
}

// Subscribe returns a channel of snapshots published for ref. The subscription is
// established before Subscribe returns, so nothing published afterwards is missed.
// The channel is closed when ctx is done or the connection drops.
func (r *SnapshotPubSubRepository) Subscribe(ctx context.Context, ref models.AccountRef) (<-chan models.AccountSnapshot, error) {
	channel := snapshotChannel(ref)

	sub := r.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		logger.Log.Errorw("snapshot subscribe failed", "channel", channel, "error", err)
		return nil, err
	}

	out := make(chan models.AccountSnapshot)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var snap models.AccountSnapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					logger.Log.Warnw("dropping malformed snapshot", "channel", channel, "error", err)
					continue
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	logger.Log.Infow("snapshot subscribed", "channel", channel)
	return out, nil
}
