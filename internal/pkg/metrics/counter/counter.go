package counter

import (
	"context"
	"strconv"

	"github.com/SocialPulseApp/SocialPulse/internal/pkg/cache"
)

const (
	receivedKey = "webhook:counters:received"
	queuedKey   = "webhook:counters:queued"
	rejectedKey = "webhook:counters:rejected"
)

// AddReceived increments the received counter for a platform in Redis
func AddReceived(platform string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, receivedKey, platform, 1).Err()
}

// AddQueued increments the queued counter for a platform in Redis
func AddQueued(platform string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, queuedKey, platform, 1).Err()
}

// AddRejected increments the rejected-signature counter for a platform in Redis
func AddRejected(platform string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, rejectedKey, platform, 1).Err()
}

// TrafficStats holds per-platform webhook traffic counters.
type TrafficStats struct {
	Received map[string]int64 `json:"received"`
	Queued   map[string]int64 `json:"queued"`
	Rejected map[string]int64 `json:"rejected"`
}

// Snapshot reads all traffic counters from Redis. Counters are cumulative
// since the last Redis flush; they are operational signals, not billing data.
func Snapshot() (*TrafficStats, error) {
	ctx := context.Background()
	rdb := cache.GetClient()

	stats := &TrafficStats{}
	var err error
	if stats.Received, err = readHash(rdb.HGetAll(ctx, receivedKey).Result()); err != nil {
		return nil, err
	}
	if stats.Queued, err = readHash(rdb.HGetAll(ctx, queuedKey).Result()); err != nil {
		return nil, err
	}
	if stats.Rejected, err = readHash(rdb.HGetAll(ctx, rejectedKey).Result()); err != nil {
		return nil, err
	}
	return stats, nil
}

func readHash(raw map[string]string, err error) (map[string]int64, error) {
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raw))
	for field, v := range raw {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			continue
		}
		out[field] = n
	}
	return out, nil
}
