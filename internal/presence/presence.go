package presence

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avelichko/couriertrack/internal/config"
)

const courierKeyPrefix = "presence:courier:"

// scanCount is the COUNT hint per SCAN page.
const scanCount = 100

// Connect opens a Redis client and verifies the connection with a ping.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Tracker records courier liveness in Redis.
type Tracker struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

// NewTracker creates a tracker. Keys it writes expire after ttl unless
// refreshed. A nil logger falls back to slog.Default().
func NewTracker(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{rdb: rdb, ttl: ttl, log: logger}
}

// MarkOnline records the courier as online and resets the key TTL. Sessions
// call it once on connect and again on every pong, so a healthy connection
// keeps the key alive indefinitely.
func (t *Tracker) MarkOnline(ctx context.Context, courierID int64) error {
	if err := t.rdb.Set(ctx, courierKey(courierID), "1", t.ttl).Err(); err != nil {
		return fmt.Errorf("mark courier online: %w", err)
	}
	return nil
}

// MarkOffline removes the courier's presence key. Callers invoke it only when
// the courier's last session closes.
func (t *Tracker) MarkOffline(ctx context.Context, courierID int64) error {
	if err := t.rdb.Del(ctx, courierKey(courierID)).Err(); err != nil {
		return fmt.Errorf("mark courier offline: %w", err)
	}
	return nil
}

// OnlineCourierIDs returns the IDs of all couriers with a live presence key,
// ascending. Keys that do not parse as courier IDs are skipped.
func (t *Tracker) OnlineCourierIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	iter := t.rdb.Scan(ctx, 0, courierKeyPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		raw := strings.TrimPrefix(iter.Val(), courierKeyPrefix)
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			t.log.Debug("skipping malformed presence key", "key", iter.Val())
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan presence keys: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}

// Ping reports whether the Redis backend is reachable. Health checks use it.
func (t *Tracker) Ping(ctx context.Context) error {
	return t.rdb.Ping(ctx).Err()
}

func courierKey(courierID int64) string {
	return courierKeyPrefix + strconv.FormatInt(courierID, 10)
}
