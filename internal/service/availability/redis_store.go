package availabilityService

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhil/staffhub/internal/models"
)

const (
	keyPrefix = "availability:"
	indexKey  = "availability:index"
)

func recordKey(userID string) string { return keyPrefix + userID }

// RedisStore keeps one JSON value per user with a Redis expiry, plus a
// sorted set of user ids scored by last update (unix millis) for listing.
// Redis expiry only reclaims memory; callers still check ExpiresAt.
type RedisStore struct {
	rdb redis.Cmdable
}

func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Put(ctx context.Context, rec models.AvailabilityRecord, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordKey(rec.UserID), string(payload), ttl)
		pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(rec.LastUpdatedAt.UnixMilli()), Member: rec.UserID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("store availability: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, userID string) (*models.AvailabilityRecord, error) {
	raw, err := s.rdb.Get(ctx, recordKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read availability: %w", err)
	}

	var rec models.AvailabilityRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode availability: %w", err)
	}
	return &rec, nil
}

// List returns stored records, most recently updated first. Index entries
// whose value Redis already purged are skipped.
func (s *RedisStore) List(ctx context.Context) ([]models.AvailabilityRecord, error) {
	ids, err := s.rdb.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read availability index: %w", err)
	}
	records := []models.AvailabilityRecord{}
	if len(ids) == 0 {
		return records, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read availability records: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec models.AvailabilityRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode availability for %s: %w", ids[i], err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, recordKey(userID))
		pipe.ZRem(ctx, indexKey, userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	return nil
}

// PruneIndex drops index entries last updated at or before cutoff.
func (s *RedisStore) PruneIndex(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.rdb.ZRemRangeByScore(ctx, indexKey, "-inf", strconv.FormatInt(cutoff.UnixMilli(), 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("prune availability index: %w", err)
	}
	return n, nil
}
