package availabilityService

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/staffhub/internal/models"
)

func sampleRecord(userID string, at time.Time) models.AvailabilityRecord {
	return models.AvailabilityRecord{
		UserID:        userID,
		Status:        models.StatusAvailable,
		Reason:        "focus time",
		LastUpdatedAt: at,
		ExpiresAt:     at.Add(DefaultTTL),
	}
}

func encode(t *testing.T, rec models.AvailabilityRecord) string {
	t.Helper()
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	return string(b)
}

func TestRedisStore_PutWritesValueAndIndex(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	rec := sampleRecord("u-1", at)

	mock.ExpectTxPipeline()
	mock.ExpectSet("availability:u-1", encode(t, rec), DefaultTTL).SetVal("OK")
	mock.ExpectZAdd("availability:index", redis.Z{Score: float64(at.UnixMilli()), Member: "u-1"}).SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, store.Put(context.Background(), rec, DefaultTTL))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_GetMissing(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)

	mock.ExpectGet("availability:u-1").RedisNil()

	rec, err := store.Get(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRedisStore_GetDecodes(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	want := sampleRecord("u-1", at)

	mock.ExpectGet("availability:u-1").SetVal(encode(t, want))

	rec, err := store.Get(context.Background(), "u-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, want.Reason, rec.Reason)
	assert.True(t, want.ExpiresAt.Equal(rec.ExpiresAt))
}

func TestRedisStore_GetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)

	mock.ExpectGet("availability:u-1").SetErr(errors.New("connection refused"))

	_, err := store.Get(context.Background(), "u-1")
	assert.ErrorContains(t, err, "connection refused")
}

func TestRedisStore_ListSkipsPurgedValues(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	newer := sampleRecord("u-2", at.Add(time.Minute))
	older := sampleRecord("u-1", at)

	mock.ExpectZRevRange("availability:index", 0, -1).SetVal([]string{"u-2", "u-1", "u-3"})
	mock.ExpectMGet("availability:u-2", "availability:u-1", "availability:u-3").
		SetVal([]interface{}{encode(t, newer), encode(t, older), nil})

	records, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "u-2", records[0].UserID)
	assert.Equal(t, "u-1", records[1].UserID)
}

func TestRedisStore_ListEmptyIndex(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)

	mock.ExpectZRevRange("availability:index", 0, -1).SetVal([]string{})

	records, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_DeleteRemovesValueAndIndex(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)

	mock.ExpectTxPipeline()
	mock.ExpectDel("availability:u-1").SetVal(1)
	mock.ExpectZRem("availability:index", "u-1").SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, store.Delete(context.Background(), "u-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_PruneIndex(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)
	cutoff := time.Date(2026, 10, 14, 21, 0, 0, 0, time.UTC)

	mock.ExpectZRemRangeByScore("availability:index", "-inf", strconv.FormatInt(cutoff.UnixMilli(), 10)).SetVal(3)

	n, err := store.PruneIndex(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
