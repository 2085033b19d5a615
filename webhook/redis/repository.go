package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-tester/webhook"
	"github.com/redis/go-redis/v9"
)

/* Redis Streams implementation of webhook.BatchWriter
 * Every flushed batch becomes one stream entry carrying the records as a
 * JSON array. The stream is capped (approximately) at maxLen entries.
 */

const (
	// StreamKey is the stream holding flushed batches
	StreamKey = "webhooks:batches"

	defaultMaxLen = 10000
)

type Repository struct {
	client *redis.Client
	maxLen int64
	now    func() time.Time
}

// NewRepository creates a new Redis repository
func NewRepository(addr, password string, db int, maxLen int64) (*Repository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	if maxLen < 1 {
		maxLen = defaultMaxLen
	}
	return &Repository{
		client: client,
		maxLen: maxLen,
		now:    time.Now,
	}, nil
}

// WriteBatch appends the batch to the stream
func (r *Repository) WriteBatch(ctx context.Context, batch webhook.Batch) error {
	records, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshaling batch: %w", err)
	}

	_, err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"batch_id":   uuid.New().String(),
			"count":      len(batch),
			"records":    string(records),
			"flushed_at": r.now().Unix(),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("adding batch to stream: %w", err)
	}
	return nil
}

// StoredBatch is a batch read back from the stream
type StoredBatch struct {
	StreamID  string
	BatchID   string
	Count     int
	FlushedAt time.Time
	Records   webhook.Batch
}

// Latest returns up to limit batches, newest first
func (r *Repository) Latest(ctx context.Context, limit int64) ([]StoredBatch, error) {
	messages, err := r.client.XRevRangeN(ctx, StreamKey, "+", "-", limit).Result()
	if err != nil {
		return nil, fmt.Errorf("reading stream: %w", err)
	}

	batches := make([]StoredBatch, 0, len(messages))
	for _, msg := range messages {
		b, err := decodeMessage(msg)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, nil
}

// Len returns the number of batches currently in the stream
func (r *Repository) Len(ctx context.Context) (int64, error) {
	n, err := r.client.XLen(ctx, StreamKey).Result()
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("getting stream length: %w", err)
	}
	return n, nil
}

// Close closes the Redis connection
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Close()
}

// Helper functions

func decodeMessage(msg redis.XMessage) (StoredBatch, error) {
	b := StoredBatch{StreamID: msg.ID}
	b.BatchID, _ = msg.Values["batch_id"].(string)

	count, _ := msg.Values["count"].(string)
	b.Count = int(parseInt64(count))
	flushedAt, _ := msg.Values["flushed_at"].(string)
	b.FlushedAt = time.Unix(parseInt64(flushedAt), 0)

	records, _ := msg.Values["records"].(string)
	if err := json.Unmarshal([]byte(records), &b.Records); err != nil {
		return StoredBatch{}, fmt.Errorf("unmarshaling batch %s: %w", msg.ID, err)
	}
	return b, nil
}

func parseInt64(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
