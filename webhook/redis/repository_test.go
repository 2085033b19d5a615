package redis

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		msg := redis.XMessage{
			ID: "1700000000000-0",
			Values: map[string]interface{}{
				"batch_id":   "b-1",
				"count":      "1",
				"flushed_at": "1700000000",
				"records":    `[{"timestamp":"2024-01-01T12:00:00Z","client_ip":"203.0.113.5","method":"POST","path":"/x","headers":{},"payload":{"a":1},"original_port":8080}]`,
			},
		}

		b, err := decodeMessage(msg)
		require.NoError(t, err)

		assert.Equal(t, "1700000000000-0", b.StreamID)
		assert.Equal(t, "b-1", b.BatchID)
		assert.Equal(t, 1, b.Count)
		assert.Equal(t, int64(1700000000), b.FlushedAt.Unix())
		require.Len(t, b.Records, 1)
		assert.Equal(t, "/x", b.Records[0].Path)
	})

	t.Run("error - corrupt records", func(t *testing.T) {
		msg := redis.XMessage{ID: "1-0", Values: map[string]interface{}{"records": "{"}}

		_, err := decodeMessage(msg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unmarshaling batch 1-0")
	})
}

func TestParseInt64(t *testing.T) {
	assert.Equal(t, int64(42), parseInt64("42"))
	assert.Equal(t, int64(0), parseInt64("nope"))
	assert.Equal(t, int64(0), parseInt64(""))
}
