package webhook_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/marcelsud/webhook-tester/webhook"
	"github.com/marcelsud/webhook-tester/webhook/mocks"
	"github.com/marcelsud/webhook-tester/webhook/payload"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCapture(body string) webhook.Capture {
	return webhook.Capture{
		ClientIP:     "203.0.113.5",
		Method:       "POST",
		Path:         "/hooks/test",
		Headers:      map[string][]string{"Content-Type": {"application/json"}},
		Body:         []byte(body),
		OriginalPort: 8080,
		ReceivedAt:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600)),
	}
}

func TestReceive(t *testing.T) {
	ctx := context.Background()

	t.Run("success - stores and broadcasts", func(t *testing.T) {
		store := mocks.NewStore(t)
		hub := mocks.NewBroadcaster(t)
		service := webhook.NewService(store, hub, zerolog.Nop())

		store.On("Append", ctx, webhook.MatchRecord(func(r webhook.Record) bool {
			return r.Method == "POST" &&
				r.Path == "/hooks/test" &&
				r.ClientIP == "203.0.113.5" &&
				r.OriginalPort == 8080 &&
				r.Headers["content-type"] == "application/json"
		})).Return(nil)
		hub.On("Broadcast", mock.MatchedBy(func(msg []byte) bool {
			var decoded map[string]any
			if err := json.Unmarshal(msg, &decoded); err != nil {
				return false
			}
			return decoded["method"] == "POST" && decoded["client_ip"] == "203.0.113.5"
		})).Return(2)

		record, err := service.Receive(ctx, newCapture(`{"a":1}`))

		require.NoError(t, err)
		assert.Equal(t, time.UTC, record.Timestamp.Location())
		assert.Equal(t, 15, record.Timestamp.Hour())
		assert.Equal(t, map[string]any{"a": json.Number("1")}, record.Payload)
	})

	t.Run("non-JSON body is wrapped", func(t *testing.T) {
		store := mocks.NewStore(t)
		hub := mocks.NewBroadcaster(t)
		service := webhook.NewService(store, hub, zerolog.Nop())

		store.On("Append", ctx, mock.Anything).Return(nil)
		hub.On("Broadcast", mock.Anything).Return(0)

		record, err := service.Receive(ctx, newCapture("not-json"))

		require.NoError(t, err)
		assert.Equal(t, payload.Anomaly{Raw: "not-json"}, record.Payload)
	})

	t.Run("store failure still broadcasts", func(t *testing.T) {
		store := mocks.NewStore(t)
		hub := mocks.NewBroadcaster(t)
		service := webhook.NewService(store, hub, zerolog.Nop())

		store.On("Append", ctx, mock.Anything).Return(webhook.ErrBufferClosed)
		hub.On("Broadcast", mock.Anything).Return(1)

		_, err := service.Receive(ctx, newCapture(`{}`))

		require.Error(t, err)
		assert.True(t, errors.Is(err, webhook.ErrBufferClosed))
		assert.Contains(t, err.Error(), "storing record")
		hub.AssertNumberOfCalls(t, "Broadcast", 1)
	})

	t.Run("missing timestamp is stamped", func(t *testing.T) {
		store := mocks.NewStore(t)
		hub := mocks.NewBroadcaster(t)
		service := webhook.NewService(store, hub, zerolog.Nop())
		fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		service.Now = func() time.Time { return fixed }

		store.On("Append", ctx, mock.Anything).Return(nil)
		hub.On("Broadcast", mock.Anything).Return(0)

		capture := newCapture(`{}`)
		capture.ReceivedAt = time.Time{}
		record, err := service.Receive(ctx, capture)

		require.NoError(t, err)
		assert.Equal(t, fixed, record.Timestamp)
	})
}

func TestRecordBytes(t *testing.T) {
	record := webhook.NewRecord(newCapture(`{"a":1}`))

	data, err := record.Bytes()
	require.NoError(t, err)

	assert.Contains(t, string(data), `"method":"POST"`)
	assert.Contains(t, string(data), `"path":"/hooks/test"`)
	assert.Contains(t, string(data), `"payload":{"a":1}`)
	assert.Contains(t, string(data), `"client_ip":"203.0.113.5"`)
	assert.Contains(t, string(data), `"original_port":8080`)
	assert.Contains(t, string(data), `"timestamp":"2024-01-01T15:00:00Z"`)
}

func TestMultiWriter(t *testing.T) {
	ctx := context.Background()
	batch := webhook.Batch{webhook.NewRecord(newCapture(`{}`))}

	t.Run("all writers are attempted", func(t *testing.T) {
		first := mocks.NewBatchWriter(t)
		second := mocks.NewBatchWriter(t)
		first.On("WriteBatch", ctx, batch).Return(errors.New("disk full"))
		second.On("WriteBatch", ctx, batch).Return(nil)

		err := webhook.MultiWriter(first, nil, second).WriteBatch(ctx, batch)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})

	t.Run("no error when every writer succeeds", func(t *testing.T) {
		var calls int
		w := webhook.BatchWriterFunc(func(context.Context, webhook.Batch) error {
			calls++
			return nil
		})

		require.NoError(t, webhook.MultiWriter(w, w).WriteBatch(ctx, batch))
		assert.Equal(t, 2, calls)
	})
}
