package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcelsud/webhook-tester/webhook"
	"github.com/marcelsud/webhook-tester/webhook/payload"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBatch() webhook.Batch {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return webhook.Batch{
		{
			Timestamp:    ts,
			ClientIP:     "203.0.113.5",
			Method:       "POST",
			Path:         "/hooks/a",
			Headers:      map[string]string{"content-type": "application/json"},
			Payload:      map[string]any{"a": json.Number("1")},
			OriginalPort: 8080,
		},
		{
			Timestamp:    ts.Add(time.Second),
			ClientIP:     "203.0.113.6",
			Method:       "PUT",
			Path:         "/hooks/b",
			Headers:      map[string]string{},
			Payload:      payload.Anomaly{Raw: "not-json"},
			OriginalPort: 8080,
		},
	}
}

func fixedRepository(t *testing.T, unix int64) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "data"), zerolog.Nop())
	require.NoError(t, err)
	repo.now = func() time.Time { return time.Unix(unix, 0) }
	return repo
}

func TestNewRepository(t *testing.T) {
	t.Run("creates the data directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "data")

		repo, err := NewRepository(dir, zerolog.Nop())
		require.NoError(t, err)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, dir, repo.Dir())
	})

	t.Run("error - path is a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "occupied")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		_, err := NewRepository(path, zerolog.Nop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "creating data directory")
	})
}

func TestRepository_WriteBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("writes a JSON array named by timestamp", func(t *testing.T) {
		repo := fixedRepository(t, 1700000000)

		require.NoError(t, repo.WriteBatch(ctx, testBatch()))

		path := filepath.Join(repo.Dir(), "webhooks_1700000000.json")
		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var raw []map[string]any
		require.NoError(t, json.Unmarshal(data, &raw))
		require.Len(t, raw, 2)
		assert.Equal(t, "/hooks/a", raw[0]["path"])
		assert.Equal(t, "/hooks/b", raw[1]["path"])
		assert.Equal(t, map[string]any{"anomaly_payload": "not-json"}, raw[1]["payload"])
	})

	t.Run("same second does not overwrite", func(t *testing.T) {
		repo := fixedRepository(t, 1700000000)

		require.NoError(t, repo.WriteBatch(ctx, testBatch()[:1]))
		require.NoError(t, repo.WriteBatch(ctx, testBatch()[1:]))

		files, err := List(repo.Dir())
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "webhooks_1700000000.json", filepath.Base(files[0]))
		assert.Equal(t, "webhooks_1700000000_1.json", filepath.Base(files[1]))
	})

	t.Run("round trip through ReadBatch", func(t *testing.T) {
		repo := fixedRepository(t, 1700000001)
		require.NoError(t, repo.WriteBatch(ctx, testBatch()))

		batch, err := ReadBatch(filepath.Join(repo.Dir(), FileName(1700000001, 0)))
		require.NoError(t, err)

		require.Len(t, batch, 2)
		assert.Equal(t, "203.0.113.5", batch[0].ClientIP)
		assert.Equal(t, map[string]any{"a": json.Number("1")}, batch[0].Payload)
		assert.True(t, batch[1].Timestamp.Equal(testBatch()[1].Timestamp))
	})

	t.Run("error - cancelled context", func(t *testing.T) {
		repo := fixedRepository(t, 1700000002)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := repo.WriteBatch(cancelled, testBatch())
		require.Error(t, err)

		files, err := List(repo.Dir())
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("error - directory removed", func(t *testing.T) {
		repo := fixedRepository(t, 1700000003)
		require.NoError(t, os.RemoveAll(repo.Dir()))

		err := repo.WriteBatch(ctx, testBatch())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "creating batch file")
	})
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "webhooks_42.json", FileName(42, 0))
	assert.Equal(t, "webhooks_42_3.json", FileName(42, 3))
}

func TestReadBatch(t *testing.T) {
	t.Run("error - missing file", func(t *testing.T) {
		_, err := ReadBatch(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading batch file")
	})

	t.Run("error - not a batch", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "webhooks_1.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"not":"an array"}`), 0o644))

		_, err := ReadBatch(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoding batch file")
	})
}
