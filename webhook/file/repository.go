package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/marcelsud/webhook-tester/webhook"
	"github.com/rs/zerolog"
)

/* JSON file implementation of webhook.BatchWriter
 * One file per flush: webhooks_<unix-seconds>.json holding a JSON array of
 * records in append order. A second flush within the same second gets a
 * numeric suffix (webhooks_<unix-seconds>_<n>.json) instead of overwriting.
 */

const (
	filePrefix   = "webhooks_"
	fileExt      = ".json"
	maxCollision = 1000
)

type Repository struct {
	dir    string
	now    func() time.Time
	logger zerolog.Logger
}

// NewRepository creates the data directory if needed
func NewRepository(dir string, logger zerolog.Logger) (*Repository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Repository{
		dir:    dir,
		now:    time.Now,
		logger: logger.With().Str("component", "file").Logger(),
	}, nil
}

// Dir returns the data directory
func (r *Repository) Dir() string {
	return r.dir
}

// WriteBatch serializes the batch into a new file
func (r *Repository) WriteBatch(ctx context.Context, batch webhook.Batch) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("writing batch: %w", err)
	}
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshaling batch: %w", err)
	}

	f, path, err := r.create(r.now().Unix())
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("writing batch file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("syncing batch file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing batch file: %w", err)
	}
	r.logger.Info().Int("records", len(batch)).Str("file", path).Msg("wrote batch file")
	return nil
}

// create opens a file that did not exist before, adding a suffix on collision
func (r *Repository) create(unix int64) (*os.File, string, error) {
	for n := 0; n < maxCollision; n++ {
		path := filepath.Join(r.dir, FileName(unix, n))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("creating batch file: %w", err)
		}
	}
	return nil, "", fmt.Errorf("creating batch file: too many files for timestamp %d", unix)
}

// FileName returns the name of the n-th batch file written in second unix
func FileName(unix int64, n int) string {
	if n == 0 {
		return fmt.Sprintf("%s%d%s", filePrefix, unix, fileExt)
	}
	return fmt.Sprintf("%s%d_%d%s", filePrefix, unix, n, fileExt)
}

// List returns the batch files in dir sorted by name
func List(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileExt))
	if err != nil {
		return nil, fmt.Errorf("listing batch files: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// ReadBatch decodes a batch file. Payload numbers are kept as json.Number.
func ReadBatch(path string) (webhook.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var batch webhook.Batch
	if err := dec.Decode(&batch); err != nil {
		return nil, fmt.Errorf("decoding batch file: %w", err)
	}
	return batch, nil
}
