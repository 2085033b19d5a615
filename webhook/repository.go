package webhook

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
)

/* Small, focused interfaces following "The Go Way"
 * Interfaces abstract behavior, not things
 */

// BatchWriter persists one flushed batch
type BatchWriter interface {
	/* WriteBatch receives the records in append order
	 * A returned error means the batch is lost; callers never retry
	 */
	WriteBatch(ctx context.Context, batch Batch) error
}

// Store accepts records for durable persistence
type Store interface {
	Append(ctx context.Context, record Record) error
}

// Broadcaster fans a serialized record out to live viewers and reports how
// many subscribers received it
type Broadcaster interface {
	Broadcast(message []byte) int
}

// BatchWriterFunc adapts a function to the BatchWriter interface
type BatchWriterFunc func(ctx context.Context, batch Batch) error

// WriteBatch calls f(ctx, batch)
func (f BatchWriterFunc) WriteBatch(ctx context.Context, batch Batch) error {
	return f(ctx, batch)
}

type multiWriter struct {
	writers []BatchWriter
}

// MultiWriter hands every batch to each writer in turn. All writers are
// attempted; their errors are joined.
func MultiWriter(writers ...BatchWriter) BatchWriter {
	all := make([]BatchWriter, 0, len(writers))
	for _, w := range writers {
		if w != nil {
			all = append(all, w)
		}
	}
	return &multiWriter{writers: all}
}

func (m *multiWriter) WriteBatch(ctx context.Context, batch Batch) error {
	var errs []error
	for i, w := range m.writers {
		if err := w.WriteBatch(ctx, batch); err != nil {
			errs = append(errs, fmt.Errorf("writer %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

/* MirrorWriter writes batches to a secondary store on a best-effort basis.
 * Failures are logged and counted but never reported to the caller, so a
 * mirror outage does not turn a persisted batch into a dropped one.
 */
type MirrorWriter struct {
	writer BatchWriter
	logger zerolog.Logger

	mirrored atomic.Int64
	failed   atomic.Int64
}

// NewMirrorWriter wraps writer as a best-effort mirror
func NewMirrorWriter(writer BatchWriter, logger zerolog.Logger) *MirrorWriter {
	return &MirrorWriter{
		writer: writer,
		logger: logger.With().Str("component", "mirror").Logger(),
	}
}

// WriteBatch forwards the batch and always returns nil
func (m *MirrorWriter) WriteBatch(ctx context.Context, batch Batch) error {
	if err := m.writer.WriteBatch(ctx, batch); err != nil {
		m.failed.Add(1)
		m.logger.Warn().Err(err).Int("records", len(batch)).Msg("failed to mirror batch")
		return nil
	}
	m.mirrored.Add(1)
	return nil
}

// Mirrored returns the number of batches the mirror accepted
func (m *MirrorWriter) Mirrored() int64 {
	return m.mirrored.Load()
}

// Failed returns the number of batches the mirror rejected
func (m *MirrorWriter) Failed() int64 {
	return m.failed.Load()
}
