package webhook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultFlushThreshold is the number of records collected before a flush
const DefaultFlushThreshold = 100

const defaultFlushTimeout = 30 * time.Second

// ErrBufferClosed is returned by Append after Shutdown
var ErrBufferClosed = errors.New("buffer is closed")

/* Buffer accumulates records and hands them to a BatchWriter in batches
 * The mutex only guards the live batch: a full batch is detached while
 * holding it and written after releasing it, so appends never wait on I/O.
 * Persistence is at-most-once: a failed batch is dropped, never retried.
 */
type Buffer struct {
	writer       BatchWriter
	threshold    int
	flushTimeout time.Duration
	logger       zerolog.Logger

	mu     sync.Mutex
	batch  Batch
	closed bool

	inflight sync.WaitGroup

	appended       atomic.Int64
	flushedBatches atomic.Int64
	persisted      atomic.Int64
	failedFlushes  atomic.Int64
	dropped        atomic.Int64
}

// BufferStats is a point-in-time view of the buffer counters
type BufferStats struct {
	Pending          int64
	Appended         int64
	FlushedBatches   int64
	PersistedRecords int64
	FailedFlushes    int64
	DroppedRecords   int64
}

// NewBuffer creates a buffer flushing every threshold records to writer.
// A threshold below 1 falls back to DefaultFlushThreshold.
func NewBuffer(writer BatchWriter, threshold int, logger zerolog.Logger) *Buffer {
	if threshold < 1 {
		threshold = DefaultFlushThreshold
	}
	return &Buffer{
		writer:       writer,
		threshold:    threshold,
		flushTimeout: defaultFlushTimeout,
		logger:       logger.With().Str("component", "buffer").Logger(),
		batch:        make(Batch, 0, threshold),
	}
}

// Append adds a record to the current batch. When the batch reaches the
// threshold it is detached and flushed in the background.
func (b *Buffer) Append(ctx context.Context, record Record) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBufferClosed
	}
	b.batch = append(b.batch, record)
	b.appended.Add(1)
	if len(b.batch) < b.threshold {
		b.mu.Unlock()
		return nil
	}
	full := b.batch
	b.batch = make(Batch, 0, b.threshold)
	b.inflight.Add(1)
	b.mu.Unlock()

	// the request context ends with the response; the flush must outlive it
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.flushTimeout)
	go func() {
		defer b.inflight.Done()
		defer cancel()
		_ = b.flush(flushCtx, full)
	}()
	return nil
}

// Shutdown flushes the remaining records, even a partial batch, and waits for
// flushes already in flight. It runs once; later calls return nil.
func (b *Buffer) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	rest := b.batch
	b.batch = nil
	b.mu.Unlock()

	err := b.flush(ctx, rest)

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		err = errors.Join(err, fmt.Errorf("waiting for in-flight flushes: %w", ctx.Err()))
	}
	return err
}

// Pending returns the number of records waiting in the current batch
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.batch)
}

// Stats returns the buffer counters
func (b *Buffer) Stats() BufferStats {
	return BufferStats{
		Pending:          int64(b.Pending()),
		Appended:         b.appended.Load(),
		FlushedBatches:   b.flushedBatches.Load(),
		PersistedRecords: b.persisted.Load(),
		FailedFlushes:    b.failedFlushes.Load(),
		DroppedRecords:   b.dropped.Load(),
	}
}

func (b *Buffer) flush(ctx context.Context, batch Batch) error {
	if len(batch) == 0 {
		return nil
	}
	if err := b.writer.WriteBatch(ctx, batch); err != nil {
		b.failedFlushes.Add(1)
		b.dropped.Add(int64(len(batch)))
		b.logger.Error().Err(err).Int("records", len(batch)).Msg("failed to flush batch, records dropped")
		return fmt.Errorf("flushing batch: %w", err)
	}
	b.flushedBatches.Add(1)
	b.persisted.Add(int64(len(batch)))
	b.logger.Info().Int("records", len(batch)).Msg("flushed batch")
	return nil
}
