package metrics

import (
	"context"
	"time"
)

// Metrics represents the current state of the capture pipeline.
type Metrics struct {
	// Buffer describes the durable buffer
	Buffer BufferMetrics `json:"buffer"`

	// Live describes the fan-out hub and connected viewers
	Live LiveMetrics `json:"live"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// BufferMetrics represents the durable buffer counters.
type BufferMetrics struct {
	// Pending is the number of records waiting for the next flush
	Pending int64 `json:"pending"`

	// Appended is the number of records accepted since start
	Appended int64 `json:"appended"`

	// FlushedBatches is the number of batches written successfully
	FlushedBatches int64 `json:"flushed_batches"`

	// FailedFlushes is the number of batches that could not be written
	FailedFlushes int64 `json:"failed_flushes"`

	// PersistedRecords is the number of records written successfully
	PersistedRecords int64 `json:"persisted_records"`

	// DroppedRecords is the number of records lost with failed batches
	DroppedRecords int64 `json:"dropped_records"`

	// MirroredBatches is the number of batches copied to the mirror
	MirroredBatches int64 `json:"mirrored_batches"`

	// MirrorFailures is the number of batches the mirror rejected
	MirrorFailures int64 `json:"mirror_failures"`
}

// LiveMetrics represents the hub counters and viewer presence.
type LiveMetrics struct {
	// Viewers is the number of registered viewer sessions
	Viewers int64 `json:"viewers"`

	// Subscribers is the number of live hub subscriptions
	Subscribers int64 `json:"subscribers"`

	// Broadcasts is the number of broadcast calls
	Broadcasts int64 `json:"broadcasts"`

	// Delivered is the number of messages queued to a subscriber
	Delivered int64 `json:"delivered"`

	// Lagged is the number of messages a full subscriber queue missed
	Lagged int64 `json:"lagged"`

	// NoSubscribers is the number of broadcasts nobody was listening to
	NoSubscribers int64 `json:"no_subscribers"`
}

// Collector defines the interface for collecting metrics from the pipeline.
type Collector interface {
	// Collect gathers current metrics from the system
	Collect(ctx context.Context) (Metrics, error)

	// GetBufferMetrics returns the durable buffer counters
	GetBufferMetrics(ctx context.Context) (BufferMetrics, error)

	// GetLiveMetrics returns the hub counters and viewer count
	GetLiveMetrics(ctx context.Context) (LiveMetrics, error)
}
