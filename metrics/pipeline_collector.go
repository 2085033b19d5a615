package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-tester/live"
	"github.com/marcelsud/webhook-tester/webhook"
)

// BufferSource exposes durable buffer counters
type BufferSource interface {
	Stats() webhook.BufferStats
}

// HubSource exposes hub counters
type HubSource interface {
	Stats() live.HubStats
}

// ViewerCounter reports how many viewers are registered
type ViewerCounter interface {
	Count() int
}

// MirrorSource exposes best-effort mirror counters
type MirrorSource interface {
	Mirrored() int64
	Failed() int64
}

// PipelineCollector implements the Collector interface over the in-process
// pipeline components
type PipelineCollector struct {
	buffer   BufferSource
	hub      HubSource
	registry ViewerCounter
	mirror   MirrorSource
}

// NewPipelineCollector creates a new pipeline metrics collector
func NewPipelineCollector(buffer BufferSource, hub HubSource, registry ViewerCounter) *PipelineCollector {
	return &PipelineCollector{
		buffer:   buffer,
		hub:      hub,
		registry: registry,
	}
}

// WithMirror adds the batch mirror counters to the buffer metrics
func (c *PipelineCollector) WithMirror(mirror MirrorSource) *PipelineCollector {
	c.mirror = mirror
	return c
}

// Collect gathers all pipeline metrics
func (c *PipelineCollector) Collect(ctx context.Context) (Metrics, error) {
	buffer, err := c.GetBufferMetrics(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting buffer metrics: %w", err)
	}

	liveMetrics, err := c.GetLiveMetrics(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting live metrics: %w", err)
	}

	return Metrics{
		Buffer:    buffer,
		Live:      liveMetrics,
		Timestamp: time.Now(),
	}, nil
}

// GetBufferMetrics returns the durable buffer counters
func (c *PipelineCollector) GetBufferMetrics(ctx context.Context) (BufferMetrics, error) {
	if err := ctx.Err(); err != nil {
		return BufferMetrics{}, err
	}
	s := c.buffer.Stats()
	m := BufferMetrics{
		Pending:          s.Pending,
		Appended:         s.Appended,
		FlushedBatches:   s.FlushedBatches,
		FailedFlushes:    s.FailedFlushes,
		PersistedRecords: s.PersistedRecords,
		DroppedRecords:   s.DroppedRecords,
	}
	if c.mirror != nil {
		m.MirroredBatches = c.mirror.Mirrored()
		m.MirrorFailures = c.mirror.Failed()
	}
	return m, nil
}

// GetLiveMetrics returns the hub counters and the registered viewer count
func (c *PipelineCollector) GetLiveMetrics(ctx context.Context) (LiveMetrics, error) {
	if err := ctx.Err(); err != nil {
		return LiveMetrics{}, err
	}
	s := c.hub.Stats()
	return LiveMetrics{
		Viewers:       int64(c.registry.Count()),
		Subscribers:   s.Subscribers,
		Broadcasts:    s.Broadcasts,
		Delivered:     s.Delivered,
		Lagged:        s.Lagged,
		NoSubscribers: s.NoSubscribers,
	}, nil
}
