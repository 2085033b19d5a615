package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-tester/webhook/payload"
	"github.com/rs/zerolog"
)

/* Service represents the business logic layer
 * Uses pointer semantics as it's an API, not data
 */

// UseCase defines the ingestion operation used by the HTTP layer
type UseCase interface {
	Receive(ctx context.Context, capture Capture) (Record, error)
}

type Service struct {
	Store       Store
	Broadcaster Broadcaster
	Logger      zerolog.Logger
	Now         func() time.Time
}

// NewService creates a new ingestion service with dependency injection
func NewService(store Store, broadcaster Broadcaster, logger zerolog.Logger) *Service {
	return &Service{
		Store:       store,
		Broadcaster: broadcaster,
		Logger:      logger.With().Str("component", "ingest").Logger(),
		Now:         time.Now,
	}
}

// NewRecord builds the canonical record for a capture
func NewRecord(c Capture) Record {
	return Record{
		Timestamp:    c.ReceivedAt.UTC(),
		ClientIP:     c.ClientIP,
		Method:       c.Method,
		Path:         c.Path,
		Headers:      payload.NormalizeHeaders(c.Headers),
		Payload:      payload.Normalize(c.Body),
		OriginalPort: c.OriginalPort,
	}
}

// Receive records a capture and submits it to the store and to live viewers.
// Both submissions are always attempted; their errors are joined and the
// record is returned either way.
func (s *Service) Receive(ctx context.Context, capture Capture) (Record, error) {
	if capture.ReceivedAt.IsZero() {
		capture.ReceivedAt = s.Now()
	}
	record := NewRecord(capture)

	var errs []error
	if err := s.Store.Append(ctx, record); err != nil {
		s.Logger.Warn().Err(err).Msg("failed to store webhook")
		errs = append(errs, fmt.Errorf("storing record: %w", err))
	}

	message, err := record.Bytes()
	if err != nil {
		s.Logger.Warn().Err(err).Msg("failed to encode webhook for broadcast")
		errs = append(errs, fmt.Errorf("broadcasting record: %w", err))
	} else {
		delivered := s.Broadcaster.Broadcast(message)
		s.Logger.Debug().Int("receivers", delivered).Msg("broadcast webhook")
	}

	return record, errors.Join(errs...)
}
