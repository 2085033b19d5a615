package live

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const writeWait = 10 * time.Second

var (
	// ErrViewerClosed means the viewer sent a close frame
	ErrViewerClosed = errors.New("viewer closed the connection")

	errUnsubscribed = errors.New("subscription closed")
)

/* Session streams hub messages to one WebSocket viewer
 * Two loops run until either ends: forward (hub -> viewer) and receive
 * (viewer -> nowhere, waiting for a close frame). The first to stop cancels
 * the other by closing the connection.
 */
type Session struct {
	id       string
	conn     *websocket.Conn
	hub      *Hub
	registry *Registry
	logger   zerolog.Logger

	state atomic.Int32
}

// NewSession wraps an upgraded connection. The session starts in Connecting.
func NewSession(conn *websocket.Conn, hub *Hub, registry *Registry, logger zerolog.Logger) *Session {
	id := NewSessionID()
	s := &Session{
		id:       id,
		conn:     conn,
		hub:      hub,
		registry: registry,
		logger:   logger.With().Str("component", "session").Str("viewer", id).Logger(),
	}
	s.state.Store(int32(Connecting))
	return s
}

// NewSessionID returns a fresh random viewer id
func NewSessionID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	return "client_" + hex.EncodeToString(b[:])
}

// ID returns the viewer id
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
}

// Run registers and subscribes the viewer, then blocks until the viewer goes
// away, a write fails, or ctx is cancelled. A close frame from the viewer is
// not an error.
func (s *Session) Run(ctx context.Context) error {
	sub := s.hub.Subscribe()
	s.registry.Register(s.id)
	s.setState(Active)

	defer func() {
		s.setState(Closing)
		s.hub.Unsubscribe(sub)
		s.conn.Close()
		s.registry.Unregister(s.id)
		s.setState(Closed)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.forward(gctx, sub)
	})
	g.Go(func() error {
		return s.receive()
	})
	g.Go(func() error {
		<-gctx.Done()
		// unblocks the receive loop
		s.conn.Close()
		return nil
	})

	err := g.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, ErrViewerClosed) {
		s.logger.Debug().Msg("viewer sent close frame")
		return nil
	}
	if missed := sub.Missed(); missed > 0 {
		s.logger.Warn().Int64("missed", missed).Msg("viewer lagged behind")
	}
	return err
}

func (s *Session) forward(ctx context.Context, sub *Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.C():
			if !ok {
				return errUnsubscribed
			}
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return fmt.Errorf("setting write deadline: %w", err)
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return fmt.Errorf("forwarding to viewer: %w", err)
			}
		}
	}
}

// receive drains inbound frames; only a close frame or a read error ends it
func (s *Session) receive() error {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			// 1006 is reported for a dropped transport, never sent in a frame
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
				return ErrViewerClosed
			}
			return fmt.Errorf("reading from viewer: %w", err)
		}
	}
}
