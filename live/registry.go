package live

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Registry tracks which viewers are connected. It is for observability only;
// delivery is driven by hub subscriptions.
type Registry struct {
	logger zerolog.Logger

	mu      sync.Mutex
	viewers map[string]time.Time
}

// Viewer is one registry entry
type Viewer struct {
	ID          string    `json:"id"`
	ConnectedAt time.Time `json:"connected_at"`
}

// NewRegistry creates an empty registry
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger:  logger.With().Str("component", "registry").Logger(),
		viewers: make(map[string]time.Time),
	}
}

// Register adds a viewer
func (r *Registry) Register(id string) {
	r.mu.Lock()
	r.viewers[id] = time.Now()
	n := len(r.viewers)
	r.mu.Unlock()

	r.logger.Info().Str("viewer", id).Int("connected", n).Msg("viewer connected")
}

// Unregister removes a viewer; unknown ids are ignored
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	_, ok := r.viewers[id]
	delete(r.viewers, id)
	n := len(r.viewers)
	r.mu.Unlock()

	if ok {
		r.logger.Info().Str("viewer", id).Int("connected", n).Msg("viewer disconnected")
	}
}

// Count returns the number of connected viewers
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.viewers)
}

// Contains reports whether id is registered
func (r *Registry) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.viewers[id]
	return ok
}

// List returns the connected viewers ordered by connect time
func (r *Registry) List() []Viewer {
	r.mu.Lock()
	viewers := make([]Viewer, 0, len(r.viewers))
	for id, at := range r.viewers {
		viewers = append(viewers, Viewer{ID: id, ConnectedAt: at})
	}
	r.mu.Unlock()

	sort.Slice(viewers, func(i, j int) bool {
		if viewers[i].ConnectedAt.Equal(viewers[j].ConnectedAt) {
			return viewers[i].ID < viewers[j].ID
		}
		return viewers[i].ConnectedAt.Before(viewers[j].ConnectedAt)
	})
	return viewers
}
