package chi

import (
	"context"
	"net/http"

	"github.com/go-chi/httplog"
	"github.com/gorilla/websocket"
	"github.com/marcelsud/webhook-tester/live"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// viewerSocket upgrades GET /ws and runs a viewer session until the viewer
// leaves or ctx is done
func viewerSocket(ctx context.Context, hub *live.Hub, registry *live.Registry, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// the upgrader already replied with an error status
			oplog := httplog.LogEntry(r.Context())
			oplog.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		session := live.NewSession(conn, hub, registry, logger)
		if err := session.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Debug().Err(err).Str("viewer", session.ID()).Msg("viewer session ended")
		}
	})
}
