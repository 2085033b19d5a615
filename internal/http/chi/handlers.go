package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-tester/internal/origdst"
	"github.com/marcelsud/webhook-tester/live"
	"github.com/marcelsud/webhook-tester/webhook"
	"github.com/rs/zerolog"
)

// Dependencies groups what the public router needs
type Dependencies struct {
	Service      webhook.UseCase
	Hub          *live.Hub
	Registry     *live.Registry
	Ports        origdst.Resolver
	FrontendDir  string
	MaxBodyBytes int64
}

/* Handlers builds the public router.
 * /ws and the frontend pages are reserved; every other method and path is
 * captured. ctx bounds the lifetime of viewer sessions.
 */
func Handlers(ctx context.Context, logger zerolog.Logger, deps Dependencies) *chi.Mux {
	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(permissiveCORS)

	capture := captureWebhook(deps.Service, deps.Ports, deps.MaxBodyBytes)

	r.Get("/ws", viewerSocket(ctx, deps.Hub, deps.Registry, logger).ServeHTTP)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/index.html", http.StatusTemporaryRedirect)
	})
	for _, page := range []string{"index.html", "logs.html", "logs-modular.html"} {
		r.Get("/"+page, servePage(filepath.Join(deps.FrontendDir, page)))
	}
	r.Get("/frontend/*", http.StripPrefix("/frontend/", http.FileServer(http.Dir(deps.FrontendDir))).ServeHTTP)

	r.NotFound(capture.ServeHTTP)
	r.MethodNotAllowed(capture.ServeHTTP)

	return r
}

// servePage serves one file. http.ServeFile is avoided as it redirects
// paths ending in /index.html.
func servePage(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := os.Open(path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	}
}

// permissiveCORS allows any origin, method and header. Preflight requests are
// answered here and never reach the capture handler.
func permissiveCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Add("Vary", "Origin")

		if r.Method == http.MethodOptions && r.Header.Get("Origin") != "" &&
			r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "*")
			h.Set("Access-Control-Allow-Headers", "*")
			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminHandlers builds the router for the admin listener
func AdminHandlers(logger zerolog.Logger, metricsHandler http.Handler, registry *live.Registry) *chi.Mux {
	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger, []string{"/health"}))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}
	if registry != nil {
		r.Get("/viewers", listViewers(registry).ServeHTTP)
	}

	return r
}

// viewersResponse represents the connected viewers in the admin API
type viewersResponse struct {
	Count   int           `json:"count"`
	Viewers []live.Viewer `json:"viewers"`
}

// listViewers handles GET /viewers
func listViewers(registry *live.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewers := registry.List()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(viewersResponse{Count: len(viewers), Viewers: viewers}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
