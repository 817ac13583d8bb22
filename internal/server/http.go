package server

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/question-bank/internal/config"
	httperrors "github.com/gokatarajesh/question-bank/pkg/http/errors"
)

// Pinger is a dependency checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Routes holds the handlers mounted by NewHTTPServer.
type Routes struct {
	Questions    http.Handler
	Feed         http.Handler
	AdminCreate  http.HandlerFunc
	AdminPublish http.HandlerFunc
	AdminGuard   func(http.Handler) http.Handler
}

// NewUpgrader returns a websocket upgrader that only accepts the configured origins.
// Requests without an Origin header (non-browser clients) are accepted.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// NewHTTPServer wires the API routes, health endpoints and metrics.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, registry *prometheus.Registry, routes Routes, deps map[string]Pinger) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), cfg.DownstreamTimeout)
		defer cancel()
		if name, err := pingDependencies(ctx, deps); err != nil {
			logger.Error().Err(err).Str("dependency", name).Msg("dependency ping failed")
			httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, "Dependency unavailable: "+name)
			return
		}
		httperrors.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	if routes.Questions != nil {
		mux.Handle("/questions", routes.Questions)
	}
	if routes.Feed != nil {
		mux.Handle("/ws/questions", routes.Feed)
	}

	guard := routes.AdminGuard
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}
	if routes.AdminCreate != nil {
		mux.Handle("/admin/questions", guard(routes.AdminCreate))
	}
	if routes.AdminPublish != nil {
		mux.Handle("/admin/questions/{id}/publish", guard(routes.AdminPublish))
	}

	metrics := newHTTPMetrics(registry)
	handler := requestLogging(logger)(metrics.middleware(cors(cfg.CORS)(mux)))

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func pingDependencies(ctx context.Context, deps map[string]Pinger) (string, error) {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := deps[name].Ping(ctx); err != nil {
			return name, err
		}
	}
	return "", nil
}
