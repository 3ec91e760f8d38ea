// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trendlens/internal/config"
	"trendlens/internal/server/handlers"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the services behind the HTTP routes. Subscriber may be
// nil, which disables the event stream.
type Dependencies struct {
	Explainer     handlers.Explainer
	Regenerator   handlers.Regenerator
	Synthesizer   handlers.Synthesizer
	Tasks         handlers.TaskLookup
	Subscriber    handlers.EventSubscriber
	EventsSubject string
	Cache         Pinger
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, deps Dependencies, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	trendHandler := handlers.NewTrendHandler()
	explainHandler := handlers.NewExplainHandler(deps.Explainer, deps.Regenerator)
	synthesisHandler := handlers.NewSynthesisHandler(deps.Synthesizer, deps.Tasks)

	// Routes
	router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			if deps.Cache != nil {
				if err := deps.Cache.Ping(r.Context()); err != nil {
					http.Error(w, "cache unavailable", http.StatusServiceUnavailable)
					return
				}
			}
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			r.Route("/timeline", func(r chi.Router) {
				r.Post("/normalize", trendHandler.Normalize)
				r.Post("/significant", trendHandler.Significant)
			})
			r.Get("/cache-key", trendHandler.CacheKey)
			r.Post("/conclusion", trendHandler.Conclusion)

			r.Post("/explain-trend", explainHandler.ExplainTrend)
			r.Get("/peak-summaries", explainHandler.PeakSummaries)
			r.Route("/explanations", func(r chi.Router) {
				r.Get("/history", explainHandler.History)
				r.Post("/regenerate-all", explainHandler.RegenerateAll)
			})

			r.Post("/state-of-world", synthesisHandler.StateOfWorld)
			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", synthesisHandler.ListTasks)
				r.Get("/{id}", synthesisHandler.GetTask)
			})
		})
	})

	router.Handle("/metrics", promhttp.Handler())

	// WebSocket endpoint for generated explanation events
	if deps.Subscriber != nil {
		router.Get("/ws/explanations", handlers.ExplanationStreamHandler(
			deps.Subscriber,
			deps.EventsSubject,
			handlers.DefaultWebSocketConfig(),
			logger,
		))
	}

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
