package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds the router settings that come from configuration.
type RouterConfig struct {
	AllowedOrigins []string
}

// NewRouter creates a new chi router with all routes and middleware configured.
func NewRouter(cfg *RouterConfig, handlers *Handlers) http.Handler {
	r := chi.NewRouter()

	// Basic middleware (applied to all routes). No global timeout: downloads
	// run as long as the engine needs.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.HealthHandler)

		// Media bodies are already compressed; only JSON metadata benefits.
		r.With(chimiddleware.Compress(5)).Get("/videoinfo", handlers.VideoInfoHandler)

		r.Get("/download", handlers.DownloadHandler)
		r.Get("/downloads/{token}", handlers.DownloadStatusHandler)
	})

	// Catch-all for undefined routes
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found", "NOT_FOUND")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
	})

	return r
}

// NewServer creates the HTTP server. writeTimeout bounds a whole download
// response, engine time included; 0 leaves it unbounded.
func NewServer(addr string, handler http.Handler, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
}
