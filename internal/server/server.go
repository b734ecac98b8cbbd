// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats.go"

	"mediaintel/internal/config"
	"mediaintel/internal/domain/dashboard"
	"mediaintel/internal/server/handlers"
	"mediaintel/internal/service/navigation"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server. A nil natsConn disables live updates.
func NewServer(
	cfg config.ServerConfig,
	maxUploadBytes int64,
	dashboardService dashboard.Service,
	navigator *navigation.Navigator,
	natsConn *nats.Conn,
	eventsTopic string,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	datasetHandler := handlers.NewDatasetHandler(dashboardService, maxUploadBytes)
	pageHandler := handlers.NewPageHandler(navigator)

	// Routes
	router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			r.Get("/catalog", datasetHandler.GetCatalog)

			// Datasets API
			r.Route("/datasets", func(r chi.Router) {
				r.Get("/", datasetHandler.ListDatasets)
				r.Post("/", datasetHandler.UploadDataset)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", datasetHandler.GetDataset)
					r.Delete("/", datasetHandler.DeleteDataset)
					r.Get("/dashboard", datasetHandler.GetDashboard)
					r.Get("/pages/{page}", datasetHandler.GetPage)
					r.Get("/charts/{chart}.png", datasetHandler.GetChartPNG)
					r.Get("/export.xlsx", datasetHandler.ExportDataset)
					r.Post("/narrative", datasetHandler.CreateNarrative)
				})
			})

			// Navigation
			r.Route("/session/page", func(r chi.Router) {
				r.Get("/", pageHandler.GetCurrentPage)
				r.Put("/", pageHandler.SelectPage)
				r.Delete("/", pageHandler.ResetPage)
			})
		})
	})

	// WebSocket endpoint for dataset events
	router.Get("/ws/datasets", handlers.DatasetWebSocketHandler(natsConn, eventsTopic))

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
