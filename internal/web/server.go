package web

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/posko-sync/internal/audit"
	"github.com/posko-sync/internal/config"
	"github.com/posko-sync/internal/metrics"
	"github.com/posko-sync/internal/odk"
	"github.com/posko-sync/internal/store"
	"github.com/posko-sync/internal/syncer"
	"github.com/posko-sync/internal/web/handlers"
	"github.com/posko-sync/internal/web/middleware"
)

// Server exposes the pipeline over HTTP: status, backlog listing, and
// manually triggered runs, plus the prometheus scrape endpoint.
type Server struct {
	config     *config.Config
	db         *sql.DB
	httpServer *http.Server
	router     *mux.Router
}

// NewServer wires the stores, the platform client, and the runner behind
// the HTTP API.
func NewServer(cfg *config.Config, db *sql.DB) *Server {
	server := &Server{config: cfg, db: db}
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.WebPort),
		Handler:      server.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // triggered runs execute inline
		IdleTimeout:  60 * time.Second,
	}
	return server
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	locations := store.NewLocationStore(s.db)
	tracker := audit.NewTracker(s.db)
	client := odk.NewClient(odk.Config{
		BaseURL:      s.config.ODKBaseURL,
		Email:        s.config.ODKEmail,
		Password:     s.config.ODKPassword,
		ProjectID:    s.config.ODKProjectID,
		RequestDelay: s.config.ODKRequestDelay,
	})
	dataset := client.Dataset(s.config.ODKDataset)
	runner := syncer.NewRunner(locations, dataset, tracker, s.config.SyncWorkers)

	apiHandler := &handlers.APIHandler{
		History:   tracker,
		Locations: locations,
		Pipeline:  runner,
		Backbone:  store.NewBackboneStore(s.db),
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", apiHandler.GetStatus).Methods("GET")
	api.HandleFunc("/unmatched", apiHandler.ListUnmatched).Methods("GET")

	// Mutating endpoints sit behind the API key.
	protected := api.NewRoute().Subrouter()
	protected.HandleFunc("/sync", apiHandler.TriggerSync).Methods("POST")
	protected.HandleFunc("/resolve", apiHandler.TriggerResolve).Methods("POST")
	protected.Use(middleware.APIKey(s.config.SyncAPIKey))

	s.router.Handle("/metrics", metrics.Handler()).Methods("GET")

	s.router.Use(middleware.RequestLogging())
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		fmt.Printf("Starting server on http://localhost%s\n", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Server error: %v\n", err)
		}
	}()

	<-stop
	fmt.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		fmt.Printf("Server shutdown error: %v\n", err)
	}

	fmt.Println("Server stopped")
	return nil
}
