package server

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/kartoza/house-price-estimator/internal/api"
	"github.com/kartoza/house-price-estimator/internal/config"
	"github.com/kartoza/house-price-estimator/internal/estimate"
	"github.com/kartoza/house-price-estimator/internal/logging"
	"github.com/kartoza/house-price-estimator/internal/metrics"
	"github.com/kartoza/house-price-estimator/internal/models"
	"github.com/kartoza/house-price-estimator/internal/present"
)

//go:embed static/*
var staticFS embed.FS

// Server holds all the components for the web application
type Server struct {
	cfg        config.Config
	httpServer *http.Server
	router     *mux.Router
	handler    http.Handler
	estimator  *estimate.Service
	registry   *prometheus.Registry
}

// New creates a new Server with all components initialized
func New(cfg config.Config) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		router: mux.NewRouter(),
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.NewWithRegistry(s.registry)
	}

	s.estimator = estimate.NewService(estimate.Options{
		ModelPath:     cfg.ModelPath,
		ReferencePath: cfg.ReferencePath,
		Mode:          cfg.EncodingMode,
		Presenter:     present.NewPresenter(cfg.Locale),
		Metrics:       m,
	})

	st := s.estimator.Status()
	if !st.ModelPresent {
		logging.Logger.Warnf("Warning: model artifact not found at %s", st.ModelPath)
	}
	if cfg.EncodingMode == config.ModeRefit && !st.ReferencePresent {
		logging.Logger.Warnf("Warning: reference dataset not found at %s", st.ReferencePath)
	}

	// Set up routes
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() error {
	s.router.Use(loggingMiddleware)

	// API routes
	apiRouter := s.router.PathPrefix("/api").Subrouter()
	apiHandler := api.NewHandler(s.estimator, s.cfg)
	apiHandler.RegisterRoutes(apiRouter)
	apiRouter.NotFoundHandler = apiError(http.StatusNotFound, models.CodeNotFound, "no such endpoint")
	apiRouter.MethodNotAllowedHandler = apiError(http.StatusMethodNotAllowed, models.CodeMethodNotAllowed, "method not allowed")

	if s.registry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods("GET")
	}

	// Static frontend files (embedded)
	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		return fmt.Errorf("load embedded static files: %w", err)
	}

	fileServer := http.FileServer(http.FS(staticContent))
	s.router.PathPrefix("/").Handler(spaHandler{staticContent: staticContent, fileServer: fileServer})

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{fmt.Sprintf("http://localhost:%d", s.cfg.Port)}
	}
	co := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	s.handler = co.Handler(s.router)
	return nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for HTTP connections
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logging.Logger.Infof("Server listening on http://localhost:%d", s.cfg.Port)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// apiError answers unrouted API requests with the JSON error envelope
func apiError(status int, code, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		resp := models.ErrorResponse{Code: code, Message: message + ": " + r.Method + " " + r.URL.Path}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logging.Logger.Errorf("Error encoding response: %v", err)
		}
	}
}

// spaHandler serves the SPA, falling back to index.html for client-side routing
type spaHandler struct {
	staticContent fs.FS
	fileServer    http.Handler
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" {
		path = "index.html"
	}

	// fs.FS paths must not have a leading slash
	cleanPath := strings.TrimPrefix(path, "/")

	if _, err := fs.Stat(h.staticContent, cleanPath); err != nil {
		r.URL.Path = "/"
	}

	h.fileServer.ServeHTTP(w, r)
}
