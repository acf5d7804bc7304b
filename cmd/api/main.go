package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"storefront-sampler/adapters"
	"storefront-sampler/extractor"
	"storefront-sampler/internal/types"
	"storefront-sampler/storage"
	"storefront-sampler/utils"
)

// APIRequest represents the request body for the API
type APIRequest struct {
	Site string `json:"site"`
	URL  string `json:"url,omitempty"`
}

// APIResponse represents the response from the API
type APIResponse struct {
	Success bool                    `json:"success"`
	Data    *types.ExtractedProduct `json:"data,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// Server holds the API server configuration
type Server struct {
	logger *logrus.Logger
	config *types.Config
	sink   storage.Sink
	open   func(config *types.Config, logger types.Logger) (extractor.OpenFunc, error)
	closer func() error
	sleep  utils.SleepFunc // nil uses utils.Sleep
}

// NewServer creates a new API server
func NewServer() (*Server, error) {
	// Load .env file if present
	_ = godotenv.Load()

	// Setup logging
	logger := logrus.New()

	// Set timestamp format with milliseconds
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	// Create configuration
	config := types.DefaultConfig()
	config.Proxy = os.Getenv("PROXY_URL")
	config.DatabaseURL = os.Getenv("DATABASE_URL")
	if mode := os.Getenv("SAMPLER_MODE"); mode != "" {
		config.Mode = mode
	}

	server := &Server{
		logger: logger,
		config: config,
		open:   extractor.OpenerFor,
	}

	sinks := storage.Multi{storage.NewCSVLog(config.OutputFile)}
	if config.DatabaseURL != "" {
		store, err := storage.NewPostgresStore(context.Background(), config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		sinks = append(sinks, store)
		server.closer = store.Close
	}
	server.sink = sinks

	return server, nil
}

// handleSample runs one sampling session per request
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	// Set CORS headers
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	// Handle preflight requests
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req APIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Site = strings.TrimSpace(req.Site)
	if req.Site == "" {
		req.Site = s.config.Site
	}

	profile, err := adapters.Lookup(req.Site)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// per-request copy
	config := *s.config
	config.Site = profile.Name
	config.URL = strings.TrimSpace(req.URL)

	open, err := s.open(&config, s.logger)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.logger.WithFields(logrus.Fields{"site": profile.Name, "url": config.URL}).Info("API sample request received")

	sampler := extractor.NewExtractor(&config, s.logger, extractor.Options{
		Profile: profile,
		Open:    open,
		Sink:    s.sink,
		Sleep:   s.sleep,
	})

	product, err := sampler.Run(r.Context())
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, adapters.ErrNoProducts) {
			status = http.StatusNotFound
		}
		s.sendError(w, err.Error(), status)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(APIResponse{Success: true, Data: product}); err != nil {
		s.logger.Errorf("Failed to encode response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	response := APIResponse{
		Success: false,
		Error:   message,
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Errorf("Failed to encode error response: %v", err)
	}
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "healthy",
		"sites":  adapters.Sites(),
	})
}

// Routes returns the server's handler
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sample", s.handleSample)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start starts the API server
func (s *Server) Start(port string) error {
	s.logger.Infof("Starting API server on port %s", port)
	s.logger.Info("Available endpoints:")
	s.logger.Info("  POST /sample - Sample one random product from a site")
	s.logger.Info("  GET  /health - Health check")

	return http.ListenAndServe(":"+port, s.Routes())
}

// Close releases the database pool when one is open
func (s *Server) Close() {
	if s.closer != nil {
		if err := s.closer(); err != nil {
			s.logger.Warnf("Failed to close store: %v", err)
		}
	}
}

func main() {
	// Get port from environment variable, default to 8080
	serverPort := "8080"
	if envPort := os.Getenv("API_PORT"); envPort != "" {
		serverPort = envPort
		fmt.Printf("Using port from environment variable API_PORT: %s\n", serverPort)
	} else {
		fmt.Printf("No API_PORT environment variable found, using default: %s\n", serverPort)
	}

	server, err := NewServer()
	if err != nil {
		log.Fatal(err)
	}
	defer server.Close()

	log.Printf("Starting API server on port %s", serverPort)
	log.Fatal(server.Start(serverPort))
}
