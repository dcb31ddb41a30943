package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"supmap-tracker/internal/config"
	"supmap-tracker/internal/ws"
	"sync"
	"time"
)

// Tracker is the gps tracker as seen by the HTTP API.
type Tracker interface {
	ws.StateReader
	SetEnabled(ctx context.Context, enabled bool) bool
	SetDuration(ctx context.Context, d time.Duration) error
}

type Server struct {
	Config           *config.Config
	Tracker          Tracker
	WebsocketManager *ws.Manager
	logger           *slog.Logger
}

func NewServer(config *config.Config, tracker Tracker, wsManager *ws.Manager, logger *slog.Logger) *Server {
	return &Server{
		Config:           config,
		Tracker:          tracker,
		WebsocketManager: wsManager,
		logger:           logger,
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Cache-Control", "no-cache, no-store, must-revalidate;")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("API server is started.")); err != nil {
		s.logger.Error(fmt.Sprintf("Error writing response: %v", err))
	}
}

// Handler returns the routes of the API server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /ws", s.wsHandler())
	mux.HandleFunc("GET /track", s.trackHandler())
	mux.HandleFunc("GET /settings", s.getSettingsHandler())
	mux.HandleFunc("PUT /settings", s.putSettingsHandler())
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:    net.JoinHostPort(s.Config.APIServerHost, s.Config.APIServerPort),
		Handler: s.Handler(),
	}

	go func() {
		s.logger.Info("API server is running", "port", s.Config.APIServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server failed to listen and serve", "error", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("API server failed to shutdown", "error", err)
		}
	}()

	wg.Wait()
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	return nil
}
