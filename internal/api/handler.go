package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/coder/websocket"
	"github.com/matheodrd/httphelper/handler"
	"net/http"
	"supmap-tracker/internal/tracker"
	"supmap-tracker/internal/ws"
	"time"
)

// Settings is the body of the settings endpoints. Omitted fields are left
// unchanged by PUT.
type Settings struct {
	Enabled       *bool  `json:"enabled,omitempty"`
	DurationHours *int64 `json:"duration_hours,omitempty"`
}

func (s *Server) wsHandler() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return handler.NewErrWithStatus(http.StatusInternalServerError, fmt.Errorf("websocket accept: %w", err))
		}

		s.WebsocketManager.HandleNewConnection(conn)
		return nil
	})
}

func (s *Server) trackHandler() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return writeJSON(w, http.StatusOK, ws.BuildSnapshot(s.Tracker))
	})
}

func (s *Server) getSettingsHandler() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return writeJSON(w, http.StatusOK, s.currentSettings())
	})
}

func (s *Server) putSettingsHandler() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var req Settings
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return handler.NewErrWithStatus(http.StatusBadRequest, fmt.Errorf("decoding settings: %w", err))
		}

		if req.DurationHours != nil {
			d, err := tracker.HoursToDuration(*req.DurationHours)
			if err == nil {
				err = s.Tracker.SetDuration(r.Context(), d)
			}
			if errors.Is(err, tracker.ErrInvalidDuration) {
				return handler.NewErrWithStatus(http.StatusBadRequest, err)
			}
			if err != nil {
				return fmt.Errorf("setting duration: %w", err)
			}
		}

		if req.Enabled != nil && s.Tracker.SetEnabled(r.Context(), *req.Enabled) {
			// the renderer cannot follow a clear through diffs
			s.WebsocketManager.Resync()
		}

		return writeJSON(w, http.StatusOK, s.currentSettings())
	})
}

func (s *Server) currentSettings() Settings {
	enabled := s.Tracker.IsEnabled()
	hours := int64(s.Tracker.GetDuration() / time.Hour)
	return Settings{Enabled: &enabled, DurationHours: &hours}
}
