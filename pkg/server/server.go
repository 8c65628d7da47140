// Package server exposes the cache to the website over HTTP. It is a thin
// consumer of the DAL: every response is answered from the local store,
// with revalidation happening behind the scenes.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/confsite/agendacache/internal/dal"
	"github.com/confsite/agendacache/internal/favorites"
	"github.com/confsite/agendacache/pkg/agenda"
)

// Server provides the HTTP read API.
type Server struct {
	dal       *dal.Service
	favorites *favorites.Service
	logger    *slog.Logger
	port      int
}

// New creates the HTTP server.
func New(d *dal.Service, favs *favorites.Service, logger *slog.Logger, port int) *Server {
	if port == 0 {
		port = 8080
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{dal: d, favorites: favs, logger: logger, port: port}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/agenda", s.handleAgenda)
	mux.HandleFunc("/api/v1/talks/", s.handleTalk)
	mux.HandleFunc("/api/v1/speakers", s.handleSpeakers)
	mux.HandleFunc("/api/v1/speakers/", s.handleSpeaker)
	mux.HandleFunc("/api/v1/favorites", s.handleFavorites)
	mux.HandleFunc("/api/v1/reminders", s.handleReminders)
	mux.HandleFunc("/api/v1/refresh", s.handleRefresh)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("http server listening", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	q := r.URL.Query()
	filter := agenda.Filter{
		Day:   q.Get("day"),
		Track: q.Get("track"),
		Type:  q.Get("type"),
		Room:  q.Get("room"),
	}

	res := s.dal.GetAgenda(r.Context(), filter)
	if res.Err != nil && len(res.Talks) == 0 {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": res.Err.Error()})
		return
	}

	body := map[string]any{
		"data":  res.Talks,
		"count": len(res.Talks),
		"stale": res.IsStale,
	}
	if !res.LastSyncAt.IsZero() {
		body["last_sync"] = res.LastSyncAt.UTC().Format(time.RFC3339)
	}
	if res.Err != nil {
		// Cached data with a failed refresh: soft warning, not a failure.
		body["error"] = res.Err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleTalk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	idOrSlug := strings.TrimPrefix(r.URL.Path, "/api/v1/talks/")
	if idOrSlug == "" || strings.Contains(idOrSlug, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "talk not found"})
		return
	}

	talk, err := s.dal.GetTalk(r.Context(), idOrSlug)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if talk == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "talk not found"})
		return
	}

	speakers, err := s.dal.GetSpeakersForTalk(r.Context(), talk.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":     talk,
		"speakers": speakers,
	})
}

func (s *Server) handleSpeakers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	speakers, err := s.dal.GetSpeakers(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  speakers,
		"count": len(speakers),
	})
}

func (s *Server) handleSpeaker(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	idOrSlug := strings.TrimPrefix(r.URL.Path, "/api/v1/speakers/")
	if idOrSlug == "" || strings.Contains(idOrSlug, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "speaker not found"})
		return
	}

	speaker, err := s.dal.GetSpeaker(r.Context(), idOrSlug)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if speaker == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "speaker not found"})
		return
	}

	talks, err := s.dal.GetTalksBySpeaker(r.Context(), speaker.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  speaker,
		"talks": talks,
	})
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		talks, err := s.favorites.FavoriteTalks(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		conflicts, err := s.favorites.Conflicts(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data":      talks,
			"count":     len(talks),
			"conflicts": conflicts,
		})

	case http.MethodPost:
		var req struct {
			TalkID string `json:"talk_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TalkID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "talk_id required"})
			return
		}
		favorited, err := s.favorites.ToggleFavorite(r.Context(), req.TalkID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"talk_id":   req.TalkID,
			"favorited": favorited,
		})

	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		TalkID   string    `json:"talk_id"`
		NotifyAt time.Time `json:"notify_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TalkID == "" || req.NotifyAt.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "talk_id and notify_at required"})
		return
	}

	talk, err := s.dal.GetTalk(r.Context(), req.TalkID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if talk == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "talk not found"})
		return
	}

	if err := s.favorites.ScheduleNotification(r.Context(), talk.ID, req.NotifyAt); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"talk_id":   talk.ID,
		"notify_at": req.NotifyAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if err := s.dal.Refresh(r.Context()); err != nil {
		var verr *agenda.ValidationError
		status := http.StatusBadGateway
		if errors.As(err, &verr) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
