package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/soyeahso/whatsapp-relay/internal/domain"
)

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse is returned by the status endpoint.
type StatusResponse struct {
	Status   string                `json:"status"`
	Version  string                `json:"version"`
	Uptime   string                `json:"uptime"`
	Channel  *domain.ChannelStatus `json:"channel,omitempty"`
	Sessions *int                  `json:"sessions,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleStatus reports runtime state. The provider account ID is not exposed.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:  "ok",
		Version: s.version,
		Uptime:  s.uptime().Round(time.Second).String(),
	}
	if s.channel != nil {
		st := s.channel.Status()
		st.AccountID = ""
		resp.Channel = &st
	}
	if s.directory != nil {
		n, err := s.directory.Count(r.Context())
		if err != nil {
			s.log.Warn().Err(err).Msg("counting sessions for status")
		} else {
			resp.Sessions = &n
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
