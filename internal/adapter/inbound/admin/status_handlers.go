package admin

import (
	"encoding/json"
	"net/http"
)

// StatusResponse is the JSON body of GET /api/status.
type StatusResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
	Rules  int    `json:"rules"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, StatusResponse{
		Status: "running",
		Mode:   string(s.transport.Mode()),
		Rules:  len(s.store.Compiled()),
	})
}

// StatsResponse is the JSON body of GET /api/stats.
type StatsResponse struct {
	Rules          int   `json:"rules"`
	AuditDropped   int64 `json:"audit_dropped"`
	AlertsDropped  int64 `json:"alerts_dropped"`
	RecentVerdicts int   `json:"recent_verdicts"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Rules: len(s.store.Compiled()),
	}
	if s.auditStore != nil {
		resp.RecentVerdicts = len(s.auditStore.GetRecent(1000))
	}
	if s.dispatcher != nil {
		resp.AlertsDropped = s.dispatcher.Dropped()
	}
	respondJSON(w, http.StatusOK, resp)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
