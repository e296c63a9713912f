package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"metric-anomaly-alerts/internal/alerts"
	"metric-anomaly-alerts/internal/storage"
)

// roleHeader carries the caller's capability level. Absence means
// reader.
const roleHeader = "X-Role"

type alertResponse struct {
	AlertID     int64           `json:"alert_id"`
	Timestamp   string          `json:"ts"`
	MetricName  string          `json:"metric_name"`
	MetricDate  string          `json:"metric_date"`
	Severity    string          `json:"severity"`
	RuleVersion string          `json:"rule_version"`
	RiskScore   float64         `json:"risk_score"`
	Message     string          `json:"message"`
	Context     json.RawMessage `json:"context"`
	Status      string          `json:"status"`
	AckedBy     *string         `json:"acked_by"`
	AckedAt     *string         `json:"acked_at"`
	ResolvedBy  *string         `json:"resolved_by"`
	ResolvedAt  *string         `json:"resolved_at"`
}

type actionRequest struct {
	Actor string `json:"actor"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toAlertResponse(alert storage.Alert) alertResponse {
	resp := alertResponse{
		AlertID:     alert.ID,
		Timestamp:   alert.CreatedAt.UTC().Format(time.RFC3339),
		MetricName:  alert.MetricName,
		MetricDate:  alert.MetricDate.UTC().Format("2006-01-02"),
		Severity:    alert.Severity,
		RuleVersion: alert.RuleVersion,
		RiskScore:   alert.RiskScore,
		Message:     alert.Message,
		Context:     alert.Context,
		Status:      alert.Status,
		AckedBy:     alert.AckedBy,
		ResolvedBy:  alert.ResolvedBy,
	}
	if alert.AckedAt != nil {
		value := alert.AckedAt.UTC().Format(time.RFC3339)
		resp.AckedAt = &value
	}
	if alert.ResolvedAt != nil {
		value := alert.ResolvedAt.UTC().Format(time.RFC3339)
		resp.ResolvedAt = &value
	}
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	rows, err := s.svc.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list recent alerts failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]alertResponse, 0, len(rows))
	for _, alert := range rows {
		out = append(out, toAlertResponse(alert))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	s.handleLifecycle(w, r, s.svc.Acknowledge)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	s.handleLifecycle(w, r, s.svc.Resolve)
}

type lifecycleFunc func(ctx context.Context, alertID int64, actor string, role alerts.Role) (storage.Alert, error)

func (s *Server) handleLifecycle(w http.ResponseWriter, r *http.Request, mutate lifecycleFunc) {
	alertID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	role, err := alerts.ParseRole(r.Header.Get(roleHeader))
	if err != nil {
		writeError(w, http.StatusForbidden, "invalid role")
		return
	}

	var action actionRequest
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if action.Actor == "" {
		writeError(w, http.StatusBadRequest, "actor is required")
		return
	}

	alert, err := mutate(r.Context(), alertID, action.Actor, role)
	if err != nil {
		switch {
		case errors.Is(err, alerts.ErrNotFound):
			writeError(w, http.StatusNotFound, "alert not found")
		case errors.Is(err, alerts.ErrForbidden):
			writeError(w, http.StatusForbidden, "insufficient role")
		default:
			s.logger.Error().Err(err).Int64("alert_id", alertID).Msg("lifecycle mutation failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, toAlertResponse(alert))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
