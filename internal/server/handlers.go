package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"autoresponder/internal/common/errors"
	"autoresponder/internal/common/logging"
	"autoresponder/internal/engine"
	"autoresponder/internal/settings"
)

// GetRules lists the current in-memory rule set in presentation order.
func (s *Server) GetRules(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.store.Rules())
}

// ReloadRules re-reads the durable rule file.
func (s *Server) ReloadRules(w http.ResponseWriter, r *http.Request) {
	var messages []string
	err := s.store.Load(func(msg string) {
		messages = append(messages, msg)
	})

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(statusFor(err))
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"ok":       err == nil,
		"messages": messages,
	})
}

// ImportRules fetches a remote rule set and merges it in. With
// "preview": true the merge outcome is reported without persisting.
func (s *Server) ImportRules(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL     string `json:"url"`
		Preview bool   `json:"preview"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	run := s.importer.Import
	if req.Preview {
		run = s.importer.Preview
	}

	result, err := run(r.Context(), req.URL)
	if err != nil {
		s.logger.Warn("Rule import failed", logging.Err(err))
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// GetSettings returns the active settings.
func (s *Server) GetSettings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.settings.Current())
}

// UpdateSettings replaces and persists the settings document.
func (s *Server) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var updated settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := s.settings.Save(updated); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// InjectMessage delivers an inbound message event to the engine, standing in
// for the host chat-client's message delivery.
func (s *Server) InjectMessage(w http.ResponseWriter, r *http.Request) {
	var msg engine.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if msg.Server == "" || msg.OriginChannel == "" || msg.Text == "" {
		http.Error(w, "server, origin_channel and text are required", http.StatusBadRequest)
		return
	}

	s.handler.HandleMessage(msg)
	w.WriteHeader(http.StatusAccepted)
}

// GetHistory lists recent firings.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "History is disabled", http.StatusNotFound)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := s.history.Recent(limit)
	if err != nil {
		http.Error(w, "Failed to query history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// GetStats returns aggregate firing counts.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "History is disabled", http.StatusNotFound)
		return
	}

	stats, err := s.history.Stats()
	if err != nil {
		http.Error(w, "Failed to compute stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// HealthCheck reports process liveness and history-store health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK

	if s.history != nil {
		if err := s.history.Health(); err != nil {
			status["status"] = "degraded"
			status["history"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch errors.GetType(err) {
	case errors.ErrTypeValidation:
		return http.StatusUnprocessableEntity
	case errors.ErrTypeNotFound:
		return http.StatusNotFound
	case errors.ErrTypeRemote:
		return http.StatusBadGateway
	case errors.ErrTypeConfig:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
