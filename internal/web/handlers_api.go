package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"zigbee-fanswitch/internal/relay"
	"zigbee-fanswitch/internal/store"
)

func (s *Server) handleAPIGetState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":         s.dev.Relay().Get().String(),
		"commissioning": s.dev.Commissioning().State().String(),
		"retries":       s.dev.Commissioning().Retries(),
	})
}

type setStateRequest struct {
	State string `json:"state"`
}

func (s *Server) handleAPISetState(w http.ResponseWriter, r *http.Request) {
	var req setStateRequest
	r.Body = http.MaxBytesReader(w, r.Body, 4096)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var target relay.State
	switch req.State {
	case "ON", "on":
		target = relay.On
	case "OFF", "off":
		target = relay.Off
	case "TOGGLE", "toggle":
		target = !s.dev.Relay().Get()
	default:
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "state must be ON, OFF or TOGGLE"})
		return
	}

	if err := s.dev.ApplyLocal(target); err != nil {
		// The relay switched; only the mesh attribute is stale.
		s.logger.Error("apply state", "state", target, "err", err)
		s.writeJSON(w, http.StatusOK, map[string]string{
			"status": "degraded",
			"state":  target.String(),
			"error":  "attribute sync failed",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "state": target.String()})
}

func (s *Server) handleAPINetwork(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"commissioning": s.dev.Commissioning().State().String(),
		"retries":       s.dev.Commissioning().Retries(),
	}
	if ns, err := s.dev.Commissioning().NetworkState(); err == nil {
		resp["network"] = ns
	} else if !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("load network state", "err", err)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPIVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write json response", "err", err)
	}
}
