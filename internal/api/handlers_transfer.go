package api

import (
	"net/http"

	"github.com/Veraticus/moneyplanner/internal/automation"
)

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	transfer, err := s.planner.Transfer(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"config": transfer})
}

type transferRequest struct {
	Rate        *float64 `json:"savings_rate_pct"`
	IsActive    *bool    `json:"is_active"`
	Destination string   `json:"destination"`
}

func (s *Server) handleConfigureTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	transfer, err := s.planner.ConfigureTransfer(r.Context(), userID(r.Context()), automation.Settings{
		Rate:        req.Rate,
		Destination: req.Destination,
		IsActive:    req.IsActive,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "config": transfer})
}

func (s *Server) handleAcceptEscalation(w http.ResponseWriter, r *http.Request) {
	res, err := s.planner.AcceptEscalation(r.Context(), userID(r.Context()))
	s.writeEscalation(w, r, res, err)
}

func (s *Server) handleRejectEscalation(w http.ResponseWriter, r *http.Request) {
	res, err := s.planner.RejectEscalation(r.Context(), userID(r.Context()))
	s.writeEscalation(w, r, res, err)
}

// writeEscalation answers 400 with success=false when there was no pending
// proposal to act on.
func (s *Server) writeEscalation(w http.ResponseWriter, r *http.Request, res automation.Result, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !res.Success {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": res.Message})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": res.Message,
		"config":  res.Transfer,
	})
}

func (s *Server) handleEscalations(w http.ResponseWriter, r *http.Request) {
	proposals, err := s.planner.EscalationProposals(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proposals": proposals, "count": len(proposals)})
}
