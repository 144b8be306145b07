package api

import (
	"net/http"

	"github.com/Veraticus/moneyplanner/internal/planner"
)

func (s *Server) handlePhase(w http.ResponseWriter, r *http.Request) {
	status, err := s.planner.PhaseStatus(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleAdvancePhase answers 400 with success=false when the user is not
// ready to advance.
func (s *Server) handleAdvancePhase(w http.ResponseWriter, r *http.Request) {
	res, err := s.planner.AdvancePhase(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if !res.Advanced {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, res)
}

type incomeRequest struct {
	Date              string  `json:"date"`
	SourceDescription string  `json:"source_description"`
	Amount            float64 `json:"amount"`
	IsRecurring       bool    `json:"is_recurring"`
}

func (s *Server) handleLogIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.planner.LogIncome(r.Context(), userID(r.Context()), planner.IncomeInput{
		Date:              date,
		SourceDescription: req.SourceDescription,
		Amount:            req.Amount,
		IsRecurring:       req.IsRecurring,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Status string `json:"status"`
		*planner.IncomeResult
	}{"ok", res})
}

func (s *Server) handleIncomeHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.planner.IncomeHistory(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleIncomeStreams(w http.ResponseWriter, r *http.Request) {
	streams, err := s.planner.IncomeStreams(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"income_streams": streams})
}

type savingsRequest struct {
	Date                   string  `json:"date"`
	DestinationDescription string  `json:"destination_description"`
	Amount                 float64 `json:"amount"`
}

func (s *Server) handleLogSavings(w http.ResponseWriter, r *http.Request) {
	var req savingsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	log, err := s.planner.LogSavings(r.Context(), userID(r.Context()), planner.SavingsInput{
		Date:                   date,
		DestinationDescription: req.DestinationDescription,
		Amount:                 req.Amount,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"status": "ok", "savings_log": log})
}

func (s *Server) handleSavingsHistory(w http.ResponseWriter, r *http.Request) {
	logs, err := s.planner.SavingsHistory(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"savings_logs": logs, "count": len(logs)})
}
