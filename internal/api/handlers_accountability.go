package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/planner"
)

// parseFloatParam reads an optional numeric query value.
func parseFloatParam(field, value string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", common.ErrInvalidInput, field)
	}
	return &v, nil
}

func (s *Server) handleEscalationForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		in  planner.ForecastInput
		err error
	)
	for field, dst := range map[string]**float64{
		"current_rate":   &in.CurrentRate,
		"proposed_rate":  &in.ProposedRate,
		"monthly_income": &in.MonthlyIncome,
	} {
		if *dst, err = parseFloatParam(field, q.Get(field)); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if v := q.Get("years"); v != "" {
		if in.Years, err = strconv.Atoi(v); err != nil {
			s.writeError(w, r, fmt.Errorf("%w: years must be a whole number", common.ErrInvalidInput))
			return
		}
	}

	forecast, err := s.planner.EscalationForecast(r.Context(), userID(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, forecast)
}

func (s *Server) handleBenchmark(w http.ResponseWriter, r *http.Request) {
	benchmark, err := s.planner.PeerBenchmark(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, benchmark)
}

func (s *Server) handleToggleBenchmark(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OptIn bool `json:"opt_in"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	settings, err := s.planner.ToggleBenchmark(r.Context(), userID(r.Context()), req.OptIn)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleCreateGroupGoal(w http.ResponseWriter, r *http.Request) {
	var in planner.GroupGoalInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	goal, err := s.planner.CreateGroupGoal(r.Context(), userID(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

func (s *Server) handleGroupGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.planner.GroupGoal(r.Context(), userID(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}
