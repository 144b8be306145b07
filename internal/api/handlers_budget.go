package api

import (
	"net/http"
	"strconv"

	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/planner"
	"github.com/Veraticus/moneyplanner/internal/service"
)

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter service.TransactionFilter

	start, err := parseDate("start_date", q.Get("start_date"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !start.IsZero() {
		filter.StartDate = &start
	}
	end, err := parseDate("end_date", q.Get("end_date"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !end.IsZero() {
		filter.EndDate = &end
	}
	filter.ItemID = q.Get("item_id")
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		filter.Limit = n
		if off, err := strconv.Atoi(q.Get("offset")); err == nil && off > 0 {
			filter.Offset = off
		}
	}

	txns, err := s.planner.Transactions(r.Context(), userID(r.Context()), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txns, "count": len(txns)})
}

func (s *Server) handleOverrideCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	override, err := s.planner.OverrideCategory(r.Context(), userID(r.Context()), r.PathValue("id"), req.Category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transaction_id": override.TransactionID,
		"category":       override.Category,
		"status":         "updated",
	})
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.planner.BudgetSummary(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	budget, err := s.planner.Budget(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	var budget model.Budget
	if err := decodeJSON(r, &budget); err != nil {
		s.writeError(w, r, err)
		return
	}
	saved, err := s.planner.SaveBudget(r.Context(), userID(r.Context()), &budget)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleBudgetItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.planner.BudgetItems(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.BudgetItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) handleCreateBudgetItem(w http.ResponseWriter, r *http.Request) {
	var in planner.BudgetItemInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.planner.CreateBudgetItem(r.Context(), userID(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"item": item, "status": "created"})
}

func (s *Server) handleUpdateBudgetItem(w http.ResponseWriter, r *http.Request) {
	var in planner.BudgetItemInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.planner.UpdateBudgetItem(r.Context(), userID(r.Context()), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item, "status": "updated"})
}

func (s *Server) handleDeleteBudgetItem(w http.ResponseWriter, r *http.Request) {
	if err := s.planner.DeleteBudgetItem(r.Context(), userID(r.Context()), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHardStop(w http.ResponseWriter, r *http.Request) {
	req := struct {
		HardStop bool `json:"hard_stop"`
	}{HardStop: true}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.planner.SetHardStop(r.Context(), userID(r.Context()), r.PathValue("id"), req.HardStop)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item, "status": "updated"})
}

func (s *Server) handleBudgetAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.planner.BudgetAlerts(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts, "count": len(alerts)})
}

func (s *Server) handleSafeToSpend(w http.ResponseWriter, r *http.Request) {
	res, err := s.planner.SafeToSpend(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleWeeklyReview(w http.ResponseWriter, r *http.Request) {
	review, err := s.planner.GenerateWeeklyReview(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) handleAcknowledgeReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReviewID string `json:"review_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	review, err := s.planner.AcknowledgeReview(r.Context(), userID(r.Context()), req.ReviewID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) handleSafeguards(w http.ResponseWriter, r *http.Request) {
	status, err := s.planner.Safeguards(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleHoliday(w http.ResponseWriter, r *http.Request) {
	safeguards, err := s.planner.StartHoliday(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"gamification_active":        safeguards.GamificationActive,
		"gamification_holiday_until": safeguards.HolidayUntil,
	})
}
