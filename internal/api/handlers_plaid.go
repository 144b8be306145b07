package api

import (
	"net/http"

	"github.com/Veraticus/moneyplanner/internal/planner"
)

func (s *Server) handleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	token, err := s.planner.CreateLinkToken(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link_token": token})
}

type exchangeRequest struct {
	PublicToken string `json:"public_token"`
	Metadata    struct {
		Institution planner.Institution `json:"institution"`
	} `json:"metadata"`
}

func (s *Server) handleExchangeToken(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	item, err := s.planner.ExchangeToken(r.Context(), userID(r.Context()), req.PublicToken, req.Metadata.Institution)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "connected",
		"institution": item.InstitutionName,
		"item_id":     item.ItemID,
	})
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	items, err := s.planner.Connections(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// Access tokens never leave the server.
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, map[string]any{
			"item_id":          item.ItemID,
			"institution_name": item.InstitutionName,
			"institution_id":   item.InstitutionID,
			"connected_at":     item.ConnectedAt,
			"last_sync":        item.LastSync,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	res, err := s.planner.Accounts(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	results, err := s.planner.SyncAll(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "results": results})
}

func (s *Server) handleSyncItem(w http.ResponseWriter, r *http.Request) {
	summary, err := s.planner.SyncItem(r.Context(), userID(r.Context()), r.PathValue("item"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		*planner.SyncSummary
	}{"ok", summary})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.planner.Disconnect(r.Context(), userID(r.Context()), r.PathValue("item")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}
