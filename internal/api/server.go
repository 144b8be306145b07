// Package api exposes the planner over JSON HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/moneyplanner/internal/planner"
)

// Options configures the HTTP surface.
type Options struct {
	// DefaultUser is assumed when DevMode is on and a request carries no
	// user header.
	DefaultUser    string
	AllowedOrigins []string
	DevMode        bool
	PlaidEnv       string
}

// Server serves the planner API.
type Server struct {
	http.Server
	planner *planner.Planner
	logger  *slog.Logger
	opts    Options
	now     func() time.Time
}

// NewServer creates a server listening on addr.
func NewServer(addr string, p *planner.Planner, opts Options) *Server {
	s := &Server{
		planner: p,
		logger:  slog.Default().With("component", "api"),
		opts:    opts,
		now:     time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/plaid/webhook", s.handleWebhook)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/phase", s.handlePhase)
	api.HandleFunc("POST /api/phase/advance", s.handleAdvancePhase)

	api.HandleFunc("POST /api/income", s.handleLogIncome)
	api.HandleFunc("GET /api/income/history", s.handleIncomeHistory)
	api.HandleFunc("GET /api/income/streams", s.handleIncomeStreams)
	api.HandleFunc("POST /api/savings", s.handleLogSavings)
	api.HandleFunc("GET /api/savings/history", s.handleSavingsHistory)

	api.HandleFunc("GET /api/iin/config", s.handleTransfer)
	api.HandleFunc("PUT /api/iin/config", s.handleConfigureTransfer)
	api.HandleFunc("POST /api/iin/escalation/accept", s.handleAcceptEscalation)
	api.HandleFunc("POST /api/iin/escalation/reject", s.handleRejectEscalation)
	api.HandleFunc("GET /api/iin/escalations", s.handleEscalations)

	api.HandleFunc("GET /api/transactions", s.handleTransactions)
	api.HandleFunc("PUT /api/transactions/{id}/category", s.handleOverrideCategory)

	api.HandleFunc("GET /api/budget/summary", s.handleBudgetSummary)
	api.HandleFunc("GET /api/budget", s.handleBudget)
	api.HandleFunc("PUT /api/budget", s.handleSaveBudget)
	api.HandleFunc("GET /api/budget/items", s.handleBudgetItems)
	api.HandleFunc("POST /api/budget/items", s.handleCreateBudgetItem)
	api.HandleFunc("PUT /api/budget/items/{id}", s.handleUpdateBudgetItem)
	api.HandleFunc("DELETE /api/budget/items/{id}", s.handleDeleteBudgetItem)
	api.HandleFunc("PUT /api/budget/items/{id}/hard-stop", s.handleHardStop)
	api.HandleFunc("GET /api/budget/alerts", s.handleBudgetAlerts)
	api.HandleFunc("GET /api/safe-to-spend", s.handleSafeToSpend)

	api.HandleFunc("GET /api/reviews/weekly", s.handleWeeklyReview)
	api.HandleFunc("POST /api/reviews/weekly/acknowledge", s.handleAcknowledgeReview)

	api.HandleFunc("GET /api/escalation/forecast", s.handleEscalationForecast)
	api.HandleFunc("GET /api/benchmark", s.handleBenchmark)
	api.HandleFunc("POST /api/benchmark/toggle", s.handleToggleBenchmark)
	api.HandleFunc("POST /api/groups", s.handleCreateGroupGoal)
	api.HandleFunc("GET /api/groups/{id}", s.handleGroupGoal)

	api.HandleFunc("GET /api/safeguards", s.handleSafeguards)
	api.HandleFunc("POST /api/safeguards/gamification/holiday", s.handleHoliday)

	api.HandleFunc("POST /api/plaid/create-link-token", s.handleCreateLinkToken)
	api.HandleFunc("POST /api/plaid/exchange-token", s.handleExchangeToken)
	api.HandleFunc("GET /api/plaid/items", s.handleConnections)
	api.HandleFunc("GET /api/plaid/accounts", s.handleAccounts)
	api.HandleFunc("POST /api/plaid/sync", s.handleSyncAll)
	api.HandleFunc("POST /api/plaid/sync/{item}", s.handleSyncItem)
	api.HandleFunc("POST /api/plaid/disconnect/{item}", s.handleDisconnect)

	mux.Handle("/api/", s.identify(api))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.trace(s.cors(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC(),
		"dev_mode":  s.opts.DevMode,
		"plaid_env": s.opts.PlaidEnv,
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var body struct {
		WebhookType string `json:"webhook_type"`
		WebhookCode string `json:"webhook_code"`
		ItemID      string `json:"item_id"`
	}
	// Malformed webhook bodies are still acknowledged.
	if err := decodeJSON(r, &body); err != nil {
		s.logger.Warn("Malformed Plaid webhook", "request_id", requestID(r.Context()), "error", err)
	}

	s.logger.Info("Plaid webhook",
		"request_id", requestID(r.Context()),
		"webhook_type", body.WebhookType,
		"webhook_code", body.WebhookCode,
		"item_id", body.ItemID)
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
