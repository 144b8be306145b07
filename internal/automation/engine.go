// Package automation adjusts savings rates in response to income changes.
//
// Increases produce a pending escalation proposal that the user must accept.
// Decreases reduce the active rate immediately.
package automation

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/model"
)

// Default rate limits and capture share.
const (
	DefaultCeiling      = 50.0
	DefaultFloor        = 1.0
	DefaultCaptureShare = 0.5

	DefaultRate        = 10.0
	DefaultDestination = "savings"
)

// SupersededReason is recorded when a new proposal replaces a pending one.
const SupersededReason = "superseded by a newer proposal"

// Config tunes the engine's rate rules.
type Config struct {
	Ceiling      float64 // highest rate an escalation may propose
	Floor        float64 // lowest rate an automatic reduction may set
	CaptureShare float64 // share of an income increase proposed as extra savings
}

// DefaultConfig returns the standard rate rules.
func DefaultConfig() Config {
	return Config{
		Ceiling:      DefaultCeiling,
		Floor:        DefaultFloor,
		CaptureShare: DefaultCaptureShare,
	}
}

// Action is what HandleIncomeChange did to a transfer.
type Action string

// Actions.
const (
	ActionNone     Action = "none"
	ActionProposed Action = "escalation_proposed"
	ActionReduced  Action = "rate_reduced"
)

// Outcome describes the effect of an income change on a transfer.
type Outcome struct {
	Proposal   *model.EscalationProposal
	Superseded *model.EscalationProposal
	Action     Action
	Reason     string
	OldRate    float64
	NewRate    float64
}

// Changed reports whether the transfer was modified and needs saving.
func (o Outcome) Changed() bool {
	return o.Action != ActionNone
}

// Result is returned by the escalation lifecycle calls. Success is false
// when there was nothing to act on; that is not an error.
type Result struct {
	Transfer *model.AutoTransfer
	Message  string
	Success  bool
}

// Engine applies the savings-rate rules. It only mutates the transfer it is
// given; persisting the result is the caller's job.
type Engine struct {
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
	cfg    Config
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides how proposal ids are generated.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// NewEngine creates an engine. Zero fields in cfg take their defaults.
func NewEngine(cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = def.Ceiling
	}
	if cfg.Floor <= 0 {
		cfg.Floor = def.Floor
	}
	if cfg.CaptureShare <= 0 {
		cfg.CaptureShare = def.CaptureShare
	}

	e := &Engine{
		cfg:    cfg,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.Default().With("component", "automation"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// HandleIncomeChange reacts to a flagged income event.
//
// previousAvg is the rolling average before the event was recorded. Without a
// positive baseline, or without a flag, nothing happens.
func (e *Engine) HandleIncomeChange(transfer *model.AutoTransfer, event *model.IncomeEvent, previousAvg float64) Outcome {
	none := Outcome{Action: ActionNone}
	if transfer == nil || transfer.Recovered || event == nil || previousAvg <= 0 {
		return none
	}

	switch event.ChangeFlag {
	case model.IncomeIncrease:
		return e.propose(transfer, event.Amount, previousAvg)
	case model.IncomeDecrease:
		return e.reduce(transfer, event.Amount, previousAvg)
	default:
		return none
	}
}

func (e *Engine) propose(transfer *model.AutoTransfer, amount, previousAvg float64) Outcome {
	prev := decimal.NewFromFloat(previousAvg)
	increasePct := decimal.NewFromFloat(amount).Sub(prev).Div(prev)
	bump := increasePct.Mul(decimal.NewFromFloat(e.cfg.CaptureShare * 100)).Round(1)

	current := decimal.NewFromFloat(transfer.SavingsRatePct)
	proposed := decimal.Min(current.Add(bump), decimal.NewFromFloat(e.cfg.Ceiling))
	if !proposed.GreaterThan(current) {
		e.logger.Debug("Income increase leaves no room under the ceiling",
			"user_id", transfer.UserID,
			"rate", transfer.SavingsRatePct)
		return Outcome{Action: ActionNone}
	}

	now := e.now().UTC()
	outcome := Outcome{
		Action:  ActionProposed,
		OldRate: transfer.SavingsRatePct,
		NewRate: proposed.InexactFloat64(),
		Reason: fmt.Sprintf("Income increased %s%%. Proposing %spp increase to capture surplus.",
			increasePct.Mul(decimal.NewFromInt(100)).StringFixed(1), bump.StringFixed(1)),
	}

	// At most one proposal is pending; a newer one replaces it.
	if superseded := transfer.Resolve(model.ProposalRejected, now); superseded != nil {
		transfer.Record(model.RateChange{
			Action:  model.RateEscalationRejected,
			OldRate: superseded.OldRate,
			NewRate: superseded.NewRate,
			Reason:  SupersededReason,
			At:      now,
		})
		outcome.Superseded = superseded
	}

	transfer.PendingEscalation = &model.EscalationProposal{
		ID:        e.newID(),
		OldRate:   outcome.OldRate,
		NewRate:   outcome.NewRate,
		Reason:    outcome.Reason,
		Status:    model.ProposalPending,
		CreatedAt: now,
	}
	transfer.UpdatedAt = now
	outcome.Proposal = transfer.PendingEscalation

	e.logger.Info("Proposed savings escalation",
		"user_id", transfer.UserID,
		"old_rate", outcome.OldRate,
		"new_rate", outcome.NewRate)

	return outcome
}

func (e *Engine) reduce(transfer *model.AutoTransfer, amount, previousAvg float64) Outcome {
	floor := decimal.NewFromFloat(e.cfg.Floor)
	current := decimal.NewFromFloat(transfer.SavingsRatePct)
	if !current.GreaterThan(floor) {
		return Outcome{Action: ActionNone}
	}

	prev := decimal.NewFromFloat(previousAvg)
	decreasePct := prev.Sub(decimal.NewFromFloat(amount)).Div(prev)
	reduction := current.Mul(decreasePct).Round(1)
	reduced := decimal.Max(current.Sub(reduction), floor)
	if reduced.Equal(current) {
		return Outcome{Action: ActionNone}
	}

	now := e.now().UTC()
	outcome := Outcome{
		Action:  ActionReduced,
		OldRate: transfer.SavingsRatePct,
		NewRate: reduced.InexactFloat64(),
		Reason:  fmt.Sprintf("Income decreased %s%%", decreasePct.Mul(decimal.NewFromInt(100)).StringFixed(1)),
	}

	transfer.SavingsRatePct = outcome.NewRate
	transfer.UpdatedAt = now
	transfer.Record(model.RateChange{
		Action:  model.RateAutoReduce,
		OldRate: outcome.OldRate,
		NewRate: outcome.NewRate,
		Reason:  outcome.Reason,
		At:      now,
	})

	e.logger.Info("Reduced savings rate",
		"user_id", transfer.UserID,
		"old_rate", outcome.OldRate,
		"new_rate", outcome.NewRate)

	return outcome
}

// Accept applies the pending proposal's rate.
func (e *Engine) Accept(transfer *model.AutoTransfer) Result {
	if transfer == nil || !transfer.PendingEscalation.IsPending() {
		return Result{Transfer: transfer, Message: "No pending escalation"}
	}

	now := e.now().UTC()
	proposal := transfer.Resolve(model.ProposalAccepted, now)

	transfer.Record(model.RateChange{
		Action:  model.RateEscalationAccepted,
		OldRate: proposal.OldRate,
		NewRate: proposal.NewRate,
		At:      now,
	})
	transfer.SavingsRatePct = proposal.NewRate
	transfer.UpdatedAt = now

	return Result{
		Transfer: transfer,
		Success:  true,
		Message:  fmt.Sprintf("Savings rate raised to %.1f%%", proposal.NewRate),
	}
}

// Reject discards the pending proposal. The history entry keeps the
// proposed rate as NewRate; the active rate is unchanged.
func (e *Engine) Reject(transfer *model.AutoTransfer) Result {
	if transfer == nil || !transfer.PendingEscalation.IsPending() {
		return Result{Transfer: transfer, Message: "No pending escalation"}
	}

	now := e.now().UTC()
	proposal := transfer.Resolve(model.ProposalRejected, now)

	transfer.Record(model.RateChange{
		Action:  model.RateEscalationRejected,
		OldRate: proposal.OldRate,
		NewRate: proposal.NewRate,
		At:      now,
	})
	transfer.UpdatedAt = now

	return Result{
		Transfer: transfer,
		Success:  true,
		Message:  fmt.Sprintf("Savings rate kept at %.1f%%", transfer.SavingsRatePct),
	}
}

// Settings are the user-editable fields of a transfer.
type Settings struct {
	Rate        *float64
	Destination string
	IsActive    *bool
}

// Configure applies user settings to transfer, creating a default transfer
// when transfer is nil or a recovered placeholder. A placeholder's version,
// history and resolved proposals carry over. Rate changes are recorded in
// the history.
func (e *Engine) Configure(transfer *model.AutoTransfer, userID string, s Settings) (*model.AutoTransfer, error) {
	now := e.now().UTC()
	if transfer == nil || transfer.Recovered {
		fresh := &model.AutoTransfer{
			UserID:         userID,
			SavingsRatePct: DefaultRate,
			Destination:    DefaultDestination,
			IsActive:       true,
			CreatedAt:      now,
		}
		if transfer != nil {
			fresh.Version = transfer.Version
			fresh.History = transfer.History
			fresh.Resolved = transfer.Resolved
		}
		transfer = fresh
		transfer.Record(model.RateChange{
			Action:  model.RateConfigured,
			NewRate: DefaultRate,
			At:      now,
		})
	}

	if s.Rate != nil {
		rate := decimal.NewFromFloat(*s.Rate).Round(1).InexactFloat64()
		if rate < 0 || rate > 100 {
			return nil, fmt.Errorf("savings rate %.1f must be between 0 and 100: %w", *s.Rate, common.ErrInvalidInput)
		}
		if rate != transfer.SavingsRatePct {
			transfer.Record(model.RateChange{
				Action:  model.RateConfigured,
				OldRate: transfer.SavingsRatePct,
				NewRate: rate,
				At:      now,
			})
			transfer.SavingsRatePct = rate
		}
	}
	if s.Destination != "" {
		transfer.Destination = s.Destination
	}
	if s.IsActive != nil {
		transfer.IsActive = *s.IsActive
	}
	transfer.UpdatedAt = now

	return transfer, nil
}
