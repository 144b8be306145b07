// Package planner runs user requests against the core packages. It loads the
// user's records, consults the phase gate, applies the domain rules under a
// per-user lock and persists the result.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/moneyplanner/internal/automation"
	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/income"
	"github.com/Veraticus/moneyplanner/internal/lock"
	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/phase"
	"github.com/Veraticus/moneyplanner/internal/secrets"
	"github.com/Veraticus/moneyplanner/internal/service"
)

// DefaultSyncConcurrency bounds how many bank connections sync at once.
const DefaultSyncConcurrency = 4

// Deps are the collaborators a Planner works with.
type Deps struct {
	Storage service.Storage
	// Source is nil when no aggregator is configured; bank operations then
	// fail with common.ErrMissingConfig.
	Source service.TransactionSource
	// Locker defaults to an in-process keyed mutex.
	Locker service.Locker
	Box    *secrets.Box
}

// Config holds the tunables of the domain rules.
type Config struct {
	Phase           phase.Config
	Automation      automation.Config
	IncomeWindow    int
	ChangeThreshold float64
	SyncConcurrency int
}

// DefaultConfig returns the production rules.
func DefaultConfig() Config {
	return Config{
		Phase:           phase.DefaultConfig(),
		Automation:      automation.DefaultConfig(),
		IncomeWindow:    income.DefaultWindow,
		ChangeThreshold: income.DefaultThreshold,
		SyncConcurrency: DefaultSyncConcurrency,
	}
}

// Planner is the entry point for every user-facing operation.
type Planner struct {
	storage service.Storage
	source  service.TransactionSource
	locker  service.Locker
	box     *secrets.Box
	tracker *income.Tracker
	engine  *automation.Engine
	phases  *phase.Machine
	clock   func() time.Time
	logger  *slog.Logger
	syncMax int
}

// Option configures a Planner.
type Option func(*Planner)

// WithClock overrides the time source used by the planner and its rules.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.clock = now }
}

// New creates a planner.
func New(deps Deps, cfg Config, opts ...Option) *Planner {
	p := &Planner{
		storage: deps.Storage,
		source:  deps.Source,
		locker:  deps.Locker,
		box:     deps.Box,
		tracker: income.NewTracker(cfg.IncomeWindow, cfg.ChangeThreshold),
		clock:   time.Now,
		logger:  slog.Default().With("component", "planner"),
		syncMax: cfg.SyncConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.locker == nil {
		p.locker = lock.NewKeyedMutex()
	}
	if p.box == nil {
		p.box = secrets.NewBox("")
	}
	if p.syncMax <= 0 {
		p.syncMax = DefaultSyncConcurrency
	}

	p.engine = automation.NewEngine(cfg.Automation, automation.WithClock(p.now))
	p.phases = phase.NewMachine(cfg.Phase)
	p.phases.Clock = p.now

	return p
}

func (p *Planner) now() time.Time {
	return p.clock().UTC()
}

// withUserLock runs fn while holding the user's lock. Locks are not
// reentrant, so fn must not call another locking method.
func (p *Planner) withUserLock(ctx context.Context, userID string, fn func() error) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user id", common.ErrInvalidInput)
	}

	unlock, err := p.locker.Lock(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to lock user %s: %w", userID, err)
	}
	defer unlock()

	return fn()
}

// loadPhase returns the user's stored phase state, or a fresh onboarding
// state when none is stored. stored reports which case applied.
func (p *Planner) loadPhase(ctx context.Context, userID string) (state *model.UserPhaseState, stored bool, err error) {
	state, err = p.storage.GetPhaseState(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return p.phases.NewState(userID), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load phase state: %w", err)
	}
	return state, true, nil
}

// requireFeature fails with common.ErrFeatureLocked unless the user's
// current phase unlocks feature.
func (p *Planner) requireFeature(ctx context.Context, userID, feature string) error {
	state, _, err := p.loadPhase(ctx, userID)
	if err != nil {
		return err
	}
	if !phase.Unlocked(state.CurrentPhase, feature) {
		return common.FeatureLocked(feature)
	}
	return nil
}

// loadTransfer returns the user's transfer, or nil when none is configured
// or the stored one is unreadable.
func (p *Planner) loadTransfer(ctx context.Context, userID string) (*model.AutoTransfer, error) {
	transfer, err := p.loadStoredTransfer(ctx, userID)
	if transfer != nil && transfer.Recovered {
		return nil, err
	}
	return transfer, err
}

// loadStoredTransfer is loadTransfer but keeps the placeholder the store
// returns for an unreadable row, so a new configuration can replace it.
func (p *Planner) loadStoredTransfer(ctx context.Context, userID string) (*model.AutoTransfer, error) {
	transfer, err := p.storage.GetAutoTransfer(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load auto transfer: %w", err)
	}
	return transfer, nil
}
