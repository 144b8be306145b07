package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/moneyplanner/internal/model"
)

func TestPhaseState_AppendOnlyHistory(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	state := &model.UserPhaseState{CurrentPhase: model.PhaseOnboarding, PhaseEnteredAt: start}
	if err := store.SavePhaseState(ctx, "user-1", state); err != nil {
		t.Fatalf("Failed to save phase state: %v", err)
	}

	advanced := start.Add(48 * time.Hour)
	state.History = append(state.History, model.PhaseTransition{
		From: model.PhaseOnboarding, To: model.PhaseObservation, At: start,
	})
	state.CurrentPhase = model.PhaseObservation
	state.PhaseEnteredAt = advanced
	if err := store.SavePhaseState(ctx, "user-1", state); err != nil {
		t.Fatalf("Failed to save advanced phase state: %v", err)
	}

	loaded, err := store.GetPhaseState(ctx, "user-1")
	if err != nil {
		t.Fatalf("Failed to get phase state: %v", err)
	}
	if loaded.CurrentPhase != model.PhaseObservation {
		t.Errorf("CurrentPhase = %q, want %q", loaded.CurrentPhase, model.PhaseObservation)
	}
	if !loaded.PhaseEnteredAt.Equal(advanced) {
		t.Errorf("PhaseEnteredAt = %v, want %v", loaded.PhaseEnteredAt, advanced)
	}
	if len(loaded.History) != 1 {
		t.Fatalf("History has %d entries, want 1", len(loaded.History))
	}
	if !loaded.History[0].At.Equal(start) {
		t.Errorf("transition At = %v, want %v", loaded.History[0].At, start)
	}

	// Saving the same state again does not duplicate history.
	if err := store.SavePhaseState(ctx, "user-1", loaded); err != nil {
		t.Fatalf("Failed to resave phase state: %v", err)
	}
	again, err := store.GetPhaseState(ctx, "user-1")
	if err != nil {
		t.Fatalf("Failed to get phase state: %v", err)
	}
	if len(again.History) != 1 {
		t.Errorf("History has %d entries after resave, want 1", len(again.History))
	}

	// Dropping history is refused.
	loaded.History = nil
	if err := store.SavePhaseState(ctx, "user-1", loaded); !errors.Is(err, ErrStaleWrite) {
		t.Errorf("expected ErrStaleWrite, got %v", err)
	}
}

func TestPhaseState_UnknownPhaseFallsBackToHistory(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	state := &model.UserPhaseState{
		CurrentPhase:   model.PhaseFirstBudget,
		PhaseEnteredAt: start.AddDate(0, 0, 40),
		History: []model.PhaseTransition{
			{From: model.PhaseOnboarding, To: model.PhaseObservation, At: start},
			{From: model.PhaseObservation, To: model.PhaseFirstBudget, At: start.AddDate(0, 0, 1)},
		},
	}
	if err := store.SavePhaseState(ctx, "user-1", state); err != nil {
		t.Fatalf("Failed to save phase state: %v", err)
	}
	if _, err := store.db.ExecContext(ctx,
		"UPDATE user_phases SET current_phase = 'bogus' WHERE user_id = 'user-1'"); err != nil {
		t.Fatalf("Failed to corrupt row: %v", err)
	}

	recoveredAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return recoveredAt }

	loaded, err := store.GetPhaseState(ctx, "user-1")
	if err != nil {
		t.Fatalf("Failed to get phase state: %v", err)
	}
	if !loaded.Recovered {
		t.Error("expected the state to be marked recovered")
	}
	if loaded.CurrentPhase != model.PhaseFirstBudget {
		t.Errorf("CurrentPhase = %q, want %q", loaded.CurrentPhase, model.PhaseFirstBudget)
	}
	if len(loaded.History) != 2 {
		t.Errorf("History has %d entries, want 2", len(loaded.History))
	}
	if !loaded.PhaseEnteredAt.Equal(recoveredAt) {
		t.Errorf("PhaseEnteredAt = %v, want %v", loaded.PhaseEnteredAt, recoveredAt)
	}

	if err := store.SavePhaseState(ctx, "user-1", loaded); err != nil {
		t.Fatalf("Failed to save recovered phase state: %v", err)
	}
	if loaded.Recovered {
		t.Error("expected Recovered to be cleared after saving")
	}

	again, err := store.GetPhaseState(ctx, "user-1")
	if err != nil {
		t.Fatalf("Failed to reload phase state: %v", err)
	}
	if again.Recovered || again.CurrentPhase != model.PhaseFirstBudget {
		t.Errorf("reloaded state = %q (recovered %v), want a clean %q",
			again.CurrentPhase, again.Recovered, model.PhaseFirstBudget)
	}
}

func TestPhaseState_UnknownPhaseWithoutHistoryIsOnboarding(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, `
		INSERT INTO user_phases (user_id, current_phase, phase_entered_at)
		VALUES ('user-1', 'hyperdrive', '2024-01-01T00:00:00Z')`)
	if err != nil {
		t.Fatalf("Failed to seed row: %v", err)
	}

	loaded, err := store.GetPhaseState(ctx, "user-1")
	if err != nil {
		t.Fatalf("Failed to get phase state: %v", err)
	}
	if !loaded.Recovered || loaded.CurrentPhase != model.PhaseOnboarding {
		t.Errorf("got %q (recovered %v), want recovered onboarding", loaded.CurrentPhase, loaded.Recovered)
	}
}

func TestPhaseState_MalformedTimestampKeepsPhase(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, `
		INSERT INTO user_phases (user_id, current_phase, phase_entered_at)
		VALUES ('user-1', 'automation', 'garbage')`)
	if err != nil {
		t.Fatalf("Failed to seed row: %v", err)
	}

	loaded, err := store.GetPhaseState(ctx, "user-1")
	if err != nil {
		t.Fatalf("Failed to get phase state: %v", err)
	}
	if !loaded.Recovered || loaded.CurrentPhase != model.PhaseAutomation {
		t.Errorf("got %q (recovered %v), want recovered automation", loaded.CurrentPhase, loaded.Recovered)
	}
	if loaded.PhaseEnteredAt.IsZero() {
		t.Error("expected the phase clock to restart")
	}
}

func TestPhaseState_RejectsUnknownPhase(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	err := store.SavePhaseState(context.Background(), "user-1",
		&model.UserPhaseState{CurrentPhase: "nope"})
	if !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord, got %v", err)
	}
}
