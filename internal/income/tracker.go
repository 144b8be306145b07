// Package income computes rolling income averages and detects changes in income.
package income

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/moneyplanner/internal/model"
)

// Defaults used when a Tracker is built with zero values.
const (
	DefaultWindow    = 3
	DefaultThreshold = 0.05
)

// Tracker derives rolling averages and change flags from income history.
type Tracker struct {
	now       func() time.Time
	Window    int
	Threshold float64
}

// NewTracker creates a tracker. Non-positive arguments select the defaults.
func NewTracker(window int, threshold float64) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Tracker{Window: window, Threshold: threshold, now: time.Now}
}

// RollingAverage returns the mean amount of the window most recent events
// by date. Events sharing a date keep their logged order. An empty input
// averages to 0.
func RollingAverage(events []model.IncomeEvent, window int) float64 {
	if len(events) == 0 {
		return 0
	}
	if window <= 0 {
		window = DefaultWindow
	}

	sorted := make([]model.IncomeEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	if len(sorted) > window {
		sorted = sorted[:window]
	}

	var sum float64
	for _, e := range sorted {
		sum += e.Amount
	}
	return sum / float64(len(sorted))
}

// DetectChange compares current against avg. The result is IncomeNoChange
// when the relative change is within threshold or when avg is not positive.
func DetectChange(current, avg, threshold float64) model.IncomeChange {
	if avg <= 0 {
		return model.IncomeNoChange
	}

	change := (current - avg) / avg
	switch {
	case change > threshold:
		return model.IncomeIncrease
	case change < -threshold:
		return model.IncomeDecrease
	default:
		return model.IncomeNoChange
	}
}

// EventInput describes an income payment about to be recorded.
type EventInput struct {
	Date              time.Time
	Source            model.IncomeSource
	SourceDescription string
	Amount            float64
	IsRecurring       bool
}

// NewEvent builds the next income event from the already-stored history.
//
// The change flag compares the new amount against the average of history
// alone; the event's own rolling average includes the new event. The
// history-only average is returned as previousAvg for the automation rules.
func (t *Tracker) NewEvent(history []model.IncomeEvent, in EventInput) (event *model.IncomeEvent, previousAvg float64) {
	if in.Source == "" {
		in.Source = model.IncomeSourceManual
	}

	event = &model.IncomeEvent{
		ID:                uuid.NewString(),
		Amount:            in.Amount,
		Date:              in.Date,
		Source:            in.Source,
		SourceDescription: in.SourceDescription,
		IsRecurring:       in.IsRecurring,
		CreatedAt:         t.now().UTC(),
	}

	previousAvg = RollingAverage(history, t.Window)

	all := make([]model.IncomeEvent, 0, len(history)+1)
	all = append(all, history...)
	all = append(all, *event)
	rolling := RollingAverage(all, t.Window)
	event.RollingAverage = &rolling

	if previousAvg > 0 {
		event.ChangeFlag = DetectChange(in.Amount, previousAvg, t.Threshold)
	}

	return event, previousAvg
}

// Average is RollingAverage using the tracker's window.
func (t *Tracker) Average(events []model.IncomeEvent) float64 {
	return RollingAverage(events, t.Window)
}
