package model

import "time"

// RateAction names an entry in an auto-transfer's rate history.
type RateAction string

// Rate history actions.
const (
	RateConfigured         RateAction = "configured"
	RateAutoReduce         RateAction = "auto_reduce"
	RateEscalationAccepted RateAction = "escalation_accepted"
	RateEscalationRejected RateAction = "escalation_rejected"
)

// ProposalStatus is the lifecycle state of an escalation proposal.
type ProposalStatus string

// Proposal statuses. Accepted and rejected are terminal.
const (
	ProposalPending  ProposalStatus = "pending"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
)

// RateChange is one append-only entry in the rate history.
type RateChange struct {
	At      time.Time  `json:"at"`
	Action  RateAction `json:"action"`
	Reason  string     `json:"reason,omitempty"`
	OldRate float64    `json:"old_rate"`
	NewRate float64    `json:"new_rate"`
}

// EscalationProposal is a pending, user-approvable savings-rate increase.
type EscalationProposal struct {
	CreatedAt  time.Time      `json:"created_at"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
	ID         string         `json:"id"`
	Reason     string         `json:"reason"`
	Status     ProposalStatus `json:"status"`
	OldRate    float64        `json:"old_rate"`
	NewRate    float64        `json:"new_rate"`
}

// IsPending reports whether the proposal still awaits a decision.
func (p *EscalationProposal) IsPending() bool {
	return p != nil && p.Status == ProposalPending
}

// AutoTransfer is the single current savings-transfer configuration of a user.
// Version increases by one on every persisted change.
//
// Resolved holds proposals that left the pending slot since the transfer
// was loaded; the store writes their final status on save.
//
// Recovered marks a placeholder the store returns when the current row was
// unreadable. It carries the stored Version and History so a new
// configuration replaces the row, but is otherwise treated as no transfer.
type AutoTransfer struct {
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
	PendingEscalation *EscalationProposal  `json:"pending_escalation"`
	UserID            string               `json:"user_id"`
	Destination       string               `json:"destination"`
	History           []RateChange         `json:"history"`
	Resolved          []EscalationProposal `json:"-"`
	SavingsRatePct    float64              `json:"savings_rate_pct"`
	Version           int                  `json:"version"`
	IsActive          bool                 `json:"is_active"`
	Recovered         bool                 `json:"-"`
}

// Record appends an entry to the rate history.
func (t *AutoTransfer) Record(change RateChange) {
	t.History = append(t.History, change)
}

// Resolve moves the pending proposal out of the pending slot with the
// given terminal status and returns it. It returns nil when nothing is pending.
func (t *AutoTransfer) Resolve(status ProposalStatus, at time.Time) *EscalationProposal {
	if !t.PendingEscalation.IsPending() {
		return nil
	}
	resolved := *t.PendingEscalation
	resolved.Status = status
	resolved.ResolvedAt = &at
	t.Resolved = append(t.Resolved, resolved)
	t.PendingEscalation = nil
	return &resolved
}
