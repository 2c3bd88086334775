package domain

import "time"

// ApprovalStatus enumerates lifecycle states for approval tickets.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// IsTerminal reports whether the status can no longer change.
func (s ApprovalStatus) IsTerminal() bool {
	return s == ApprovalStatusApproved || s == ApprovalStatusRejected
}

// Decision is the outcome a human picked for a pending ticket.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Status returns the terminal status a decision moves a ticket to.
func (d Decision) Status() ApprovalStatus {
	switch d {
	case DecisionApproved:
		return ApprovalStatusApproved
	case DecisionRejected:
		return ApprovalStatusRejected
	default:
		return ""
	}
}

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d.Status() != ""
}

// RequestTypeClaimVerification is the only approval flow the agent requests today.
const RequestTypeClaimVerification = "claim_verification"

// ApprovalTicket records one human-in-the-loop decision tied to a paused agent conversation.
type ApprovalTicket struct {
	ID             string         `json:"ticket_id"`
	ClaimID        string         `json:"claim_id"`
	CustomerEmail  string         `json:"customer_email"`
	UserID         string         `json:"user_id"`
	SessionID      string         `json:"session_id"`
	AppName        string         `json:"app_name"`
	FunctionCallID string         `json:"function_call_id,omitempty"`
	RequestType    string         `json:"request_type"`
	Status         ApprovalStatus `json:"status"`
	Note           string         `json:"note,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
}

// Resumable reports whether the ticket carries enough correlation to resume the agent.
func (t *ApprovalTicket) Resumable() bool {
	return t.FunctionCallID != "" && t.UserID != "" && t.SessionID != ""
}
