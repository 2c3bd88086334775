package dto

import (
	"time"

	"github.com/spec-kit/claim-approval-service/internal/domain"
)

// CreateApprovalRequest is posted by the agent tool when it pauses for a human decision.
type CreateApprovalRequest struct {
	ClaimID        string `json:"claim_id"`
	CustomerEmail  string `json:"customer_email"`
	UserID         string `json:"user_id"`
	SessionID      string `json:"session_id"`
	AppName        string `json:"app_name"`
	FunctionCallID string `json:"function_call_id"`
}

// ApprovalRequestedResponse tells the agent the request is pending.
type ApprovalRequestedResponse struct {
	Status     string `json:"status"`
	TicketID   string `json:"ticket_id"`
	ClaimID    string `json:"claim_id"`
	ApproveURL string `json:"approve_url"`
	RejectURL  string `json:"reject_url"`
	DemoMode   bool   `json:"demo_mode"`
	Message    string `json:"message"`
}

// TicketResponse is the public view of an approval ticket.
type TicketResponse struct {
	TicketID      string                `json:"ticket_id"`
	ClaimID       string                `json:"claim_id"`
	CustomerEmail string                `json:"customer_email"`
	UserID        string                `json:"user_id"`
	SessionID     string                `json:"session_id"`
	RequestType   string                `json:"request_type"`
	Status        domain.ApprovalStatus `json:"status"`
	Note          string                `json:"note,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	ResolvedAt    *time.Time            `json:"resolved_at,omitempty"`
}

// ResumeStatus reports the resume delivery separately from the decision.
type ResumeStatus struct {
	Delivered bool   `json:"delivered"`
	Attempts  int    `json:"attempts,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DecisionResponse is returned by the approve and reject links.
type DecisionResponse struct {
	TicketID        string                `json:"ticket_id"`
	Status          domain.ApprovalStatus `json:"status"`
	AlreadyResolved bool                  `json:"already_resolved"`
	Message         string                `json:"message"`
	Resume          *ResumeStatus         `json:"resume,omitempty"`
}

// PendingResponse lists outstanding tickets.
type PendingResponse struct {
	Count   int              `json:"count"`
	Tickets []TicketResponse `json:"tickets"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.ApprovalTicket) TicketResponse {
	return TicketResponse{
		TicketID:      t.ID,
		ClaimID:       t.ClaimID,
		CustomerEmail: t.CustomerEmail,
		UserID:        t.UserID,
		SessionID:     t.SessionID,
		RequestType:   t.RequestType,
		Status:        t.Status,
		Note:          t.Note,
		CreatedAt:     t.CreatedAt,
		ResolvedAt:    t.ResolvedAt,
	}
}
