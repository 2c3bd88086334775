package events

import (
	"time"

	"github.com/spec-kit/claim-approval-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventApprovalRequested EventType = "approval_requested"
	EventApprovalResolved  EventType = "approval_resolved"
	EventResumeDelivered   EventType = "resume_delivered"
	EventResumeFailed      EventType = "resume_failed"
)

// PayloadVersion tags every payload that crosses the request/response boundary.
const PayloadVersion = "v1"

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Version   string      `json:"version"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ApprovalRequestedPayload payload.
type ApprovalRequestedPayload struct {
	ClaimID       string `json:"claim_id"`
	CustomerEmail string `json:"customer_email"`
	UserID        string `json:"user_id"`
	SessionID     string `json:"session_id"`
	EmailDemoMode bool   `json:"email_demo_mode"`
}

// ApprovalResolvedPayload payload.
type ApprovalResolvedPayload struct {
	ClaimID   string                `json:"claim_id"`
	OldStatus domain.ApprovalStatus `json:"old_status"`
	NewStatus domain.ApprovalStatus `json:"new_status"`
	Note      string                `json:"note,omitempty"`
}

// ResumePayload payload.
type ResumePayload struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Attempts  int    `json:"attempts"`
	Error     string `json:"error,omitempty"`
}
