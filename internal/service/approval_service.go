package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/claim-approval-service/internal/domain"
	"github.com/spec-kit/claim-approval-service/internal/events"
)

const (
	defaultUserID    = "customer001"
	defaultSessionID = "default_session"
)

// ApprovalService runs the claim verification workflow: request, decide, resume.
type ApprovalService struct {
	ledger     *Ledger
	resumer    Resumer
	claims     *ClaimService
	mailer     Mailer
	dispatcher events.Dispatcher
	publicURL  string
	appName    string
	logger     *zap.Logger
}

// ApprovalDependencies bundles collaborators for the approval service.
type ApprovalDependencies struct {
	Ledger     *Ledger
	Resumer    Resumer
	Claims     *ClaimService
	Mailer     Mailer
	Dispatcher events.Dispatcher
	PublicURL  string
	AppName    string
	Logger     *zap.Logger
}

// ApprovalRequestInput is what the agent tool supplies when it pauses.
type ApprovalRequestInput struct {
	ClaimID        string
	CustomerEmail  string
	UserID         string
	SessionID      string
	AppName        string
	FunctionCallID string
}

// ApprovalRequested is returned to the agent while the ticket is pending.
type ApprovalRequested struct {
	Ticket        *domain.ApprovalTicket
	ApproveURL    string
	RejectURL     string
	EmailDemoMode bool
}

// DecisionOutcome reports the resolution and the resume delivery separately.
type DecisionOutcome struct {
	Ticket          *domain.ApprovalTicket
	AlreadyResolved bool
	Resume          ResumeReceipt
	ResumeErr       error
}

// NewApprovalService constructs the service.
func NewApprovalService(deps ApprovalDependencies) *ApprovalService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{
		ledger:     deps.Ledger,
		resumer:    deps.Resumer,
		claims:     deps.Claims,
		mailer:     deps.Mailer,
		dispatcher: deps.Dispatcher,
		publicURL:  strings.TrimRight(deps.PublicURL, "/"),
		appName:    deps.AppName,
		logger:     logger.With(zap.String("component", "approvals")),
	}
}

// RequestApproval opens a ticket for a claim and emails the customer the decision links.
func (s *ApprovalService) RequestApproval(ctx context.Context, input ApprovalRequestInput) (*ApprovalRequested, error) {
	if strings.TrimSpace(input.ClaimID) == "" || strings.TrimSpace(input.CustomerEmail) == "" {
		return nil, fmt.Errorf("%w: claim_id and customer_email required", ErrInvalidInput)
	}
	claim, err := s.claims.GetClaim(ctx, input.ClaimID)
	if err != nil {
		return nil, err
	}

	if input.UserID == "" {
		input.UserID = defaultUserID
	}
	if input.SessionID == "" {
		input.SessionID = defaultSessionID
	}
	if input.AppName == "" {
		input.AppName = s.appName
	}

	ticketID, err := s.ledger.Create(ctx, CreateTicketInput{
		ClaimID:        claim.ClaimID,
		CustomerEmail:  input.CustomerEmail,
		UserID:         input.UserID,
		SessionID:      input.SessionID,
		AppName:        input.AppName,
		FunctionCallID: input.FunctionCallID,
		RequestType:    domain.RequestTypeClaimVerification,
	})
	if err != nil {
		return nil, err
	}
	ticket, err := s.ledger.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	result := &ApprovalRequested{
		Ticket:     ticket,
		ApproveURL: fmt.Sprintf("%s/api/approve/%s", s.publicURL, ticketID),
		RejectURL:  fmt.Sprintf("%s/api/reject/%s", s.publicURL, ticketID),
	}

	sent, err := s.mailer.Send(ctx, Email{
		To:               ticket.CustomerEmail,
		Subject:          fmt.Sprintf("Action Required: Verify Claim Submission - %s", claim.ClaimID),
		Message:          verificationEmailBody(claim, ticketID, result.ApproveURL, result.RejectURL),
		NotificationType: NotificationClaimVerification,
	})
	if err != nil {
		s.logger.Error("approval email failed", zap.String("ticket_id", ticketID), zap.Error(err))
		if errors.Is(err, ErrInvalidInput) {
			return nil, err
		}
		if !errors.Is(err, ErrEmailDelivery) {
			err = fmt.Errorf("%w: %v", ErrEmailDelivery, err)
		}
		return nil, fmt.Errorf("ticket %s: %w", ticketID, err)
	}
	result.EmailDemoMode = sent.DemoMode

	s.publishEvent(ctx, events.Event{
		Type:     events.EventApprovalRequested,
		TicketID: ticketID,
		Payload: events.ApprovalRequestedPayload{
			ClaimID:       ticket.ClaimID,
			CustomerEmail: ticket.CustomerEmail,
			UserID:        ticket.UserID,
			SessionID:     ticket.SessionID,
			EmailDemoMode: sent.DemoMode,
		},
	})
	return result, nil
}

// Decide resolves a ticket and, if this call was the one that resolved it, resumes
// the agent. A resume failure never undoes the resolution; it is reported in
// DecisionOutcome.ResumeErr.
func (s *ApprovalService) Decide(ctx context.Context, ticketID string, decision domain.Decision) (*DecisionOutcome, error) {
	ticket, err := s.ledger.Resolve(ctx, ticketID, decision, decisionNote(decision))
	if err != nil {
		var resolvedErr *AlreadyResolvedError
		if errors.As(err, &resolvedErr) {
			return &DecisionOutcome{Ticket: resolvedErr.Ticket, AlreadyResolved: true}, nil
		}
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventApprovalResolved,
		TicketID: ticket.ID,
		Payload: events.ApprovalResolvedPayload{
			ClaimID:   ticket.ClaimID,
			OldStatus: domain.ApprovalStatusPending,
			NewStatus: ticket.Status,
			Note:      ticket.Note,
		},
	})

	outcome := &DecisionOutcome{Ticket: ticket}
	outcome.Resume, outcome.ResumeErr = s.resumer.Notify(ctx, ticket)

	resumeEvent := events.Event{
		Type:     events.EventResumeDelivered,
		TicketID: ticket.ID,
		Payload: events.ResumePayload{
			UserID:    ticket.UserID,
			SessionID: ticket.SessionID,
			Attempts:  outcome.Resume.Attempts,
		},
	}
	if outcome.ResumeErr != nil {
		s.logger.Warn("decision recorded but agent not resumed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(outcome.ResumeErr))
		resumeEvent.Type = events.EventResumeFailed
		payload := resumeEvent.Payload.(events.ResumePayload)
		payload.Error = outcome.ResumeErr.Error()
		resumeEvent.Payload = payload
	}
	s.publishEvent(ctx, resumeEvent)
	return outcome, nil
}

// Get returns a ticket by id.
func (s *ApprovalService) Get(ctx context.Context, ticketID string) (*domain.ApprovalTicket, error) {
	return s.ledger.Get(ctx, ticketID)
}

// ListPending returns outstanding tickets.
func (s *ApprovalService) ListPending(ctx context.Context) ([]domain.ApprovalTicket, error) {
	return s.ledger.ListPending(ctx)
}

func (s *ApprovalService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Version == "" {
		event.Version = events.PayloadVersion
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func decisionNote(decision domain.Decision) string {
	if decision == domain.DecisionApproved {
		return "Approved via email link"
	}
	return "Rejected via email link"
}

func verificationEmailBody(claim *domain.Claim, ticketID, approveURL, rejectURL string) string {
	return fmt.Sprintf(`<h3>Claim Verification Required</h3>
<p>We received a request related to claim <strong>%[1]s</strong>.</p>
<p><strong>Claim Details:</strong></p>
<ul>
  <li>Claim ID: %[1]s</li>
  <li>Type: %[2]s</li>
  <li>Amount: $%.2[3]f</li>
  <li>Status: %[4]s</li>
  <li>Filed Date: %[5]s</li>
</ul>
<p><strong>Please confirm:</strong> Did you submit this claim?</p>
<p>
  <a href="%[6]s">YES, I SUBMITTED THIS CLAIM</a>
  &nbsp;
  <a href="%[7]s">NO, I DID NOT SUBMIT THIS</a>
</p>
<p style="color: #666; font-size: 12px;"><strong>Ticket ID:</strong> %[8]s<br>
This is a one-time action and cannot be undone.</p>`,
		html.EscapeString(claim.ClaimID),
		humanize(claim.ClaimType),
		claim.ClaimAmount,
		humanize(claim.Status),
		html.EscapeString(claim.FiledDate),
		html.EscapeString(approveURL),
		html.EscapeString(rejectURL),
		html.EscapeString(ticketID),
	)
}
