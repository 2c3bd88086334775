package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/claim-approval-service/internal/api/dto"
	"github.com/spec-kit/claim-approval-service/internal/domain"
	"github.com/spec-kit/claim-approval-service/internal/service"
	apperrors "github.com/spec-kit/claim-approval-service/pkg/util"
)

// ApprovalsHandler serves the approval workflow endpoints.
type ApprovalsHandler struct {
	service *service.ApprovalService
}

// NewApprovalsHandler constructs handler.
func NewApprovalsHandler(approvalService *service.ApprovalService) *ApprovalsHandler {
	return &ApprovalsHandler{service: approvalService}
}

// RequestApproval POST /api/approvals.
func (h *ApprovalsHandler) RequestApproval(c *fiber.Ctx) error {
	var req dto.CreateApprovalRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.ClaimID) == "" || strings.TrimSpace(req.CustomerEmail) == "" {
		return apperrors.NewValidationError("claim_id and customer_email required", nil)
	}

	requested, err := h.service.RequestApproval(c.UserContext(), service.ApprovalRequestInput{
		ClaimID:        req.ClaimID,
		CustomerEmail:  req.CustomerEmail,
		UserID:         req.UserID,
		SessionID:      req.SessionID,
		AppName:        req.AppName,
		FunctionCallID: req.FunctionCallID,
	})
	if err != nil {
		return mapServiceError(err, "claim", map[string]any{"claim_id": req.ClaimID})
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": dto.ApprovalRequestedResponse{
		Status:     string(domain.ApprovalStatusPending),
		TicketID:   requested.Ticket.ID,
		ClaimID:    requested.Ticket.ClaimID,
		ApproveURL: requested.ApproveURL,
		RejectURL:  requested.RejectURL,
		DemoMode:   requested.EmailDemoMode,
		Message:    fmt.Sprintf("Verification email sent to %s. Waiting for the customer to confirm.", requested.Ticket.CustomerEmail),
	}})
}

// Approve GET /api/approve/:ticket_id.
func (h *ApprovalsHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, domain.DecisionApproved)
}

// Reject GET /api/reject/:ticket_id.
func (h *ApprovalsHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, domain.DecisionRejected)
}

func (h *ApprovalsHandler) decide(c *fiber.Ctx, decision domain.Decision) error {
	ticketID := c.Params("ticket_id")
	outcome, err := h.service.Decide(c.UserContext(), ticketID, decision)
	if err != nil {
		return mapServiceError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}

	resp := dto.DecisionResponse{
		TicketID:        outcome.Ticket.ID,
		Status:          outcome.Ticket.Status,
		AlreadyResolved: outcome.AlreadyResolved,
		Message:         decisionMessage(outcome),
	}
	if !outcome.AlreadyResolved {
		resp.Resume = &dto.ResumeStatus{
			Delivered: outcome.ResumeErr == nil,
			Attempts:  outcome.Resume.Attempts,
		}
		if outcome.ResumeErr != nil {
			resp.Resume.Error = outcome.ResumeErr.Error()
		}
	}

	if c.Accepts(fiber.MIMEApplicationJSON, fiber.MIMETextHTML) == fiber.MIMETextHTML {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(renderDecisionPage(outcome.Ticket, outcome.AlreadyResolved))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Status GET /api/status/:ticket_id.
func (h *ApprovalsHandler) Status(c *fiber.Ctx) error {
	ticketID := c.Params("ticket_id")
	ticket, err := h.service.Get(c.UserContext(), ticketID)
	if err != nil {
		return mapServiceError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Pending GET /api/approvals/pending.
func (h *ApprovalsHandler) Pending(c *fiber.Ctx) error {
	tickets, err := h.service.ListPending(c.UserContext())
	if err != nil {
		return mapServiceError(err, "ticket", nil)
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": dto.PendingResponse{Count: len(items), Tickets: items}})
}

func decisionMessage(outcome *service.DecisionOutcome) string {
	switch {
	case outcome.AlreadyResolved:
		return fmt.Sprintf("Ticket was already %s. No further action taken.", outcome.Ticket.Status)
	case outcome.ResumeErr != nil:
		return fmt.Sprintf("Claim %s. The agent will pick up the decision once it is reachable.", outcome.Ticket.Status)
	default:
		return fmt.Sprintf("Claim %s.", outcome.Ticket.Status)
	}
}
