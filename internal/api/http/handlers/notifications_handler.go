package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/claim-approval-service/internal/api/dto"
	"github.com/spec-kit/claim-approval-service/internal/service"
	apperrors "github.com/spec-kit/claim-approval-service/pkg/util"
)

// NotificationsHandler sends customer emails and collects conversation feedback.
type NotificationsHandler struct {
	mailer service.Mailer
	logger *zap.Logger
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(mailer service.Mailer, logger *zap.Logger) *NotificationsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationsHandler{mailer: mailer, logger: logger}
}

// SendEmail POST /api/notifications/email.
func (h *NotificationsHandler) SendEmail(c *fiber.Ctx) error {
	var req dto.SendEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.CustomerEmail) == "" || strings.TrimSpace(req.Subject) == "" {
		return apperrors.NewValidationError("customer_email and subject required", nil)
	}

	result, err := h.mailer.Send(c.UserContext(), service.Email{
		To:               req.CustomerEmail,
		Subject:          req.Subject,
		Message:          req.Message,
		NotificationType: req.NotificationType,
	})
	if err != nil {
		return mapServiceError(err, "recipient", nil)
	}

	message := fmt.Sprintf("Email sent to %s", result.Recipient)
	if result.DemoMode {
		message = fmt.Sprintf("Email logged for %s (demo mode)", result.Recipient)
	}
	return c.JSON(fiber.Map{"data": dto.SendEmailResponse{
		Status:    "success",
		Recipient: result.Recipient,
		DemoMode:  result.DemoMode,
		Message:   message,
	}})
}

// Feedback POST /feedback.
func (h *NotificationsHandler) Feedback(c *fiber.Ctx) error {
	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Score == nil || strings.TrimSpace(req.InvocationID) == "" {
		return apperrors.NewValidationError("score and invocation_id required", nil)
	}

	h.logger.Info("feedback",
		zap.String("log_type", "feedback"),
		zap.Float64("score", *req.Score),
		zap.String("text", req.Text),
		zap.String("invocation_id", req.InvocationID),
		zap.String("user_id", req.UserID))
	return c.JSON(fiber.Map{"status": "success"})
}
