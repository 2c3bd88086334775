package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/spec-kit/claim-approval-service/internal/service"
	apperrors "github.com/spec-kit/claim-approval-service/pkg/util"
)

// mapServiceError turns service sentinels into DomainErrors for the error middleware.
func mapServiceError(err error, resource string, details map[string]any) error {
	if err == nil {
		return nil
	}
	var resolvedErr *service.AlreadyResolvedError
	switch {
	case errors.As(err, &resolvedErr):
		return apperrors.NewAlreadyResolved(resolvedErr.Ticket.ID, string(resolvedErr.Ticket.Status))
	case errors.Is(err, service.ErrNotFound):
		return apperrors.NewNotFound(resource, details)
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidDecision):
		return apperrors.NewValidationError(err.Error(), details)
	case errors.Is(err, service.ErrStorageFault):
		return apperrors.NewStorageFault(err)
	case errors.Is(err, service.ErrEmailDelivery):
		return apperrors.NewUpstreamError("EMAIL_DELIVERY_FAILED", "email could not be delivered", err)
	case errors.Is(err, service.ErrNotifyDelivery):
		return apperrors.NewUpstreamError("RESUME_DELIVERY_FAILED", "agent runtime did not accept the decision", err)
	case errors.Is(err, context.DeadlineExceeded):
		return &apperrors.DomainError{
			Code:       "TIMEOUT",
			Message:    "request timed out",
			HTTPStatus: http.StatusGatewayTimeout,
			Err:        err,
		}
	default:
		return err
	}
}
