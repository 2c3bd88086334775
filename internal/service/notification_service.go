package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/claim-approval-service/internal/config"
	"github.com/spec-kit/claim-approval-service/internal/events"
	"github.com/spec-kit/claim-approval-service/internal/observability"
)

// NotificationService observes approval events: it logs them, counts them and
// optionally forwards them to a webhook.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.NotificationConfig
	client     *http.Client
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger.With(zap.String("component", "notifications")),
		metrics:    metrics,
		cfg:        cfg,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventApprovalRequested, n.handleApprovalRequested)
	n.dispatcher.Subscribe(events.EventApprovalResolved, n.handleApprovalResolved)
	n.dispatcher.Subscribe(events.EventResumeDelivered, n.handleResume)
	n.dispatcher.Subscribe(events.EventResumeFailed, n.handleResume)
}

func (n *NotificationService) handleApprovalRequested(ctx context.Context, event events.Event) error {
	n.logger.Info("ApprovalRequested", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.metrics.RecordTicketEvent(string(event.Type))
	return n.forwardWebhook(ctx, event)
}

func (n *NotificationService) handleApprovalResolved(ctx context.Context, event events.Event) error {
	n.logger.Info("ApprovalResolved", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.metrics.RecordTicketEvent(string(event.Type))
	return n.forwardWebhook(ctx, event)
}

func (n *NotificationService) handleResume(ctx context.Context, event events.Event) error {
	result := "delivered"
	if event.Type == events.EventResumeFailed {
		result = "failed"
		n.logger.Warn("ResumeFailed", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	} else {
		n.logger.Info("ResumeDelivered", zap.String("ticket_id", event.TicketID))
	}
	n.metrics.RecordResume(result)
	return n.forwardWebhook(ctx, event)
}

func (n *NotificationService) forwardWebhook(ctx context.Context, event events.Event) error {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(PayloadVersionHeader, event.Version)

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("webhook delivery failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Warn("webhook rejected event",
			zap.String("event_type", string(event.Type)),
			zap.Int("status_code", resp.StatusCode))
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
