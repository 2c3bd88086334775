package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/claim-approval-service/internal/config"
	"github.com/spec-kit/claim-approval-service/internal/domain"
	"github.com/spec-kit/claim-approval-service/internal/events"
)

const (
	// ApprovalToolName is the long-running tool whose call a resume answers.
	ApprovalToolName = "request_claim_approval"
	// PayloadVersionHeader names the header carrying the resume payload version.
	PayloadVersionHeader = "X-Approval-Payload-Version"
)

// ResumeRequest is the body posted to the agent runtime's run endpoint.
type ResumeRequest struct {
	AppName    string        `json:"app_name"`
	UserID     string        `json:"user_id"`
	SessionID  string        `json:"session_id"`
	NewMessage ResumeMessage `json:"new_message"`
}

// ResumeMessage is a function-role message answering a pending tool call.
type ResumeMessage struct {
	Role  string       `json:"role"`
	Parts []ResumePart `json:"parts"`
}

// ResumePart wraps one function response.
type ResumePart struct {
	FunctionResponse FunctionResponse `json:"function_response"`
}

// FunctionResponse ties the decision to the pending tool call id.
type FunctionResponse struct {
	Name     string           `json:"name"`
	ID       string           `json:"id"`
	Response DecisionResponse `json:"response"`
}

// DecisionResponse is the structured decision the resumed tool call returns.
type DecisionResponse struct {
	Status         string                `json:"status"`
	ApprovalStatus domain.ApprovalStatus `json:"approval_status"`
	TicketID       string                `json:"ticket_id"`
	ClaimID        string                `json:"claim_id"`
	Message        string                `json:"message"`
	PayloadVersion string                `json:"payload_version"`
}

// ResumeReceipt reports how a delivery went.
type ResumeReceipt struct {
	Attempts   int
	StatusCode int
}

// Resumer delivers a resolved ticket back to the paused agent conversation.
type Resumer interface {
	Notify(ctx context.Context, ticket *domain.ApprovalTicket) (ResumeReceipt, error)
}

// ResumeBridge posts decisions to the agent runtime. Retries repeat delivery only.
type ResumeBridge struct {
	client      *http.Client
	url         string
	appName     string
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger
}

// NewResumeBridge builds a bridge from configuration. A nil client gets a default
// client bounded by the configured timeout.
func NewResumeBridge(cfg config.ResumeConfig, client *http.Client, logger *zap.Logger) *ResumeBridge {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &ResumeBridge{
		client:      client,
		url:         cfg.URL(),
		appName:     cfg.AppName,
		maxAttempts: attempts,
		backoff:     cfg.RetryBackoff(),
		logger:      logger.With(zap.String("component", "resume_bridge")),
	}
}

// BuildResumeRequest formats the runtime payload for a resolved ticket.
func BuildResumeRequest(ticket *domain.ApprovalTicket, defaultApp string) ResumeRequest {
	appName := ticket.AppName
	if appName == "" {
		appName = defaultApp
	}
	return ResumeRequest{
		AppName:   appName,
		UserID:    ticket.UserID,
		SessionID: ticket.SessionID,
		NewMessage: ResumeMessage{
			Role: "function",
			Parts: []ResumePart{{
				FunctionResponse: FunctionResponse{
					Name: ApprovalToolName,
					ID:   ticket.FunctionCallID,
					Response: DecisionResponse{
						Status:         "success",
						ApprovalStatus: ticket.Status,
						TicketID:       ticket.ID,
						ClaimID:        ticket.ClaimID,
						Message:        fmt.Sprintf("Claim verification %s by user", ticket.Status),
						PayloadVersion: events.PayloadVersion,
					},
				},
			}},
		},
	}
}

// Notify delivers the decision carried by a terminal ticket.
func (b *ResumeBridge) Notify(ctx context.Context, ticket *domain.ApprovalTicket) (ResumeReceipt, error) {
	if ticket == nil || !ticket.Status.IsTerminal() {
		return ResumeReceipt{}, fmt.Errorf("%w: ticket is not resolved", ErrInvalidInput)
	}
	if !ticket.Resumable() {
		b.logger.Warn("missing session info, cannot resume agent",
			zap.String("ticket_id", ticket.ID),
			zap.Bool("function_call_id_present", ticket.FunctionCallID != ""),
			zap.Bool("session_present", ticket.UserID != "" && ticket.SessionID != ""))
		return ResumeReceipt{}, ErrNotResumable
	}

	body, err := json.Marshal(BuildResumeRequest(ticket, b.appName))
	if err != nil {
		return ResumeReceipt{}, err
	}

	receipt := ResumeReceipt{}
	var lastErr error
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		receipt.Attempts = attempt
		status, retryable, err := b.post(ctx, body)
		receipt.StatusCode = status
		if err == nil {
			b.logger.Info("agent resumed",
				zap.String("ticket_id", ticket.ID),
				zap.String("session_id", ticket.SessionID),
				zap.Int("attempts", attempt))
			return receipt, nil
		}
		lastErr = err
		b.logger.Warn("resume attempt failed",
			zap.String("ticket_id", ticket.ID),
			zap.Int("attempt", attempt),
			zap.Int("status_code", status),
			zap.Error(err))
		if !retryable || attempt == b.maxAttempts {
			break
		}
		if err := sleepContext(ctx, b.backoff*time.Duration(attempt)); err != nil {
			lastErr = err
			break
		}
	}
	return receipt, &NotifyError{
		TicketID:   ticket.ID,
		Attempts:   receipt.Attempts,
		StatusCode: receipt.StatusCode,
		Err:        lastErr,
	}
}

func (b *ResumeBridge) post(ctx context.Context, body []byte) (int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return 0, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(PayloadVersionHeader, events.PayloadVersion)

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, ctx.Err() == nil, err
	}
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, false, nil
	}
	retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
	return resp.StatusCode, retryable, fmt.Errorf("runtime responded %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsNotifyFailure reports whether err came from resume delivery rather than the ledger.
func IsNotifyFailure(err error) bool {
	return errors.Is(err, ErrNotifyDelivery) || errors.Is(err, ErrNotResumable)
}
