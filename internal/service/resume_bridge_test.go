package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/claim-approval-service/internal/config"
	"github.com/spec-kit/claim-approval-service/internal/domain"
)

func resolvedTicket(status domain.ApprovalStatus) *domain.ApprovalTicket {
	resolvedAt := time.Now().UTC()
	return &domain.ApprovalTicket{
		ID:             "APPROVAL-1234ABCD",
		ClaimID:        "CLM-001",
		CustomerEmail:  "a@example.com",
		UserID:         "customer001",
		SessionID:      "session-1",
		FunctionCallID: "call-42",
		Status:         status,
		ResolvedAt:     &resolvedAt,
	}
}

func bridgeFor(url string, attempts int) *ResumeBridge {
	return NewResumeBridge(config.ResumeConfig{
		BaseURL:        url,
		Path:           "/run",
		AppName:        "insurance_notification_v2",
		TimeoutSeconds: 2,
		MaxAttempts:    attempts,
		RetryBackoffMS: 1,
	}, nil, nil)
}

func TestResumeBridge_DeliversPayload(t *testing.T) {
	var (
		got     ResumeRequest
		version string
		path    string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		version = r.Header.Get(PayloadVersionHeader)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	receipt, err := bridgeFor(srv.URL, 3).Notify(context.Background(), resolvedTicket(domain.ApprovalStatusRejected))
	require.NoError(t, err)

	assert.Equal(t, 1, receipt.Attempts)
	assert.Equal(t, http.StatusOK, receipt.StatusCode)
	assert.Equal(t, "/run", path)
	assert.Equal(t, "v1", version)
	assert.Equal(t, "insurance_notification_v2", got.AppName)
	assert.Equal(t, "customer001", got.UserID)
	assert.Equal(t, "session-1", got.SessionID)
	assert.Equal(t, "function", got.NewMessage.Role)
	require.Len(t, got.NewMessage.Parts, 1)

	fr := got.NewMessage.Parts[0].FunctionResponse
	assert.Equal(t, ApprovalToolName, fr.Name)
	assert.Equal(t, "call-42", fr.ID)
	assert.Equal(t, domain.ApprovalStatusRejected, fr.Response.ApprovalStatus)
	assert.Equal(t, "APPROVAL-1234ABCD", fr.Response.TicketID)
	assert.Equal(t, "Claim verification rejected by user", fr.Response.Message)
}

func TestResumeBridge_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	receipt, err := bridgeFor(srv.URL, 3).Notify(context.Background(), resolvedTicket(domain.ApprovalStatusApproved))
	require.NoError(t, err)
	assert.Equal(t, 3, receipt.Attempts)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestResumeBridge_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		attempts   int
		wantCalls  int32
		wantStatus int
	}{
		{name: "server error exhausts attempts", status: http.StatusInternalServerError, attempts: 2, wantCalls: 2, wantStatus: 500},
		{name: "client error is not retried", status: http.StatusNotFound, attempts: 3, wantCalls: 1, wantStatus: 404},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				http.Error(w, "nope", tc.status)
			}))
			defer srv.Close()

			receipt, err := bridgeFor(srv.URL, tc.attempts).Notify(context.Background(), resolvedTicket(domain.ApprovalStatusApproved))
			require.ErrorIs(t, err, ErrNotifyDelivery)
			assert.Equal(t, tc.wantStatus, receipt.StatusCode)
			assert.Equal(t, tc.wantCalls, atomic.LoadInt32(&calls))

			var notifyErr *NotifyError
			require.ErrorAs(t, err, &notifyErr)
			assert.Equal(t, int(tc.wantCalls), notifyErr.Attempts)
		})
	}
}

func TestResumeBridge_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := bridgeFor(url, 2).Notify(context.Background(), resolvedTicket(domain.ApprovalStatusApproved))
	assert.ErrorIs(t, err, ErrNotifyDelivery)
	assert.True(t, IsNotifyFailure(err))
}

func TestResumeBridge_RejectsUnresumableTickets(t *testing.T) {
	ticket := resolvedTicket(domain.ApprovalStatusApproved)
	ticket.FunctionCallID = ""

	_, err := bridgeFor("http://127.0.0.1:1", 1).Notify(context.Background(), ticket)
	assert.ErrorIs(t, err, ErrNotResumable)

	_, err = bridgeFor("http://127.0.0.1:1", 1).Notify(context.Background(), resolvedTicket(domain.ApprovalStatusPending))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
