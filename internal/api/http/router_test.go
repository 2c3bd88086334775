package http

import (
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/claim-approval-service/internal/api/http/handlers"
	"github.com/spec-kit/claim-approval-service/internal/auth"
	"github.com/spec-kit/claim-approval-service/internal/config"
	"github.com/spec-kit/claim-approval-service/internal/domain"
	"github.com/spec-kit/claim-approval-service/internal/events"
	"github.com/spec-kit/claim-approval-service/internal/observability"
	"github.com/spec-kit/claim-approval-service/internal/repository"
	"github.com/spec-kit/claim-approval-service/internal/service"
)

type testServer struct {
	app         *fiber.App
	runtimeHits *atomic.Int32
	runtimeCode *atomic.Int32
	tokens      *auth.TokenManager
}

func newTestServer(t *testing.T, withAuth bool) *testServer {
	t.Helper()
	ts := &testServer{runtimeHits: &atomic.Int32{}, runtimeCode: &atomic.Int32{}}
	ts.runtimeCode.Store(stdhttp.StatusOK)

	runtime := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		ts.runtimeHits.Add(1)
		w.WriteHeader(int(ts.runtimeCode.Load()))
	}))
	t.Cleanup(runtime.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics("test")
	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, logger, metrics, config.NotificationConfig{}).RegisterHandlers()

	claims := service.NewClaimService(repository.NewStaticClaimRepository(), repository.NewStaticPolicyRepository())
	mailer := service.NewEmailService(config.SMTPConfig{SenderEmail: "noreply@insurance.com"}, logger)
	approvals := service.NewApprovalService(service.ApprovalDependencies{
		Ledger:     service.NewLedger(repository.NewMemoryApprovalRepository(), logger),
		Resumer:    service.NewResumeBridge(config.ResumeConfig{BaseURL: runtime.URL, Path: "/run", MaxAttempts: 1, TimeoutSeconds: 2}, nil, logger),
		Claims:     claims,
		Mailer:     mailer,
		Dispatcher: dispatcher,
		PublicURL:  "http://localhost:8086",
		AppName:    "insurance_notification_v2",
		Logger:     logger,
	})

	routes := RouteConfig{
		Health:        handlers.NewHealthHandler("claim-approval", "test", config.StoreMemory, nil),
		Approvals:     handlers.NewApprovalsHandler(approvals),
		Catalog:       handlers.NewCatalogHandler(claims),
		Notifications: handlers.NewNotificationsHandler(mailer, logger),
		Registry:      metrics.Registry(),
	}
	if withAuth {
		ts.tokens = auth.NewTokenManager("secret", 60)
		routes.AuthMiddleware = auth.NewAuthMiddleware(ts.tokens)
	}

	ts.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterMiddlewares(ts.app, logger, metrics, 0)
	RegisterRoutes(ts.app, routes)
	return ts
}

type apiResponse struct {
	status int
	body   []byte
}

func (r apiResponse) data(t *testing.T) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(r.body, &envelope), string(r.body))
	return envelope.Data
}

func (r apiResponse) errorCode(t *testing.T) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(r.body, &envelope), string(r.body))
	return envelope.Error.Code
}

func (ts *testServer) do(t *testing.T, method, path, body string, headers map[string]string) apiResponse {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := ts.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return apiResponse{status: resp.StatusCode, body: raw}
}

func (ts *testServer) requestApproval(t *testing.T) string {
	t.Helper()
	resp := ts.do(t, stdhttp.MethodPost, "/api/approvals",
		`{"claim_id":"CLM-001","customer_email":"a@example.com","user_id":"customer001","session_id":"s-1","function_call_id":"call-1"}`, nil)
	require.Equal(t, stdhttp.StatusAccepted, resp.status, string(resp.body))
	data := resp.data(t)
	id := data["ticket_id"].(string)
	assert.Equal(t, "http://localhost:8086/api/approve/"+id, data["approve_url"])
	assert.Equal(t, true, data["demo_mode"])
	return id
}

func TestApprovalFlow(t *testing.T) {
	ts := newTestServer(t, false)
	id := ts.requestApproval(t)

	pending := ts.do(t, stdhttp.MethodGet, "/api/approvals/pending", "", nil)
	require.Equal(t, stdhttp.StatusOK, pending.status)
	assert.EqualValues(t, 1, pending.data(t)["count"])

	approved := ts.do(t, stdhttp.MethodGet, "/api/approve/"+id, "", nil)
	require.Equal(t, stdhttp.StatusOK, approved.status, string(approved.body))
	data := approved.data(t)
	assert.Equal(t, "approved", data["status"])
	assert.Equal(t, false, data["already_resolved"])
	assert.Equal(t, true, data["resume"].(map[string]any)["delivered"])

	flipped := ts.do(t, stdhttp.MethodGet, "/api/reject/"+id, "", nil)
	require.Equal(t, stdhttp.StatusOK, flipped.status)
	data = flipped.data(t)
	assert.Equal(t, "approved", data["status"])
	assert.Equal(t, true, data["already_resolved"])
	assert.Nil(t, data["resume"])

	status := ts.do(t, stdhttp.MethodGet, "/api/status/"+id, "", nil)
	require.Equal(t, stdhttp.StatusOK, status.status)
	assert.Equal(t, "approved", status.data(t)["status"])
	assert.NotEmpty(t, status.data(t)["resolved_at"])

	assert.EqualValues(t, 1, ts.runtimeHits.Load())
}

func TestDecisionReportsResumeFailureSeparately(t *testing.T) {
	ts := newTestServer(t, false)
	ts.runtimeCode.Store(stdhttp.StatusInternalServerError)
	id := ts.requestApproval(t)

	resp := ts.do(t, stdhttp.MethodGet, "/api/reject/"+id, "", nil)
	require.Equal(t, stdhttp.StatusOK, resp.status)
	data := resp.data(t)
	assert.Equal(t, "rejected", data["status"])
	resume := data["resume"].(map[string]any)
	assert.Equal(t, false, resume["delivered"])
	assert.Contains(t, resume["error"], "500")

	status := ts.do(t, stdhttp.MethodGet, "/api/status/"+id, "", nil)
	assert.Equal(t, "rejected", status.data(t)["status"])
}

func TestDecisionPageForBrowsers(t *testing.T) {
	ts := newTestServer(t, false)
	id := ts.requestApproval(t)

	resp := ts.do(t, stdhttp.MethodGet, "/api/reject/"+id, "", map[string]string{
		"Accept": "text/html,application/xhtml+xml,*/*;q=0.8",
	})
	require.Equal(t, stdhttp.StatusOK, resp.status)
	page := string(resp.body)
	assert.Contains(t, page, "Claim Submission Rejected")
	assert.Contains(t, page, id)
	assert.Contains(t, page, "CLM-001")
}

func TestErrorResponses(t *testing.T) {
	ts := newTestServer(t, false)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{name: "unknown ticket status", method: stdhttp.MethodGet, path: "/api/status/APPROVAL-NOPE", status: stdhttp.StatusNotFound, code: "NOT_FOUND"},
		{name: "unknown ticket approve", method: stdhttp.MethodGet, path: "/api/approve/APPROVAL-NOPE", status: stdhttp.StatusNotFound, code: "NOT_FOUND"},
		{name: "unknown claim", method: stdhttp.MethodPost, path: "/api/approvals", body: `{"claim_id":"CLM-999","customer_email":"a@example.com"}`, status: stdhttp.StatusNotFound, code: "NOT_FOUND"},
		{name: "missing claim fields", method: stdhttp.MethodPost, path: "/api/approvals", body: `{"claim_id":"CLM-001"}`, status: stdhttp.StatusBadRequest, code: "VALIDATION_FAILED"},
		{name: "unknown policy", method: stdhttp.MethodGet, path: "/api/policies/POL-0", status: stdhttp.StatusNotFound, code: "NOT_FOUND"},
		{name: "bad email type", method: stdhttp.MethodPost, path: "/api/notifications/email", body: `{"customer_email":"a@example.com","subject":"x","notification_type":"spam"}`, status: stdhttp.StatusBadRequest, code: "VALIDATION_FAILED"},
		{name: "feedback without score", method: stdhttp.MethodPost, path: "/feedback", body: `{"invocation_id":"inv-1"}`, status: stdhttp.StatusBadRequest, code: "VALIDATION_FAILED"},
		{name: "unknown route", method: stdhttp.MethodGet, path: "/nope", status: stdhttp.StatusNotFound, code: "NOT_FOUND"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := ts.do(t, tc.method, tc.path, tc.body, nil)
			assert.Equal(t, tc.status, resp.status, string(resp.body))
			assert.Equal(t, tc.code, resp.errorCode(t))
		})
	}
}

func TestCatalogNotificationsAndProbes(t *testing.T) {
	ts := newTestServer(t, false)

	claim := ts.do(t, stdhttp.MethodGet, "/api/claims/CLM-002", "", nil)
	require.Equal(t, stdhttp.StatusOK, claim.status)
	assert.Equal(t, "pending_review", claim.data(t)["status"])

	policy := ts.do(t, stdhttp.MethodGet, "/api/policies/POL-12345", "", nil)
	require.Equal(t, stdhttp.StatusOK, policy.status)
	assert.Equal(t, "POL-12345", policy.data(t)["policy_number"])

	email := ts.do(t, stdhttp.MethodPost, "/api/notifications/email",
		`{"customer_email":"a@example.com","subject":"Renewal","message":"<p>soon</p>","notification_type":"policy_renewal"}`, nil)
	require.Equal(t, stdhttp.StatusOK, email.status, string(email.body))
	assert.Equal(t, true, email.data(t)["demo_mode"])

	feedback := ts.do(t, stdhttp.MethodPost, "/feedback", `{"score":4,"text":"great","invocation_id":"inv-1"}`, nil)
	assert.Equal(t, stdhttp.StatusOK, feedback.status)

	assert.Equal(t, stdhttp.StatusOK, ts.do(t, stdhttp.MethodGet, "/", "", nil).status)
	assert.Equal(t, stdhttp.StatusOK, ts.do(t, stdhttp.MethodGet, "/health/live", "", nil).status)
	assert.Equal(t, stdhttp.StatusOK, ts.do(t, stdhttp.MethodGet, "/health/ready", "", nil).status)

	metrics := ts.do(t, stdhttp.MethodGet, "/metrics", "", nil)
	require.Equal(t, stdhttp.StatusOK, metrics.status)
	assert.Contains(t, string(metrics.body), "test_http_requests_total")
}

func TestMonitoringRoutesRequireOperatorToken(t *testing.T) {
	ts := newTestServer(t, true)
	id := ts.requestApproval(t)

	denied := ts.do(t, stdhttp.MethodGet, "/api/status/"+id, "", nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, denied.status)
	assert.Equal(t, "UNAUTHORIZED", denied.errorCode(t))

	token, _, err := ts.tokens.GenerateToken("oncall", domain.OperatorRoleViewer)
	require.NoError(t, err)
	bearer := map[string]string{"Authorization": "Bearer " + token}

	assert.Equal(t, stdhttp.StatusOK, ts.do(t, stdhttp.MethodGet, "/api/status/"+id, "", bearer).status)
	assert.Equal(t, stdhttp.StatusOK, ts.do(t, stdhttp.MethodGet, "/api/approvals/pending", "", bearer).status)

	// Email links stay public.
	assert.Equal(t, stdhttp.StatusOK, ts.do(t, stdhttp.MethodGet, "/api/approve/"+id, "", nil).status)
}
