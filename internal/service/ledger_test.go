package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/spec-kit/claim-approval-service/internal/domain"
	"github.com/spec-kit/claim-approval-service/internal/repository"
)

func newTestLedger(t *testing.T, opts ...LedgerOption) *Ledger {
	t.Helper()
	return NewLedger(repository.NewMemoryApprovalRepository(), nil, opts...)
}

func createTicket(t *testing.T, l *Ledger) string {
	t.Helper()
	id, err := l.Create(context.Background(), CreateTicketInput{
		ClaimID:        "CLM-001",
		CustomerEmail:  "a@example.com",
		UserID:         "customer001",
		SessionID:      "session-1",
		FunctionCallID: "call-1",
	})
	require.NoError(t, err)
	return id
}

func TestLedger_CreateThenGet(t *testing.T) {
	l := newTestLedger(t)
	id := createTicket(t, l)

	assert.Regexp(t, `^APPROVAL-[0-9A-F]{8}$`, id)

	ticket, err := l.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusPending, ticket.Status)
	assert.Equal(t, "CLM-001", ticket.ClaimID)
	assert.Equal(t, "a@example.com", ticket.CustomerEmail)
	assert.Equal(t, domain.RequestTypeClaimVerification, ticket.RequestType)
	assert.Nil(t, ticket.ResolvedAt)
}

func TestLedger_GetUnknown(t *testing.T) {
	_, err := newTestLedger(t).Get(context.Background(), "APPROVAL-NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_ResolveScenario(t *testing.T) {
	now := time.Date(2025, 10, 27, 12, 0, 0, 0, time.UTC)
	l := newTestLedger(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()
	id := createTicket(t, l)

	resolved, err := l.Resolve(ctx, id, domain.DecisionApproved, "ok")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusApproved, resolved.Status)

	ticket, err := l.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusApproved, ticket.Status)
	require.NotNil(t, ticket.ResolvedAt)
	assert.True(t, now.Equal(*ticket.ResolvedAt))
}

func TestLedger_ResolveErrors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, l *Ledger) string
		decision domain.Decision
		wantErr  error
		wantLeft domain.ApprovalStatus
	}{
		{
			name:     "unknown ticket",
			setup:    func(*testing.T, *Ledger) string { return "APPROVAL-MISSING" },
			decision: domain.DecisionApproved,
			wantErr:  ErrNotFound,
		},
		{
			name:     "invalid decision",
			setup:    func(t *testing.T, l *Ledger) string { return createTicket(t, l) },
			decision: domain.Decision("maybe"),
			wantErr:  ErrInvalidDecision,
		},
		{
			name: "same decision twice",
			setup: func(t *testing.T, l *Ledger) string {
				id := createTicket(t, l)
				_, err := l.Resolve(context.Background(), id, domain.DecisionRejected, "")
				require.NoError(t, err)
				return id
			},
			decision: domain.DecisionRejected,
			wantErr:  ErrAlreadyResolved,
			wantLeft: domain.ApprovalStatusRejected,
		},
		{
			name: "opposite decision after approve",
			setup: func(t *testing.T, l *Ledger) string {
				id := createTicket(t, l)
				_, err := l.Resolve(context.Background(), id, domain.DecisionApproved, "")
				require.NoError(t, err)
				return id
			},
			decision: domain.DecisionRejected,
			wantErr:  ErrAlreadyResolved,
			wantLeft: domain.ApprovalStatusApproved,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := newTestLedger(t)
			id := tc.setup(t, l)

			_, err := l.Resolve(context.Background(), id, tc.decision, "")
			require.ErrorIs(t, err, tc.wantErr)

			if tc.wantLeft != "" {
				var resolvedErr *AlreadyResolvedError
				require.True(t, errors.As(err, &resolvedErr))
				assert.Equal(t, tc.wantLeft, resolvedErr.Ticket.Status)

				stored, err := l.Get(context.Background(), id)
				require.NoError(t, err)
				assert.Equal(t, tc.wantLeft, stored.Status)
			}
		})
	}
}

func TestLedger_ConcurrentOppositeDecisions(t *testing.T) {
	for i := 0; i < 20; i++ {
		l := newTestLedger(t)
		id := createTicket(t, l)

		var wg sync.WaitGroup
		results := make([]error, 2)
		tickets := make([]*domain.ApprovalTicket, 2)
		for n, decision := range []domain.Decision{domain.DecisionApproved, domain.DecisionRejected} {
			wg.Add(1)
			go func(n int, decision domain.Decision) {
				defer wg.Done()
				tickets[n], results[n] = l.Resolve(context.Background(), id, decision, "")
			}(n, decision)
		}
		wg.Wait()

		winners := 0
		var winnerStatus domain.ApprovalStatus
		for n := range results {
			if results[n] == nil {
				winners++
				winnerStatus = tickets[n].Status
			}
		}
		require.Equal(t, 1, winners)
		for n := range results {
			if results[n] != nil {
				var resolvedErr *AlreadyResolvedError
				require.True(t, errors.As(results[n], &resolvedErr))
				assert.Equal(t, winnerStatus, resolvedErr.Ticket.Status)
			}
		}
	}
}

func TestLedger_CreateRetriesOnCollision(t *testing.T) {
	ids := []string{"APPROVAL-AAAAAAAA", "APPROVAL-AAAAAAAA", "APPROVAL-BBBBBBBB"}
	next := 0
	l := newTestLedger(t, WithIDGenerator(func() string {
		id := ids[next]
		next++
		return id
	}))

	first := createTicket(t, l)
	second := createTicket(t, l)

	assert.Equal(t, "APPROVAL-AAAAAAAA", first)
	assert.Equal(t, "APPROVAL-BBBBBBBB", second)
}

func TestLedger_CreateGivesUpAfterRepeatedCollisions(t *testing.T) {
	l := newTestLedger(t, WithIDGenerator(func() string { return "APPROVAL-SAME" }))
	createTicket(t, l)

	_, err := l.Create(context.Background(), CreateTicketInput{ClaimID: "CLM-002", CustomerEmail: "b@example.com"})
	assert.ErrorIs(t, err, ErrStorageFault)
}

func TestLedger_PurgeResolvedKeepsPending(t *testing.T) {
	now := time.Date(2025, 10, 27, 12, 0, 0, 0, time.UTC)
	clock := now
	l := newTestLedger(t, WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	pending := createTicket(t, l)
	old := createTicket(t, l)
	_, err := l.Resolve(ctx, old, domain.DecisionApproved, "")
	require.NoError(t, err)

	clock = now.Add(25 * time.Hour)
	fresh := createTicket(t, l)
	_, err = l.Resolve(ctx, fresh, domain.DecisionRejected, "")
	require.NoError(t, err)

	removed, err := l.PurgeResolved(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = l.Get(ctx, old)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.Get(ctx, pending)
	assert.NoError(t, err)
	_, err = l.Get(ctx, fresh)
	assert.NoError(t, err)
}

type failingRepository struct {
	repository.ApprovalRepository
}

func (failingRepository) Create(context.Context, *domain.ApprovalTicket) error {
	return errors.New("disk full")
}

func (failingRepository) Resolve(context.Context, string, repository.ResolveUpdate) (*domain.ApprovalTicket, error) {
	return nil, errors.New("disk full")
}

func TestLedger_StorageFault(t *testing.T) {
	l := NewLedger(failingRepository{ApprovalRepository: repository.NewMemoryApprovalRepository()}, nil)

	_, err := l.Create(context.Background(), CreateTicketInput{ClaimID: "CLM-001", CustomerEmail: "a@example.com"})
	assert.ErrorIs(t, err, ErrStorageFault)

	_, err = l.Resolve(context.Background(), "APPROVAL-X", domain.DecisionApproved, "")
	assert.ErrorIs(t, err, ErrStorageFault)
	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "resolve", storageErr.Op)
}

// Any sequence of resolve calls leaves each ticket with the first decision applied to it.
func TestLedger_AtMostOneTransitionProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		l := NewLedger(repository.NewMemoryApprovalRepository(), nil)
		ctx := context.Background()

		count := rapid.IntRange(1, 4).Draw(rt, "tickets")
		ids := make([]string, count)
		for i := range ids {
			id, err := l.Create(ctx, CreateTicketInput{ClaimID: fmt.Sprintf("CLM-%03d", i), CustomerEmail: "a@example.com"})
			if err != nil {
				rt.Fatalf("create: %v", err)
			}
			ids[i] = id
		}

		first := make(map[string]domain.ApprovalStatus)
		steps := rapid.IntRange(0, 20).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.SampledFrom(ids).Draw(rt, "ticket")
			decision := rapid.SampledFrom([]domain.Decision{domain.DecisionApproved, domain.DecisionRejected}).Draw(rt, "decision")

			ticket, err := l.Resolve(ctx, id, decision, "")
			want, seen := first[id]
			switch {
			case !seen:
				if err != nil {
					rt.Fatalf("first resolve of %s failed: %v", id, err)
				}
				first[id] = ticket.Status
			default:
				if !errors.Is(err, ErrAlreadyResolved) {
					rt.Fatalf("second resolve of %s: expected AlreadyResolved, got %v", id, err)
				}
				var resolvedErr *AlreadyResolvedError
				if !errors.As(err, &resolvedErr) || resolvedErr.Ticket.Status != want {
					rt.Fatalf("ticket %s changed status after resolution", id)
				}
			}
		}

		for _, id := range ids {
			ticket, err := l.Get(ctx, id)
			if err != nil {
				rt.Fatalf("get: %v", err)
			}
			want, seen := first[id]
			if !seen {
				want = domain.ApprovalStatusPending
			}
			if ticket.Status != want {
				rt.Fatalf("ticket %s: status %s, want %s", id, ticket.Status, want)
			}
		}
	})
}
