package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/claim-approval-service/internal/domain"
	"github.com/spec-kit/claim-approval-service/internal/repository"
)

const (
	ledgerLockStripes  = 64
	maxCreateAttempts  = 5
	approvalTicketPref = "APPROVAL-"
)

// Ledger is the only writer of approval ticket state. Resolve is serialized per
// ticket id on top of the store's own compare-and-set.
type Ledger struct {
	repo   repository.ApprovalRepository
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
	locks  [ledgerLockStripes]sync.Mutex
}

// LedgerOption customizes a Ledger.
type LedgerOption func(*Ledger)

// WithClock overrides the time source.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithIDGenerator overrides ticket id allocation.
func WithIDGenerator(newID func() string) LedgerOption {
	return func(l *Ledger) {
		l.newID = newID
	}
}

// CreateTicketInput describes a new approval request.
type CreateTicketInput struct {
	ClaimID        string
	CustomerEmail  string
	UserID         string
	SessionID      string
	AppName        string
	FunctionCallID string
	RequestType    string
}

// NewLedger constructs the ledger over a ticket store.
func NewLedger(repo repository.ApprovalRepository, logger *zap.Logger, opts ...LedgerOption) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{
		repo:   repo,
		logger: logger.With(zap.String("component", "ledger")),
		now:    time.Now,
		newID:  generateApprovalTicketID,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Create stores a pending ticket and returns its id.
func (l *Ledger) Create(ctx context.Context, input CreateTicketInput) (string, error) {
	requestType := input.RequestType
	if requestType == "" {
		requestType = domain.RequestTypeClaimVerification
	}
	ticket := &domain.ApprovalTicket{
		ClaimID:        strings.TrimSpace(input.ClaimID),
		CustomerEmail:  strings.TrimSpace(input.CustomerEmail),
		UserID:         input.UserID,
		SessionID:      input.SessionID,
		AppName:        input.AppName,
		FunctionCallID: input.FunctionCallID,
		RequestType:    requestType,
		Status:         domain.ApprovalStatusPending,
		CreatedAt:      l.now().UTC(),
	}

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		ticket.ID = l.newID()
		err := l.repo.Create(ctx, ticket)
		if err == nil {
			l.logger.Info("approval ticket created",
				zap.String("ticket_id", ticket.ID),
				zap.String("claim_id", ticket.ClaimID))
			return ticket.ID, nil
		}
		if !errors.Is(err, repository.ErrDuplicateTicket) {
			return "", &StorageError{Op: "create", Err: err}
		}
		l.logger.Warn("ticket id collision", zap.String("ticket_id", ticket.ID), zap.Int("attempt", attempt))
	}
	return "", &StorageError{Op: "create", Err: fmt.Errorf("no unique ticket id after %d attempts", maxCreateAttempts)}
}

// Resolve moves a pending ticket to the decision's terminal status exactly once.
// A ticket that is already terminal yields an *AlreadyResolvedError holding its state.
func (l *Ledger) Resolve(ctx context.Context, ticketID string, decision domain.Decision, note string) (*domain.ApprovalTicket, error) {
	if !decision.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}

	lock := l.lockFor(ticketID)
	lock.Lock()
	defer lock.Unlock()

	ticket, err := l.repo.Resolve(ctx, ticketID, repository.ResolveUpdate{
		Status:     decision.Status(),
		Note:       note,
		ResolvedAt: l.now().UTC(),
	})
	switch {
	case err == nil:
		l.logger.Info("approval ticket resolved",
			zap.String("ticket_id", ticketID),
			zap.String("status", string(ticket.Status)))
		return ticket, nil
	case errors.Is(err, repository.ErrTicketNotFound):
		return nil, fmt.Errorf("ticket %s: %w", ticketID, ErrNotFound)
	case errors.Is(err, repository.ErrTicketAlreadyResolved):
		l.logger.Info("duplicate resolution ignored",
			zap.String("ticket_id", ticketID),
			zap.String("status", string(ticket.Status)),
			zap.String("attempted", string(decision)))
		return nil, &AlreadyResolvedError{Ticket: ticket}
	default:
		return nil, &StorageError{Op: "resolve", Err: err}
	}
}

// Get returns a ticket by id.
func (l *Ledger) Get(ctx context.Context, ticketID string) (*domain.ApprovalTicket, error) {
	ticket, err := l.repo.Get(ctx, ticketID)
	if errors.Is(err, repository.ErrTicketNotFound) {
		return nil, fmt.Errorf("ticket %s: %w", ticketID, ErrNotFound)
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}
	return ticket, nil
}

// ListPending returns every pending ticket, oldest first.
func (l *Ledger) ListPending(ctx context.Context) ([]domain.ApprovalTicket, error) {
	tickets, err := l.repo.ListPending(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list pending", Err: err}
	}
	return tickets, nil
}

// PurgeResolved drops resolved tickets older than olderThan. Pending tickets are kept.
func (l *Ledger) PurgeResolved(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	removed, err := l.repo.DeleteResolvedBefore(ctx, l.now().Add(-olderThan))
	if err != nil {
		return removed, &StorageError{Op: "purge", Err: err}
	}
	return removed, nil
}

func (l *Ledger) lockFor(ticketID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ticketID))
	return &l.locks[h.Sum32()%ledgerLockStripes]
}

func generateApprovalTicketID() string {
	return approvalTicketPref + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
