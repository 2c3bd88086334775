package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/spec-kit/claim-approval-service/internal/domain"
)

var (
	// ErrTicketNotFound is returned when no ticket has the requested id.
	ErrTicketNotFound = errors.New("approval ticket not found")
	// ErrTicketAlreadyResolved is returned when a resolve finds the ticket no longer pending.
	ErrTicketAlreadyResolved = errors.New("approval ticket already resolved")
	// ErrDuplicateTicket is returned when Create collides with an existing id.
	ErrDuplicateTicket = errors.New("approval ticket already exists")
)

// ResolveUpdate carries the terminal values written by Resolve.
type ResolveUpdate struct {
	Status     domain.ApprovalStatus
	Note       string
	ResolvedAt time.Time
}

// ApprovalRepository persists approval tickets keyed by ticket id.
//
// Resolve is a compare-and-set: it only succeeds while the stored ticket is pending.
// On ErrTicketAlreadyResolved the returned ticket is the stored terminal record.
type ApprovalRepository interface {
	Create(ctx context.Context, ticket *domain.ApprovalTicket) error
	Get(ctx context.Context, id string) (*domain.ApprovalTicket, error)
	Resolve(ctx context.Context, id string, update ResolveUpdate) (*domain.ApprovalTicket, error)
	ListPending(ctx context.Context) ([]domain.ApprovalTicket, error)
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

func applyResolve(ticket *domain.ApprovalTicket, update ResolveUpdate) {
	resolvedAt := update.ResolvedAt.UTC()
	ticket.Status = update.Status
	ticket.Note = update.Note
	ticket.ResolvedAt = &resolvedAt
}

func resolvedBefore(ticket *domain.ApprovalTicket, cutoff time.Time) bool {
	return ticket.Status.IsTerminal() && ticket.ResolvedAt != nil && ticket.ResolvedAt.Before(cutoff)
}

func sortByCreated(tickets []domain.ApprovalTicket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].ID < tickets[j].ID
		}
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})
}

func cloneTicket(ticket *domain.ApprovalTicket) *domain.ApprovalTicket {
	cp := *ticket
	if ticket.ResolvedAt != nil {
		resolvedAt := *ticket.ResolvedAt
		cp.ResolvedAt = &resolvedAt
	}
	return &cp
}
