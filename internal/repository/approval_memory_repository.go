package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/claim-approval-service/internal/domain"
)

type memoryApprovalRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.ApprovalTicket
}

// NewMemoryApprovalRepository returns a process-local store, used in tests and demos.
func NewMemoryApprovalRepository() ApprovalRepository {
	return &memoryApprovalRepository{tickets: make(map[string]*domain.ApprovalTicket)}
}

func (r *memoryApprovalRepository) Create(_ context.Context, ticket *domain.ApprovalTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tickets[ticket.ID]; exists {
		return ErrDuplicateTicket
	}
	r.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (r *memoryApprovalRepository) Get(_ context.Context, id string) (*domain.ApprovalTicket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	return cloneTicket(ticket), nil
}

func (r *memoryApprovalRepository) Resolve(_ context.Context, id string, update ResolveUpdate) (*domain.ApprovalTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	if ticket.Status != domain.ApprovalStatusPending {
		return cloneTicket(ticket), ErrTicketAlreadyResolved
	}
	applyResolve(ticket, update)
	return cloneTicket(ticket), nil
}

func (r *memoryApprovalRepository) ListPending(_ context.Context) ([]domain.ApprovalTicket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.ApprovalTicket, 0)
	for _, ticket := range r.tickets {
		if ticket.Status == domain.ApprovalStatusPending {
			result = append(result, *cloneTicket(ticket))
		}
	}
	sortByCreated(result)
	return result, nil
}

func (r *memoryApprovalRepository) DeleteResolvedBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, ticket := range r.tickets {
		if resolvedBefore(ticket, cutoff) {
			delete(r.tickets, id)
			removed++
		}
	}
	return removed, nil
}
