package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spec-kit/claim-approval-service/internal/domain"
)

// fileApprovalRepository keeps the ticket map in memory and rewrites the whole
// JSON file on every mutation. A failed write rolls the in-memory change back.
type fileApprovalRepository struct {
	path    string
	mu      sync.RWMutex
	tickets map[string]*domain.ApprovalTicket
}

// NewFileApprovalRepository opens (or creates) a JSON ticket file at path.
func NewFileApprovalRepository(path string) (ApprovalRepository, error) {
	if path == "" {
		return nil, errors.New("missing ledger file path")
	}
	r := &fileApprovalRepository{path: path, tickets: make(map[string]*domain.ApprovalTicket)}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *fileApprovalRepository) Create(_ context.Context, ticket *domain.ApprovalTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tickets[ticket.ID]; exists {
		return ErrDuplicateTicket
	}
	r.tickets[ticket.ID] = cloneTicket(ticket)
	if err := r.flush(); err != nil {
		delete(r.tickets, ticket.ID)
		return err
	}
	return nil
}

func (r *fileApprovalRepository) Get(_ context.Context, id string) (*domain.ApprovalTicket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	return cloneTicket(ticket), nil
}

func (r *fileApprovalRepository) Resolve(_ context.Context, id string, update ResolveUpdate) (*domain.ApprovalTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	if ticket.Status != domain.ApprovalStatusPending {
		return cloneTicket(ticket), ErrTicketAlreadyResolved
	}
	previous := cloneTicket(ticket)
	applyResolve(ticket, update)
	if err := r.flush(); err != nil {
		r.tickets[id] = previous
		return nil, err
	}
	return cloneTicket(ticket), nil
}

func (r *fileApprovalRepository) ListPending(_ context.Context) ([]domain.ApprovalTicket, error) {
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

func (r *fileApprovalRepository) DeleteResolvedBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := make(map[string]*domain.ApprovalTicket)
	for id, ticket := range r.tickets {
		if resolvedBefore(ticket, cutoff) {
			removed[id] = ticket
			delete(r.tickets, id)
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}
	if err := r.flush(); err != nil {
		for id, ticket := range removed {
			r.tickets[id] = ticket
		}
		return 0, err
	}
	return len(removed), nil
}

func (r *fileApprovalRepository) load() error {
	content, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return r.flush()
	}
	if err != nil {
		return fmt.Errorf("read ledger file: %w", err)
	}
	if len(content) == 0 {
		return nil
	}
	if err := json.Unmarshal(content, &r.tickets); err != nil {
		return fmt.Errorf("decode ledger file: %w", err)
	}
	return nil
}

// flush must be called with mu held for writing.
func (r *fileApprovalRepository) flush() error {
	content, err := json.MarshalIndent(r.tickets, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger file: %w", err)
	}
	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".approvals-*.json")
	if err != nil {
		return fmt.Errorf("create ledger temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write ledger temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync ledger temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close ledger temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}
