package service

import (
	"errors"
	"fmt"

	"github.com/spec-kit/claim-approval-service/internal/domain"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyResolved = errors.New("already resolved")
	ErrStorageFault    = errors.New("storage fault")
	ErrNotifyDelivery  = errors.New("resume delivery failed")
	ErrNotResumable    = errors.New("ticket has no resumable session")
	ErrInvalidDecision = errors.New("invalid decision")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmailDelivery   = errors.New("email delivery failed")
)

// AlreadyResolvedError carries the terminal ticket a duplicate decision ran into.
type AlreadyResolvedError struct {
	Ticket *domain.ApprovalTicket
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("ticket %s already %s", e.Ticket.ID, e.Ticket.Status)
}

func (e *AlreadyResolvedError) Is(target error) bool {
	return target == ErrAlreadyResolved
}

// StorageError wraps a failure of the ticket store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFault
}

// NotifyError describes a resume delivery that never reached the runtime.
type NotifyError struct {
	TicketID   string
	Attempts   int
	StatusCode int
	Err        error
}

func (e *NotifyError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("resume %s: runtime answered %d after %d attempt(s)", e.TicketID, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("resume %s after %d attempt(s): %v", e.TicketID, e.Attempts, e.Err)
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}

func (e *NotifyError) Is(target error) bool {
	return target == ErrNotifyDelivery
}
