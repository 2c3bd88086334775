package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/claim-approval-service/internal/domain"
)

const (
	redisTicketPrefix = "approval:ticket:"
	redisPendingSet   = "approval:pending"
	redisResolvedSet  = "approval:resolved"
	redisMaxTxRetries = 10
)

// createTicketScript indexes the id before writing the ticket, so a failed
// SADD aborts the script with nothing stored.
var createTicketScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 1 then
		return 0
	end
	redis.call('SADD', KEYS[2], ARGV[2])
	redis.call('SET', KEYS[1], ARGV[1])
	return 1
`)

type redisApprovalRepository struct {
	client *redis.Client
}

// NewRedisApprovalRepository stores each ticket as a JSON value and tracks pending
// and resolved ids in sets. Resolve uses an optimistic WATCH transaction so racing
// writers in different processes still see exactly one winner.
func NewRedisApprovalRepository(client *redis.Client) ApprovalRepository {
	return &redisApprovalRepository{client: client}
}

func ticketKey(id string) string {
	return redisTicketPrefix + id
}

func (r *redisApprovalRepository) Create(ctx context.Context, ticket *domain.ApprovalTicket) error {
	payload, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	created, err := createTicketScript.Run(ctx, r.client,
		[]string{ticketKey(ticket.ID), redisPendingSet}, payload, ticket.ID).Int()
	if err != nil {
		return fmt.Errorf("create ticket %s: %w", ticket.ID, err)
	}
	if created == 0 {
		return ErrDuplicateTicket
	}
	return nil
}

func (r *redisApprovalRepository) Get(ctx context.Context, id string) (*domain.ApprovalTicket, error) {
	return r.read(ctx, r.client, id)
}

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *redisApprovalRepository) read(ctx context.Context, getter redisGetter, id string) (*domain.ApprovalTicket, error) {
	payload, err := getter.Get(ctx, ticketKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	var ticket domain.ApprovalTicket
	if err := json.Unmarshal(payload, &ticket); err != nil {
		return nil, fmt.Errorf("decode ticket %s: %w", id, err)
	}
	return &ticket, nil
}

func (r *redisApprovalRepository) Resolve(ctx context.Context, id string, update ResolveUpdate) (*domain.ApprovalTicket, error) {
	key := ticketKey(id)
	for attempt := 0; attempt < redisMaxTxRetries; attempt++ {
		var (
			result   *domain.ApprovalTicket
			stateErr error
		)
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			ticket, err := r.read(ctx, tx, id)
			if err != nil {
				stateErr = err
				return nil
			}
			if ticket.Status != domain.ApprovalStatusPending {
				result = ticket
				stateErr = ErrTicketAlreadyResolved
				return nil
			}
			applyResolve(ticket, update)
			payload, err := json.Marshal(ticket)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, 0)
				pipe.SRem(ctx, redisPendingSet, id)
				pipe.SAdd(ctx, redisResolvedSet, id)
				return nil
			})
			if err == nil {
				result = ticket
			}
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if stateErr != nil {
			return result, stateErr
		}
		return result, nil
	}
	return nil, fmt.Errorf("resolve %s: too much contention", id)
}

func (r *redisApprovalRepository) ListPending(ctx context.Context) ([]domain.ApprovalTicket, error) {
	ids, err := r.client.SMembers(ctx, redisPendingSet).Result()
	if err != nil {
		return nil, err
	}
	result := make([]domain.ApprovalTicket, 0, len(ids))
	for _, id := range ids {
		ticket, err := r.Get(ctx, id)
		if errors.Is(err, ErrTicketNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if ticket.Status == domain.ApprovalStatusPending {
			result = append(result, *ticket)
		}
	}
	sortByCreated(result)
	return result, nil
}

func (r *redisApprovalRepository) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := r.client.SMembers(ctx, redisResolvedSet).Result()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, id := range ids {
		ticket, err := r.Get(ctx, id)
		if errors.Is(err, ErrTicketNotFound) {
			_ = r.client.SRem(ctx, redisResolvedSet, id).Err()
			continue
		}
		if err != nil {
			return removed, err
		}
		if !resolvedBefore(ticket, cutoff) {
			continue
		}
		if _, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, ticketKey(id))
			pipe.SRem(ctx, redisResolvedSet, id)
			return nil
		}); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
