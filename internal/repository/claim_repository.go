package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/claim-approval-service/internal/domain"
)

// ErrClaimNotFound is returned for unknown claim ids.
var ErrClaimNotFound = errors.New("claim not found")

// ClaimRepository looks up insurance claims.
type ClaimRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Claim, error)
}

type staticClaimRepository struct {
	claims map[string]domain.Claim
}

// NewCatalogClaimRepository serves the claims of a loaded catalog.
func NewCatalogClaimRepository(cat *Catalog) ClaimRepository {
	claims := make(map[string]domain.Claim, len(cat.Claims))
	for _, c := range cat.Claims {
		claims[c.ClaimID] = c
	}
	return &staticClaimRepository{claims: claims}
}

// NewStaticClaimRepository serves the built-in demo claims.
func NewStaticClaimRepository() ClaimRepository {
	return NewCatalogClaimRepository(defaultCatalog())
}

func (r *staticClaimRepository) GetByID(_ context.Context, id string) (*domain.Claim, error) {
	claim, ok := r.claims[id]
	if !ok {
		return nil, ErrClaimNotFound
	}
	return &claim, nil
}
