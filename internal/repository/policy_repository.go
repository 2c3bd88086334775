package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/claim-approval-service/internal/domain"
)

// ErrPolicyNotFound is returned for unknown policy numbers.
var ErrPolicyNotFound = errors.New("policy not found")

// PolicyRepository looks up insurance policies.
type PolicyRepository interface {
	GetByNumber(ctx context.Context, number string) (*domain.Policy, error)
}

type staticPolicyRepository struct {
	policies map[string]domain.Policy
}

// NewCatalogPolicyRepository serves the policies of a loaded catalog.
func NewCatalogPolicyRepository(cat *Catalog) PolicyRepository {
	policies := make(map[string]domain.Policy, len(cat.Policies))
	for _, p := range cat.Policies {
		policies[p.PolicyNumber] = p
	}
	return &staticPolicyRepository{policies: policies}
}

// NewStaticPolicyRepository serves the built-in demo policies.
func NewStaticPolicyRepository() PolicyRepository {
	return NewCatalogPolicyRepository(defaultCatalog())
}

func (r *staticPolicyRepository) GetByNumber(_ context.Context, number string) (*domain.Policy, error) {
	policy, ok := r.policies[number]
	if !ok {
		return nil, ErrPolicyNotFound
	}
	return &policy, nil
}
