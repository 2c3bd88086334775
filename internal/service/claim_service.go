package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/claim-approval-service/internal/domain"
	"github.com/spec-kit/claim-approval-service/internal/repository"
)

// ClaimService answers claim and policy lookups.
type ClaimService struct {
	claims   repository.ClaimRepository
	policies repository.PolicyRepository
}

// NewClaimService constructs the service.
func NewClaimService(claims repository.ClaimRepository, policies repository.PolicyRepository) *ClaimService {
	return &ClaimService{claims: claims, policies: policies}
}

// GetClaim returns a claim by id.
func (s *ClaimService) GetClaim(ctx context.Context, claimID string) (*domain.Claim, error) {
	claimID = strings.TrimSpace(claimID)
	claim, err := s.claims.GetByID(ctx, claimID)
	if errors.Is(err, repository.ErrClaimNotFound) {
		return nil, fmt.Errorf("claim %s: %w", claimID, ErrNotFound)
	}
	return claim, err
}

// GetPolicy returns a policy by number.
func (s *ClaimService) GetPolicy(ctx context.Context, policyNumber string) (*domain.Policy, error) {
	policyNumber = strings.TrimSpace(policyNumber)
	policy, err := s.policies.GetByNumber(ctx, policyNumber)
	if errors.Is(err, repository.ErrPolicyNotFound) {
		return nil, fmt.Errorf("policy %s: %w", policyNumber, ErrNotFound)
	}
	return policy, err
}
