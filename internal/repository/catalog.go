package repository

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/claim-approval-service/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog is the read-only claim and policy table the agent looks things up in.
type Catalog struct {
	Claims   []domain.Claim  `yaml:"claims"`
	Policies []domain.Policy `yaml:"policies"`
}

// LoadCatalog reads a YAML catalog from path. An empty path yields the built-in demo catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return ParseCatalog(defaultCatalogYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(cat.Claims)+len(cat.Policies))
	for _, c := range cat.Claims {
		if c.ClaimID == "" {
			return nil, fmt.Errorf("parse catalog: claim without claim_id")
		}
		if _, dup := seen[c.ClaimID]; dup {
			return nil, fmt.Errorf("parse catalog: duplicate id %s", c.ClaimID)
		}
		seen[c.ClaimID] = struct{}{}
	}
	for _, p := range cat.Policies {
		if p.PolicyNumber == "" {
			return nil, fmt.Errorf("parse catalog: policy without policy_number")
		}
		if _, dup := seen[p.PolicyNumber]; dup {
			return nil, fmt.Errorf("parse catalog: duplicate id %s", p.PolicyNumber)
		}
		seen[p.PolicyNumber] = struct{}{}
	}
	return &cat, nil
}

func defaultCatalog() *Catalog {
	cat, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(err)
	}
	return cat
}
