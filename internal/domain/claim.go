package domain

// Claim is an insurance claim as exposed by the demo catalog.
type Claim struct {
	ClaimID        string  `json:"claim_id" yaml:"claim_id"`
	Status         string  `json:"status" yaml:"status"`
	ClaimType      string  `json:"claim_type" yaml:"claim_type"`
	ClaimAmount    float64 `json:"claim_amount" yaml:"claim_amount"`
	ApprovedAmount float64 `json:"approved_amount" yaml:"approved_amount"`
	FiledDate      string  `json:"filed_date" yaml:"filed_date"`
	UpdatedDate    string  `json:"updated_date" yaml:"updated_date"`
}

// Policy is an insurance policy as exposed by the demo catalog.
type Policy struct {
	PolicyNumber     string  `json:"policy_number" yaml:"policy_number"`
	PolicyType       string  `json:"policy_type" yaml:"policy_type"`
	Status           string  `json:"status" yaml:"status"`
	Premium          float64 `json:"premium" yaml:"premium"`
	CoverageAmount   float64 `json:"coverage_amount" yaml:"coverage_amount"`
	StartDate        string  `json:"start_date" yaml:"start_date"`
	RenewalDate      string  `json:"renewal_date" yaml:"renewal_date"`
	DaysUntilRenewal int     `json:"days_until_renewal" yaml:"days_until_renewal"`
}
