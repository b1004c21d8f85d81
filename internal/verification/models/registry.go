package models

import (
	"fmt"
	"strings"

	dErrors "veritas/pkg/domain-errors"
)

// ParseNPI trims and validates a 10-digit National Provider Identifier.
func ParseNPI(s string) (string, error) {
	npi := strings.TrimSpace(s)
	if len(npi) != 10 {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("npi must be 10 digits, got %q", s))
	}
	for _, r := range npi {
		if r < '0' || r > '9' {
			return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("npi must be 10 digits, got %q", s))
		}
	}
	return npi, nil
}

// Address is one practice location as the registry reports it.
type Address struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2,omitempty"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
}

// IsZero reports whether the address carries no street line.
func (a Address) IsZero() bool {
	return a.Line1 == ""
}

// RegistryRecord is the canonical organization snapshot for one NPI.
// It is fetched fresh per scan (or from a short-lived cache) and never mutated.
type RegistryRecord struct {
	NPI                string    `json:"npi"`
	Name               string    `json:"name"`
	Primary            Address   `json:"primary"`
	Phone              string    `json:"phone"`
	TaxonomyCode       string    `json:"taxonomy_code"`
	TaxonomyLabel      string    `json:"taxonomy_label"`
	EnumerationDate    string    `json:"enumeration_date,omitempty"`
	LastUpdated        string    `json:"last_updated,omitempty"`
	SecondaryAddresses []Address `json:"secondary_addresses,omitempty"`
	Source             string    `json:"source,omitempty"`
}

// Completeness counts populated facts. Used to prefer the richer of two
// source payloads for the same NPI.
func (r *RegistryRecord) Completeness() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, v := range []string{
		r.Name, r.Primary.Line1, r.Primary.City, r.Primary.State, r.Primary.Zip,
		r.Phone, r.TaxonomyCode, r.TaxonomyLabel, r.EnumerationDate, r.LastUpdated,
	} {
		if v != "" {
			n++
		}
	}
	return n + len(r.SecondaryAddresses)
}

// RosterEntry is one individual provider from the geo-indexed registry search.
type RosterEntry struct {
	NPI           string `json:"npi"`
	FullName      string `json:"full_name"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	Line1         string `json:"line1,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	Zip           string `json:"zip,omitempty"`
	TaxonomyCode  string `json:"taxonomy_code,omitempty"`
	TaxonomyLabel string `json:"taxonomy_label,omitempty"`
}
