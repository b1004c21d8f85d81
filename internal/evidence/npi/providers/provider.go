// Package providers defines the contract every registry source implements.
package providers

import (
	"context"

	"veritas/internal/verification/models"
)

// RosterQuery locates individual providers around a practice. PostalCode
// wins over City and State when both are set.
type RosterQuery struct {
	PostalCode string
	City       string
	State      string
	Limit      int
	Skip       int
}

//go:generate mockgen -source=provider.go -destination=mocks/provider-mocks.go -package=mocks Provider

// Provider is the interface all registry sources implement.
type Provider interface {
	// ID returns a unique identifier for this source.
	ID() string

	// Lookup returns the organization record for an NPI. A source that
	// does not know the NPI returns a ProviderError with ErrorNotFound.
	Lookup(ctx context.Context, npi string) (*models.RegistryRecord, error)

	// SearchRoster returns one page of individual providers.
	SearchRoster(ctx context.Context, q RosterQuery) ([]models.RosterEntry, error)

	// Health checks if the source is reachable.
	Health(ctx context.Context) error
}
