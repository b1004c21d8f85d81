package ports

import (
	"context"

	"veritas/internal/verification/models"
)

//go:generate mockgen -source=registry.go -destination=mocks/registry-mocks.go -package=mocks RegistryPort

// RegistryPort is how the scan orchestrator reaches registry evidence
// without depending on HTTP sources, caches or their storage.
type RegistryPort interface {
	// FetchRecord returns the merged organization record for an NPI, or
	// nil with no error when no source knows it.
	FetchRecord(ctx context.Context, npi string) (*models.RegistryRecord, error)

	// FetchRoster returns individual providers registered in the same
	// area. The zip is preferred; city and state are the fallback.
	FetchRoster(ctx context.Context, zip, city, state string) ([]models.RosterEntry, error)
}
