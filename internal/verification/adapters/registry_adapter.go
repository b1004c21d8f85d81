package adapters

import (
	"context"

	"veritas/internal/verification/models"
	"veritas/internal/verification/ports"
)

// RegistryEvidence is the slice of the registry evidence service the
// orchestrator needs.
type RegistryEvidence interface {
	FetchRecord(ctx context.Context, npi string) (*models.RegistryRecord, error)
	FetchRoster(ctx context.Context, zip, city, state string) ([]models.RosterEntry, error)
}

// RegistryAdapter is an in-process adapter that implements ports.RegistryPort
// by calling the registry evidence service directly. Splitting evidence into
// its own process means swapping this adapter, not touching the orchestrator.
type RegistryAdapter struct {
	evidence RegistryEvidence
}

// NewRegistryAdapter creates a new in-process registry adapter.
func NewRegistryAdapter(evidence RegistryEvidence) ports.RegistryPort {
	return &RegistryAdapter{evidence: evidence}
}

// FetchRecord returns a copy so checks can never reach into a
// cached record.
func (a *RegistryAdapter) FetchRecord(ctx context.Context, npi string) (*models.RegistryRecord, error) {
	rec, err := a.evidence.FetchRecord(ctx, npi)
	if err != nil || rec == nil {
		return nil, err
	}
	out := *rec
	out.SecondaryAddresses = append([]models.Address(nil), rec.SecondaryAddresses...)
	return &out, nil
}

func (a *RegistryAdapter) FetchRoster(ctx context.Context, zip, city, state string) ([]models.RosterEntry, error) {
	return a.evidence.FetchRoster(ctx, zip, city, state)
}
