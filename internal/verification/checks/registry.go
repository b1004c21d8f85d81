package checks

import "veritas/internal/verification/models"

// Registry is the ordered, immutable table of check modules. It is the single
// extension point: adding a check means adding it here, nothing else changes.
// Safe for concurrent use because nothing mutates it after construction.
type Registry struct {
	modules []models.CheckModule
	byID    map[string]models.CheckModule
}

// NewRegistry builds a table from modules in run order. Duplicate ids panic;
// this only happens at startup.
func NewRegistry(modules ...models.CheckModule) *Registry {
	r := &Registry{
		modules: append([]models.CheckModule(nil), modules...),
		byID:    make(map[string]models.CheckModule, len(modules)),
	}
	for _, m := range r.modules {
		if _, dup := r.byID[m.ID()]; dup {
			panic("checks: duplicate check id " + m.ID())
		}
		r.byID[m.ID()] = m
	}
	return r
}

// Default is the production table.
//
// Data residency, AI transparency and clinical integrity modules are produced
// by the site snapshot pipeline and slot in here as they are ported.
var Default = NewRegistry(
	NewAddressCheck(),     // NPI-01 free
	NewPhoneCheck(),       // NPI-02 free
	NewTaxonomyCheck(),    // NPI-03 report
	NewRosterCountCheck(), // RST-01 report
	NewRosterNameCheck(),  // RST-02 shield
)

// All returns every module in run order.
func (r *Registry) All() []models.CheckModule {
	return append([]models.CheckModule(nil), r.modules...)
}

// ForTier returns the modules a caller on tier may run, cascading down
// (shield runs report and free checks too), in run order.
func (r *Registry) ForTier(tier models.Tier) []models.CheckModule {
	out := make([]models.CheckModule, 0, len(r.modules))
	for _, m := range r.modules {
		if tier.Includes(m.Tier()) {
			out = append(out, m)
		}
	}
	return out
}

// ByID looks up a single module.
func (r *Registry) ByID(id string) (models.CheckModule, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// ByCategory groups modules by category, preserving run order within each.
func (r *Registry) ByCategory() map[models.Category][]models.CheckModule {
	out := make(map[models.Category][]models.CheckModule)
	for _, m := range r.modules {
		out[m.Category()] = append(out[m.Category()], m)
	}
	return out
}
