// Package checks holds the registry-integrity check modules and the ordered
// table that decides which of them run at each subscription tier.
package checks

import "veritas/internal/verification/models"

// descriptor carries the immutable metadata every module exposes.
// Modules embed it and add Run.
type descriptor struct {
	id         string
	name       string
	category   models.Category
	severity   models.Severity
	tier       models.Tier
	statuteRef string
}

func (d descriptor) ID() string { return d.id }
func (d descriptor) Name() string { return d.name }
func (d descriptor) Category() models.Category { return d.category }
func (d descriptor) Severity() models.Severity { return d.severity }
func (d descriptor) Tier() models.Tier { return d.tier }
func (d descriptor) StatuteRef() string { return d.statuteRef }

const (
	statuteAccuracy = "NPPES Accuracy Requirement"
	statuteTaxonomy = "NPPES Taxonomy Requirements"
)
