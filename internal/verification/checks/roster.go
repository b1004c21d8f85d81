package checks

import (
	"context"
	"fmt"
	"math"

	"veritas/internal/matching"
	"veritas/internal/verification/models"
	strs "veritas/pkg/platform/strings"
)

// RosterCountCheck (RST-01) credits a site that lists its providers
// individually. It does not reconcile against the geo roster; that is
// RosterNameCheck's job.
type RosterCountCheck struct{ descriptor }

// NewRosterCountCheck builds RST-01.
func NewRosterCountCheck() RosterCountCheck {
	return RosterCountCheck{descriptor{
		id:       "RST-01",
		name:     "Provider Roster Count",
		category: models.CategoryNPIIntegrity,
		severity: models.SeverityMedium,
		tier:     models.TierReport,
	}}
}

// rosterCountScore is a fixed credit for a published roster.
const rosterCountScore = 80

func (RosterCountCheck) Run(_ context.Context, cc *models.CheckContext) (models.CheckResult, error) {
	site := cc.Cache.Snapshot
	names := siteProviderNames(site)
	if len(names) == 0 {
		return models.Inconclusive(
			"Website provider roster not detected",
			`Could not extract provider names from the website. Ensure your "Our Providers" or team page lists providers individually.`,
		), nil
	}

	return models.CheckResult{
		Status: models.StatusPass,
		Score:  rosterCountScore,
		Title:  "Provider roster published",
		Detail: fmt.Sprintf("Website lists %d provider(s) individually", len(names)),
		Evidence: map[string]any{
			"site_provider_count": len(names),
		},
	}, nil
}

// RosterNameCheck (RST-02) fuzzy-matches provider names on the website
// against individual NPIs registered in the practice's area.
type RosterNameCheck struct{ descriptor }

// NewRosterNameCheck builds RST-02.
func NewRosterNameCheck() RosterNameCheck {
	return RosterNameCheck{descriptor{
		id:       "RST-02",
		name:     "Provider Name Verification",
		category: models.CategoryNPIIntegrity,
		severity: models.SeverityHigh,
		tier:     models.TierShield,
	}}
}

const (
	maxListedNames   = 10
	warnIssueCeiling = 2
	minRosterScore   = 20
	perIssuePenalty  = 10
)

type rosterName struct {
	original   string
	normalized string
	entry      *models.RosterEntry
}

func (RosterNameCheck) Run(_ context.Context, cc *models.CheckContext) (models.CheckResult, error) {
	siteNames := siteProviderNames(cc.Cache.Snapshot)
	if len(siteNames) == 0 {
		return models.Inconclusive(
			"Website provider names not detected",
			"Could not extract individual provider names from the website",
		), nil
	}
	if len(cc.Cache.Roster) == 0 {
		return models.Inconclusive(
			"NPI provider data unavailable",
			"Could not retrieve individual provider NPIs for this area",
		), nil
	}

	site := make([]rosterName, 0, len(siteNames))
	for _, n := range siteNames {
		site = append(site, rosterName{original: n, normalized: matching.NormalizeName(n)})
	}
	registry := make([]rosterName, 0, len(cc.Cache.Roster))
	for i := range cc.Cache.Roster {
		e := &cc.Cache.Roster[i]
		registry = append(registry, rosterName{original: e.FullName, normalized: matching.NormalizeName(e.FullName), entry: e})
	}

	var onSiteOnly, inRegistryOnly []rosterName
	matched := 0
	for _, s := range site {
		if containsName(registry, s) {
			matched++
		} else {
			onSiteOnly = append(onSiteOnly, s)
		}
	}
	for _, r := range registry {
		if !containsName(site, r) {
			inRegistryOnly = append(inRegistryOnly, r)
		}
	}

	matchRate := int(math.Round(float64(matched) / float64(len(site)) * 100))
	evidence := map[string]any{
		"matched_count":       matched,
		"match_rate":          matchRate,
		"site_provider_count": len(site),
		"npi_provider_count":  len(registry),
	}

	issues := len(onSiteOnly) + len(inRegistryOnly)
	if issues == 0 {
		return models.CheckResult{
			Status:   models.StatusPass,
			Score:    100,
			Title:    "All providers verified",
			Detail:   fmt.Sprintf("All %d website providers match NPI records in area", len(site)),
			Evidence: evidence,
		}, nil
	}

	evidence["on_site_not_in_npi"] = listOriginals(onSiteOnly)
	evidence["in_npi_not_on_site"] = listRegistry(inRegistryOnly)

	status := models.StatusFail
	if issues <= warnIssueCeiling {
		status = models.StatusWarn
	}
	steps := make([]string, 0, 5)
	if len(onSiteOnly) > 0 {
		steps = append(steps, fmt.Sprintf("%d provider(s) on your website may have left or may list a different practice address with NPPES", len(onSiteOnly)))
	}
	if len(inRegistryOnly) > 0 {
		steps = append(steps, fmt.Sprintf("%d provider(s) with NPIs in your area are not listed on your website", len(inRegistryOnly)))
	}
	steps = append(steps,
		"Verify your team page is up to date",
		"Providers who have relocated should update their NPI practice address",
		"New hires should be added to your website within 30 days",
	)

	detail := fmt.Sprintf("%d on website but not in NPI area, %d in NPI area but not on website (%d%% match rate)",
		len(onSiteOnly), len(inRegistryOnly), matchRate)
	return models.CheckResult{
		Status:           status,
		Score:            max(minRosterScore, 100-issues*perIssuePenalty),
		Title:            "Provider roster discrepancies found",
		Detail:           detail,
		Evidence:         evidence,
		RemediationSteps: steps,
	}, nil
}

func siteProviderNames(site *models.SiteSnapshot) []string {
	if site == nil {
		return nil
	}
	return strs.DedupeFold(site.ProviderNames)
}

func containsName(pool []rosterName, n rosterName) bool {
	for _, p := range pool {
		if matching.NamesMatch(p.normalized, n.normalized) {
			return true
		}
	}
	return false
}

func listOriginals(names []rosterName) []string {
	out := make([]string, 0, min(len(names), maxListedNames))
	for _, n := range names[:min(len(names), maxListedNames)] {
		out = append(out, n.original)
	}
	return out
}

func listRegistry(names []rosterName) []map[string]string {
	out := make([]map[string]string, 0, min(len(names), maxListedNames))
	for _, n := range names[:min(len(names), maxListedNames)] {
		out = append(out, map[string]string{
			"name":     n.original,
			"npi":      n.entry.NPI,
			"taxonomy": n.entry.TaxonomyLabel,
		})
	}
	return out
}
