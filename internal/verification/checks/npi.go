package checks

import (
	"context"
	"fmt"
	"strings"

	"veritas/internal/matching"
	"veritas/internal/verification/models"
	strs "veritas/pkg/platform/strings"
)

// AddressCheck (NPI-01) compares the website address to the registry
// practice address and any registered secondary locations.
type AddressCheck struct{ descriptor }

// NewAddressCheck builds NPI-01.
func NewAddressCheck() AddressCheck {
	return AddressCheck{descriptor{
		id:         "NPI-01",
		name:       "NPI Address Verification",
		category:   models.CategoryNPIIntegrity,
		severity:   models.SeverityHigh,
		tier:       models.TierFree,
		statuteRef: statuteAccuracy,
	}}
}

func (AddressCheck) Run(_ context.Context, cc *models.CheckContext) (models.CheckResult, error) {
	rec, site := cc.Cache.Record, cc.Cache.Snapshot
	if rec == nil || rec.Primary.IsZero() {
		return models.Inconclusive(
			"NPI organization data unavailable",
			"Could not retrieve NPI registry data for this provider",
		), nil
	}
	if site == nil || strings.TrimSpace(site.AddrLine1) == "" {
		return models.Inconclusive(
			"Website address not detected",
			"Could not extract a street address from the website. Check that your address is visible on the page.",
		), nil
	}

	siteAddr := matching.NormalizeAddress(site.AddrLine1, site.AddrCity, site.AddrState, site.AddrZip)
	registryAddr := normalizeRegistryAddress(rec.Primary)
	evidence := map[string]any{
		models.EvidenceNPIAddress:  formatAddress(rec.Primary),
		models.EvidenceSiteAddress: formatSiteAddress(site),
	}

	if matching.AddressesMatch(registryAddr, siteAddr) {
		return models.CheckResult{
			Status:   models.StatusPass,
			Score:    100,
			Title:    "Address matches NPI record",
			Detail:   fmt.Sprintf("Website address matches NPI practice address in %s, %s", rec.Primary.City, rec.Primary.State),
			Evidence: evidence,
		}, nil
	}

	for _, sec := range rec.SecondaryAddresses {
		if matching.AddressesMatch(normalizeRegistryAddress(sec), siteAddr) {
			evidence["matched_secondary"] = formatAddress(sec)
			return models.CheckResult{
				Status:   models.StatusPass,
				Score:    100,
				Title:    "Address matches NPI secondary location",
				Detail:   "Website address matches a registered secondary practice location",
				Evidence: evidence,
			}, nil
		}
	}

	evidence["npi_last_updated"] = rec.LastUpdated
	evidence["secondary_addresses"] = len(rec.SecondaryAddresses)
	return models.CheckResult{
		Status:   models.StatusFail,
		Score:    25,
		Title:    "Address mismatch detected",
		Detail:   fmt.Sprintf("Website shows %q but NPI record shows %q", site.AddrLine1+", "+site.AddrCity, rec.Primary.Line1+", "+rec.Primary.City),
		Evidence: evidence,
		RemediationSteps: []string{
			"Verify your current practice address is correct",
			"If you recently moved, update NPPES at https://nppes.cms.hhs.gov",
			"If the NPI record is correct, update your website",
			"If multi-site, register all locations with NPPES as secondary practice addresses",
		},
	}, nil
}

// PhoneCheck (NPI-02) compares the website phone to the registry phone.
type PhoneCheck struct{ descriptor }

// NewPhoneCheck builds NPI-02.
func NewPhoneCheck() PhoneCheck {
	return PhoneCheck{descriptor{
		id:         "NPI-02",
		name:       "NPI Phone Verification",
		category:   models.CategoryNPIIntegrity,
		severity:   models.SeverityMedium,
		tier:       models.TierFree,
		statuteRef: statuteAccuracy,
	}}
}

func (PhoneCheck) Run(_ context.Context, cc *models.CheckContext) (models.CheckResult, error) {
	rec, site := cc.Cache.Record, cc.Cache.Snapshot
	if rec == nil || matching.NormalizePhone(rec.Phone) == "" {
		return models.Inconclusive(
			"NPI phone data unavailable",
			"No phone number found in the NPI registry for this provider",
		), nil
	}
	if site == nil || matching.NormalizePhone(site.Phone) == "" {
		return models.Inconclusive(
			"Website phone not detected",
			"Could not extract a phone number from the website",
		), nil
	}

	evidence := map[string]any{
		models.EvidenceNPIPhone:  rec.Phone,
		models.EvidenceSitePhone: site.Phone,
	}
	if matching.PhonesMatch(rec.Phone, site.Phone) {
		return models.CheckResult{
			Status:   models.StatusPass,
			Score:    100,
			Title:    "Phone matches NPI record",
			Detail:   "Website phone matches NPI registry: " + rec.Phone,
			Evidence: evidence,
		}, nil
	}

	evidence["npi_last_updated"] = rec.LastUpdated
	return models.CheckResult{
		Status:   models.StatusFail,
		Score:    40,
		Title:    "Phone number mismatch",
		Detail:   fmt.Sprintf("Website: %s | NPI Record: %s", site.Phone, rec.Phone),
		Evidence: evidence,
		RemediationSteps: []string{
			"Verify which phone number is current",
			"Update NPPES if the website number is the active line",
			"Update your website if the NPI record is correct",
			"Call-tracking numbers (e.g., from ad campaigns) may trigger this alert",
		},
	}, nil
}

// TaxonomyCheck (NPI-03) compares website specialty labels to the registry
// taxonomy classification. Specialty wording is a weak signal, so a mismatch
// is a warning rather than a failure.
type TaxonomyCheck struct{ descriptor }

// NewTaxonomyCheck builds NPI-03.
func NewTaxonomyCheck() TaxonomyCheck {
	return TaxonomyCheck{descriptor{
		id:         "NPI-03",
		name:       "Specialty / Taxonomy Verification",
		category:   models.CategoryNPIIntegrity,
		severity:   models.SeverityMedium,
		tier:       models.TierReport,
		statuteRef: statuteTaxonomy,
	}}
}

func (TaxonomyCheck) Run(_ context.Context, cc *models.CheckContext) (models.CheckResult, error) {
	rec, site := cc.Cache.Record, cc.Cache.Snapshot
	if rec == nil || strings.TrimSpace(rec.TaxonomyLabel) == "" {
		return models.Inconclusive(
			"NPI taxonomy data unavailable",
			"No taxonomy classification found in the NPI registry",
		), nil
	}
	var labels []string
	if site != nil {
		labels = strs.DedupeFold(site.SpecialtyLabels)
	}
	if len(labels) == 0 {
		return models.Inconclusive(
			"Website specialties not detected",
			"Could not extract specialty or service labels from the website",
		), nil
	}

	evidence := map[string]any{
		"npi_taxonomy_code":              rec.TaxonomyCode,
		models.EvidenceNPIClassification: rec.TaxonomyLabel,
		models.EvidenceSiteSpecialties:   labels,
	}
	if matching.SpecialtyMatches(rec.TaxonomyLabel, labels) {
		return models.CheckResult{
			Status:   models.StatusPass,
			Score:    100,
			Title:    "Specialty matches NPI taxonomy",
			Detail:   "Website specialty aligns with NPI classification: " + rec.TaxonomyLabel,
			Evidence: evidence,
		}, nil
	}

	return models.CheckResult{
		Status:   models.StatusWarn,
		Score:    60,
		Title:    "Specialty discrepancy detected",
		Detail:   fmt.Sprintf("NPI classification: %q | Website claims: %q", rec.TaxonomyLabel, strings.Join(labels, ", ")),
		Evidence: evidence,
		RemediationSteps: []string{
			"Verify your primary taxonomy code with NPPES",
			"Ensure website specialty labels align with your NPI classification",
			`Umbrella terms like "Primary Care" are generally acceptable`,
			"If you offer multiple specialties, consider adding secondary taxonomy codes to NPPES",
		},
	}, nil
}

func normalizeRegistryAddress(a models.Address) string {
	return matching.NormalizeAddress(a.Line1, a.City, a.State, a.Zip)
}

func formatAddress(a models.Address) string {
	return fmt.Sprintf("%s, %s, %s %s", a.Line1, a.City, a.State, a.Zip)
}

func formatSiteAddress(s *models.SiteSnapshot) string {
	return fmt.Sprintf("%s, %s, %s %s", s.AddrLine1, s.AddrCity, s.AddrState, s.AddrZip)
}
