package models

import "time"

// SiteSnapshot is the fact sheet an external extractor produced from the
// provider's website. It is opaque input; checks that need it return
// inconclusive when it is absent.
type SiteSnapshot struct {
	URL             string    `json:"url,omitempty"`
	ScrapedAt       time.Time `json:"scraped_at,omitempty"`
	AddrLine1       string    `json:"addr_line1,omitempty"`
	AddrLine2       string    `json:"addr_line2,omitempty"`
	AddrCity        string    `json:"addr_city,omitempty"`
	AddrState       string    `json:"addr_state,omitempty"`
	AddrZip         string    `json:"addr_zip,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	SpecialtyLabels []string  `json:"specialty_labels,omitempty"`
	ProviderNames   []string  `json:"provider_names,omitempty"`
	ProviderCount   int       `json:"provider_count,omitempty"`
	SourceHash      string    `json:"source_hash,omitempty"`
}
