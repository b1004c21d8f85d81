// Package matching normalizes and compares the facts a provider publishes on
// its website against the facts held by the federal registry.
//
// Everything here is pure: no I/O, no clocks, safe for concurrent use. Inputs
// are free-form strings from two very different producers (a page extractor
// and a registry API), so every comparison goes through a normalizer first and
// an empty value never matches anything.
package matching
