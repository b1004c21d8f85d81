package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and source adapters return
// these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: row or upstream record does not exist
//   - ErrConflict: a uniqueness constraint rejected the write
//   - ErrInvalidState: entity is in the wrong lifecycle state for the operation
//   - ErrUnavailable: dependency temporarily unavailable (circuit open, pool closed)
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
