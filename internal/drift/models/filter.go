package models

const (
	DefaultEventLimit = 50
	MaxEventLimit     = 200
)

// EventFilter narrows a drift event listing. Empty fields match everything.
type EventFilter struct {
	NPI      string
	Status   EventStatus
	Severity Severity
	Limit    int
	Offset   int
}

// Normalize applies the default page size and clamps limit and offset.
func (f EventFilter) Normalize() EventFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultEventLimit
	}
	if f.Limit > MaxEventLimit {
		f.Limit = MaxEventLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Matches reports whether e passes the filter's field predicates.
func (f EventFilter) Matches(e *Event) bool {
	if f.NPI != "" && e.NPI != f.NPI {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	return true
}
