package core

// TransactionFilter selects an owner's transactions in [Start, End).
// A zero Start or End leaves that side open; an empty Kind matches both kinds.
type TransactionFilter struct {
	Owner string
	Start Date
	End   Date
	Kind  Kind
}

// Matches applies the filter to a single row.
func (f TransactionFilter) Matches(tx Transaction) bool {
	if tx.Owner != f.Owner {
		return false
	}
	if !f.Start.IsZero() && tx.Date.Before(f.Start.Time) {
		return false
	}
	if !f.End.IsZero() && !tx.Date.Before(f.End.Time) {
		return false
	}
	return f.Kind == "" || tx.Kind == f.Kind
}

// Range is an offset window over an ordered result. Limit <= 0 means unbounded.
type Range struct {
	Offset int
	Limit  int
}
