package sheets

import (
	"context"

	"saldo/internal/ledger"
)

// Ports for the export adapters.
type (
	// RowWriter replaces the contents of a named tab with rows.
	RowWriter interface {
		WriteRows(ctx context.Context, tab string, rows [][]any) (rangeRef string, err error)
	}

	// MonthSource lists one owner's ledger entries for a month.
	MonthSource interface {
		Month(ctx context.Context, owner string, year, month int) ([]ledger.Entry, error)
	}
)
