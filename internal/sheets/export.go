// Package sheets exports a month of an owner's ledger to a spreadsheet tab.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"saldo/internal/aggregate"
	"saldo/internal/core"
	"saldo/internal/ledger"
	applog "saldo/internal/log"
)

var header = []any{"Date", "Kind", "Category", "Subcategory", "Description", "Amount"}

type Exporter struct {
	source MonthSource
	writer RowWriter
}

func NewExporter(source MonthSource, writer RowWriter) *Exporter {
	return &Exporter{source: source, writer: writer}
}

// Result describes a finished export.
type Result struct {
	Tab   string
	Range string
	Rows  int
}

// TabName is the tab a month is written to, e.g. "2024-03".
func TabName(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// Export overwrites the month's tab with the owner's transactions and totals.
func (e *Exporter) Export(ctx context.Context, owner string, year, month int) (Result, error) {
	if month < 1 || month > 12 {
		return Result{}, fmt.Errorf("month %d: %w", month, core.ErrInvalidDate)
	}
	entries, err := e.source.Month(ctx, owner, year, month)
	if err != nil {
		return Result{}, fmt.Errorf("load month: %w", err)
	}

	tab := TabName(year, month)
	rows := BuildRows(entries, year, month)
	ref, err := e.writer.WriteRows(ctx, tab, rows)
	if err != nil {
		return Result{}, fmt.Errorf("write tab %s: %w", tab, err)
	}

	slog.InfoContext(ctx, "Month exported",
		applog.FieldComponent, applog.ComponentSheets,
		applog.FieldOperation, applog.OpExport,
		applog.FieldOwner, owner,
		applog.FieldYear, year,
		applog.FieldMonth, month,
		"transactions", len(entries),
		"range", ref)
	return Result{Tab: tab, Range: ref, Rows: len(rows)}, nil
}

// BuildRows lays out a header, the entries oldest first, a blank row and the
// month's income, expense and balance totals. Amounts are plain decimals so
// the sheet parses them as numbers.
func BuildRows(entries []ledger.Entry, year, month int) [][]any {
	sorted := make([]ledger.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date.Time) {
			return sorted[i].Date.Before(sorted[j].Date.Time)
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	rows := make([][]any, 0, len(sorted)+5)
	rows = append(rows, header)
	txs := make([]core.Transaction, 0, len(sorted))
	for _, en := range sorted {
		rows = append(rows, []any{
			en.Date.String(),
			string(en.Kind),
			en.CategoryName,
			en.SubcategoryName,
			en.Description,
			en.Amount.String(),
		})
		txs = append(txs, en.Transaction)
	}

	totals := aggregate.MonthTotals(txs, time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC))
	rows = append(rows,
		[]any{},
		[]any{"", "", "", "", "Income", totals.Income.String()},
		[]any{"", "", "", "", "Expense", totals.Expense.String()},
		[]any{"", "", "", "", "Balance", totals.Balance.String()},
	)
	return rows
}
