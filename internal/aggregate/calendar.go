package aggregate

import "saldo/internal/core"

// Calendar returns per-day totals for the given month. Days without
// transactions are absent from the map; callers render them empty.
func Calendar(txs []core.Transaction, year, month int) map[int]Totals {
	days := make(map[int]Totals)
	for _, tx := range txs {
		if tx.Date.Year() != year || tx.Date.Month() != month {
			continue
		}
		d := days[tx.Date.Day()]
		switch tx.Kind {
		case core.Income:
			d.Income = d.Income.Add(tx.Amount)
		case core.Expense:
			d.Expense = d.Expense.Add(tx.Amount)
		}
		d.Balance = d.Income.Sub(d.Expense)
		days[tx.Date.Day()] = d
	}
	return days
}
