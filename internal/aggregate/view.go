package aggregate

import (
	"time"

	"saldo/internal/core"
)

// Snapshot is the set of independently fetched rows a view is computed from.
// Transactions should cover at least the calendar year of AsOf.
type Snapshot struct {
	Categories    []core.Category
	Subcategories []core.Subcategory
	Transactions  []core.Transaction
	Limits        []core.Limit
	Goals         []core.Goal
	AsOf          time.Time
}

// DerivedView is everything the dashboard renders for one month.
type DerivedView struct {
	Year                  int             `json:"year"`
	Month                 int             `json:"month"`
	Totals                Totals          `json:"totals"`
	Weekly                []Bucket        `json:"weekly"`
	Monthly               []Bucket        `json:"monthly"`
	Daily                 []Bucket        `json:"daily"`
	Calendar              map[int]Totals  `json:"calendar"`
	ExpensesByCategory    []CategoryTotal `json:"expensesByCategory"`
	ExpensesBySubcategory []CategoryTotal `json:"expensesBySubcategory"`
	IncomeByCategory      []CategoryTotal `json:"incomeByCategory"`
	Limits                []LimitUsage    `json:"limits"`
	Goals                 []GoalView      `json:"goals"`
}

// Aggregate computes the full derived view for the month of s.AsOf.
func Aggregate(s Snapshot) DerivedView {
	year, month := s.AsOf.Year(), int(s.AsOf.Month())
	inMonth := filter(s.Transactions, func(tx core.Transaction) bool { return tx.Date.SameMonth(s.AsOf) })
	inYear := filter(s.Transactions, func(tx core.Transaction) bool { return tx.Date.Year() == year })

	return DerivedView{
		Year:                  year,
		Month:                 month,
		Totals:                MonthTotals(inMonth, s.AsOf),
		Weekly:                WeeklyWithinMonth(inMonth),
		Monthly:               MonthlyWithinYear(inYear),
		Daily:                 DailyWithinMonth(inMonth, year, month),
		Calendar:              Calendar(inMonth, year, month),
		ExpensesByCategory:    SpendByCategory(inMonth, s.Categories, core.Expense, s.AsOf),
		ExpensesBySubcategory: SpendBySubcategory(inMonth, s.Subcategories, core.Expense, s.AsOf),
		IncomeByCategory:      SpendByCategory(inMonth, s.Categories, core.Income, s.AsOf),
		Limits:                LimitConsumption(s.Limits, s.Subcategories, inMonth, s.AsOf),
		Goals:                 GoalViews(s.Goals),
	}
}

func filter(txs []core.Transaction, keep func(core.Transaction) bool) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if keep(tx) {
			out = append(out, tx)
		}
	}
	return out
}
