// Package aggregate derives dashboard views from already fetched ledger,
// taxonomy, limit and goal rows.
//
// Every function here is pure: inputs are never mutated, empty input yields
// zero-filled buckets or empty maps, and unresolvable references are folded
// under the Uncategorized key instead of failing.
package aggregate

import (
	"strconv"
	"time"

	"saldo/internal/core"
)

const (
	WeeksPerMonth = 4
	MonthsPerYear = 12
)

// Bucket is one fixed time slot of an income/expense series.
type Bucket struct {
	Label   string     `json:"label"`
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Net     core.Money `json:"net"`
}

func (b *Bucket) add(tx core.Transaction) {
	switch tx.Kind {
	case core.Income:
		b.Income = b.Income.Add(tx.Amount)
	case core.Expense:
		b.Expense = b.Expense.Add(tx.Amount)
	}
	b.Net = b.Income.Sub(b.Expense)
}

// WeekIndex folds a day of month into one of four fixed-width weeks.
// Days 29..31 always land in the last bucket.
func WeekIndex(day int) int {
	return min(WeeksPerMonth-1, (day-1)/7)
}

// WeeklyWithinMonth buckets transactions by day of month into exactly four weeks.
func WeeklyWithinMonth(txs []core.Transaction) []Bucket {
	buckets := make([]Bucket, WeeksPerMonth)
	for i := range buckets {
		buckets[i].Label = "Week " + strconv.Itoa(i+1)
	}
	for _, tx := range txs {
		if tx.Date.IsZero() {
			continue
		}
		buckets[WeekIndex(tx.Date.Day())].add(tx)
	}
	return buckets
}

// MonthlyWithinYear buckets transactions by calendar month into exactly twelve slots.
func MonthlyWithinYear(txs []core.Transaction) []Bucket {
	buckets := make([]Bucket, MonthsPerYear)
	for i := range buckets {
		buckets[i].Label = time.Month(i + 1).String()[:3]
	}
	for _, tx := range txs {
		if tx.Date.IsZero() {
			continue
		}
		buckets[tx.Date.Month()-1].add(tx)
	}
	return buckets
}

// DailyWithinMonth returns one bucket per day of the given month, labelled "1".."N".
// Transactions whose day exceeds the month length are ignored.
func DailyWithinMonth(txs []core.Transaction, year, month int) []Bucket {
	days := core.DaysInMonth(year, month)
	buckets := make([]Bucket, days)
	for i := range buckets {
		buckets[i].Label = strconv.Itoa(i + 1)
	}
	for _, tx := range txs {
		day := tx.Date.Day()
		if tx.Date.IsZero() || day > days {
			continue
		}
		buckets[day-1].add(tx)
	}
	return buckets
}

// Totals summarises a set of buckets or transactions.
type Totals struct {
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Balance core.Money `json:"balance"`
}

// MonthTotals sums income and expense for the calendar month of asOf.
func MonthTotals(txs []core.Transaction, asOf time.Time) Totals {
	var b Bucket
	for _, tx := range txs {
		if tx.Date.SameMonth(asOf) {
			b.add(tx)
		}
	}
	return Totals{Income: b.Income, Expense: b.Expense, Balance: b.Net}
}

// CurrentBalance is income minus expense for the month of asOf only.
// It is not a running all-time balance.
func CurrentBalance(txs []core.Transaction, asOf time.Time) core.Money {
	return MonthTotals(txs, asOf).Balance
}

// SumBuckets adds up every bucket of a series.
func SumBuckets(buckets []Bucket) Totals {
	var t Totals
	for _, b := range buckets {
		t.Income = t.Income.Add(b.Income)
		t.Expense = t.Expense.Add(b.Expense)
	}
	t.Balance = t.Income.Sub(t.Expense)
	return t
}
