package aggregate

import (
	"sort"
	"time"

	"saldo/internal/core"
)

const (
	UncategorizedKey   = "uncategorized"
	UncategorizedLabel = "Uncategorized"
)

// CategoryTotal is the amount spent (or earned) under one taxonomy node.
type CategoryTotal struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Amount  core.Money `json:"amount"`
	Percent int        `json:"percentage"` // share of the breakdown total
}

// SpendByCategory totals transactions of the given kind in the month of asOf
// per category. Unknown category ids fold into the Uncategorized entry.
func SpendByCategory(txs []core.Transaction, cats []core.Category, kind core.Kind, asOf time.Time) []CategoryTotal {
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return breakdown(txs, kind, asOf, names, func(tx core.Transaction) string { return tx.CategoryID })
}

// SpendBySubcategory is SpendByCategory keyed by subcategory. Transactions with
// no subcategory or a dangling one fold into the Uncategorized entry.
func SpendBySubcategory(txs []core.Transaction, subs []core.Subcategory, kind core.Kind, asOf time.Time) []CategoryTotal {
	names := make(map[string]string, len(subs))
	for _, s := range subs {
		names[s.ID] = s.Name
	}
	return breakdown(txs, kind, asOf, names, func(tx core.Transaction) string { return tx.SubcategoryID })
}

func breakdown(txs []core.Transaction, kind core.Kind, asOf time.Time, names map[string]string, keyOf func(core.Transaction) string) []CategoryTotal {
	totals := make(map[string]*CategoryTotal)
	var grand core.Money
	for _, tx := range txs {
		if tx.Kind != kind || !tx.Date.SameMonth(asOf) {
			continue
		}
		key := keyOf(tx)
		name, ok := names[key]
		if !ok {
			key, name = UncategorizedKey, UncategorizedLabel
		}
		t, ok := totals[key]
		if !ok {
			t = &CategoryTotal{ID: key, Name: name}
			totals[key] = t
		}
		t.Amount = t.Amount.Add(tx.Amount)
		grand = grand.Add(tx.Amount)
	}

	out := make([]CategoryTotal, 0, len(totals))
	for _, t := range totals {
		t.Percent = Percent(t.Amount, grand)
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}
