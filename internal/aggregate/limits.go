package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

type LimitStatus string

const (
	StatusOK      LimitStatus = "ok"
	StatusWarning LimitStatus = "warning"
	StatusOver    LimitStatus = "over"
)

// LimitUsage is the current-month consumption of one subcategory limit.
type LimitUsage struct {
	SubcategoryID string      `json:"subcategoryId"`
	CategoryID    string      `json:"categoryId"`
	Name          string      `json:"name"`
	Limit         core.Money  `json:"limitAmount"`
	Spent         core.Money  `json:"spent"`
	Percent       int         `json:"percentage"`
	Status        LimitStatus `json:"status"`
}

var hundred = decimal.NewFromInt(100)

// Percent returns min(100, round(part/whole*100)), or 0 when whole is not positive.
// Rounding is half away from zero, so 0.5 rounds up for the non-negative inputs used here.
func Percent(part, whole core.Money) int {
	if whole.Cents <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(part.Cents).
		Mul(hundred).
		Div(decimal.NewFromInt(whole.Cents)).
		Round(0)
	if pct.GreaterThan(hundred) {
		return 100
	}
	return int(pct.IntPart())
}

// Consumption classifies spend against a limit: over once spent exceeds the
// limit, warning from 90% of it. A non-positive limit reports 0% and ok.
func Consumption(limit, spent core.Money) (int, LimitStatus) {
	if limit.Cents <= 0 {
		return 0, StatusOK
	}
	pct := Percent(spent, limit)
	switch {
	case spent.Cents > limit.Cents:
		return pct, StatusOver
	case spent.Cents*10 >= limit.Cents*9:
		return pct, StatusWarning
	default:
		return pct, StatusOK
	}
}

// SpentBySubcategory sums expense amounts per subcategory id for the month of asOf.
// Transactions without a subcategory are not counted.
func SpentBySubcategory(txs []core.Transaction, asOf time.Time) map[string]core.Money {
	spent := make(map[string]core.Money)
	for _, tx := range txs {
		if tx.Kind != core.Expense || tx.SubcategoryID == "" || !tx.Date.SameMonth(asOf) {
			continue
		}
		spent[tx.SubcategoryID] = spent[tx.SubcategoryID].Add(tx.Amount)
	}
	return spent
}

// LimitConsumption computes usage for every limit row. Subcategories without a
// limit row are unlimited and do not appear. Rows are ordered by name, then id.
func LimitConsumption(limits []core.Limit, subs []core.Subcategory, txs []core.Transaction, asOf time.Time) []LimitUsage {
	names := make(map[string]string, len(subs))
	for _, s := range subs {
		names[s.ID] = s.Name
	}
	spent := SpentBySubcategory(txs, asOf)

	usage := make([]LimitUsage, 0, len(limits))
	for _, l := range limits {
		name, ok := names[l.SubcategoryID]
		if !ok {
			name = UncategorizedLabel
		}
		s := spent[l.SubcategoryID]
		pct, status := Consumption(l.Amount, s)
		usage = append(usage, LimitUsage{
			SubcategoryID: l.SubcategoryID,
			CategoryID:    l.CategoryID,
			Name:          name,
			Limit:         l.Amount,
			Spent:         s,
			Percent:       pct,
			Status:        status,
		})
	}
	sort.SliceStable(usage, func(i, j int) bool {
		if usage[i].Name != usage[j].Name {
			return usage[i].Name < usage[j].Name
		}
		return usage[i].SubcategoryID < usage[j].SubcategoryID
	})
	return usage
}
