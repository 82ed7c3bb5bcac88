package taxonomy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"saldo/internal/core"
)

// Report lists taxonomy integrity violations. It is diagnostic only; nothing
// is repaired.
type Report struct {
	// Orphans are subcategories whose category no longer resolves.
	Orphans []core.Subcategory `json:"orphans"`
	// Duplicates groups categories that share a name (case-insensitively), per owner.
	Duplicates map[string][][]core.Category `json:"duplicates"`
}

// Clean reports whether no violation was found.
func (r Report) Clean() bool {
	return len(r.Orphans) == 0 && len(r.Duplicates) == 0
}

// Err returns nil for a clean report, else an error wrapping core.ErrIntegrityViolation.
func (r Report) Err() error {
	if r.Clean() {
		return nil
	}
	groups := 0
	for _, g := range r.Duplicates {
		groups += len(g)
	}
	return fmt.Errorf("%d orphan subcategories, %d duplicate category groups: %w",
		len(r.Orphans), groups, core.ErrIntegrityViolation)
}

// VerifyIntegrity finds orphan subcategories and duplicate category names.
// Inputs are not modified.
func VerifyIntegrity(categories []core.Category, subcategories []core.Subcategory) Report {
	known := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		known[c.ID] = struct{}{}
	}

	var report Report
	for _, s := range subcategories {
		if _, ok := known[s.CategoryID]; !ok {
			report.Orphans = append(report.Orphans, s)
		}
	}

	type nameKey struct{ owner, name string }
	groups := make(map[nameKey][]core.Category)
	var order []nameKey
	for _, c := range categories {
		k := nameKey{c.Owner, strings.ToLower(normalizeName(c.Name))}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], c)
	}
	for _, k := range order {
		if len(groups[k]) < 2 {
			continue
		}
		if report.Duplicates == nil {
			report.Duplicates = make(map[string][][]core.Category)
		}
		report.Duplicates[k.owner] = append(report.Duplicates[k.owner], groups[k])
	}

	sort.Slice(report.Orphans, func(i, j int) bool { return report.Orphans[i].ID < report.Orphans[j].ID })
	return report
}

// AuditSource reads the whole taxonomy across owners. Orphans are only
// visible at this level: a subcategory whose category is gone has no owner.
type AuditSource interface {
	AllCategories(ctx context.Context) ([]core.Category, error)
	AllSubcategories(ctx context.Context) ([]core.Subcategory, error)
}

// Audit runs VerifyIntegrity over every owner's taxonomy.
func Audit(ctx context.Context, src AuditSource) (Report, error) {
	cats, err := src.AllCategories(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list all categories: %w", err)
	}
	subs, err := src.AllSubcategories(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list all subcategories: %w", err)
	}
	return VerifyIntegrity(cats, subs), nil
}
