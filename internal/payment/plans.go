package payment

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"saldo/internal/core"
)

//go:embed plans.toml
var defaultPlans []byte

type Plan struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Price core.Money `json:"price"`
	Cycle string     `json:"cycle"`
}

// Catalog is the set of purchasable plans keyed by id.
type Catalog struct {
	plans map[string]Plan
}

type planFile struct {
	Plan []struct {
		ID    string `toml:"id"`
		Name  string `toml:"name"`
		Price string `toml:"price"`
		Cycle string `toml:"cycle"`
	} `toml:"plan"`
}

// DefaultCatalog returns the built-in plans.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultPlans)
}

// LoadCatalog reads plans from a TOML file, or the built-in plans when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plans file: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var f planFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("decode plans: %w", err)
	}
	if len(f.Plan) == 0 {
		return nil, fmt.Errorf("plans: no plan defined")
	}

	c := &Catalog{plans: make(map[string]Plan, len(f.Plan))}
	for _, p := range f.Plan {
		id := strings.ToLower(strings.TrimSpace(p.ID))
		if id == "" {
			return nil, fmt.Errorf("plans: plan without id")
		}
		if _, dup := c.plans[id]; dup {
			return nil, fmt.Errorf("plans: duplicate plan %q", id)
		}
		price, err := core.ParseMoney(p.Price)
		if err != nil || price.Cents <= 0 {
			return nil, fmt.Errorf("plans: plan %q has invalid price %q", id, p.Price)
		}
		cycle := strings.ToUpper(strings.TrimSpace(p.Cycle))
		if !ValidCycle(cycle) {
			return nil, fmt.Errorf("plans: plan %q has unknown cycle %q", id, p.Cycle)
		}
		c.plans[id] = Plan{ID: id, Name: p.Name, Price: price, Cycle: cycle}
	}
	return c, nil
}

// Lookup finds a plan by id, case-insensitively.
func (c *Catalog) Lookup(id string) (Plan, bool) {
	p, ok := c.plans[strings.ToLower(strings.TrimSpace(id))]
	return p, ok
}

// Plans returns every plan ordered by price.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, p := range c.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price.Cents < out[j].Price.Cents })
	return out
}
