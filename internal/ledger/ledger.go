// Package ledger records income and expense transactions and pages through them.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"saldo/internal/aggregate"
	"saldo/internal/core"
	"saldo/internal/events"
	applog "saldo/internal/log"
	"saldo/internal/metrics"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Repository stores transactions. ListTransactions orders by date desc, then
// createdAt desc, and applies the range after ordering.
type Repository interface {
	InsertTransaction(ctx context.Context, tx core.Transaction) error
	ListTransactions(ctx context.Context, f core.TransactionFilter, r core.Range) ([]core.Transaction, error)
}

// CategoryReader resolves the taxonomy a transaction points into.
type CategoryReader interface {
	GetCategory(ctx context.Context, id string) (core.Category, error)
	GetSubcategory(ctx context.Context, id string) (core.Subcategory, error)
	ListCategories(ctx context.Context, owner string) ([]core.Category, error)
	ListSubcategories(ctx context.Context, owner string) ([]core.Subcategory, error)
}

// RecordInput is what a caller supplies to Record. An empty Kind inherits
// the category kind; an empty SubcategoryID means none.
type RecordInput struct {
	Owner         string
	CategoryID    string
	SubcategoryID string
	Amount        core.Money
	Date          core.Date
	Kind          core.Kind
	Description   string
}

// Query selects a page of an owner's transactions in [Start, End).
type Query struct {
	Owner    string
	Start    core.Date
	End      core.Date
	Kind     core.Kind
	Page     int // 0-based
	PageSize int
	Search   string
}

// Entry is a transaction with its taxonomy names resolved for display.
type Entry struct {
	core.Transaction
	CategoryName    string `json:"categoryName"`
	SubcategoryName string `json:"subcategoryName,omitempty"`
}

type Page struct {
	Entries  []Entry `json:"transactions"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
	// HasMore is true when the store returned a full page. The next page may
	// still be empty.
	HasMore bool `json:"hasMore"`
}

type Service struct {
	repo    Repository
	cats    CategoryReader
	events  events.Publisher
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(repo Repository, cats CategoryReader, publisher events.Publisher, m *metrics.Metrics) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if m == nil {
		m = metrics.Discard()
	}
	return &Service{repo: repo, cats: cats, events: publisher, metrics: m, now: time.Now}
}

// Record validates and stores a transaction. Checks run in order: amount,
// category, subcategory, kind, date, description.
func (s *Service) Record(ctx context.Context, in RecordInput) (core.Transaction, error) {
	if in.Amount.Cents <= 0 {
		return core.Transaction{}, core.ErrInvalidAmount
	}

	cat, err := s.cats.GetCategory(ctx, in.CategoryID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return core.Transaction{}, fmt.Errorf("category %s: %w", in.CategoryID, core.ErrInvalidCategory)
	case err != nil:
		return core.Transaction{}, fmt.Errorf("get category: %w", err)
	case cat.Owner != in.Owner:
		return core.Transaction{}, fmt.Errorf("category %s: %w", in.CategoryID, core.ErrInvalidCategory)
	}

	if in.SubcategoryID != "" {
		sub, err := s.cats.GetSubcategory(ctx, in.SubcategoryID)
		switch {
		case errors.Is(err, core.ErrNotFound):
			return core.Transaction{}, fmt.Errorf("subcategory %s: %w", in.SubcategoryID, core.ErrInvalidSubcategory)
		case err != nil:
			return core.Transaction{}, fmt.Errorf("get subcategory: %w", err)
		case sub.CategoryID != cat.ID:
			return core.Transaction{}, fmt.Errorf("subcategory %s: %w", in.SubcategoryID, core.ErrInvalidSubcategory)
		}
	}

	kind := in.Kind
	if kind == "" {
		kind = cat.Kind
	}
	if !kind.Valid() {
		return core.Transaction{}, core.ErrInvalidKind
	}
	if kind != cat.Kind {
		s.metrics.KindMismatches.Inc()
		slog.WarnContext(ctx, "Transaction kind differs from category kind",
			applog.FieldOwner, in.Owner,
			applog.FieldCategoryID, cat.ID,
			applog.FieldKind, string(kind),
			"category_kind", string(cat.Kind))
	}

	tx := core.Transaction{
		ID:            core.NewID(),
		Owner:         in.Owner,
		CategoryID:    cat.ID,
		SubcategoryID: in.SubcategoryID,
		Description:   strings.TrimSpace(in.Description),
		Amount:        in.Amount,
		Date:          in.Date,
		Kind:          kind,
		CreatedAt:     s.now().UTC(),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.repo.InsertTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	s.metrics.TransactionsRecorded.WithLabelValues(string(kind)).Inc()
	slog.InfoContext(ctx, "Transaction recorded",
		applog.NewFields().
			WithTransaction(tx.ID, tx.CategoryID, string(tx.Kind), tx.Amount.Cents).
			WithOwner(tx.Owner).
			ToSlice()...)

	if err := s.events.Publish(ctx, events.New(events.TransactionRecorded, tx.Owner, tx.ID)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			applog.FieldTransactionID, tx.ID,
			applog.FieldError, err)
	}
	return tx, nil
}

// QueryRange returns one page, newest first. Search narrows the fetched page
// to rows whose category name or description contains it; HasMore is computed
// before that narrowing.
func (s *Service) QueryRange(ctx context.Context, q Query) (Page, error) {
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	page := max(q.Page, 0)

	filter := core.TransactionFilter{Owner: q.Owner, Start: q.Start, End: q.End, Kind: q.Kind}
	raw, err := s.repo.ListTransactions(ctx, filter, core.Range{Offset: page * size, Limit: size})
	if err != nil {
		return Page{}, fmt.Errorf("list transactions: %w", err)
	}

	entries, err := s.resolve(ctx, q.Owner, raw)
	if err != nil {
		return Page{}, err
	}
	if needle := strings.ToLower(strings.TrimSpace(q.Search)); needle != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if strings.Contains(strings.ToLower(e.CategoryName), needle) ||
				strings.Contains(strings.ToLower(e.Description), needle) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	return Page{Entries: entries, Page: page, PageSize: size, HasMore: len(raw) == size}, nil
}

// Recent returns the owner's last n transactions.
func (s *Service) Recent(ctx context.Context, owner string, n int) ([]Entry, error) {
	if n <= 0 {
		return []Entry{}, nil
	}
	raw, err := s.repo.ListTransactions(ctx, core.TransactionFilter{Owner: owner}, core.Range{Limit: n})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return s.resolve(ctx, owner, raw)
}

// Month returns every transaction of the owner in the given month, newest first.
func (s *Service) Month(ctx context.Context, owner string, year, month int) ([]Entry, error) {
	start, end := core.MonthRange(year, month)
	raw, err := s.repo.ListTransactions(ctx, core.TransactionFilter{Owner: owner, Start: start, End: end}, core.Range{})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return s.resolve(ctx, owner, raw)
}

func (s *Service) resolve(ctx context.Context, owner string, txs []core.Transaction) ([]Entry, error) {
	entries := make([]Entry, 0, len(txs))
	if len(txs) == 0 {
		return entries, nil
	}
	cats, err := s.cats.ListCategories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	subs, err := s.cats.ListSubcategories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	catNames := make(map[string]string, len(cats))
	for _, c := range cats {
		catNames[c.ID] = c.Name
	}
	subNames := make(map[string]string, len(subs))
	for _, sc := range subs {
		subNames[sc.ID] = sc.Name
	}

	for _, tx := range txs {
		name, ok := catNames[tx.CategoryID]
		if !ok {
			name = aggregate.UncategorizedLabel
		}
		entries = append(entries, Entry{Transaction: tx, CategoryName: name, SubcategoryName: subNames[tx.SubcategoryID]})
	}
	return entries, nil
}
