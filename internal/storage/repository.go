// Package storage is the SQLite data store. Every method is a single-row CRUD
// or range read; aggregation happens in the application.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"saldo/internal/core"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; readers share the same connection pool.
	db.SetMaxOpenConns(4)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database is reachable, for health checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

// requireRow turns a zero-row write into core.ErrNotFound.
func requireRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func parseDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

func formatDate(d core.Date) sql.NullString {
	return nullString(d.String())
}

// Categories

const categoryColumns = `id, owner, name, kind, icon, is_system_default, created_at`

func scanCategory(s rowScanner) (core.Category, error) {
	var (
		c       core.Category
		kind    string
		created int64
	)
	if err := s.Scan(&c.ID, &c.Owner, &c.Name, &kind, &c.Icon, &c.IsSystemDefault, &created); err != nil {
		return core.Category{}, err
	}
	c.Kind = core.Kind(kind)
	c.CreatedAt = time.Unix(0, created).UTC()
	return c, nil
}

func (r *SQLiteRepository) InsertCategory(ctx context.Context, c core.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Owner, c.Name, string(c.Kind), c.Icon, c.IsSystemDefault, c.CreatedAt.UnixNano())
	if isUniqueViolation(err) {
		return fmt.Errorf("category %q: %w", c.Name, core.ErrDuplicateName)
	}
	return err
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	return c, notFound(err)
}

func (r *SQLiteRepository) FindCategoryByName(ctx context.Context, owner, name string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE owner = ? AND name = ?`, owner, name)
	c, err := scanCategory(row)
	return c, notFound(err)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, owner string) ([]core.Category, error) {
	return r.queryCategories(ctx, `SELECT `+categoryColumns+` FROM categories WHERE owner = ? ORDER BY name`, owner)
}

// AllCategories returns every owner's categories.
func (r *SQLiteRepository) AllCategories(ctx context.Context) ([]core.Category, error) {
	return r.queryCategories(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY owner, name`)
}

func (r *SQLiteRepository) queryCategories(ctx context.Context, query string, args ...any) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, icon = ? WHERE id = ?`, c.Name, c.Icon, c.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("category %q: %w", c.Name, core.ErrDuplicateName)
	}
	return requireRow(res, err)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	return requireRow(r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id))
}

// ListOwners returns every owner with at least one category.
func (r *SQLiteRepository) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT owner FROM categories ORDER BY owner`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		out = append(out, owner)
	}
	return out, rows.Err()
}

// Subcategories

const subcategoryColumns = `s.id, s.category_id, s.name, s.is_system_default`

func scanSubcategory(s rowScanner) (core.Subcategory, error) {
	var sub core.Subcategory
	err := s.Scan(&sub.ID, &sub.CategoryID, &sub.Name, &sub.IsSystemDefault)
	return sub, err
}

func (r *SQLiteRepository) InsertSubcategory(ctx context.Context, sub core.Subcategory) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subcategories (id, category_id, name, is_system_default) VALUES (?, ?, ?, ?)`,
		sub.ID, sub.CategoryID, sub.Name, sub.IsSystemDefault)
	if isUniqueViolation(err) {
		return fmt.Errorf("subcategory %q: %w", sub.Name, core.ErrDuplicateName)
	}
	return err
}

func (r *SQLiteRepository) GetSubcategory(ctx context.Context, id string) (core.Subcategory, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+subcategoryColumns+` FROM subcategories s WHERE s.id = ?`, id)
	sub, err := scanSubcategory(row)
	return sub, notFound(err)
}

func (r *SQLiteRepository) FindSubcategoryByName(ctx context.Context, categoryID, name string) (core.Subcategory, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+subcategoryColumns+` FROM subcategories s WHERE s.category_id = ? AND s.name = ?`, categoryID, name)
	sub, err := scanSubcategory(row)
	return sub, notFound(err)
}

func (r *SQLiteRepository) ListSubcategories(ctx context.Context, owner string) ([]core.Subcategory, error) {
	return r.querySubcategories(ctx,
		`SELECT `+subcategoryColumns+` FROM subcategories s
		 JOIN categories c ON c.id = s.category_id
		 WHERE c.owner = ? ORDER BY s.name, s.id`, owner)
}

func (r *SQLiteRepository) ListSubcategoriesByCategory(ctx context.Context, categoryID string) ([]core.Subcategory, error) {
	return r.querySubcategories(ctx,
		`SELECT `+subcategoryColumns+` FROM subcategories s WHERE s.category_id = ? ORDER BY s.name, s.id`, categoryID)
}

// AllSubcategories returns every subcategory, orphans included.
func (r *SQLiteRepository) AllSubcategories(ctx context.Context) ([]core.Subcategory, error) {
	return r.querySubcategories(ctx, `SELECT `+subcategoryColumns+` FROM subcategories s ORDER BY s.name, s.id`)
}

func (r *SQLiteRepository) querySubcategories(ctx context.Context, query string, args ...any) ([]core.Subcategory, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Subcategory
	for rows.Next() {
		sub, err := scanSubcategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteSubcategory(ctx context.Context, id string) error {
	return requireRow(r.db.ExecContext(ctx, `DELETE FROM subcategories WHERE id = ?`, id))
}

// Transactions

const transactionColumns = `id, owner, category_id, subcategory_id, description, amount_cents, date, kind, created_at`

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Owner, tx.CategoryID, nullString(tx.SubcategoryID), tx.Description,
		tx.Amount.Cents, tx.Date.String(), string(tx.Kind), tx.CreatedAt.UnixNano())
	return err
}

// ListTransactions returns matching rows by date desc, then createdAt desc.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f core.TransactionFilter, rng core.Range) ([]core.Transaction, error) {
	var (
		where = []string{"owner = ?"}
		args  = []any{f.Owner}
	)
	if !f.Start.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.Start.String())
	}
	if !f.End.IsZero() {
		where = append(where, "date < ?")
		args = append(args, f.End.String())
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY date DESC, created_at DESC, id DESC`
	if rng.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, rng.Limit, max(rng.Offset, 0))
	} else if rng.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, rng.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			tx      core.Transaction
			sub     sql.NullString
			date    string
			kind    string
			created int64
		)
		if err := rows.Scan(&tx.ID, &tx.Owner, &tx.CategoryID, &sub, &tx.Description,
			&tx.Amount.Cents, &date, &kind, &created); err != nil {
			return nil, err
		}
		if tx.Date, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		tx.SubcategoryID = sub.String
		tx.Kind = core.Kind(kind)
		tx.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, tx)
	}
	return out, rows.Err()
}

// Limits

// UpsertLimit keeps one row per (owner, subcategory); an existing row keeps its id.
func (r *SQLiteRepository) UpsertLimit(ctx context.Context, l core.Limit) (core.Limit, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO limits (id, owner, category_id, subcategory_id, amount_cents) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (owner, subcategory_id) DO UPDATE SET
		     category_id = excluded.category_id,
		     amount_cents = excluded.amount_cents
		 RETURNING id, owner, category_id, subcategory_id, amount_cents`,
		l.ID, l.Owner, l.CategoryID, l.SubcategoryID, l.Amount.Cents)

	var out core.Limit
	if err := row.Scan(&out.ID, &out.Owner, &out.CategoryID, &out.SubcategoryID, &out.Amount.Cents); err != nil {
		return core.Limit{}, err
	}
	return out, nil
}

func (r *SQLiteRepository) ListLimits(ctx context.Context, owner string) ([]core.Limit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner, category_id, subcategory_id, amount_cents FROM limits WHERE owner = ? ORDER BY subcategory_id`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Limit
	for rows.Next() {
		var l core.Limit
		if err := rows.Scan(&l.ID, &l.Owner, &l.CategoryID, &l.SubcategoryID, &l.Amount.Cents); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteLimitBySubcategory is a no-op when no row exists.
func (r *SQLiteRepository) DeleteLimitBySubcategory(ctx context.Context, owner, subcategoryID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM limits WHERE owner = ? AND subcategory_id = ?`, owner, subcategoryID)
	return err
}

// Goals

const goalColumns = `id, owner, title, current_cents, target_cents, target_date, color, icon, is_completed`

func scanGoal(s rowScanner) (core.Goal, error) {
	var (
		g          core.Goal
		targetDate sql.NullString
	)
	if err := s.Scan(&g.ID, &g.Owner, &g.Title, &g.Current.Cents, &g.Target.Cents,
		&targetDate, &g.Color, &g.Icon, &g.IsCompleted); err != nil {
		return core.Goal{}, err
	}
	d, err := parseDate(targetDate.String)
	if err != nil {
		return core.Goal{}, fmt.Errorf("goal %s: %w", g.ID, err)
	}
	g.TargetDate = d
	return g, nil
}

func (r *SQLiteRepository) InsertGoal(ctx context.Context, g core.Goal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Owner, g.Title, g.Current.Cents, g.Target.Cents, formatDate(g.TargetDate),
		g.Color, g.Icon, g.IsCompleted)
	return err
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id string) (core.Goal, error) {
	g, err := scanGoal(r.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id))
	return g, notFound(err)
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, owner string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE owner = ? ORDER BY title, id`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id string) error {
	return requireRow(r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id))
}

// AddContribution increments the goal and recomputes completion in one
// statement; SET expressions all see the pre-update row.
func (r *SQLiteRepository) AddContribution(ctx context.Context, id string, cents int64) (core.Goal, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE goals SET
		     current_cents = current_cents + ?,
		     is_completed = (current_cents + ?) >= target_cents
		 WHERE id = ?
		 RETURNING `+goalColumns, cents, cents, id)
	g, err := scanGoal(row)
	return g, notFound(err)
}

// Profiles

func (r *SQLiteRepository) GetProfile(ctx context.Context, owner string) (core.Profile, error) {
	var (
		p       core.Profile
		updated int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT owner, full_name, tax_id, gateway_customer_id, updated_at FROM profiles WHERE owner = ?`, owner).
		Scan(&p.Owner, &p.FullName, &p.TaxID, &p.GatewayCustomerID, &updated)
	if err != nil {
		return core.Profile{}, notFound(err)
	}
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return p, nil
}

func (r *SQLiteRepository) UpsertProfile(ctx context.Context, p core.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (owner, full_name, tax_id, gateway_customer_id, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (owner) DO UPDATE SET
		     full_name = excluded.full_name,
		     tax_id = excluded.tax_id,
		     gateway_customer_id = excluded.gateway_customer_id,
		     updated_at = excluded.updated_at`,
		p.Owner, p.FullName, p.TaxID, p.GatewayCustomerID, p.UpdatedAt.UnixNano())
	return err
}
