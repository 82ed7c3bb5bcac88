package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// MaxDescriptionLen bounds transaction descriptions and goal titles.
const MaxDescriptionLen = 200

type (
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Category struct {
		ID              string    `json:"id"`
		Owner           string    `json:"owner"`
		Name            string    `json:"name"`
		Kind            Kind      `json:"kind"`
		Icon            string    `json:"icon"`
		IsSystemDefault bool      `json:"isSystemDefault"`
		CreatedAt       time.Time `json:"createdAt"`
	}

	Subcategory struct {
		ID              string `json:"id"`
		CategoryID      string `json:"categoryId"`
		Name            string `json:"name"`
		IsSystemDefault bool   `json:"isSystemDefault"`
	}

	Transaction struct {
		ID            string    `json:"id"`
		Owner         string    `json:"owner"`
		CategoryID    string    `json:"categoryId"`
		SubcategoryID string    `json:"subcategoryId,omitempty"` // empty when not set
		Description   string    `json:"description,omitempty"`
		Amount        Money     `json:"amount"`
		Date          Date      `json:"date"`
		Kind          Kind      `json:"kind"`
		CreatedAt     time.Time `json:"createdAt"`
	}

	Limit struct {
		ID            string `json:"id"`
		Owner         string `json:"owner"`
		CategoryID    string `json:"categoryId"`
		SubcategoryID string `json:"subcategoryId"`
		Amount        Money  `json:"limitAmount"`
	}

	Goal struct {
		ID          string `json:"id"`
		Owner       string `json:"owner"`
		Title       string `json:"title"`
		Current     Money  `json:"currentAmount"`
		Target      Money  `json:"targetAmount"`
		TargetDate  Date   `json:"targetDate,omitempty"` // zero when not set
		Color       string `json:"color,omitempty"`
		Icon        string `json:"icon,omitempty"`
		IsCompleted bool   `json:"isCompleted"`
	}

	Profile struct {
		Owner             string    `json:"owner"`
		FullName          string    `json:"fullName"`
		TaxID             string    `json:"taxId,omitempty"`
		GatewayCustomerID string    `json:"gatewayCustomerId,omitempty"`
		UpdatedAt         time.Time `json:"updatedAt"`
	}
)

// NewID returns a fresh opaque row id.
func NewID() string {
	return uuid.NewString()
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

// ParseKind accepts "income"/"expense" in any case. An empty string yields "" with no error.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "all" {
		return "", nil
	}
	k := Kind(s)
	if !k.Valid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time component of t, keeping its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrInvalidName
	}
	if !c.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

func (s Subcategory) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrInvalidName
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if len(t.Description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

func (g Goal) Validate() error {
	title := strings.TrimSpace(g.Title)
	if title == "" || len(title) > MaxDescriptionLen {
		return ErrInvalidName
	}
	if err := g.Target.Validate(); err != nil {
		return err
	}
	if g.Current.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}
