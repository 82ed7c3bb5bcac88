package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"saldo/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		query     url.Values
		wantYear  int
		wantMonth int
		wantErr   bool
	}{
		{
			name:      "both values provided",
			query:     url.Values{"year": {"2024"}, "month": {"12"}},
			wantYear:  2024,
			wantMonth: 12,
		},
		{
			name:      "only year",
			query:     url.Values{"year": {"2023"}},
			wantYear:  2023,
			wantMonth: 7,
		},
		{
			name:      "only month",
			query:     url.Values{"month": {"5"}},
			wantYear:  2025,
			wantMonth: 5,
		},
		{
			name:      "invalid values are ignored",
			query:     url.Values{"year": {"abc"}, "month": {"x"}},
			wantYear:  2025,
			wantMonth: 7,
		},
		{
			name:      "month out of range",
			query:     url.Values{"month": {"13"}},
			wantYear:  2025,
			wantMonth: 13,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseMonthParams(tt.query, now)
			if result.Year != tt.wantYear {
				t.Errorf("Year = %d, want %d", result.Year, tt.wantYear)
			}
			if result.Month != tt.wantMonth {
				t.Errorf("Month = %d, want %d", result.Month, tt.wantMonth)
			}
			err := result.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, core.ErrInvalidDate) {
				t.Errorf("Validate() error = %v, want ErrInvalidDate", err)
			}
		})
	}
}

func TestParsePageParams(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
		want  PageParams
	}{
		{"defaults", url.Values{}, PageParams{Page: 0, PageSize: 20}},
		{"explicit", url.Values{"page": {"3"}, "pageSize": {"50"}}, PageParams{Page: 3, PageSize: 50}},
		{"clamped", url.Values{"pageSize": {"5000"}}, PageParams{Page: 0, PageSize: 100}},
		{"negative ignored", url.Values{"page": {"-1"}, "pageSize": {"0"}}, PageParams{Page: 0, PageSize: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParsePageParams(tt.query, 20, 100); got != tt.want {
				t.Errorf("ParsePageParams() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseDateQuery(t *testing.T) {
	q := url.Values{"from": {"2024-02-29"}, "to": {"29/02/2024"}}

	d, err := ParseDateQuery(q, "from")
	if err != nil || d.String() != "2024-02-29" {
		t.Errorf("from = %v, %v", d, err)
	}
	if _, err := ParseDateQuery(q, "to"); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("to error = %v", err)
	}
	if d, err := ParseDateQuery(q, "missing"); err != nil || !d.IsZero() {
		t.Errorf("missing = %v, %v", d, err)
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name   string     `json:"name"`
		Amount core.Money `json:"amount"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"valid", `{"name":"a","amount":"1,50"}`, nil},
		{"malformed", `{"name":`, errBadRequest},
		{"unknown field", `{"nome":"a"}`, errBadRequest},
		{"trailing object", `{"name":"a"}{"name":"b"}`, errBadRequest},
		{"bad amount keeps sentinel", `{"amount":"abc"}`, core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(httptest.NewRecorder(), req, &p)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("DecodeJSON() error = %v", err)
				}
				if p.Amount.Cents != 150 {
					t.Errorf("Amount = %d, want 150", p.Amount.Cents)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodeJSON() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello  ", "hello"},
		{"a\x00b\x07c", "abc"},
		{"line\nbreak", "line\nbreak"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
