package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"19,90", 1990, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyFromDecimal(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "199.90", want: 19990},
		{in: "0.005", want: 1},
		{in: "0.004", want: 0},
		{in: "12", want: 1200},
		{in: "92233720368547758.07", want: math.MaxInt64},
		{in: "92233720368547758.08", wantErr: true},
		{in: "-92233720368547758.08", wantErr: true},
		{in: "1e17", wantErr: true},
		{in: "1e20", wantErr: true},
	}
	for _, tc := range cases {
		got, err := MoneyFromDecimal(decimal.RequireFromString(tc.in))
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%s: expected ErrInvalidAmount, got %d cents, err %v", tc.in, got.Cents, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.in, err)
		}
		if got.Cents != tc.want {
			t.Fatalf("%s: expected %d cents, got %d", tc.in, tc.want, got.Cents)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(Money{Cents: 1990})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "19.90" {
		t.Fatalf("expected 19.90, got %s", b)
	}

	var m Money
	for _, in := range []string{`19.9`, `"19,90"`, `"19.90"`} {
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if m.Cents != 1990 {
			t.Fatalf("unmarshal %s: expected 1990 cents, got %d", in, m.Cents)
		}
	}
	if err := json.Unmarshal([]byte(`"abc"`), &m); err == nil {
		t.Fatalf("expected error for non-numeric amount")
	}
	for _, in := range []string{`1e17`, `1e20`, `"99999999999999999999"`} {
		m = Money{Cents: 7}
		if err := json.Unmarshal([]byte(in), &m); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("unmarshal %s: expected ErrInvalidAmount, got %d cents, err %v", in, m.Cents, err)
		}
		if m.Cents != 7 {
			t.Fatalf("unmarshal %s: overflow modified the value to %d", in, m.Cents)
		}
	}
}
