package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"saldo/internal/core"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// errBadRequest marks malformed input that never reached a service.
var errBadRequest = errors.New("bad request")

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// Validate rejects months outside 1..12 and years outside 1900..9999.
func (p MonthParams) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("month %d: %w", p.Month, core.ErrInvalidDate)
	}
	if p.Year < 1900 || p.Year > 9999 {
		return fmt.Errorf("year %d: %w", p.Year, core.ErrInvalidDate)
	}
	return nil
}

// ParseMonthParams extracts year and month from query parameters, using now as default.
// Values that are not integers are ignored.
func ParseMonthParams(query url.Values, now time.Time) MonthParams {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			params.Month = m
		}
	}
	return params
}

// PageParams is a 0-based page request.
type PageParams struct {
	Page     int
	PageSize int
}

// ParsePageParams reads page and pageSize, clamping pageSize to [1, max].
func ParsePageParams(query url.Values, defSize, max int) PageParams {
	p := PageParams{PageSize: defSize}
	if v, err := strconv.Atoi(strings.TrimSpace(query.Get("page"))); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(query.Get("pageSize"))); err == nil && v > 0 {
		p.PageSize = v
	}
	if p.PageSize > max {
		p.PageSize = max
	}
	return p
}

// ParseDateQuery parses an optional YYYY-MM-DD query value. An empty value yields the zero Date.
func ParseDateQuery(query url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("%s: %w", key, core.ErrInvalidDate)
	}
	return d, nil
}

// DecodeJSON reads a single JSON object into dst. Unknown fields are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		// Money and Date decoders report domain sentinels; keep them.
		for _, sentinel := range []error{core.ErrInvalidAmount, core.ErrInvalidDate} {
			if errors.Is(err, sentinel) {
				return err
			}
		}
		return fmt.Errorf("invalid JSON body: %v: %w", err, errBadRequest)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("body must hold a single JSON object: %w", errBadRequest)
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
