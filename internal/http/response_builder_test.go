package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"saldo/internal/core"
	"saldo/internal/payment"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		Body(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if w.Header().Get("X-Test") != "1" {
		t.Error("custom header not set")
	}
	if strings.TrimSpace(w.Body.String()) != `{"n":1}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Body(func() {}).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d", w.Code)
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("category %q: %w", "Food", core.ErrDuplicateName), http.StatusConflict},
		{fmt.Errorf("goal: %w", core.ErrNotFound), http.StatusNotFound},
		{core.ErrImmutable, http.StatusForbidden},
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{core.ErrInvalidCategory, http.StatusUnprocessableEntity},
		{core.ErrInvalidSubcategory, http.StatusUnprocessableEntity},
		{core.ErrInvalidKind, http.StatusUnprocessableEntity},
		{core.ErrInvalidDate, http.StatusUnprocessableEntity},
		{core.ErrDescriptionTooLong, http.StatusUnprocessableEntity},
		{&payment.Error{Op: "charge", Message: "declined"}, http.StatusPaymentRequired},
		{fmt.Errorf("x: %w", errBadRequest), http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := StatusForError(tt.err); got != tt.want {
				t.Errorf("StatusForError() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestErrorForHidesInternalErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)

	w := httptest.NewRecorder()
	ErrorFor(req, errors.New("sql: connection refused")).Write(w)
	if strings.Contains(w.Body.String(), "sql") {
		t.Errorf("internal error leaked: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	ErrorFor(req, &payment.Error{Op: "charge", Status: 400, Message: "Cartão recusado"}).Write(w)
	if w.Code != http.StatusPaymentRequired || !strings.Contains(w.Body.String(), "Cartão recusado") {
		t.Errorf("payment error = %d %s", w.Code, w.Body.String())
	}
}
