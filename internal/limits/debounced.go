package limits

import (
	"context"
	"log/slog"
	"time"

	"saldo/internal/core"
	"saldo/internal/debounce"
	applog "saldo/internal/log"
)

const (
	DefaultQuiescence = 800 * time.Millisecond
	writeTimeout      = 10 * time.Second
)

// DebouncedWriter coalesces rapid limit edits: only the last amount set for a
// (owner, subcategory) within the quiescence window is written.
type DebouncedWriter struct {
	svc        *Service
	debouncer  *debounce.Debouncer
	quiescence time.Duration
}

func NewDebouncedWriter(svc *Service, quiescence time.Duration) *DebouncedWriter {
	if quiescence <= 0 {
		quiescence = DefaultQuiescence
	}
	return &DebouncedWriter{svc: svc, debouncer: debounce.New(), quiescence: quiescence}
}

// Schedule validates the edit against the taxonomy and queues the upsert.
// Validation errors are returned to the caller; only a failure of the deferred
// upsert itself (a store error, or the subcategory deleted meanwhile) is logged.
func (w *DebouncedWriter) Schedule(ctx context.Context, owner, categoryID, subcategoryID string, amount core.Money) error {
	if err := w.svc.Validate(ctx, owner, categoryID, subcategoryID, amount); err != nil {
		return err
	}
	w.debouncer.Schedule(owner+"/"+subcategoryID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if _, err := w.svc.SetLimit(ctx, owner, categoryID, subcategoryID, amount); err != nil {
			slog.ErrorContext(ctx, "Debounced limit write failed",
				applog.FieldOwner, owner,
				applog.FieldSubcategoryID, subcategoryID,
				applog.FieldError, err)
		}
	}, w.quiescence)
	return nil
}

// Pending reports how many writes are waiting.
func (w *DebouncedWriter) Pending() int {
	return w.debouncer.Pending()
}

// Flush writes every pending edit now.
func (w *DebouncedWriter) Flush() int {
	return w.debouncer.Flush()
}

// Stop flushes pending edits and rejects new ones. Called on shutdown.
func (w *DebouncedWriter) Stop() int {
	return w.debouncer.Stop()
}
