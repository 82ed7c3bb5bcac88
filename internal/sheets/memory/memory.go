// Package memory is a RowWriter that keeps tabs in process, for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type Writer struct {
	mu   sync.Mutex
	tabs map[string][][]any
}

func New() *Writer {
	return &Writer{tabs: make(map[string][][]any)}
}

// WriteRows replaces the tab and returns an A1 reference to the written range.
func (w *Writer) WriteRows(_ context.Context, tab string, rows [][]any) (string, error) {
	if tab == "" {
		return "", fmt.Errorf("empty tab name")
	}
	cp := make([][]any, len(rows))
	width := 0
	for i, r := range rows {
		cp[i] = append([]any(nil), r...)
		width = max(width, len(r))
	}
	w.mu.Lock()
	w.tabs[tab] = cp
	w.mu.Unlock()
	return fmt.Sprintf("%s!A1:%s%d", tab, column(width), max(len(rows), 1)), nil
}

// Rows returns a copy of the tab's rows, or nil when it was never written.
func (w *Writer) Rows(tab string) [][]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	rows, ok := w.tabs[tab]
	if !ok {
		return nil
	}
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}

func (w *Writer) Tabs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.tabs))
	for t := range w.tabs {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// column converts a 1-based width to its A1 letter; 0 maps to "A".
func column(n int) string {
	if n <= 0 {
		n = 1
	}
	var s []byte
	for n > 0 {
		n--
		s = append([]byte{byte('A' + n%26)}, s...)
		n /= 26
	}
	return string(s)
}
