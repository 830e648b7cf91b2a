// Package render projects records onto display surfaces.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/postcache/internal/record"
)

// Placeholder is shown instead of an empty list when nothing is stored.
const Placeholder = "No hay datos almacenados."

// Line renders a single record as "ID: {id} - Título: {title}".
func Line(r record.Record) string {
	return fmt.Sprintf("ID: %s - Título: %s", r.ID, r.Title())
}

// Lines renders records in order.
func Lines(records []record.Record) []string {
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = Line(r)
	}
	return lines
}

// WriteList writes one line per record to w.
func WriteList(w io.Writer, records []record.Record) error {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(Line(r))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
