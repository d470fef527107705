package catalog

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Base assessment columns, in the order the upload template expects them.
// "License Expiration " keeps its trailing space to match the files teams
// already have in circulation; the ingestor normalizes it away.
var baseHeaders = []string{
	"BPS",
	"Team Leader",
	"Active License",
	"License Expiration ",
	"Has received Affinity training of McK?",
	"Scheduler tag",
	"Specific Needs",
}

// CSVTemplate renders a blank assessment template with one illustrative
// example row, semicolon-delimited and prefixed with a UTF-8 BOM so that
// spreadsheet tools open it with the right encoding.
func (c *Catalog) CSVTemplate() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\xef\xbb\xbf")

	w := csv.NewWriter(&buf)
	w.Comma = ';'

	headers := append(append([]string(nil), baseHeaders...), c.ColumnNames()...)
	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("write template header: %w", err)
	}

	example := []string{
		"Nombre Apellido",
		"Nombre del Líder",
		"Yes",
		"25.10.2026",
		"No",
		"No",
		"Necesita ayuda con isométricos",
	}
	for range c.tasks {
		example = append(example, "50%")
	}
	if err := w.Write(example); err != nil {
		return nil, fmt.Errorf("write template example row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush template: %w", err)
	}
	return buf.Bytes(), nil
}

// TaskGuide renders a plain-text "task_id: title" listing for reference
// alongside the template.
func (c *Catalog) TaskGuide() []byte {
	var buf bytes.Buffer
	for _, t := range c.tasks {
		fmt.Fprintf(&buf, "%d: %s\n", t.ID, t.Title)
	}
	return buf.Bytes()
}
