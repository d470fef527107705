package ingest

import (
	"fmt"

	"github.com/atelierbps/skill-compass/internal/catalog"
)

// MergedRecord is a ScoreRecord enriched with catalog metadata and the
// display key the report groups by.
type MergedRecord struct {
	ScoreRecord
	Category   string `json:"category"`
	Title      string `json:"title"`
	DisplayKey string `json:"display_key"`
}

// Merge joins the long-format facts against the task catalog. A fact whose
// task id is missing from the catalog is a data-integrity warning, not a
// fatal error: the record is kept with placeholder metadata.
func Merge(facts []ScoreRecord, cat *catalog.Catalog) ([]MergedRecord, []string) {
	merged := make([]MergedRecord, 0, len(facts))
	var warnings []string
	warned := make(map[int]bool)

	for _, f := range facts {
		category, title := "Uncategorized", fmt.Sprintf("Task %d", f.TaskID)
		if t, ok := cat.Lookup(f.TaskID); ok {
			category, title = t.Category, t.Title
		} else if !warned[f.TaskID] {
			warned[f.TaskID] = true
			warnings = append(warnings, fmt.Sprintf("task id %d has scores but no catalog entry", f.TaskID))
		}

		merged = append(merged, MergedRecord{
			ScoreRecord: f,
			Category:    category,
			Title:       title,
			DisplayKey:  DisplayKey(category, title),
		})
	}

	return merged, warnings
}

// DisplayKey combines a task's category and title into the report's
// grouping key.
func DisplayKey(category, title string) string {
	return "[" + category + "] " + title
}
