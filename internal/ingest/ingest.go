package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/atelierbps/skill-compass/internal/catalog"
)

// Fatal ingestion conditions. Everything else degrades gracefully.
var (
	ErrUnreadable      = errors.New("assessment file is unreadable")
	ErrMissingIdentity = errors.New("required identity column 'BPS' is missing")
	ErrNoTaskColumns   = errors.New("no task columns found in the assessment file")
)

// Person is one normalized row of the user attribute table.
type Person struct {
	Name              string     `json:"name"`
	TeamLeader        string     `json:"team_leader"`
	ActiveLicense     bool       `json:"active_license"`
	LicenseExpiration *time.Time `json:"license_expiration,omitempty"`
	ReceivedTraining  bool       `json:"received_training"`
	SchedulerTag      bool       `json:"scheduler_tag"`
	Comments          string     `json:"comments"`
}

// ScoreRecord is the long-format fact: one person's score on one task,
// normalized to [0,1].
type ScoreRecord struct {
	Name   string  `json:"name"`
	TaskID int     `json:"task_id"`
	Score  float64 `json:"score"`
}

// Result is the full output of one ingestion run.
type Result struct {
	Facts         []ScoreRecord `json:"facts"`
	Persons       []Person      `json:"persons"`
	TotalCount    int           `json:"total_count"`
	ParsingErrors int           `json:"parsing_errors"`
	Warnings      []string      `json:"warnings,omitempty"`
}

// Canonical names for known source column variants. All header matching
// is case-insensitive on lower-cased, whitespace-trimmed headers, so the
// canonical forms are lower case too.
var headerRenames = map[string]string{
	"bps":            "name",
	"specific needs": "comments",
}

// Values accepted as affirmative for boolean flag columns.
var yesValues = map[string]bool{
	"yes": true, "si": true, "sí": true, "true": true, "1": true, "y": true, "t": true,
}

var booleanColumns = []string{
	"Active License",
	"Has received Affinity training of McK?",
	"Scheduler tag",
}

// Day-first formats preferred, ISO accepted.
var dateLayouts = []string{
	"02.01.2006",
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
}

// Parse reads a semicolon-delimited assessment table and produces the
// normalized person table plus the long-format fact table. The catalog is
// authoritative for which columns are task columns.
func Parse(r io.Reader, cat *catalog.Catalog) (*Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	// Tolerate a UTF-8 byte-order mark from spreadsheet exports.
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrUnreadable)
	}

	colIdx := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		h = canonicalHeader(h)
		if _, seen := colIdx[h]; !seen {
			colIdx[h] = i
		}
	}

	nameIdx, ok := colIdx["name"]
	if !ok {
		return nil, ErrMissingIdentity
	}

	res := &Result{}

	// Resolve which of the catalog's task columns are actually present.
	type taskColumn struct {
		taskID int
		index  int
	}
	var taskCols []taskColumn
	for _, t := range cat.Tasks() {
		idx, ok := colIdx[strings.ToLower(cat.ColumnName(t.ID))]
		if !ok {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("task column %q is in the catalog but missing from the file", cat.ColumnName(t.ID)))
			continue
		}
		taskCols = append(taskCols, taskColumn{taskID: t.ID, index: idx})
	}
	if len(taskCols) == 0 {
		return nil, ErrNoTaskColumns
	}

	for _, col := range booleanColumns {
		if _, ok := colIdx[strings.ToLower(col)]; !ok {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("column %q is missing; treating it as No for everyone", col))
		}
	}

	seenNames := make(map[string]bool)
	seenPairs := make(map[string]map[int]bool)

	for _, row := range rows[1:] {
		name := strings.TrimSpace(cell(row, nameIdx))
		if name == "" {
			continue
		}

		if !seenNames[name] {
			seenNames[name] = true
			res.Persons = append(res.Persons, Person{
				Name:              name,
				TeamLeader:        strings.TrimSpace(lookupCell(row, colIdx, "Team Leader")),
				ActiveLicense:     parseFlag(lookupCell(row, colIdx, "Active License")),
				LicenseExpiration: parseDate(lookupCell(row, colIdx, "License Expiration")),
				ReceivedTraining:  parseFlag(lookupCell(row, colIdx, "Has received Affinity training of McK?")),
				SchedulerTag:      parseFlag(lookupCell(row, colIdx, "Scheduler tag")),
				Comments:          strings.TrimSpace(lookupCell(row, colIdx, "comments")),
			})
		}

		for _, tc := range taskCols {
			rawScore := strings.TrimSpace(cell(row, tc.index))
			if rawScore == "" {
				continue
			}
			// At most one record per (person, task): first valid wins on
			// duplicated rows.
			if seenPairs[name][tc.taskID] {
				continue
			}
			score, err := parseScore(rawScore)
			if err != nil {
				res.ParsingErrors++
				continue
			}
			if seenPairs[name] == nil {
				seenPairs[name] = make(map[int]bool)
			}
			seenPairs[name][tc.taskID] = true
			res.Facts = append(res.Facts, ScoreRecord{Name: name, TaskID: tc.taskID, Score: score})
		}
	}

	res.TotalCount = len(res.Persons)
	return res, nil
}

// canonicalHeader lower-cases and trims a source header and renames
// known variants, so column recognition is case-insensitive and
// tolerates trailing spaces ("License Expiration " included).
func canonicalHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if canonical, ok := headerRenames[h]; ok {
		return canonical
	}
	return h
}

// parseScore normalizes a percentage-like score text to [0,1]: strip a
// trailing '%', trim, parse and divide by 100.
func parseScore(raw string) (float64, error) {
	s := strings.TrimSpace(strings.TrimSuffix(raw, "%"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a valid score: %q", raw)
	}
	return v / 100, nil
}

// parseFlag coerces a free-text yes/no-like value to a boolean. Anything
// outside the affirmative vocabulary, including "", is false.
func parseFlag(raw string) bool {
	return yesValues[strings.ToLower(strings.TrimSpace(raw))]
}

// parseDate parses a license expiration date, day-first preferred.
// Unparsable or absent values mean "no expiration known".
func parseDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func lookupCell(row []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[strings.ToLower(name)]
	if !ok {
		return ""
	}
	return cell(row, idx)
}
