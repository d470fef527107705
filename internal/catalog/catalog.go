package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// Task is a single entry from the task catalog.
type Task struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

// Catalog is the loaded task catalog. It is immutable after loading and
// authoritative for which assessment columns are task columns.
type Catalog struct {
	tasks  []Task
	byID   map[int]Task
	loaded string
}

type catalogDocument struct {
	Skills []Task `json:"skills"`
}

// Load reads and parses the catalog JSON file at path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()

	cat, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	cat.loaded = path
	return cat, nil
}

// Parse decodes a catalog document of the form {"skills": [...]}.
func Parse(r io.Reader) (*Catalog, error) {
	var doc catalogDocument
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(doc.Skills) == 0 {
		return nil, fmt.Errorf("catalog contains no skills")
	}

	byID := make(map[int]Task, len(doc.Skills))
	for i, t := range doc.Skills {
		if t.ID <= 0 {
			return nil, fmt.Errorf("catalog entry %d: task id must be a positive integer, got %d", i, t.ID)
		}
		if _, dup := byID[t.ID]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate task id %d", i, t.ID)
		}
		byID[t.ID] = t
	}

	tasks := append([]Task(nil), doc.Skills...)
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	return &Catalog{tasks: tasks, byID: byID}, nil
}

// Tasks returns all tasks ordered by id.
func (c *Catalog) Tasks() []Task {
	return append([]Task(nil), c.tasks...)
}

// Lookup returns the task with the given id.
func (c *Catalog) Lookup(id int) (Task, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// Len returns the number of tasks in the catalog.
func (c *Catalog) Len() int {
	return len(c.tasks)
}

// ColumnName returns the assessment column header for a task id.
func (c *Catalog) ColumnName(id int) string {
	return fmt.Sprintf("Task %d", id)
}

// ColumnNames returns the expected task column headers ordered by id.
func (c *Catalog) ColumnNames() []string {
	cols := make([]string, 0, len(c.tasks))
	for _, t := range c.tasks {
		cols = append(cols, c.ColumnName(t.ID))
	}
	return cols
}

// Path returns the file path the catalog was loaded from, if any.
func (c *Catalog) Path() string {
	return c.loaded
}
