package routes

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptyTable is returned when the table defines no routes.
	ErrEmptyTable = errors.New("routes: table defines no routes")

	// ErrDuplicateRoute is returned when two routes share a path.
	ErrDuplicateRoute = errors.New("routes: duplicate route path")
)

// Route declares one navigation target and the notification types that
// bucket into it.
type Route struct {
	Path  string   `yaml:"path"`
	Label string   `yaml:"label,omitempty"`
	Types []string `yaml:"types"`
}

// Table is the static type-to-route classification. It is data, not code:
// loaded once at startup and never mutated, so lookups need no locking.
type Table struct {
	Routes []Route `yaml:"routes"`

	byType map[string][]string
}

// LoadTable reads a YAML table from disk.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("routes: read table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable decodes and validates a YAML table.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("routes: parse table: %w", err)
	}
	if len(t.Routes) == 0 {
		return nil, ErrEmptyTable
	}

	seen := make(map[string]struct{}, len(t.Routes))
	for _, r := range t.Routes {
		if _, dup := seen[r.Path]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRoute, r.Path)
		}
		seen[r.Path] = struct{}{}
	}

	t.index()
	return &t, nil
}

// DefaultTable returns the built-in classification used when no table file is
// configured.
func DefaultTable() *Table {
	t := &Table{
		Routes: []Route{
			{Path: "/tasks", Label: "Tasks", Types: []string{"task_assigned", "task_due", "task_completed"}},
			{Path: "/inbox", Label: "Inbox", Types: []string{"comment_added", "mention"}},
			{Path: "/billing", Label: "Billing", Types: []string{"invoice_issued", "invoice_overdue"}},
			{Path: "/documents", Label: "Documents", Types: []string{"document_shared"}},
			{Path: "/team", Label: "Team", Types: []string{"member_joined"}},
		},
	}
	t.index()
	return t
}

// RoutesFor returns the paths a notification type buckets into. An unknown
// type belongs to no route.
func (t *Table) RoutesFor(typ string) []string {
	return t.byType[typ]
}

// Paths returns all declared route paths in declaration order.
func (t *Table) Paths() []string {
	out := make([]string, len(t.Routes))
	for i, r := range t.Routes {
		out[i] = r.Path
	}
	return out
}

func (t *Table) index() {
	t.byType = make(map[string][]string)
	for _, r := range t.Routes {
		for _, typ := range r.Types {
			t.byType[typ] = append(t.byType[typ], r.Path)
		}
	}
}
