package report

import "context"

// Table is one export view. Cells hold string, float64, int, bool or nil.
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Column returns the index of name, or -1.
func (t Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Writer persists a table and returns where it went.
type Writer interface {
	WriteTable(ctx context.Context, table Table) (string, error)
}
