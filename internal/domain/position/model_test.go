package position

import (
	"errors"
	"testing"
)

func TestTable_Lookup(t *testing.T) {
	t.Parallel()

	table, err := NewTable(map[string]Mapping{
		"Left Centre Back": {Position: "LCB", Group: "DEFENDER", SubGroup: "CENTRE BACK"},
		"Goalkeeper":       {Position: "GK", Group: "GOALKEEPER", SubGroup: "GOALKEEPER"},
	})
	if err != nil {
		t.Fatalf("new table: %v", err)
	}

	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{name: "exact", raw: "Goalkeeper", want: "GK", wantOK: true},
		{name: "trimmed", raw: "  Left Centre Back ", want: "LCB", wantOK: true},
		{name: "case insensitive", raw: "left centre BACK", want: "LCB", wantOK: true},
		{name: "empty", raw: "", wantOK: false},
		{name: "blank", raw: "   ", wantOK: false},
		{name: "unknown", raw: "Sweeper", wantOK: false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := table.Lookup(tc.raw)
			if ok != tc.wantOK {
				t.Fatalf("Lookup(%q) ok=%v want %v", tc.raw, ok, tc.wantOK)
			}
			if got.Position != tc.want {
				t.Fatalf("Lookup(%q)=%q want %q", tc.raw, got.Position, tc.want)
			}
		})
	}
}

func TestNewTable_RejectsCaseVariants(t *testing.T) {
	t.Parallel()

	_, err := NewTable(map[string]Mapping{
		"Centre Forward": {Position: "CF"},
		"centre forward": {Position: "CF"},
	})
	if !errors.Is(err, ErrCaseVariantKeys) {
		t.Fatalf("expected ErrCaseVariantKeys, got %v", err)
	}
}

func TestTable_NilIsEmpty(t *testing.T) {
	t.Parallel()

	var table *Table
	if _, ok := table.Lookup("Goalkeeper"); ok {
		t.Fatalf("nil table should not resolve")
	}
	if table.Len() != 0 {
		t.Fatalf("nil table should have zero length")
	}
}
