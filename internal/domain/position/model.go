package position

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrCaseVariantKeys = errors.New("position mapping has case-variant duplicate keys")

// Mapping is the canonical triple a raw position label resolves to.
type Mapping struct {
	Position string `yaml:"position" json:"position"`
	Group    string `yaml:"position_group" json:"position_group"`
	SubGroup string `yaml:"position_sub_group" json:"position_sub_group"`
}

// Table resolves raw labels: exact match first, then a case-insensitive match.
type Table struct {
	exact  map[string]Mapping
	folded map[string]string
}

// NewTable builds a lookup table. Keys that differ only by letter case are
// rejected, since the fallback match would otherwise depend on iteration order.
func NewTable(entries map[string]Mapping) (*Table, error) {
	t := &Table{
		exact:  make(map[string]Mapping, len(entries)),
		folded: make(map[string]string, len(entries)),
	}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	conflicts := make([]string, 0)
	for _, key := range keys {
		t.exact[key] = entries[key]
		fold := strings.ToLower(key)
		if prev, ok := t.folded[fold]; ok {
			conflicts = append(conflicts, fmt.Sprintf("%q/%q", prev, key))
			continue
		}
		t.folded[fold] = key
	}
	if len(conflicts) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrCaseVariantKeys, strings.Join(conflicts, ", "))
	}

	return t, nil
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.exact)
}

// Lookup trims raw and resolves it. ok is false for empty or unknown labels.
func (t *Table) Lookup(raw string) (Mapping, bool) {
	if t == nil {
		return Mapping{}, false
	}
	label := strings.TrimSpace(raw)
	if label == "" {
		return Mapping{}, false
	}
	if m, ok := t.exact[label]; ok {
		return m, true
	}
	if key, ok := t.folded[strings.ToLower(label)]; ok {
		return t.exact[key], true
	}
	return Mapping{}, false
}
