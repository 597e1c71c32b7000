package player

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrMissingRequiredColumns = errors.New("missing required columns")

// Schema declares which raw columns a stage needs. It is checked once at stage
// entry instead of branching on column presence inside the transform.
type Schema struct {
	Stage    string
	Required []string
	Optional []string
}

// Validate reports every missing required column in one error.
func (s Schema) Validate(d Dataset) error {
	present := d.ColumnSet()
	missing := make([]string, 0)
	for _, col := range s.Required {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w for stage %s: %s", ErrMissingRequiredColumns, s.Stage, strings.Join(missing, ", "))
}

// PresentOptional returns the optional columns the dataset carries.
func (s Schema) PresentOptional(d Dataset) map[string]bool {
	present := d.ColumnSet()
	out := make(map[string]bool, len(s.Optional))
	for _, col := range s.Optional {
		_, ok := present[col]
		out[col] = ok
	}
	return out
}

var (
	PositionsSchema = Schema{
		Stage:    "positions",
		Required: []string{ColPlayerID, ColCompetitionID, ColTeamID, ColPrimaryPosition},
	}
	ConsolidateSchema = Schema{
		Stage:    "consolidate",
		Required: []string{ColPlayerID, ColCompetitionID, ColTeamID},
		Optional: []string{
			ColMostRecentMatch,
			ColPlayerKnownName,
			ColPlayerName,
			ColPlayerFirstName,
			ColPlayerLastName,
			ColCompetitionName,
			ColSourceFile,
		},
	}
	NormalizeSchema = Schema{
		Stage:    "normalize",
		Required: []string{ColCompetitionID},
	}
)
