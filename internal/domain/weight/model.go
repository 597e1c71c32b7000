package weight

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/scout-scoring/internal/domain/player"
)

var ErrInvalidEntry = errors.New("invalid weight entry")

// Direction says which end of an indicator's range is better.
type Direction string

const (
	DirectionUp   Direction = "CIMA"
	DirectionDown Direction = "BAIXO"
)

func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

const (
	ConsiderYes = "SIM"
	ConsiderNo  = "NÃO"
)

// Weight table column headers, as the configuration UI writes them.
const (
	ColIndicator   = "INDICADOR"
	ColCategory    = "CLASSIFICACAO RANKING"
	ColSubCategory = "SUBCLASSIFICACAO RANKING"
	ColConsider    = "CONSIDERAR?"
	ColSpecial     = "ESPECIAL?"
	ColDirection   = "Melhor para"
	ColAggType     = "tipo_agreg"
	ColExplanation = "Explicação indicador"
)

// Entry is one weight table row. Weights holds only the positions with a
// numeric cell; an absent position weighs 0.
type Entry struct {
	Indicator   string                      `json:"indicator" validate:"required"`
	Category    string                      `json:"category,omitempty"`
	SubCategory string                      `json:"sub_category,omitempty"`
	Consider    string                      `json:"consider"`
	Special     string                      `json:"special,omitempty"`
	Direction   Direction                   `json:"direction"`
	AggType     string                      `json:"agg_type,omitempty"`
	Explanation string                      `json:"explanation,omitempty"`
	Weights     map[player.Position]float64 `json:"weights" validate:"dive,gte=0"`
	// Raw keeps every original cell for the passthrough export.
	Raw map[string]string `json:"raw,omitempty"`
}

func (e Entry) Active() bool {
	return strings.TrimSpace(e.Consider) == ConsiderYes
}

// Table is the whole weight sheet with its header order.
type Table struct {
	Columns []string `json:"columns"`
	Entries []Entry  `json:"entries"`
}

// Active returns a table holding only the entries flagged SIM.
func (t Table) Active() Table {
	out := Table{Columns: append([]string(nil), t.Columns...)}
	for _, e := range t.Entries {
		if e.Active() {
			out.Entries = append(out.Entries, e)
		}
	}
	return out
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func entryValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidateActive checks every active entry and reports all violations at once.
func (t Table) ValidateActive() error {
	problems := make([]string, 0)
	for i, e := range t.Entries {
		if !e.Active() {
			continue
		}
		if err := entryValidator().Struct(e); err != nil {
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) {
				for _, fe := range fieldErrs {
					problems = append(problems, fmt.Sprintf("row %d (%q): %s failed %s", i+2, e.Indicator, fe.Namespace(), fe.Tag()))
				}
				continue
			}
			problems = append(problems, fmt.Sprintf("row %d (%q): %v", i+2, e.Indicator, err))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidEntry, strings.Join(problems, "; "))
}
