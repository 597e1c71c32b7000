package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/riskibarqy/scout-scoring/internal/domain/player"
	"github.com/riskibarqy/scout-scoring/internal/domain/weight"
	"github.com/riskibarqy/scout-scoring/internal/usecase"
)

// WeightsReader loads the indicator weight sheet.
type WeightsReader struct {
	path string
}

func NewWeightsReader(path string) *WeightsReader {
	return &WeightsReader{path: path}
}

func (r *WeightsReader) LoadTable(ctx context.Context) (weight.Table, error) {
	if err := ctx.Err(); err != nil {
		return weight.Table{}, err
	}
	if _, err := os.Stat(r.path); err != nil {
		if os.IsNotExist(err) {
			return weight.Table{}, fmt.Errorf("%w: weights file %s", usecase.ErrNotFound, r.path)
		}
		return weight.Table{}, err
	}

	s, err := readSheet(r.path)
	if err != nil {
		return weight.Table{}, err
	}
	names, index := columnIndex(s.header)
	if _, ok := index[weight.ColIndicator]; !ok {
		return weight.Table{}, fmt.Errorf("%w: weights file %s has no %s column", usecase.ErrMissingRequiredFields, r.path, weight.ColIndicator)
	}

	table := weight.Table{Columns: names}
	for _, row := range s.rows {
		cells, ok := rowCells(row, names, index)
		if !ok {
			continue
		}
		table.Entries = append(table.Entries, entryFromCells(cells))
	}
	return table, nil
}

func entryFromCells(cells map[string]string) weight.Entry {
	e := weight.Entry{
		Indicator:   strings.TrimSpace(cells[weight.ColIndicator]),
		Category:    cells[weight.ColCategory],
		SubCategory: cells[weight.ColSubCategory],
		Consider:    cells[weight.ColConsider],
		Special:     cells[weight.ColSpecial],
		Direction:   weight.Direction(strings.ToUpper(strings.TrimSpace(cells[weight.ColDirection]))),
		AggType:     cells[weight.ColAggType],
		Explanation: cells[weight.ColExplanation],
		Weights:     make(map[player.Position]float64),
		Raw:         cells,
	}
	for _, pos := range player.CanonicalPositions {
		if v, ok := usecase.ParseIndicator(cells[string(pos)]); ok {
			e.Weights[pos] = v
		}
	}
	return e
}
