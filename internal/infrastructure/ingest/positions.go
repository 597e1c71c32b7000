package ingest

import (
	"context"
	"fmt"
	"os"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/scout-scoring/internal/domain/position"
	"github.com/riskibarqy/scout-scoring/internal/usecase"
	"gopkg.in/yaml.v3"
)

type positionsFile struct {
	PositionMapping map[string]position.Mapping `yaml:"position_mapping"`
}

// PositionsReader loads the position_mapping section of a YAML file.
type PositionsReader struct {
	path string
}

func NewPositionsReader(path string) *PositionsReader {
	return &PositionsReader{path: path}
}

func (r *PositionsReader) LoadTable(ctx context.Context) (*position.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: positions file %s", usecase.ErrNotFound, r.path)
		}
		return nil, crerr.Wrapf(err, "read positions file %s", r.path)
	}

	var doc positionsFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, crerr.Wrapf(err, "parse positions file %s", r.path)
	}
	if len(doc.PositionMapping) == 0 {
		return nil, fmt.Errorf("%w: %s has no position_mapping entries", usecase.ErrNotFound, r.path)
	}

	return position.NewTable(doc.PositionMapping)
}
