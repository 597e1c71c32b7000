package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/scout-scoring/internal/domain/player"
	"github.com/riskibarqy/scout-scoring/internal/platform/logging"
	"github.com/riskibarqy/scout-scoring/internal/usecase"
	"github.com/sourcegraph/conc/pool"
)

// ScoutsReader loads every spreadsheet in a directory as one dataset. Files
// are read in name order and each row is tagged with its file name.
type ScoutsReader struct {
	dir     string
	workers int
	logger  *logging.Logger
}

func NewScoutsReader(dir string, workers int, logger *logging.Logger) *ScoutsReader {
	if logger == nil {
		logger = logging.Default()
	}
	if workers <= 0 {
		workers = 1
	}
	return &ScoutsReader{dir: dir, workers: workers, logger: logger}
}

type scoutFile struct {
	name  string
	sheet sheet
}

func (r *ScoutsReader) LoadDataset(ctx context.Context) (player.Dataset, error) {
	files, err := r.files()
	if err != nil {
		return player.Dataset{}, err
	}

	p := pool.NewWithResults[scoutFile]().WithContext(ctx).WithMaxGoroutines(r.workers).WithCancelOnError()
	for _, path := range files {
		path := path
		p.Go(func(ctx context.Context) (scoutFile, error) {
			if err := ctx.Err(); err != nil {
				return scoutFile{}, err
			}
			s, err := readSheet(path)
			if err != nil {
				return scoutFile{}, err
			}
			return scoutFile{name: filepath.Base(path), sheet: s}, nil
		})
	}
	loaded, err := p.Wait()
	if err != nil {
		return player.Dataset{}, err
	}
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].name < loaded[j].name })

	ds := player.Dataset{}
	for _, file := range loaded {
		names, index := columnIndex(file.sheet.header)
		for _, name := range names {
			ds.WithColumn(name)
		}
		rows := 0
		for _, row := range file.sheet.rows {
			cells, ok := rowCells(row, names, index)
			if !ok {
				continue
			}
			cells[player.ColSourceFile] = file.name
			ds.Records = append(ds.Records, player.Record{Cells: cells})
			rows++
		}
		r.logger.Debug("scout file loaded", "file", file.name, "rows", rows, "columns", len(names))
	}
	ds.WithColumn(player.ColSourceFile)

	return ds, nil
}

func (r *ScoutsReader) files() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: scouts directory %s", usecase.ErrNotFound, r.dir)
		}
		return nil, crerr.Wrapf(err, "list scouts directory %s", r.dir)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !supported(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(r.dir, entry.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no .xlsx or .csv files in %s", usecase.ErrNotFound, r.dir)
	}
	sort.Strings(files)
	return files, nil
}
