package player

import "context"

// Source loads the raw scouting dataset, one record per spreadsheet row, each
// tagged with its source file.
type Source interface {
	LoadDataset(ctx context.Context) (Dataset, error)
}
