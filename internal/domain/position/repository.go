package position

import "context"

// Source loads the raw label -> canonical triple table.
type Source interface {
	LoadTable(ctx context.Context) (*Table, error)
}
