package weight

import "context"

// Source loads the full weight sheet, active and inactive rows alike.
type Source interface {
	LoadTable(ctx context.Context) (Table, error)
}
