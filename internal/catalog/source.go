package catalog

import "context"

// Source defines the interface for reading catalog rows
type Source interface {
	// Rows returns every row in source order
	Rows(ctx context.Context) ([]Row, error)
}
