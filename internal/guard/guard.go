// Package guard decides whether a table's structure may change.
//
// A table may only evolve while it holds no rows. The row count always comes
// from a full count against the backend.
package guard

import (
	"context"

	"github.com/tobsdb/dynatable/internal/catalog"
	"github.com/tobsdb/dynatable/internal/errs"
	"github.com/tobsdb/dynatable/internal/storage"
)

type Decision struct {
	Allowed bool
	// Reason is set when Allowed is false
	Reason errs.Kind
	Rows   int64
}

// Err turns a refusal into the error reported to callers.
func (d Decision) Err(table_id string) error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason == errs.KindTableNotFound:
		return errs.Newf(errs.KindTableNotFound, "Table '%s' not found", table_id)
	default:
		return errs.Newf(errs.KindNotEmpty,
			"Table '%s' has %d rows, structure can only be changed while it is empty", table_id, d.Rows)
	}
}

type Guard struct {
	registry *catalog.Registry
	backend  storage.Backend
}

func New(registry *catalog.Registry, backend storage.Backend) *Guard {
	return &Guard{registry: registry, backend: backend}
}

// CanEvolve reports whether table_id exists and is empty.
// The caller holds the table's exclusive lock until it acts on the decision.
func (g *Guard) CanEvolve(ctx context.Context, table_id string) (Decision, error) {
	table, err := g.registry.Lookup(table_id)
	if err != nil {
		return Decision{Reason: errs.KindTableNotFound}, nil
	}

	n, err := g.backend.Count(ctx, table.Relation)
	if err != nil {
		return Decision{}, errs.Storage(err, "Failed to count rows of "+table.Relation.Name)
	}
	if n > 0 {
		return Decision{Reason: errs.KindNotEmpty, Rows: n}, nil
	}
	return Decision{Allowed: true}, nil
}
