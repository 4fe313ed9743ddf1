// Package query is the row gateway: it turns logical rows into backend
// inserts and stored rows back into logical rows.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/tobsdb/dynatable/internal/catalog"
	"github.com/tobsdb/dynatable/internal/errs"
	"github.com/tobsdb/dynatable/internal/schema"
	"github.com/tobsdb/dynatable/internal/storage"
	"github.com/tobsdb/dynatable/internal/types"
	"github.com/tobsdb/dynatable/pkg"
)

// QueryArg is a logical row: column name to value.
type QueryArg = pkg.Map[string, any]

type Gateway struct {
	registry *catalog.Registry
	backend  storage.Backend
}

func New(registry *catalog.Registry, backend storage.Backend) *Gateway {
	return &Gateway{registry: registry, backend: backend}
}

// InsertRow stores row in table_id and returns the identity it was given.
//
// Every key of row must name a caller defined column. Missing columns and
// null values are left to the backend default.
func (g *Gateway) InsertRow(ctx context.Context, table_id string, row QueryArg) (int64, error) {
	table, err := g.registry.Lookup(table_id)
	if err != nil {
		return 0, err
	}

	values, err := validateRow(table, row)
	if err != nil {
		return 0, err
	}

	id, err := g.backend.Insert(ctx, table.Relation, values)
	if err != nil {
		pkg.ErrorLog("inserting into", table.Relation.Name, err)
		return 0, errs.Storage(err, "Failed to insert row into "+table.Relation.Name)
	}
	return id, nil
}

func validateRow(table *catalog.Table, row QueryArg) (storage.Row, error) {
	// sorted so the reported column is the same on every call
	keys := row.Keys()
	slices.Sort(keys)

	values := storage.Row{}
	for _, name := range keys {
		col, ok := table.Schema.Column(name)
		if !ok || name == schema.IDENTITY_COLUMN {
			return nil, errs.Newf(errs.KindUnknownColumn, "Column '%s' does not exist in table '%s'", name, table.ID)
		}

		input := row.Get(name)
		if input == nil {
			continue
		}
		v, err := validateValue(col, input)
		if err != nil {
			return nil, err
		}
		values.Set(name, v)
	}
	return values, nil
}

func validateValue(col schema.Column, input any) (any, error) {
	mismatch := func() error {
		return errs.Wrap(errs.KindStorageFailure,
			fmt.Errorf("%w: %s expects %s, got %T", storage.ErrTypeMismatch, col.Name, col.Type, input),
			"Invalid value for column "+col.Name)
	}

	switch col.Type {
	case types.ColumnTypeString:
		if s, ok := input.(string); ok {
			return s, nil
		}
	case types.ColumnTypeNumber:
		if n, ok := input.(json.Number); ok {
			f, err := n.Float64()
			if err != nil {
				return nil, mismatch()
			}
			input = f
		}
		if f, ok := pkg.NumToFloat(input); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, nil
		}
	case types.ColumnTypeBoolean:
		if b, ok := input.(bool); ok {
			return b, nil
		}
	}
	return nil, mismatch()
}

// FetchAllRows returns every row of table_id in ascending identity order,
// the identity column included.
func (g *Gateway) FetchAllRows(ctx context.Context, table_id string) ([]QueryArg, error) {
	table, err := g.registry.Lookup(table_id)
	if err != nil {
		return nil, err
	}

	stored, err := g.backend.SelectAll(ctx, table.Relation)
	if err != nil {
		pkg.ErrorLog("reading from", table.Relation.Name, err)
		return nil, errs.Storage(err, "Failed to read rows of "+table.Relation.Name)
	}

	rows := make([]QueryArg, 0, len(stored))
	for _, s := range stored {
		rows = append(rows, toLogical(table, s))
	}
	return rows, nil
}

// toLogical converts backend values into the logical types of the schema.
// Backends without a native boolean hand back integers.
func toLogical(table *catalog.Table, stored storage.Row) QueryArg {
	row := QueryArg{}
	for _, col := range table.Schema.All() {
		v := stored.Get(col.Name)
		if v == nil {
			row.Set(col.Name, nil)
			continue
		}
		switch col.Type {
		case types.ColumnTypeIdentity:
			v = pkg.NumToInt(v)
		case types.ColumnTypeNumber:
			if f, ok := pkg.NumToFloat(v); ok {
				v = f
			}
		case types.ColumnTypeBoolean:
			if _, ok := v.(bool); !ok {
				v = pkg.NumToInt(v) != 0
			}
		}
		row.Set(col.Name, v)
	}
	return row
}
