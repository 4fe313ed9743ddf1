// Package engine is the dynamic schema engine: it owns the table registry and
// runs every table operation under the table's lock.
//
// Creates and structure updates hold the table's lock exclusively from their
// checks until the registry has been updated. Inserts and reads share it.
package engine

import (
	"context"
	"fmt"

	"github.com/lithammer/shortuuid/v4"

	"github.com/tobsdb/dynatable/internal/builder"
	"github.com/tobsdb/dynatable/internal/catalog"
	"github.com/tobsdb/dynatable/internal/errs"
	"github.com/tobsdb/dynatable/internal/guard"
	"github.com/tobsdb/dynatable/internal/query"
	"github.com/tobsdb/dynatable/internal/schema"
	"github.com/tobsdb/dynatable/internal/storage"
	"github.com/tobsdb/dynatable/pkg"
)

type Engine struct {
	registry *catalog.Registry
	backend  storage.Backend

	builder *builder.Builder
	guard   *guard.Guard
	gateway *query.Gateway
}

// New creates an engine with an empty registry over backend.
func New(backend storage.Backend, registry *catalog.Registry) *Engine {
	if registry == nil {
		registry = catalog.NewRegistry()
	}
	return &Engine{
		registry: registry,
		backend:  backend,
		builder:  builder.New(registry, backend),
		guard:    guard.New(registry, backend),
		gateway:  query.New(registry, backend),
	}
}

// Open creates an engine and registers every table the backend already holds.
func Open(ctx context.Context, backend storage.Backend) (*Engine, error) {
	e := New(backend, nil)
	if err := e.registry.Load(ctx, backend); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) Registry() *catalog.Registry { return e.registry }

func (e *Engine) Close() error { return e.backend.Close() }

func (e *Engine) GenerateTableID() string {
	for {
		id := shortuuid.New()
		if !e.registry.Exists(id) {
			return id
		}
	}
}

// CreateTable creates a table with columns. An empty table_id asks for a
// generated one. Returns the id of the new table.
func (e *Engine) CreateTable(ctx context.Context, columns []schema.Column, table_id string) (string, error) {
	if table_id == "" {
		table_id = e.GenerateTableID()
	}
	pkg.InfoLog(fmt.Sprintf("Creating new table '%s' with %d columns", table_id, len(columns)))

	var err error
	e.registry.LockTable(table_id, func() {
		_, err = e.builder.CreateRelation(ctx, table_id, columns)
	})
	if err != nil {
		pkg.WarnLog(fmt.Sprintf("Creating table '%s' failed: %s", table_id, err))
		return "", err
	}
	return table_id, nil
}

// UpdateTableStructure adds columns to table_id, or replaces the type of a
// column with the same name. Only empty tables can be updated.
func (e *Engine) UpdateTableStructure(ctx context.Context, table_id string, columns []schema.Column) (string, error) {
	pkg.InfoLog(fmt.Sprintf("Updating table '%s' with %d columns", table_id, len(columns)))
	// no locker for ids that were never created
	if !e.registry.Exists(table_id) {
		return "", errs.Newf(errs.KindTableNotFound, "Table '%s' not found", table_id)
	}

	var err error
	e.registry.LockTable(table_id, func() {
		var d guard.Decision
		d, err = e.guard.CanEvolve(ctx, table_id)
		if err != nil {
			return
		}
		if err = d.Err(table_id); err != nil {
			return
		}
		_, err = e.builder.RebuildRelation(ctx, table_id, columns)
	})
	if err != nil {
		pkg.WarnLog(fmt.Sprintf("Updating table '%s' failed: %s", table_id, err))
		return "", err
	}
	return table_id, nil
}

// AddRow inserts row into table_id and returns the id the row was given.
func (e *Engine) AddRow(ctx context.Context, table_id string, row query.QueryArg) (int64, error) {
	pkg.InfoLog(fmt.Sprintf("Adding row to table '%s'", table_id))
	if !e.registry.Exists(table_id) {
		return 0, errs.Newf(errs.KindTableNotFound, "Table '%s' not found", table_id)
	}

	var id int64
	var err error
	e.registry.RLockTable(table_id, func() {
		id, err = e.gateway.InsertRow(ctx, table_id, row)
	})
	return id, err
}

// GetRows returns every row of table_id in insertion order.
func (e *Engine) GetRows(ctx context.Context, table_id string) ([]query.QueryArg, error) {
	pkg.InfoLog(fmt.Sprintf("Fetching rows from table '%s'", table_id))
	if !e.registry.Exists(table_id) {
		return nil, errs.Newf(errs.KindTableNotFound, "Table '%s' not found", table_id)
	}

	var rows []query.QueryArg
	var err error
	e.registry.RLockTable(table_id, func() {
		rows, err = e.gateway.FetchAllRows(ctx, table_id)
	})
	return rows, err
}

// DescribeTable returns the current schema of table_id.
func (e *Engine) DescribeTable(table_id string) (*schema.TableSchema, error) {
	table, err := e.registry.Lookup(table_id)
	if err != nil {
		return nil, err
	}
	return table.Schema, nil
}

func (e *Engine) ListTables() []string { return e.registry.IDs() }
