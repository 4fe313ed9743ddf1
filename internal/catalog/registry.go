// Package catalog is the in-memory registry of dynamic tables.
//
// The registry is the source of truth for whether a table exists and what
// its current schema is. Entries are immutable and replaced wholesale, so a
// reader holding a *Table always sees a consistent schema/relation pair.
package catalog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tobsdb/dynatable/internal/errs"
	"github.com/tobsdb/dynatable/internal/schema"
	"github.com/tobsdb/dynatable/internal/storage"
	"github.com/tobsdb/dynatable/pkg"
)

type Table struct {
	ID     string
	Schema *schema.TableSchema
	// Relation is the physical relation the table is materialized as
	Relation storage.Relation
	// Handle identifies one materialization of the relation.
	// It changes every time the relation is rebuilt.
	Handle uuid.UUID

	RegisteredAt time.Time
}

func NewTable(id string, s *schema.TableSchema, rel storage.Relation) *Table {
	return &Table{ID: id, Schema: s, Relation: rel, Handle: uuid.New(), RegisteredAt: time.Now()}
}

type Registry struct {
	locker sync.RWMutex
	// table_id -> table
	tables pkg.Map[string, *Table]

	table_lockers *pkg.KeyedLocker[string]
}

func NewRegistry() *Registry {
	return &Registry{tables: pkg.Map[string, *Table]{}, table_lockers: pkg.NewKeyedLocker[string]()}
}

func (r *Registry) GetLocker() *sync.RWMutex { return &r.locker }

// LockTable runs f holding table_id's scope exclusively.
// Scopes exist whether or not the table is registered, so creates can hold them too.
func (r *Registry) LockTable(table_id string, f func()) {
	r.table_lockers.LockWrap(table_id, f)
}

func (r *Registry) RLockTable(table_id string, f func()) {
	r.table_lockers.RLockWrap(table_id, f)
}

// Register inserts or replaces the entry of table.ID.
func (r *Registry) Register(table *Table) {
	pkg.LockWrap(r, func() {
		r.tables.Set(table.ID, table)
	})
}

func (r *Registry) Lookup(table_id string) (*Table, error) {
	var table *Table
	pkg.RLockWrap(r, func() {
		table = r.tables.Get(table_id)
	})
	if table == nil {
		return nil, errs.Newf(errs.KindTableNotFound, "Table '%s' not found", table_id)
	}
	return table, nil
}

func (r *Registry) Exists(table_id string) bool {
	var ok bool
	pkg.RLockWrap(r, func() {
		ok = r.tables.Has(table_id)
	})
	return ok
}

// IDs returns every registered table id in lexical order.
func (r *Registry) IDs() []string {
	var ids []string
	pkg.RLockWrap(r, func() {
		ids = r.tables.Keys()
	})
	slices.Sort(ids)
	return ids
}

func (r *Registry) Len() int {
	r.locker.RLock()
	defer r.locker.RUnlock()
	return len(r.tables)
}

// Load registers every relation the backend's catalog knows about.
func (r *Registry) Load(ctx context.Context, backend storage.Backend) error {
	relations, err := backend.Relations(ctx)
	if err != nil {
		return errs.Storage(err, "loading catalog")
	}

	for _, rel := range relations {
		s, err := schema.FromStorage(rel.Columns)
		if err != nil {
			return err
		}
		r.Register(NewTable(rel.TableID, s, rel))
	}

	pkg.InfoLog("loaded", len(relations), "tables from catalog")
	return nil
}
