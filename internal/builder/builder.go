// Package builder materializes dynamic tables as physical relations.
//
// It is the only component issuing schema changes against the storage
// backend, and it registers the result in the catalog once the backend has
// accepted it. Callers hold the table's exclusive lock around every call.
package builder

import (
	"context"
	"errors"

	"github.com/tobsdb/dynatable/internal/catalog"
	"github.com/tobsdb/dynatable/internal/errs"
	"github.com/tobsdb/dynatable/internal/schema"
	"github.com/tobsdb/dynatable/internal/storage"
	"github.com/tobsdb/dynatable/pkg"
)

type Builder struct {
	registry *catalog.Registry
	backend  storage.Backend
}

func New(registry *catalog.Registry, backend storage.Backend) *Builder {
	return &Builder{registry: registry, backend: backend}
}

func relationOf(table_id string, s *schema.TableSchema) (storage.Relation, error) {
	columns, err := s.StorageColumns()
	if err != nil {
		return storage.Relation{}, err
	}
	return storage.Relation{TableID: table_id, Name: storage.RelationName(table_id), Columns: columns}, nil
}

// CreateRelation validates columns, creates the relation backing table_id and
// registers it. Nothing is registered when any step fails.
func (b *Builder) CreateRelation(ctx context.Context, table_id string, columns []schema.Column) (*catalog.Table, error) {
	s, err := schema.NewTableSchema(columns)
	if err != nil {
		return nil, err
	}

	if b.registry.Exists(table_id) {
		return nil, errs.Newf(errs.KindRelationAlreadyExists, "Table '%s' already exists", table_id)
	}

	rel, err := relationOf(table_id, s)
	if err != nil {
		return nil, err
	}

	if err := b.backend.Create(ctx, rel); err != nil {
		if errors.Is(err, storage.ErrRelationExists) {
			// another id lower-cases to the same relation name
			return nil, errs.Wrap(errs.KindStorageFailure, err,
				"Relation "+rel.Name+" is already used by another table")
		}
		pkg.ErrorLog("creating relation", rel.Name, err)
		return nil, errs.Storage(err, "Failed to create relation "+rel.Name)
	}

	table := catalog.NewTable(table_id, s, rel)
	b.registry.Register(table)
	pkg.DebugLog("created relation", rel.Name, "handle", table.Handle)
	return table, nil
}

// RebuildRelation merges new_columns into the schema of table_id and replaces
// its relation with an empty one of the merged shape.
//
// RebuildRelation does not check that the table is empty, see guard.
func (b *Builder) RebuildRelation(ctx context.Context, table_id string, new_columns []schema.Column) (*catalog.Table, error) {
	current, err := b.registry.Lookup(table_id)
	if err != nil {
		return nil, err
	}

	merged, err := current.Schema.Merge(new_columns)
	if err != nil {
		return nil, err
	}

	rel, err := relationOf(table_id, merged)
	if err != nil {
		return nil, err
	}

	if err := b.backend.Replace(ctx, rel); err != nil {
		pkg.ErrorLog("replacing relation", rel.Name, err)
		return nil, errs.Storage(err, "Failed to rebuild relation "+rel.Name)
	}

	table := catalog.NewTable(table_id, merged, rel)
	b.registry.Register(table)
	pkg.DebugLog("rebuilt relation", rel.Name, "handle", table.Handle)
	return table, nil
}
