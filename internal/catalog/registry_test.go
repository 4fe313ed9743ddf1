package catalog_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/tobsdb/dynatable/internal/catalog"
	"github.com/tobsdb/dynatable/internal/errs"
	"github.com/tobsdb/dynatable/internal/schema"
	"github.com/tobsdb/dynatable/internal/storage"
	"github.com/tobsdb/dynatable/internal/storage/memory"
	"github.com/tobsdb/dynatable/internal/types"
	"gotest.tools/assert"
)

func newTestTable(t *testing.T, id string) *Table {
	s, err := schema.NewTableSchema([]schema.Column{{Name: "email", Type: types.ColumnTypeString}})
	assert.NilError(t, err)
	cols, err := s.StorageColumns()
	assert.NilError(t, err)
	return NewTable(id, s, storage.Relation{TableID: id, Name: storage.RelationName(id), Columns: cols})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	t.Run("lookup missing", func(t *testing.T) {
		_, err := r.Lookup("nope")
		assert.Assert(t, errors.Is(err, errs.ErrTableNotFound))
		assert.Error(t, err, "Table 'nope' not found")
		assert.Assert(t, !r.Exists("nope"))
	})

	first := newTestTable(t, "b")
	r.Register(first)
	r.Register(newTestTable(t, "a"))

	table, err := r.Lookup("b")
	assert.NilError(t, err)
	assert.Equal(t, table, first)
	assert.DeepEqual(t, r.IDs(), []string{"a", "b"})
	assert.Equal(t, r.Len(), 2)

	t.Run("replace", func(t *testing.T) {
		second := newTestTable(t, "b")
		assert.Assert(t, second.Handle != first.Handle)
		r.Register(second)

		table, err := r.Lookup("b")
		assert.NilError(t, err)
		assert.Equal(t, table, second)
		assert.Equal(t, r.Len(), 2)
	})

	t.Run("table scopes", func(t *testing.T) {
		ran := false
		r.RLockTable("y", func() {
			r.LockTable("x", func() { ran = true })
		})
		assert.Assert(t, ran)
		assert.Assert(t, !r.Exists("x"))
	})
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	backend, err := memory.New(nil)
	assert.NilError(t, err)
	defer backend.Close()

	table := newTestTable(t, "loaded")
	assert.NilError(t, backend.Create(ctx, table.Relation))

	r := NewRegistry()
	assert.NilError(t, r.Load(ctx, backend))

	loaded, err := r.Lookup("loaded")
	assert.NilError(t, err)
	assert.DeepEqual(t, loaded.Relation, table.Relation)
	assert.DeepEqual(t, loaded.Schema.Columns(), table.Schema.Columns())
}
