package memory_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/tobsdb/dynatable/internal/storage"
	. "github.com/tobsdb/dynatable/internal/storage/memory"
	"github.com/tobsdb/dynatable/internal/types"
	"gotest.tools/assert"
)

func testRelation(table_id string) storage.Relation {
	return storage.Relation{
		TableID: table_id,
		Name:    storage.RelationName(table_id),
		Columns: []storage.Column{
			{Name: "id", Kind: types.KindSerial},
			{Name: "email", Kind: types.KindText},
			{Name: "age", Kind: types.KindReal},
			{Name: "active", Kind: types.KindBool},
		},
	}
}

func newBackend(t *testing.T) *Backend {
	b, err := New(nil)
	assert.NilError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	rel := testRelation("T1")

	assert.NilError(t, b.Create(ctx, rel))

	t.Run("collision", func(t *testing.T) {
		err := b.Create(ctx, testRelation("t1"))
		assert.Assert(t, errors.Is(err, storage.ErrRelationExists))
	})

	relations, err := b.Relations(ctx)
	assert.NilError(t, err)
	assert.Equal(t, len(relations), 1)
	assert.Equal(t, relations[0].TableID, "T1")
}

func TestInsertSelect(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	rel := testRelation("a")
	assert.NilError(t, b.Create(ctx, rel))

	id, err := b.Insert(ctx, rel, storage.Row{"email": "a@b.com", "age": 55})
	assert.NilError(t, err)
	assert.Equal(t, id, int64(1))

	id, err = b.Insert(ctx, rel, storage.Row{"active": true})
	assert.NilError(t, err)
	assert.Equal(t, id, int64(2))

	rows, err := b.SelectAll(ctx, rel)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 2)
	assert.DeepEqual(t, rows[0], storage.Row{"id": int64(1), "email": "a@b.com", "age": 55.0, "active": nil})
	assert.DeepEqual(t, rows[1], storage.Row{"id": int64(2), "email": nil, "age": nil, "active": true})

	n, err := b.Count(ctx, rel)
	assert.NilError(t, err)
	assert.Equal(t, n, int64(2))

	t.Run("type mismatch", func(t *testing.T) {
		_, err := b.Insert(ctx, rel, storage.Row{"age": "old"})
		assert.Assert(t, errors.Is(err, storage.ErrTypeMismatch))
	})

	t.Run("identity is generated", func(t *testing.T) {
		_, err := b.Insert(ctx, rel, storage.Row{"id": 9})
		assert.Assert(t, errors.Is(err, storage.ErrTypeMismatch))
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := b.Insert(ctx, rel, storage.Row{"phone": "1"})
		assert.Assert(t, errors.Is(err, storage.ErrUnknownColumn))
	})

	t.Run("missing relation", func(t *testing.T) {
		_, err := b.Insert(ctx, testRelation("b"), storage.Row{})
		assert.Assert(t, errors.Is(err, storage.ErrRelationNotFound))
	})
}

func TestEmptySelect(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	rel := testRelation("a")
	assert.NilError(t, b.Create(ctx, rel))

	rows, err := b.SelectAll(ctx, rel)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 0)
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	rel := testRelation("a")
	assert.NilError(t, b.Create(ctx, rel))
	_, err := b.Insert(ctx, rel, storage.Row{"email": "x"})
	assert.NilError(t, err)

	rel.Columns = append(rel.Columns, storage.Column{Name: "phone", Kind: types.KindText})
	assert.NilError(t, b.Replace(ctx, rel))

	n, err := b.Count(ctx, rel)
	assert.NilError(t, err)
	assert.Equal(t, n, int64(0))

	id, err := b.Insert(ctx, rel, storage.Row{"phone": "+48123456789"})
	assert.NilError(t, err)
	assert.Equal(t, id, int64(1))

	t.Run("missing", func(t *testing.T) {
		err := b.Replace(ctx, testRelation("b"))
		assert.Assert(t, errors.Is(err, storage.ErrRelationNotFound))
	})
}

func TestClosed(t *testing.T) {
	b, err := New(nil)
	assert.NilError(t, err)
	assert.NilError(t, b.Close())
	err = b.Create(context.Background(), testRelation("a"))
	assert.Assert(t, errors.Is(err, storage.ErrClosed))
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	settings, err := NewWriteSettings(dir, false, 10)
	assert.NilError(t, err)

	b, err := New(settings)
	assert.NilError(t, err)
	rel := testRelation("a")
	assert.NilError(t, b.Create(ctx, rel))
	_, err = b.Insert(ctx, rel, storage.Row{"email": "a@b.com", "active": false})
	assert.NilError(t, err)
	assert.NilError(t, b.Close())

	reopened, err := New(settings)
	assert.NilError(t, err)
	defer reopened.Close()

	relations, err := reopened.Relations(ctx)
	assert.NilError(t, err)
	assert.Equal(t, len(relations), 1)
	assert.DeepEqual(t, relations[0], rel)

	rows, err := reopened.SelectAll(ctx, rel)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
	assert.DeepEqual(t, rows[0], storage.Row{"id": int64(1), "email": "a@b.com", "age": nil, "active": false})

	id, err := reopened.Insert(ctx, rel, storage.Row{})
	assert.NilError(t, err)
	assert.Equal(t, id, int64(2))
}

func TestSnapshotTicker(t *testing.T) {
	ctx := context.Background()
	settings, err := NewWriteSettings(t.TempDir(), false, 5)
	assert.NilError(t, err)

	b, err := New(settings)
	assert.NilError(t, err)
	defer b.Close()
	assert.NilError(t, b.Create(ctx, testRelation("a")))

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(settings.File()); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("snapshot was never written")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNewWriteSettings(t *testing.T) {
	_, err := NewWriteSettings("", false, 100)
	assert.ErrorContains(t, err, "Must either provide db path")

	s, err := NewWriteSettings("", true, 0)
	assert.NilError(t, err)
	assert.Assert(t, s.InMem)
}
