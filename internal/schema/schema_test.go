package schema_test

import (
	"errors"
	"testing"

	"github.com/tobsdb/dynatable/internal/errs"
	. "github.com/tobsdb/dynatable/internal/schema"
	"github.com/tobsdb/dynatable/internal/types"
	"gotest.tools/assert"
)

func cols(pairs ...string) []Column {
	c := []Column{}
	for i := 0; i+1 < len(pairs); i += 2 {
		c = append(c, Column{pairs[i], types.ColumnType(pairs[i+1])})
	}
	return c
}

func names(c []Column) []string {
	n := []string{}
	for _, col := range c {
		n = append(n, col.Name)
	}
	return n
}

func TestNewTableSchema(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		s, err := NewTableSchema(cols("email", "string", "age", "number"))
		assert.NilError(t, err)
		assert.Equal(t, s.Len(), 2)
		assert.DeepEqual(t, names(s.All()), []string{"id", "email", "age"})
		assert.Assert(t, s.Has("id"))
		assert.Assert(t, !s.Has("phone"))
	})

	t.Run("duplicate column", func(t *testing.T) {
		_, err := NewTableSchema(cols("email", "string", "email", "number"))
		assert.Assert(t, errors.Is(err, errs.ErrDuplicateColumnName))
		assert.ErrorContains(t, err, "Duplicate column email")
	})

	t.Run("names are case-sensitive", func(t *testing.T) {
		_, err := NewTableSchema(cols("email", "string", "Email", "string"))
		assert.NilError(t, err)
	})

	t.Run("reserved identity name", func(t *testing.T) {
		_, err := NewTableSchema(cols("id", "number"))
		assert.Assert(t, errors.Is(err, errs.ErrDuplicateColumnName))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewTableSchema(cols("age", "integer"))
		assert.Assert(t, errors.Is(err, errs.ErrUnknownColumnType))
	})

	t.Run("type tokens are case-sensitive", func(t *testing.T) {
		_, err := NewTableSchema(cols("age", "Number"))
		assert.Assert(t, errors.Is(err, errs.ErrUnknownColumnType))
	})

	t.Run("identity type is not a caller type", func(t *testing.T) {
		_, err := NewTableSchema(cols("key", "identity"))
		assert.Assert(t, errors.Is(err, errs.ErrUnknownColumnType))
	})
}

func TestMerge(t *testing.T) {
	s, err := NewTableSchema(cols("a", "string", "b", "number", "c", "boolean"))
	assert.NilError(t, err)

	t.Run("override keeps position and appends new", func(t *testing.T) {
		merged, err := s.Merge(cols("d", "string", "b", "string"))
		assert.NilError(t, err)
		assert.DeepEqual(t, merged.All(), cols("id", "identity", "a", "string", "b", "string", "c", "boolean", "d", "string"))
	})

	t.Run("original untouched", func(t *testing.T) {
		_, err := s.Merge(cols("e", "number"))
		assert.NilError(t, err)
		assert.DeepEqual(t, names(s.Columns()), []string{"a", "b", "c"})
		col, _ := s.Column("b")
		assert.Equal(t, col.Type, types.ColumnTypeNumber)
	})

	t.Run("duplicate in new columns", func(t *testing.T) {
		_, err := s.Merge(cols("e", "number", "e", "string"))
		assert.Assert(t, errors.Is(err, errs.ErrDuplicateColumnName))
	})

	t.Run("cannot override identity", func(t *testing.T) {
		_, err := s.Merge(cols("id", "string"))
		assert.Assert(t, errors.Is(err, errs.ErrDuplicateColumnName))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := s.Merge(cols("e", "date"))
		assert.Assert(t, errors.Is(err, errs.ErrUnknownColumnType))
	})

	t.Run("empty merge", func(t *testing.T) {
		merged, err := s.Merge(nil)
		assert.NilError(t, err)
		assert.DeepEqual(t, merged.All(), s.All())
	})
}

func TestStorageRoundTrip(t *testing.T) {
	s, _ := NewTableSchema(cols("email", "string", "age", "number", "active", "boolean"))
	sc, err := s.StorageColumns()
	assert.NilError(t, err)
	assert.Equal(t, len(sc), 4)
	assert.Equal(t, sc[0].Kind, types.KindSerial)

	back, err := FromStorage(sc)
	assert.NilError(t, err)
	assert.DeepEqual(t, back.All(), s.All())
}
