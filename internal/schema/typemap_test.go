package schema_test

import (
	"errors"
	"testing"

	"github.com/tobsdb/dynatable/internal/errs"
	. "github.com/tobsdb/dynatable/internal/schema"
	"github.com/tobsdb/dynatable/internal/types"
	"gotest.tools/assert"
)

func TestMapType(t *testing.T) {
	cases := map[types.ColumnType]types.Kind{
		types.ColumnTypeString:  types.KindText,
		types.ColumnTypeNumber:  types.KindReal,
		types.ColumnTypeBoolean: types.KindBool,
	}
	for logical, kind := range cases {
		got, err := MapType(logical)
		assert.NilError(t, err)
		assert.Equal(t, got, kind)

		back, err := LogicalType(kind)
		assert.NilError(t, err)
		assert.Equal(t, back, logical)
	}

	_, err := MapType("integer")
	assert.Assert(t, errors.Is(err, errs.ErrUnknownColumnType))

	t.Run("identity is not declarable", func(t *testing.T) {
		_, err := MapType(types.ColumnTypeIdentity)
		assert.Assert(t, errors.Is(err, errs.ErrUnknownColumnType))
	})
}

func TestIdentityColumn(t *testing.T) {
	c := IdentityColumn()
	assert.Equal(t, c.Name, IDENTITY_COLUMN)
	sc, err := StorageColumn(c)
	assert.NilError(t, err)
	assert.Equal(t, sc.Kind, types.KindSerial)

	back, err := LogicalType(types.KindSerial)
	assert.NilError(t, err)
	assert.Equal(t, back, types.ColumnTypeIdentity)
}
