package schema

import (
	"github.com/tobsdb/dynatable/internal/errs"
	"github.com/tobsdb/dynatable/internal/storage"
	"github.com/tobsdb/dynatable/internal/types"
)

// Name of the engine managed identity column present in every table.
const IDENTITY_COLUMN = "id"

// MapType translates a caller declared column type into its storage kind.
// The identity type is not declarable and has no mapping here.
func MapType(t types.ColumnType) (types.Kind, error) {
	switch t {
	case types.ColumnTypeString:
		return types.KindText, nil
	case types.ColumnTypeNumber:
		return types.KindReal, nil
	case types.ColumnTypeBoolean:
		return types.KindBool, nil
	}
	return 0, errs.Newf(errs.KindUnknownColumnType, "Unknown column type: %q", t)
}

// LogicalType is the inverse of MapType, extended with the identity kind.
func LogicalType(k types.Kind) (types.ColumnType, error) {
	switch k {
	case types.KindText:
		return types.ColumnTypeString, nil
	case types.KindReal:
		return types.ColumnTypeNumber, nil
	case types.KindBool:
		return types.ColumnTypeBoolean, nil
	case types.KindSerial:
		return types.ColumnTypeIdentity, nil
	}
	return "", errs.Newf(errs.KindUnknownColumnType, "Unknown storage kind: %s", k)
}

func IdentityColumn() Column {
	return Column{Name: IDENTITY_COLUMN, Type: types.ColumnTypeIdentity}
}

// StorageColumn maps a single column definition.
func StorageColumn(c Column) (storage.Column, error) {
	if c.Type == types.ColumnTypeIdentity {
		return storage.Column{Name: c.Name, Kind: types.KindSerial}, nil
	}
	kind, err := MapType(c.Type)
	if err != nil {
		return storage.Column{}, err
	}
	return storage.Column{Name: c.Name, Kind: kind}, nil
}
