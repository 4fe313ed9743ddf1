package types

import (
	"fmt"
	"slices"
)

var VALID_COLUMN_TYPES = []ColumnType{
	ColumnTypeString, ColumnTypeNumber, ColumnTypeBoolean,
}

// ColumnType is the logical type of a caller defined column.
// Tokens are case-sensitive.
type ColumnType string

const (
	ColumnTypeString  ColumnType = "string"
	ColumnTypeNumber  ColumnType = "number"
	ColumnTypeBoolean ColumnType = "boolean"
)

func (t ColumnType) IsValid() bool { return slices.Contains(VALID_COLUMN_TYPES, t) }

// Kind is the backend neutral storage type a logical type maps onto.
// Each backend renders a Kind into its native column type.
type Kind int

const (
	KindText Kind = iota + 1
	KindReal
	KindBool
	KindSerial
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindReal:
		return "real"
	case KindBool:
		return "bool"
	case KindSerial:
		return "serial"
	}
	return "unknown"
}

// ColumnTypeIdentity is the logical type of the engine managed identity column.
// It is not part of VALID_COLUMN_TYPES so callers can never declare it.
const ColumnTypeIdentity ColumnType = "identity"

func (k Kind) MarshalText() ([]byte, error) {
	if k < KindText || k > KindSerial {
		return nil, fmt.Errorf("invalid kind: %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for _, v := range []Kind{KindText, KindReal, KindBool, KindSerial} {
		if v.String() == string(text) {
			*k = v
			return nil
		}
	}
	return fmt.Errorf("invalid kind: %s", text)
}
