// Package schema models the logical shape of a dynamic table and maps it
// onto storage column kinds.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/tobsdb/dynatable/internal/errs"
	"github.com/tobsdb/dynatable/internal/storage"
	"github.com/tobsdb/dynatable/internal/types"
	"github.com/tobsdb/dynatable/pkg"
)

type Column struct {
	Name string           `json:"name"`
	Type types.ColumnType `json:"type"`
}

func (c Column) String() string { return fmt.Sprintf("%s %s", c.Name, c.Type) }

// TableSchema is the ordered set of caller defined columns of a table.
// The identity column is implicit and always comes first physically.
//
// A TableSchema is never modified once built; Merge returns a new one.
type TableSchema struct {
	columns *pkg.InsertSortMap[string, Column]
}

// NewTableSchema validates a caller supplied column list.
//
// Column types must be one of the logical types and names must be unique,
// the identity column name included.
func NewTableSchema(columns []Column) (*TableSchema, error) {
	s := &TableSchema{columns: pkg.NewInsertSortMap[string, Column]()}
	for _, c := range columns {
		if err := checkColumn(c); err != nil {
			return nil, err
		}
		if !s.columns.Push(c.Name, c) {
			return nil, errs.Newf(errs.KindDuplicateColumnName, "Duplicate column %s", c.Name)
		}
	}
	return s, nil
}

func checkColumn(c Column) error {
	if !c.Type.IsValid() {
		return errs.Newf(errs.KindUnknownColumnType, "Invalid column type for %s: %q", c.Name, c.Type)
	}
	if c.Name == IDENTITY_COLUMN {
		return errs.Newf(errs.KindDuplicateColumnName,
			"Column name %s is reserved for the identity column", IDENTITY_COLUMN)
	}
	return nil
}

// Columns returns the caller defined columns in order.
func (s *TableSchema) Columns() []Column { return s.columns.Values() }

// All returns every column, identity first.
func (s *TableSchema) All() []Column {
	return append([]Column{IdentityColumn()}, s.columns.Values()...)
}

func (s *TableSchema) Len() int { return s.columns.Len() }

// Column looks up a column by name, the identity column included.
func (s *TableSchema) Column(name string) (Column, bool) {
	if name == IDENTITY_COLUMN {
		return IdentityColumn(), true
	}
	if !s.columns.Has(name) {
		return Column{}, false
	}
	return s.columns.Get(name), true
}

func (s *TableSchema) Has(name string) bool {
	_, ok := s.Column(name)
	return ok
}

// Merge builds the schema that results from applying new_columns to s.
//
// Existing columns keep their relative order. A new column with the name of an
// existing one replaces it in place, any other new column is appended.
// new_columns is validated the same way NewTableSchema validates a column list.
func (s *TableSchema) Merge(new_columns []Column) (*TableSchema, error) {
	if _, err := NewTableSchema(new_columns); err != nil {
		return nil, err
	}

	merged := &TableSchema{columns: s.columns.Clone()}
	for _, c := range new_columns {
		merged.columns.Put(c.Name, c)
	}
	return merged, nil
}

// StorageColumns maps every column, identity first, to its storage kind.
func (s *TableSchema) StorageColumns() ([]storage.Column, error) {
	all := s.All()
	cols := make([]storage.Column, 0, len(all))
	for _, c := range all {
		sc, err := StorageColumn(c)
		if err != nil {
			return nil, err
		}
		cols = append(cols, sc)
	}
	return cols, nil
}

// FromStorage rebuilds a schema from a relation's columns.
func FromStorage(columns []storage.Column) (*TableSchema, error) {
	s := &TableSchema{columns: pkg.NewInsertSortMap[string, Column]()}
	for _, sc := range columns {
		t, err := LogicalType(sc.Kind)
		if err != nil {
			return nil, err
		}
		if t == types.ColumnTypeIdentity {
			continue
		}
		if !s.columns.Push(sc.Name, Column{sc.Name, t}) {
			return nil, errs.Newf(errs.KindDuplicateColumnName, "Duplicate column %s", sc.Name)
		}
	}
	return s, nil
}

func (s *TableSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.All())
}
