package conn

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/tobsdb/dynatable/internal/query"
	"github.com/tobsdb/dynatable/internal/schema"
	"github.com/tobsdb/dynatable/internal/types"
)

const MAX_COLUMN_NAME_LENGTH = 100

type ColumnRequest struct {
	Name string           `json:"name"`
	Type types.ColumnType `json:"type"`
}

// ColumnList decodes from either a bare array of columns or {"columns": [...]}.
type ColumnList []ColumnRequest

type CreateTableRequest struct {
	TableID string     `json:"table_id"`
	Columns ColumnList `json:"columns"`
}

// UnmarshalJSON accepts a bare column array as well as the object form.
func (r *CreateTableRequest) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		return json.Unmarshal(data, &r.Columns)
	}
	type T CreateTableRequest
	return json.Unmarshal(data, (*T)(r))
}

type UpdateTableRequest = CreateTableRequest

type AddRowRequest struct {
	TableID string         `json:"table_id"`
	Row     query.QueryArg `json:"row"`
}

type TableRequest struct {
	TableID string `json:"table_id"`
}

func (columns ColumnList) Validate() error {
	if len(columns) == 0 {
		return fmt.Errorf("At least one column is required")
	}
	for i, c := range columns {
		if c.Name == "" {
			return fmt.Errorf("Column %d: name is required", i)
		}
		if utf8.RuneCountInString(c.Name) > MAX_COLUMN_NAME_LENGTH {
			return fmt.Errorf("Column %d: name must be at most %d characters", i, MAX_COLUMN_NAME_LENGTH)
		}
		if !c.Type.IsValid() {
			return fmt.Errorf("Column %s: %q is not a valid type, expected one of %v",
				c.Name, c.Type, types.VALID_COLUMN_TYPES)
		}
	}
	return nil
}

func (columns ColumnList) Schema() []schema.Column {
	s := make([]schema.Column, 0, len(columns))
	for _, c := range columns {
		s = append(s, schema.Column{Name: c.Name, Type: c.Type})
	}
	return s
}

// validateRow rejects explicit nulls, every value sent must be usable.
func validateRow(row query.QueryArg) error {
	if row == nil {
		return fmt.Errorf("Row must be an object")
	}
	for name, v := range row {
		if v == nil {
			return fmt.Errorf("Value of %s must not be null", name)
		}
	}
	return nil
}

// decodeJSON keeps numbers as json.Number so integers are not rounded
// before the row gateway sees them.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
