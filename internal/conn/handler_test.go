package conn_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	. "github.com/tobsdb/dynatable/internal/conn"
	"github.com/tobsdb/dynatable/internal/engine"
	"github.com/tobsdb/dynatable/internal/storage/memory"
	"github.com/tobsdb/dynatable/pkg"
	"gotest.tools/assert"
)

func init() { pkg.SetLogLevel(pkg.LogLevelNone) }

func newTestEngine(t *testing.T) *engine.Engine {
	backend, err := memory.New(nil)
	assert.NilError(t, err)
	e := engine.New(backend, nil)
	t.Cleanup(func() { e.Close() })
	return e
}

func reqEncode(action RequestAction, fields map[string]any) []byte {
	fields["action"] = action
	v, _ := json.Marshal(fields)
	return v
}

var testColumns = []map[string]any{{"name": "email", "type": "string"}, {"name": "age", "type": "number"}}

func TestActionHandler(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	res := ActionHandler(ctx, e, RequestActionCreateTable,
		reqEncode(RequestActionCreateTable, map[string]any{"table_id": "people", "columns": testColumns}))
	assert.Equal(t, res.Status, http.StatusCreated, res.Message)
	assert.DeepEqual(t, res.Data, map[string]any{"table_id": "people"})

	t.Run("create existing", func(t *testing.T) {
		res := ActionHandler(ctx, e, RequestActionCreateTable,
			reqEncode(RequestActionCreateTable, map[string]any{"table_id": "people", "columns": testColumns}))
		assert.Equal(t, res.Status, http.StatusConflict, res.Message)
		assert.Equal(t, res.Error, "RelationAlreadyExists")
	})

	t.Run("add row", func(t *testing.T) {
		res := ActionHandler(ctx, e, RequestActionAddRow,
			reqEncode(RequestActionAddRow, map[string]any{"table_id": "people", "row": map[string]any{"email": "a@b.com", "age": 55}}))
		assert.Equal(t, res.Status, http.StatusCreated, res.Message)
		assert.DeepEqual(t, res.Data, map[string]any{"row_id": int64(1)})
	})

	t.Run("get rows", func(t *testing.T) {
		res := ActionHandler(ctx, e, RequestActionGetRows,
			reqEncode(RequestActionGetRows, map[string]any{"table_id": "people"}))
		assert.Equal(t, res.Status, http.StatusOK, res.Message)
		data := res.Data.(map[string]any)
		assert.Equal(t, res.Message, "Found 1 rows in table people")
		assert.Equal(t, len(data["rows"].([]pkg.Map[string, any])), 1)
	})

	t.Run("update non-empty", func(t *testing.T) {
		res := ActionHandler(ctx, e, RequestActionUpdateTable,
			reqEncode(RequestActionUpdateTable, map[string]any{
				"table_id": "people", "columns": []map[string]any{{"name": "phone", "type": "string"}},
			}))
		assert.Equal(t, res.Status, http.StatusBadRequest, res.Message)
		assert.Equal(t, res.Error, "NotEmpty")
	})

	t.Run("list tables", func(t *testing.T) {
		res := ActionHandler(ctx, e, RequestActionListTables, reqEncode(RequestActionListTables, map[string]any{}))
		assert.Equal(t, res.Status, http.StatusOK, res.Message)
		assert.DeepEqual(t, res.Data, map[string]any{"tables": []string{"people"}})
	})

	t.Run("describe missing", func(t *testing.T) {
		res := ActionHandler(ctx, e, RequestActionDescribeTable,
			reqEncode(RequestActionDescribeTable, map[string]any{"table_id": "nope"}))
		assert.Equal(t, res.Status, http.StatusNotFound, res.Message)
		assert.Equal(t, res.Message, "Table 'nope' not found")
	})

	t.Run("unknown action", func(t *testing.T) {
		res := ActionHandler(ctx, e, "dropTable", []byte(`{}`))
		assert.Equal(t, res.Status, http.StatusBadRequest)
		assert.Equal(t, res.Message, "unknown action: dropTable")
	})

	t.Run("invalid json", func(t *testing.T) {
		res := ActionHandler(ctx, e, RequestActionAddRow, []byte(`{"row":`))
		assert.Equal(t, res.Status, http.StatusBadRequest)
	})
}

func TestColumnValidation(t *testing.T) {
	long := make([]byte, MAX_COLUMN_NAME_LENGTH+1)
	for i := range long {
		long[i] = 'a'
	}

	cases := []struct {
		name    string
		columns ColumnList
		err     string
	}{
		{"empty", ColumnList{}, "At least one column is required"},
		{"no name", ColumnList{{Type: "string"}}, "Column 0: name is required"},
		{"long name", ColumnList{{Name: string(long), Type: "string"}}, "Column 0: name must be at most 100 characters"},
		{"bad type", ColumnList{{Name: "a", Type: "date"}}, `Column a: "date" is not a valid type`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.ErrorContains(t, c.columns.Validate(), c.err)
		})
	}

	assert.NilError(t, ColumnList{{Name: string(long[:100]), Type: "boolean"}}.Validate())
}

func TestCreateTableRequestForms(t *testing.T) {
	var req CreateTableRequest
	assert.NilError(t, json.Unmarshal([]byte(`[{"name":"a","type":"string"}]`), &req))
	assert.Equal(t, req.TableID, "")
	assert.DeepEqual(t, req.Columns, ColumnList{{Name: "a", Type: "string"}})

	req = CreateTableRequest{}
	assert.NilError(t, json.Unmarshal([]byte(` {"table_id":"t","columns":[{"name":"b","type":"number"}]}`), &req))
	assert.Equal(t, req.TableID, "t")
	assert.DeepEqual(t, req.Columns, ColumnList{{Name: "b", Type: "number"}})
}
