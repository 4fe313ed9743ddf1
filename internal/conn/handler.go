package conn

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tobsdb/dynatable/internal/engine"
)

func CreateTableReqHandler(ctx context.Context, e *engine.Engine, req CreateTableRequest) Response {
	if err := req.Columns.Validate(); err != nil {
		return NewErrorResponse(http.StatusBadRequest, err.Error())
	}

	table_id, err := e.CreateTable(ctx, req.Columns.Schema(), req.TableID)
	if err != nil {
		return NewEngineErrorResponse(err)
	}

	return NewResponse(
		http.StatusCreated,
		fmt.Sprintf("Created new table %s", table_id),
		map[string]any{"table_id": table_id},
	)
}

func UpdateTableReqHandler(ctx context.Context, e *engine.Engine, req UpdateTableRequest) Response {
	if err := req.Columns.Validate(); err != nil {
		return NewErrorResponse(http.StatusBadRequest, err.Error())
	}

	table_id, err := e.UpdateTableStructure(ctx, req.TableID, req.Columns.Schema())
	if err != nil {
		return NewEngineErrorResponse(err)
	}

	return NewResponse(
		http.StatusCreated,
		fmt.Sprintf("Updated structure of table %s", table_id),
		map[string]any{"table_id": table_id},
	)
}

func AddRowReqHandler(ctx context.Context, e *engine.Engine, req AddRowRequest) Response {
	if err := validateRow(req.Row); err != nil {
		return NewErrorResponse(http.StatusBadRequest, err.Error())
	}

	row_id, err := e.AddRow(ctx, req.TableID, req.Row)
	if err != nil {
		return NewEngineErrorResponse(err)
	}

	return NewResponse(
		http.StatusCreated,
		fmt.Sprintf("Created new row in table %s", req.TableID),
		map[string]any{"row_id": row_id},
	)
}

func GetRowsReqHandler(ctx context.Context, e *engine.Engine, req TableRequest) Response {
	rows, err := e.GetRows(ctx, req.TableID)
	if err != nil {
		return NewEngineErrorResponse(err)
	}

	return NewResponse(
		http.StatusOK,
		fmt.Sprintf("Found %d rows in table %s", len(rows), req.TableID),
		map[string]any{"table_id": req.TableID, "rows": rows},
	)
}

func DescribeTableReqHandler(e *engine.Engine, req TableRequest) Response {
	s, err := e.DescribeTable(req.TableID)
	if err != nil {
		return NewEngineErrorResponse(err)
	}

	return NewResponse(
		http.StatusOK,
		fmt.Sprintf("Table %s has %d columns", req.TableID, s.Len()),
		map[string]any{"table_id": req.TableID, "columns": s},
	)
}

func ListTablesReqHandler(e *engine.Engine) Response {
	ids := e.ListTables()
	return NewResponse(http.StatusOK, fmt.Sprintf("Found %d tables", len(ids)), map[string]any{"tables": ids})
}
