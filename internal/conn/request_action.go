package conn

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tobsdb/dynatable/internal/engine"
)

type RequestAction string

const (
	// table actions
	RequestActionCreateTable   RequestAction = "createTable"
	RequestActionUpdateTable   RequestAction = "updateTable"
	RequestActionDescribeTable RequestAction = "describeTable"
	RequestActionListTables    RequestAction = "listTables"

	// row actions
	RequestActionAddRow  RequestAction = "addRow"
	RequestActionGetRows RequestAction = "getRows"
)

// ActionHandler decodes raw as the request of action and runs it.
func ActionHandler(ctx context.Context, e *engine.Engine, action RequestAction, raw []byte) Response {
	badRequest := func(err error) Response {
		return NewErrorResponse(http.StatusBadRequest, err.Error())
	}

	switch action {
	case RequestActionCreateTable:
		var req CreateTableRequest
		if err := decodeJSON(raw, &req); err != nil {
			return badRequest(err)
		}
		return CreateTableReqHandler(ctx, e, req)
	case RequestActionUpdateTable:
		var req UpdateTableRequest
		if err := decodeJSON(raw, &req); err != nil {
			return badRequest(err)
		}
		return UpdateTableReqHandler(ctx, e, req)
	case RequestActionAddRow:
		var req AddRowRequest
		if err := decodeJSON(raw, &req); err != nil {
			return badRequest(err)
		}
		return AddRowReqHandler(ctx, e, req)
	case RequestActionGetRows:
		var req TableRequest
		if err := decodeJSON(raw, &req); err != nil {
			return badRequest(err)
		}
		return GetRowsReqHandler(ctx, e, req)
	case RequestActionDescribeTable:
		var req TableRequest
		if err := decodeJSON(raw, &req); err != nil {
			return badRequest(err)
		}
		return DescribeTableReqHandler(e, req)
	case RequestActionListTables:
		return ListTablesReqHandler(e)
	default:
		return NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("unknown action: %s", action))
	}
}
