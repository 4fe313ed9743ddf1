package conn

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tobsdb/dynatable/internal/errs"
	"github.com/tobsdb/dynatable/pkg"
)

type Response struct {
	Data    any    `json:"data"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	// category of the error kind, empty on success
	Error string `json:"error,omitempty"`
	// don't manually set this. it comes from the client
	ReqId int `json:"__tdb_client_req_id__,omitempty"`
}

func NewErrorResponse(status int, err string) Response {
	return Response{Message: err, Status: status}
}

func NewResponse(status int, message string, data any) Response {
	return Response{Data: data, Message: message, Status: status}
}

// NewEngineErrorResponse maps an engine error to its status and category.
func NewEngineErrorResponse(err error) Response {
	var e *errs.Error
	if !errors.As(err, &e) {
		return Response{Message: err.Error(), Status: http.StatusInternalServerError,
			Error: errs.KindStorageFailure.Category()}
	}
	return Response{Message: e.Error(), Status: e.Status(), Error: e.Kind.Category()}
}

func (r Response) Marshal() []byte {
	data, err := json.Marshal(r)
	if err != nil {
		pkg.ErrorLog("marshalling response", err)
		return []byte(`{"message":"failed to encode response","status":500}`)
	}
	return data
}

func (r Response) IsError() bool { return r.Status >= http.StatusBadRequest }

// WriteHTTP writes r's data as the body on success, the whole envelope otherwise.
func (r Response) WriteHTTP(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.Status)
	if r.IsError() {
		w.Write(r.Marshal())
		return
	}
	if err := json.NewEncoder(w).Encode(r.Data); err != nil {
		pkg.ErrorLog("writing response", err)
	}
}
