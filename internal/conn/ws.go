package conn

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tobsdb/dynatable/internal/engine"
	"github.com/tobsdb/dynatable/pkg"
)

type WsRequest struct {
	Action RequestAction `json:"action"`
	ReqId  int           `json:"__tdb_client_req_id__"` // used in tdb clients
}

var Upgrader = websocket.Upgrader{
	WriteBufferSize: 1024 * 10,
	ReadBufferSize:  1024 * 10,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// HandleWsConnection upgrades the request and serves one action per message
// until the client goes away.
func HandleWsConnection(e *engine.Engine, w http.ResponseWriter, r *http.Request) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		pkg.ErrorLog("upgrading connection", err)
		return
	}
	defer conn.Close()
	pkg.InfoLog("New connection from", r.RemoteAddr)
	defer pkg.InfoLog("Connection closed from", r.RemoteAddr)

	for {
		msg_type, buf, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				pkg.ErrorLog("conn read error", err)
			}
			return
		}
		if msg_type != websocket.TextMessage && msg_type != websocket.BinaryMessage {
			continue
		}

		var req WsRequest
		var res Response
		if err := json.Unmarshal(buf, &req); err != nil {
			pkg.ErrorLog("parsing request", err)
			res = NewErrorResponse(http.StatusBadRequest, err.Error())
		} else {
			res = ActionHandler(r.Context(), e, req.Action, buf)
			res.ReqId = req.ReqId
		}

		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, res.Marshal()); err != nil {
			pkg.ErrorLog("writing response", err)
			return
		}
	}
}
