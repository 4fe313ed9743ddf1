package client

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	ws "github.com/gorilla/websocket"
)

type WsResponse struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Error     string `json:"error"`
	Data      any    `json:"data"`
	RequestId int64  `json:"__tdb_client_req_id__"`
}

func (r WsResponse) Err() error {
	if r.Status < 400 {
		return nil
	}
	return &ResponseError{Status: r.Status, Kind: r.Error, Message: r.Message}
}

// WsClient sends one action at a time over a websocket connection.
type WsClient struct {
	locker sync.Mutex
	// The websocket connection used by the client
	conn   *ws.Conn
	Url    *url.URL
	req_id int64
}

// NewWsClient accepts the server's http(s) or ws(s) address.
func NewWsClient(host string) (*WsClient, error) {
	Url, err := url.Parse(strings.TrimSuffix(host, "/"))
	if err != nil {
		return nil, err
	}
	switch Url.Scheme {
	case "http":
		Url.Scheme = "ws"
	case "https":
		Url.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported host scheme %q", Url.Scheme)
	}
	Url.Path += "/ws"
	return &WsClient{Url: Url}, nil
}

func (c *WsClient) Connect() error {
	c.locker.Lock()
	defer c.locker.Unlock()
	if c.conn != nil {
		return nil
	}
	conn, _, err := ws.DefaultDialer.Dial(c.Url.String(), nil)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

func (c *WsClient) Disconnect() error {
	c.locker.Lock()
	defer c.locker.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.WriteMessage(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, "Disconnect"))
	if close_err := c.conn.Close(); err == nil {
		err = close_err
	}
	c.conn = nil
	return err
}

type action string

const (
	actionCreateTable   action = "createTable"
	actionUpdateTable   action = "updateTable"
	actionAddRow        action = "addRow"
	actionGetRows       action = "getRows"
	actionDescribeTable action = "describeTable"
	actionListTables    action = "listTables"
)

func (c *WsClient) query(a action, fields map[string]any) (WsResponse, error) {
	if err := c.Connect(); err != nil {
		return WsResponse{}, err
	}

	c.locker.Lock()
	defer c.locker.Unlock()
	if c.conn == nil {
		return WsResponse{}, fmt.Errorf("Not connected")
	}

	c.req_id++
	fields["action"] = a
	fields["__tdb_client_req_id__"] = c.req_id
	if err := c.conn.WriteJSON(fields); err != nil {
		return WsResponse{}, err
	}

	var res WsResponse
	if err := c.conn.ReadJSON(&res); err != nil {
		return res, err
	}
	if res.RequestId != c.req_id {
		return res, fmt.Errorf("response for request %d, expected %d", res.RequestId, c.req_id)
	}
	return res, res.Err()
}

func (c *WsClient) CreateTable(table_id string, columns []Column) (WsResponse, error) {
	return c.query(actionCreateTable, map[string]any{"table_id": table_id, "columns": columns})
}

func (c *WsClient) UpdateTable(table_id string, columns []Column) (WsResponse, error) {
	return c.query(actionUpdateTable, map[string]any{"table_id": table_id, "columns": columns})
}

func (c *WsClient) AddRow(table_id string, row Row) (WsResponse, error) {
	return c.query(actionAddRow, map[string]any{"table_id": table_id, "row": row})
}

func (c *WsClient) GetRows(table_id string) (WsResponse, error) {
	return c.query(actionGetRows, map[string]any{"table_id": table_id})
}

func (c *WsClient) DescribeTable(table_id string) (WsResponse, error) {
	return c.query(actionDescribeTable, map[string]any{"table_id": table_id})
}

func (c *WsClient) ListTables() (WsResponse, error) {
	return c.query(actionListTables, map[string]any{})
}
