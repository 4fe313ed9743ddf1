// Package client talks to a DynaTable server.
//
// Client uses the REST api:
//
//	c, err := client.New("http://localhost:7085")
//	table_id, err := c.CreateTable(ctx, "", []client.Column{{Name: "email", Type: "string"}})
//	row_id, err := c.AddRow(ctx, table_id, map[string]any{"email": "a@b.com"})
//
// WsClient sends the same operations as actions over one websocket connection.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Row = map[string]any

// ResponseError is returned for every non-2xx answer.
type ResponseError struct {
	Status int
	// error category reported by the server, e.g. NotEmpty
	Kind    string
	Message string
}

func (e *ResponseError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("dynatable: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("dynatable: %d %s: %s", e.Status, e.Kind, e.Message)
}

type Client struct {
	base *url.URL
	http *http.Client
}

func New(host string) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(host, "/"))
	if err != nil {
		return nil, err
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported host scheme %q", base.Scheme)
	}
	return &Client{base: base, http: &http.Client{Timeout: 30 * time.Second}}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode >= http.StatusBadRequest {
		var envelope struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) != nil || envelope.Message == "" {
			envelope.Message = strings.TrimSpace(string(raw))
		}
		return &ResponseError{Status: res.StatusCode, Kind: envelope.Error, Message: envelope.Message}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func tablePath(table_id string) string { return "/api/table/" + url.PathEscape(table_id) }

// CreateTable creates a table. An empty table_id lets the server pick one.
func (c *Client) CreateTable(ctx context.Context, table_id string, columns []Column) (string, error) {
	var body any = columns
	if table_id != "" {
		body = map[string]any{"table_id": table_id, "columns": columns}
	}
	var res struct {
		TableID string `json:"table_id"`
	}
	err := c.do(ctx, http.MethodPost, "/api/table", body, &res)
	return res.TableID, err
}

func (c *Client) UpdateTable(ctx context.Context, table_id string, columns []Column) error {
	return c.do(ctx, http.MethodPut, tablePath(table_id), columns, nil)
}

func (c *Client) AddRow(ctx context.Context, table_id string, row Row) (int64, error) {
	var res struct {
		RowID int64 `json:"row_id"`
	}
	err := c.do(ctx, http.MethodPost, tablePath(table_id)+"/row", row, &res)
	return res.RowID, err
}

func (c *Client) GetRows(ctx context.Context, table_id string) ([]Row, error) {
	var res struct {
		Rows []Row `json:"rows"`
	}
	err := c.do(ctx, http.MethodGet, tablePath(table_id)+"/rows", nil, &res)
	return res.Rows, err
}

func (c *Client) DescribeTable(ctx context.Context, table_id string) ([]Column, error) {
	var res struct {
		Columns []Column `json:"columns"`
	}
	err := c.do(ctx, http.MethodGet, tablePath(table_id), nil, &res)
	return res.Columns, err
}

type ProjectStatus struct {
	Status  string `json:"status"`
	App     string `json:"app"`
	Version string `json:"version"`
	Tables  int    `json:"tables"`
}

func (c *Client) ProjectStatus(ctx context.Context) (ProjectStatus, error) {
	var res ProjectStatus
	err := c.do(ctx, http.MethodGet, "/api/project-status", nil, &res)
	return res, err
}
