package simulate

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tobsdb/dynatable/internal/conn"
	"github.com/tobsdb/dynatable/internal/engine"
	"github.com/tobsdb/dynatable/internal/storage/memory"
	"github.com/tobsdb/dynatable/pkg"
	"github.com/tobsdb/dynatable/pkg/client"
	"gotest.tools/assert"
)

func newTestSimulator(t *testing.T) (*Simulator, *engine.Engine) {
	pkg.SetLogLevel(pkg.LogLevelNone)
	backend, err := memory.New(nil)
	assert.NilError(t, err)
	e := engine.New(backend, nil)
	t.Cleanup(func() { e.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv := httptest.NewServer(conn.NewServer(e, conn.ServerSettings{}).Router(ctx))
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL)
	assert.NilError(t, err)
	return New(c, 42), e
}

func TestRun(t *testing.T) {
	s, e := newTestSimulator(t)

	results, err := s.Run(context.Background(), 3)
	assert.NilError(t, err)
	assert.Equal(t, len(results), 3)
	assert.Equal(t, len(e.ListTables()), 3)

	for _, res := range results {
		assert.Assert(t, len(res.Columns) >= 2)
		assert.Equal(t, len(res.Rows), ROWS_PER_TABLE)
		for i, row := range res.Rows {
			assert.Equal(t, row["id"], float64(i+1))
			assert.Equal(t, len(row), len(res.Columns)+1)
		}
	}

	var out bytes.Buffer
	Show(&out, results[0])
	assert.Assert(t, strings.Contains(out.String(), "Table: '"+results[0].TableID+"'"))
	assert.Equal(t, strings.Count(out.String(), "\n  ["), ROWS_PER_TABLE)
}

func TestRunBounds(t *testing.T) {
	s, _ := newTestSimulator(t)

	_, err := s.Run(context.Background(), 0)
	assert.ErrorContains(t, err, "between 1 and 10")
	_, err = s.Run(context.Background(), 11)
	assert.ErrorContains(t, err, "between 1 and 10")
}
