package main

import (
	"bytes"
	"testing"

	"github.com/tobsdb/dynatable/internal/config"
	"gotest.tools/assert"
)

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	assert.NilError(t, root.Execute())
	assert.Equal(t, out.String(), "dynatable dev\n")
}

func TestSimulateRequiresHost(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"simulate", "--tables", "2"})
	assert.ErrorContains(t, root.Execute(), `required flag(s) "host" not set`)
}

func TestOpenBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = config.BackendMemory
	b, err := openBackend(cfg)
	assert.NilError(t, err)
	assert.NilError(t, b.Close())

	cfg = config.Default()
	cfg.SQLite.Path = t.TempDir() + "/serve.sqlite"
	b, err = openBackend(cfg)
	assert.NilError(t, err)
	assert.NilError(t, b.Close())

	cfg.Backend = "postgres"
	_, err = openBackend(cfg)
	assert.ErrorContains(t, err, "unknown backend")
}
