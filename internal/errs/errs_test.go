package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/tobsdb/dynatable/internal/errs"
	"gotest.tools/assert"
)

func TestErrorIs(t *testing.T) {
	err := errs.Newf(errs.KindNotEmpty, "Table '%s' contains rows", "a")
	assert.Assert(t, errors.Is(err, errs.ErrNotEmpty))
	assert.Assert(t, !errors.Is(err, errs.ErrTableNotFound))

	wrapped := fmt.Errorf("updating: %w", err)
	assert.Assert(t, errors.Is(wrapped, errs.ErrNotEmpty))
	assert.Equal(t, errs.KindOf(wrapped), errs.KindNotEmpty)
}

func TestStorage(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := errs.Storage(cause, "inserting row")
	assert.Assert(t, errors.Is(err, errs.ErrStorageFailure))
	assert.Assert(t, errors.Is(err, cause))
	assert.Error(t, err, "inserting row: disk I/O error")

	t.Run("keeps existing kind", func(t *testing.T) {
		typed := errs.New(errs.KindTableNotFound, "Table not found")
		assert.Equal(t, errs.Storage(typed, "ignored"), error(typed))
	})

	t.Run("nil", func(t *testing.T) {
		assert.NilError(t, errs.Storage(nil, "nothing"))
	})
}

func TestStatus(t *testing.T) {
	assert.Equal(t, errs.ErrTableNotFound.Status(), http.StatusNotFound)
	assert.Equal(t, errs.ErrRelationAlreadyExists.Status(), http.StatusConflict)
	assert.Equal(t, errs.ErrNotEmpty.Status(), http.StatusBadRequest)
	assert.Equal(t, errs.ErrStorageFailure.Status(), http.StatusInternalServerError)
	assert.Equal(t, errs.KindOf(errors.New("plain")), errs.KindStorageFailure)
}

func TestEmptyMessage(t *testing.T) {
	assert.Error(t, errs.ErrUnknownColumn, "UnknownColumn")
}
