package types_test

import (
	"encoding/json"
	"testing"

	"github.com/tobsdb/dynatable/internal/types"
	"gotest.tools/assert"
)

func TestColumnTypeIsValid(t *testing.T) {
	for _, valid := range []string{"string", "number", "boolean"} {
		assert.Assert(t, types.ColumnType(valid).IsValid(), valid)
	}
	for _, invalid := range []string{"String", "integer", "identity", ""} {
		assert.Assert(t, !types.ColumnType(invalid).IsValid(), invalid)
	}
}

func TestKindJSON(t *testing.T) {
	buf, err := json.Marshal([]types.Kind{types.KindText, types.KindSerial})
	assert.NilError(t, err)
	assert.Equal(t, string(buf), `["text","serial"]`)

	var kinds []types.Kind
	assert.NilError(t, json.Unmarshal(buf, &kinds))
	assert.DeepEqual(t, kinds, []types.Kind{types.KindText, types.KindSerial})

	assert.ErrorContains(t, json.Unmarshal([]byte(`["blob"]`), &kinds), "invalid kind")

	_, err = json.Marshal(types.Kind(0))
	assert.ErrorContains(t, err, "invalid kind")
}
