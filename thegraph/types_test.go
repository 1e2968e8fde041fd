package thegraph_test

import (
	"encoding/json"
	"testing"

	"github.com/graphfleet/sgclient/thegraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockPointerString(t *testing.T) {
	block := thegraph.BlockPointer{Number: 1234, Hash: "0xdeadbeef"}
	assert.Equal(t, "1234 (0xdeadbeef)", block.String())
}

func TestMetaUnmarshal(t *testing.T) {
	var meta thegraph.Meta
	require.NoError(t, json.Unmarshal(
		[]byte(`{"block":{"number":42,"hash":"0xff"}}`), &meta))
	assert.Equal(t, uint64(42), meta.Block.Number)
	assert.Equal(t, "0xff", meta.Block.Hash)
}
