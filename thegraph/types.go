package thegraph

import "fmt"

// BlockPointer identifies the exact chain state a query result reflects: a
// block number plus the hash observed at that height.
type BlockPointer struct {
	Number uint64 `json:"number"`
	Hash   string `json:"hash"`
}

func (b BlockPointer) String() string {
	return fmt.Sprintf("%d (%s)", b.Number, b.Hash)
}

// Meta is the response shape of the subgraph `_meta` field, which reports the
// block a query was effectively executed against.
type Meta struct {
	Block BlockPointer `json:"block"`
}
