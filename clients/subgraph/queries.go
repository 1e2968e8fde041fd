package subgraph

import (
	"encoding/json"
	"fmt"

	"github.com/graphfleet/sgclient/graphql"
	"github.com/graphfleet/sgclient/thegraph"
)

// metaQueryDocument resolves the latest block the subgraph has indexed.
// Subgraphs can fall behind the chain head, so the `_meta` field is the only
// trustworthy source for the block a query executes against.
const metaQueryDocument graphql.Document = `{ meta: _meta { block { number hash } } }`

type metaQueryResponse struct {
	Meta *thegraph.Meta `json:"meta"`
}

type blockHeightKind uint8

const (
	latestHeight blockHeightKind = iota
	hashHeight
	numberHeight
	numberGteHeight
)

// BlockHeight selects the block at which a query executes. The zero value
// selects the latest block.
type BlockHeight struct {
	kind   blockHeightKind
	hash   string
	number uint64
}

// LatestBlockHeight executes against the latest block the subgraph knows of.
func LatestBlockHeight() BlockHeight {
	return BlockHeight{kind: latestHeight}
}

// AtHash pins execution to the block with the given hash.
func AtHash(hash string) BlockHeight {
	return BlockHeight{kind: hashHeight, hash: hash}
}

// AtNumber pins execution to the block at the given height.
func AtNumber(number uint64) BlockHeight {
	return BlockHeight{kind: numberHeight, number: number}
}

// AtNumberGte executes against any block at or above the given height.
func AtNumberGte(number uint64) BlockHeight {
	return BlockHeight{kind: numberGteHeight, number: number}
}

// MarshalJSON produces the one-entry `Block_height` input object the graph
// service expects. Latest serialises to an empty object.
func (b BlockHeight) MarshalJSON() ([]byte, error) {
	switch b.kind {
	case hashHeight:
		return json.Marshal(map[string]string{"hash": b.hash})
	case numberHeight:
		return json.Marshal(map[string]uint64{"number": b.number})
	case numberGteHeight:
		return json.Marshal(map[string]uint64{"number_gte": b.number})
	default:
		return []byte("{}"), nil
	}
}

// pageQueryDocument wraps the caller's entity query so that every page
// carries the block anchor it was executed against.
func pageQueryDocument(query graphql.Document) graphql.Document {
	return graphql.Document(fmt.Sprintf(
		`query ($block: Block_height!, $first: Int!, $last: String!) {
    meta: _meta(block: $block) { block { number hash } }
    results: %s
}`, query))
}

func pageQueryRequest(query graphql.Document, block BlockHeight, first int, last string) *graphql.RequestParameters {
	return &graphql.RequestParameters{
		Query: pageQueryDocument(query),
		Variables: map[string]any{
			"block": block,
			"first": first,
			"last":  last,
		},
	}
}

type pageQueryResponse struct {
	Meta    *thegraph.Meta    `json:"meta"`
	Results []json.RawMessage `json:"results"`
}

// opaqueEntry is the minimal shape of a page entry, used to extract the
// cursor for the next page.
type opaqueEntry struct {
	ID string `json:"id"`
}
