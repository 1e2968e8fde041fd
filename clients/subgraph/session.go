package subgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/graphfleet/sgclient/graphql"
	"github.com/graphfleet/sgclient/thegraph"
	"go.uber.org/zap"
)

// Error message returned by graph-node when the block hash a query is pinned
// to is no longer on the canonical chain, typically after a reorg.
const reorgErrorMessage = "no block with that hash found"

// SessionState is the lifecycle state of a Session. Done, ReorgAborted and
// Failed are terminal.
type SessionState uint8

const (
	StateInit SessionState = iota
	StateFetchingPage
	StateMerging
	StateDone
	StateReorgAborted
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateFetchingPage:
		return "fetching_page"
	case StateMerging:
		return "merging"
	case StateDone:
		return "done"
	case StateReorgAborted:
		return "reorg_aborted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrSessionConsumed: a session reached a terminal state and cannot run
	// again.
	ErrSessionConsumed = errors.New("session already consumed")

	// ErrInvalidPageSize: page size must be at least 1.
	ErrInvalidPageSize = errors.New("page size must be greater than zero")

	// ErrMissingBlockAnchor: the response omitted the `_meta` block even
	// though the query requested it. The service response is malformed.
	ErrMissingBlockAnchor = errors.New("response is missing the block anchor")

	// ErrMissingCursor: a page entry carried no `id` field, so the next page
	// cannot be addressed.
	ErrMissingCursor = errors.New("page entry is missing the id cursor field")
)

// ReorgError reports a chain reorganisation detected between pages. The
// entities accumulated so far are provably inconsistent and are discarded;
// retrying the whole session from scratch is the expected recovery.
type ReorgError struct {
	BlockNumber uint64
	PrevHash    string
	NewHash     string
}

func (e *ReorgError) Error() string {
	if e.NewHash == "" || e.NewHash == e.PrevHash {
		return fmt.Sprintf("reorg detected at block %d (%s)", e.BlockNumber, e.PrevHash)
	}
	return fmt.Sprintf("reorg detected at block %d: hash changed from %s to %s",
		e.BlockNumber, e.PrevHash, e.NewHash)
}

// Session drives one multi-page query under a single block anchor.
//
// The first page establishes the anchor, even when the caller asked for the
// latest block; every later page is pinned to the observed block hash and
// checked against the running anchor. A Session is single-use: once Run
// returns, the session is consumed.
type Session[T any] struct {
	client   *Client
	query    graphql.Document
	pageSize int

	state   SessionState
	height  BlockHeight
	anchor  *thegraph.BlockPointer
	lastID  string
	results []T
	err     error
}

// NewSession prepares a paginated query for the given entity query, anchored
// at the given block height.
func NewSession[T any](c *Client, query graphql.Document, pageSize int, height BlockHeight) *Session[T] {
	return &Session[T]{
		client:   c,
		query:    query,
		pageSize: pageSize,
		state:    StateInit,
		height:   height,
	}
}

// State reports the session's current lifecycle state.
func (s *Session[T]) State() SessionState {
	return s.state
}

// Err returns the error that drove the session to ReorgAborted or Failed.
func (s *Session[T]) Err() error {
	return s.err
}

// Run fetches pages until the query is exhausted and returns the merged
// entities, in page order, together with the block anchor they reflect.
//
// An empty page, including an immediate empty first page, terminates the
// session successfully. On reorg or failure no partial results are returned.
// Cancelling the context stops the session before the next page fetch.
func (s *Session[T]) Run(ctx context.Context) ([]T, *thegraph.BlockPointer, error) {
	if s.state != StateInit {
		return nil, nil, ErrSessionConsumed
	}
	if s.pageSize < 1 {
		return nil, nil, s.fail(ErrInvalidPageSize)
	}

	for {
		s.state = StateFetchingPage
		page, err := s.fetchPage(ctx)
		if err != nil {
			return nil, nil, s.terminate(err)
		}

		if len(page.Results) == 0 {
			// A short page is always followed by one confirming fetch; an
			// empty page is the non-erroneous terminator.
			s.state = StateDone
			return s.results, s.anchor, nil
		}

		s.state = StateMerging
		if err := s.merge(page); err != nil {
			return nil, nil, s.terminate(err)
		}
	}
}

// fetchPage issues one page request at the session's current block height and
// classifies the response.
func (s *Session[T]) fetchPage(ctx context.Context) (*pageQueryResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.client.log.Debug("Sending page query",
		zap.Uint64("anchorBlock", s.anchorNumber()),
		zap.String("lastID", s.lastID),
	)

	raw, err := s.client.post(ctx, "page_query", pageQueryRequest(s.query, s.height, s.pageSize, s.lastID))
	if err != nil {
		return nil, err
	}

	outcome := graphql.Classify(raw)
	switch outcome.Kind {
	case graphql.Rejected:
		// graph-node reports a vanished pinned hash as a request error.
		for i := range outcome.Errors {
			if strings.Contains(outcome.Errors[i].Message, reorgErrorMessage) {
				s.client.listener.OnReorgDetected(s.anchorNumber())
				return nil, &ReorgError{BlockNumber: s.anchorNumber(), PrevHash: s.anchorHash()}
			}
		}
		return nil, outcome.Err()
	case graphql.TransportFailure:
		return nil, outcome.Err()
	}

	// Completed and CompletedWithErrors both carry a usable data payload.
	var page pageQueryResponse
	if err := json.Unmarshal(outcome.Data, &page); err != nil {
		return nil, fmt.Errorf("decoding page response: %w", err)
	}
	if page.Meta == nil {
		return nil, ErrMissingBlockAnchor
	}
	return &page, nil
}

// merge checks the page's block anchor against the running one, then appends
// the page's entities and advances the cursor.
func (s *Session[T]) merge(page *pageQueryResponse) error {
	block := page.Meta.Block
	switch {
	case s.anchor == nil:
		// First page pins the anchor.
		s.anchor = &thegraph.BlockPointer{Number: block.Number, Hash: block.Hash}
	case block.Number < s.anchor.Number,
		block.Number == s.anchor.Number && block.Hash != s.anchor.Hash:
		s.client.listener.OnReorgDetected(block.Number)
		return &ReorgError{BlockNumber: block.Number, PrevHash: s.anchor.Hash, NewHash: block.Hash}
	}
	// Later pages are pinned to the observed hash.
	s.height = AtHash(s.anchor.Hash)

	var last opaqueEntry
	if err := json.Unmarshal(page.Results[len(page.Results)-1], &last); err != nil {
		return fmt.Errorf("extracting cursor from last page entry: %w", err)
	}
	if last.ID == "" {
		return ErrMissingCursor
	}
	s.lastID = last.ID

	for _, raw := range page.Results {
		var entity T
		if err := json.Unmarshal(raw, &entity); err != nil {
			return fmt.Errorf("decoding page entity: %w", err)
		}
		s.results = append(s.results, entity)
	}

	s.client.log.Debug("Merged page query response",
		zap.Uint64("blockNumber", block.Number),
		zap.String("blockHash", block.Hash),
		zap.Int("pageItemsCount", len(page.Results)),
		zap.String("lastItemID", s.lastID),
	)
	return nil
}

// terminate moves the session to the terminal state matching err and discards
// any partially merged results.
func (s *Session[T]) terminate(err error) error {
	var reorg *ReorgError
	if errors.As(err, &reorg) {
		s.state = StateReorgAborted
	} else {
		s.state = StateFailed
	}
	s.err = err
	s.results = nil
	return err
}

func (s *Session[T]) fail(err error) error {
	s.state = StateFailed
	s.err = err
	return err
}

func (s *Session[T]) anchorNumber() uint64 {
	if s.anchor == nil {
		return 0
	}
	return s.anchor.Number
}

func (s *Session[T]) anchorHash() string {
	if s.anchor == nil {
		return ""
	}
	return s.anchor.Hash
}

// PaginatedQuery runs a consistency session over the given entity query,
// bootstrapping the block anchor from the subgraph's latest indexed block.
//
// The entity query must select entities ordered by id ascending and filtered
// with `id_gt: $last`, and every selection must include the `id` field, e.g.:
//
//	subgraphs(block: $block, orderBy: id, orderDirection: asc, first: $first, where: { id_gt: $last }) {
//	    id
//	}
func PaginatedQuery[T any](ctx context.Context, c *Client, query graphql.Document, pageSize int) ([]T, error) {
	latest := c.latestBlockNumber()
	if latest == 0 {
		// graph-node rejects number_gte:0 on subgraphs with a later
		// startBlock, so the anchor is bootstrapped from a meta query.
		c.log.Debug("Sending bootstrap meta query")
		block, err := c.LatestBlock(ctx)
		if err != nil {
			return nil, fmt.Errorf("bootstrap meta query: %w", err)
		}
		c.log.Debug("Received bootstrap meta query response",
			zap.Uint64("blockNumber", block.Number),
			zap.String("blockHash", block.Hash),
		)
		latest = block.Number
	}

	session := NewSession[T](c, query, pageSize, AtNumberGte(latest))
	results, anchor, err := session.Run(ctx)
	if err != nil {
		return nil, err
	}
	if anchor != nil {
		c.updateLatestBlock(anchor.Number)
	}
	c.log.Debug("Paginated query complete", zap.Int("totalItemsCount", len(results)))
	return results, nil
}
