package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/graphfleet/sgclient/graphql"
	"github.com/graphfleet/sgclient/thegraph"
	"github.com/graphfleet/sgclient/utils"
	"go.uber.org/zap"
)

type Backoff func(wait time.Duration) time.Duration

func ExponentialBackoff(wait time.Duration) time.Duration {
	return wait * 2
}

func NopBackoff(d time.Duration) time.Duration {
	return 0
}

// Client sends GraphQL-over-HTTP queries to a single subgraph endpoint.
//
// The client owns no session state: concurrent sessions share it freely. The
// only mutable field is the latest-block watermark, which is monotonic and
// atomic.
type Client struct {
	url        string
	client     *http.Client
	backoff    Backoff
	maxRetries int
	maxWait    time.Duration
	minWait    time.Duration
	timeout    time.Duration
	authToken  string
	userAgent  string
	log        utils.StructuredLogger
	listener   EventListener

	// The latest block number the subgraph is known to have progressed to.
	// Updated after bootstrap queries and completed sessions, never decreases.
	latestBlock atomic.Uint64
}

func NewClient(subgraphURL string) *Client {
	return &Client{
		url:     strings.TrimSuffix(subgraphURL, "/"),
		client:  http.DefaultClient,
		backoff: ExponentialBackoff,
		// Retrying is the caller's policy to opt into. The default issues
		// every page request exactly once.
		maxRetries: 0,
		maxWait:    4 * time.Second,
		minWait:    500 * time.Millisecond,
		timeout:    10 * time.Second,
		log:        utils.NewNopZapLogger(),
		listener:   &SelectiveListener{},
	}
}

func (c *Client) WithListener(l EventListener) *Client {
	c.listener = l
	return c
}

func (c *Client) WithBackoff(b Backoff) *Client {
	c.backoff = b
	return c
}

func (c *Client) WithMaxRetries(num int) *Client {
	c.maxRetries = num
	return c
}

func (c *Client) WithMaxWait(d time.Duration) *Client {
	c.maxWait = d
	return c
}

func (c *Client) WithMinWait(d time.Duration) *Client {
	c.minWait = d
	return c
}

func (c *Client) WithLogger(log utils.StructuredLogger) *Client {
	c.log = log
	return c
}

func (c *Client) WithUserAgent(ua string) *Client {
	c.userAgent = ua
	return c
}

// WithTimeout sets the per-page request timeout. A session does not carry an
// overall deadline of its own; pass one in the context if needed.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

func (c *Client) WithAuthToken(token string) *Client {
	c.authToken = token
	return c
}

func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.client = client
	return c
}

// WithLatestBlock seeds the latest-block watermark, skipping the bootstrap
// meta query for the first paginated call.
func (c *Client) WithLatestBlock(number uint64) *Client {
	c.updateLatestBlock(number)
	return c
}

func (c *Client) latestBlockNumber() uint64 {
	return c.latestBlock.Load()
}

// updateLatestBlock raises the watermark to the given number. The watermark
// never decreases.
func (c *Client) updateLatestBlock(number uint64) uint64 {
	for {
		current := c.latestBlock.Load()
		if number <= current {
			return current
		}
		if c.latestBlock.CompareAndSwap(current, number) {
			return number
		}
	}
}

// post executes one GraphQL-over-HTTP POST and returns the raw transport
// result. Retries, when configured, apply only to transport-level failures
// (connection errors and 429 throttling); any response carrying a body is
// handed to the classifier untouched.
func (c *Client) post(ctx context.Context, op string, params *graphql.RequestParameters) (graphql.RawResponse, error) {
	body, err := params.MarshalBody()
	if err != nil {
		return graphql.RawResponse{}, fmt.Errorf("marshaling request parameters: %w", err)
	}

	var lastErr error
	wait := time.Duration(0)
	for attempt := 0; attempt < c.maxRetries+1; attempt++ {
		select {
		case <-ctx.Done():
			return graphql.RawResponse{}, ctx.Err()
		case <-time.After(wait):
		}

		reqTimer := time.Now()
		raw, err := c.doPost(ctx, body)
		if err == nil {
			c.listener.OnResponse(op, raw.StatusCode, time.Since(reqTimer))
			if raw.StatusCode != http.StatusTooManyRequests {
				return raw, nil
			}
			lastErr = &graphql.StatusError{StatusCode: raw.StatusCode, Body: string(raw.Body)}
		} else {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return graphql.RawResponse{}, ctxErr
			}
			lastErr = err
		}

		if wait < c.minWait {
			wait = c.minWait
		} else {
			wait = min(c.backoff(wait), c.maxWait)
		}
		c.log.Debug("Failed query to subgraph, retrying...",
			zap.String("op", op),
			zap.String("retryAfter", wait.String()),
			zap.Error(lastErr),
		)
	}
	return graphql.RawResponse{}, lastErr
}

func (c *Client) doPost(ctx context.Context, body []byte) (graphql.RawResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return graphql.RawResponse{}, err
	}
	req.Header.Set("Content-Type", graphql.RequestMediaType)
	req.Header.Set("Accept",
		graphql.ResponseMediaType+"; charset=utf-8, "+graphql.LegacyResponseMediaType+"; charset=utf-8")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return graphql.RawResponse{}, err
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return graphql.RawResponse{}, err
	}
	return graphql.RawResponse{StatusCode: res.StatusCode, Header: res.Header, Body: respBody}, nil
}

// Query sends a single (non-paginated) query and decodes the data payload
// into T. When the service reports errors alongside a data payload, the
// decoded partial data is returned together with a *graphql.PartialError.
func Query[T any](ctx context.Context, c *Client, params *graphql.RequestParameters) (T, error) {
	var result T

	raw, err := c.post(ctx, "query", params)
	if err != nil {
		return result, err
	}

	outcome := graphql.Classify(raw)
	if len(outcome.Data) > 0 {
		if err := json.Unmarshal(outcome.Data, &result); err != nil {
			var zero T
			return zero, fmt.Errorf("decoding response data: %w", err)
		}
	}
	return result, outcome.Err()
}

// LatestBlock resolves the latest block the subgraph has indexed via the
// `_meta` bootstrap query and raises the client's watermark to it.
func (c *Client) LatestBlock(ctx context.Context) (thegraph.BlockPointer, error) {
	res, err := Query[metaQueryResponse](ctx, c, graphql.NewRequest(metaQueryDocument))
	if err != nil {
		return thegraph.BlockPointer{}, err
	}
	if res.Meta == nil {
		return thegraph.BlockPointer{}, ErrMissingBlockAnchor
	}
	c.updateLatestBlock(res.Meta.Block.Number)
	return res.Meta.Block, nil
}
