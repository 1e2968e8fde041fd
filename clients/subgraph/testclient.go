package subgraph

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// NewTestClient returns a client backed by a test server running the given
// handler. The server is closed when the test finishes.
func NewTestClient(t *testing.T, handler http.Handler) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}
