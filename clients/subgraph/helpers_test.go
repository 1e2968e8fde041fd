package subgraph_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

type recordedRequest struct {
	Query     string
	Variables map[string]any
}

func (r recordedRequest) isPageQuery() bool {
	return strings.Contains(r.Query, "_meta(block:")
}

// fakeService mimics a graph-node subgraph endpoint. It answers the bootstrap
// meta query with metaBody and serves pages in order for page queries,
// recording every request it sees.
type fakeService struct {
	mu       sync.Mutex
	metaBody string
	pages    []string
	requests []recordedRequest
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	recorded := recordedRequest{Query: req.Query, Variables: req.Variables}
	f.requests = append(f.requests, recorded)

	if !recorded.isPageQuery() {
		fmt.Fprint(w, f.metaBody)
		return
	}
	if len(f.pages) == 0 {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "unscripted page request")
		return
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	fmt.Fprint(w, page)
}

func (f *fakeService) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeService) pageRequests() []recordedRequest {
	var pages []recordedRequest
	for _, req := range f.recorded() {
		if req.isPageQuery() {
			pages = append(pages, req)
		}
	}
	return pages
}

func (f *fakeService) metaRequests() int {
	count := 0
	for _, req := range f.recorded() {
		if !req.isPageQuery() {
			count++
		}
	}
	return count
}

func metaBody(number uint64, hash string) string {
	return fmt.Sprintf(`{"data":{"meta":{"block":{"number":%d,"hash":"%s"}}}}`, number, hash)
}

func pageBody(number uint64, hash string, ids ...string) string {
	results := make([]string, len(ids))
	for i, id := range ids {
		results[i] = fmt.Sprintf(`{"id":"%s"}`, id)
	}
	return fmt.Sprintf(`{"data":{"meta":{"block":{"number":%d,"hash":"%s"}},"results":[%s]}}`,
		number, hash, strings.Join(results, ","))
}

type testEntity struct {
	ID string `json:"id"`
}

const entityQuery = `entities(block: $block, orderBy: id, orderDirection: asc, first: $first, where: { id_gt: $last }) { id }`
