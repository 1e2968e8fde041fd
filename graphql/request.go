package graphql

import "encoding/json"

const (
	// RequestMediaType is the media type for GraphQL-over-HTTP request bodies,
	// as specified in section 4.1 (Media Types) of the GraphQL-over-HTTP
	// specification.
	RequestMediaType = "application/json"

	// ResponseMediaType is the preferred media type for GraphQL-over-HTTP
	// server responses.
	ResponseMediaType = "application/graphql-response+json"

	// LegacyResponseMediaType is the legacy media type for GraphQL-over-HTTP
	// server responses. Servers that omit the Content-Type header are treated
	// as responding with this media type.
	LegacyResponseMediaType = "application/json"
)

// RequestParameters are the parameters of a GraphQL-over-HTTP request, as
// specified in section 5.1 (Request Parameters) of the GraphQL-over-HTTP
// specification.
type RequestParameters struct {
	// The source text of the GraphQL document to execute.
	Query Document `json:"query"`
	// Optional name of the operation in the document to execute.
	OperationName string `json:"operationName,omitempty"`
	// Values for any variables defined by the operation.
	Variables map[string]any `json:"variables,omitempty"`
	// Reserved for implementors to extend the protocol.
	Extensions map[string]any `json:"extensions,omitempty"`
}

// NewRequest returns request parameters carrying just the given document.
func NewRequest(query Document) *RequestParameters {
	return &RequestParameters{Query: query}
}

// MarshalBody serialises the request parameters into the wire payload.
func (r *RequestParameters) MarshalBody() ([]byte, error) {
	return json.Marshal(r)
}
