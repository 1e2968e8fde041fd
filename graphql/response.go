package graphql

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// RawResponse is the raw transport result of a GraphQL-over-HTTP request:
// everything the HTTP collaborator hands back before any interpretation.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Error is a single entry of the response `errors` list, as specified in
// section 7.1.2 (Errors) of the GraphQL specification.
type Error struct {
	// A short, human-readable description of the problem. The only field an
	// error entry is required to carry.
	Message string `json:"message"`
	// Locations of the syntax elements associated with the error, if any.
	Locations []ErrorLocation `json:"locations,omitempty"`
	// Path of the response field that experienced the error, if any. Segments
	// are field names or 0-based list indices.
	Path []PathSegment `json:"path,omitempty"`
	// Implementation-specific additional error detail.
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	segments := make([]string, len(e.Path))
	for i, s := range e.Path {
		segments[i] = s.String()
	}
	return e.Message + " (at " + strings.Join(segments, ".") + ")"
}

// UnmarshalJSON parses an error entry permissively: malformed optional fields
// are dropped rather than failing the whole envelope.
func (e *Error) UnmarshalJSON(data []byte) error {
	var raw struct {
		Message    string          `json:"message"`
		Locations  json.RawMessage `json:"locations"`
		Path       json.RawMessage `json:"path"`
		Extensions json.RawMessage `json:"extensions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Message = raw.Message
	if len(raw.Locations) > 0 {
		_ = json.Unmarshal(raw.Locations, &e.Locations)
	}
	if len(raw.Path) > 0 {
		_ = json.Unmarshal(raw.Path, &e.Path)
	}
	if len(raw.Extensions) > 0 {
		_ = json.Unmarshal(raw.Extensions, &e.Extensions)
	}
	return nil
}

// ErrorLocation is the position of the syntax element associated with an
// error. Line and column are 1-based.
type ErrorLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// PathSegment is one segment of an error path: either a response field name
// or a 0-based list index.
type PathSegment struct {
	Field   string
	Index   int
	IsIndex bool
}

func (s PathSegment) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Field
}

func (s PathSegment) MarshalJSON() ([]byte, error) {
	if s.IsIndex {
		return json.Marshal(s.Index)
	}
	return json.Marshal(s.Field)
}

func (s *PathSegment) UnmarshalJSON(data []byte) error {
	var index int
	if err := json.Unmarshal(data, &index); err == nil {
		*s = PathSegment{Index: index, IsIndex: true}
		return nil
	}
	var field string
	if err := json.Unmarshal(data, &field); err == nil {
		*s = PathSegment{Field: field}
		return nil
	}
	// Unexpected segment kinds are kept as raw text rather than rejected.
	*s = PathSegment{Field: string(data)}
	return nil
}

// ResponseBody is the GraphQL-over-HTTP response envelope, as specified in
// section 7 (Response) of the GraphQL specification.
//
// Data distinguishes an absent `data` entry (nil) from a present-but-null one
// (the literal bytes "null").
type ResponseBody struct {
	Data   json.RawMessage `json:"data"`
	Errors []Error         `json:"errors"`
}
