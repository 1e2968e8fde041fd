package graphql

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// OutcomeKind is the classification of a GraphQL-over-HTTP response.
type OutcomeKind uint8

const (
	// Completed is a well-formed response carrying only a data payload.
	Completed OutcomeKind = iota + 1
	// CompletedWithErrors is a well-formed response carrying both a data
	// payload (possibly with partial or null fields) and a non-empty error
	// list. The data payload is still surfaced to the caller.
	CompletedWithErrors
	// Rejected is a well-formed response carrying errors and no data entry at
	// all: the service refused the whole request.
	Rejected
	// TransportFailure means the response could not be interpreted as a
	// GraphQL-over-HTTP envelope at all.
	TransportFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case Completed:
		return "completed"
	case CompletedWithErrors:
		return "completed_with_errors"
	case Rejected:
		return "rejected"
	case TransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of classifying one raw response. Exactly one of the
// four kinds applies; Data is never fabricated when absent from the body.
type Outcome struct {
	Kind   OutcomeKind
	Data   json.RawMessage
	Errors []Error
	cause  error
}

// Cause returns the underlying transport error for a TransportFailure
// outcome, nil otherwise.
func (o *Outcome) Cause() error {
	return o.cause
}

// Err converts a non-Completed outcome into its typed error. Completed
// outcomes return nil.
func (o *Outcome) Err() error {
	switch o.Kind {
	case Completed:
		return nil
	case CompletedWithErrors:
		return &PartialError{Errors: o.Errors}
	case Rejected:
		return &RejectedError{Errors: o.Errors}
	case TransportFailure:
		return o.cause
	default:
		return fmt.Errorf("unclassified outcome kind %d", uint8(o.Kind))
	}
}

var (
	// ErrEmptyResponseBody: an empty body is not a valid GraphQL-over-HTTP
	// envelope, whatever the status code says.
	ErrEmptyResponseBody = errors.New("empty response body")

	// ErrMalformedEnvelope: the body parsed as JSON but carries neither a
	// data nor an errors entry. This points at a service-side protocol bug
	// rather than a network problem.
	ErrMalformedEnvelope = errors.New("response envelope carries neither data nor errors")
)

// StatusError reports a transport-level status that did not come with a
// parseable envelope.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response status: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// EnvelopeError reports a body that could not be decoded as the response
// envelope on an otherwise successful status.
type EnvelopeError struct {
	StatusCode int
	Err        error
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("decoding response envelope (status %d): %v", e.StatusCode, e.Err)
}

func (e *EnvelopeError) Unwrap() error {
	return e.Err
}

// RejectedError is a request-level rejection: the service returned errors and
// no data. Retrying the same request will not succeed.
type RejectedError struct {
	Errors []Error
}

func (e *RejectedError) Error() string {
	return "request rejected: " + errorsText(e.Errors)
}

// PartialError reports errors raised during an execution that still produced
// a data payload. Callers receive the partial data alongside this error.
type PartialError struct {
	Errors []Error
}

func (e *PartialError) Error() string {
	return "partial execution: " + errorsText(e.Errors)
}

func errorsText(errs []Error) string {
	messages := make([]string, len(errs))
	for i := range errs {
		messages[i] = errs[i].Error()
	}
	return strings.Join(messages, "; ")
}

// Classify turns a raw transport response into exactly one Outcome following
// the GraphQL-over-HTTP decision rules. It never panics on malformed input.
//
// Responses with 4xx and 5xx statuses may still carry a valid envelope
// (legacy servers are allowed, although discouraged, to use failure statuses
// for well-formed GraphQL errors), so their bodies are parsed before the
// status is given the final word.
func Classify(resp RawResponse) Outcome {
	if class := resp.StatusCode / 100; class != 2 && class != 4 && class != 5 {
		return transportFailure(&StatusError{StatusCode: resp.StatusCode, Body: string(resp.Body)})
	}

	if len(resp.Body) == 0 {
		return transportFailure(ErrEmptyResponseBody)
	}

	var body ResponseBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		if resp.StatusCode/100 != 2 {
			return transportFailure(&StatusError{StatusCode: resp.StatusCode, Body: string(resp.Body)})
		}
		return transportFailure(&EnvelopeError{StatusCode: resp.StatusCode, Err: err})
	}

	switch {
	case len(body.Errors) > 0 && body.Data == nil:
		return Outcome{Kind: Rejected, Errors: body.Errors}
	case len(body.Errors) > 0:
		return Outcome{Kind: CompletedWithErrors, Data: body.Data, Errors: body.Errors}
	case body.Data != nil:
		return Outcome{Kind: Completed, Data: body.Data}
	default:
		return transportFailure(ErrMalformedEnvelope)
	}
}

func transportFailure(cause error) Outcome {
	return Outcome{Kind: TransportFailure, cause: cause}
}
