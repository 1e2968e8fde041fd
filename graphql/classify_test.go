package graphql_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/graphfleet/sgclient/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyCompleted(t *testing.T) {
	t.Run("data and no errors", func(t *testing.T) {
		outcome := graphql.Classify(graphql.RawResponse{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"data":{"user":{"id":"1"}}}`),
		})

		assert.Equal(t, graphql.Completed, outcome.Kind)
		assert.JSONEq(t, `{"user":{"id":"1"}}`, string(outcome.Data))
		assert.Empty(t, outcome.Errors)
		assert.NoError(t, outcome.Err())
	})

	t.Run("data with empty errors list", func(t *testing.T) {
		outcome := graphql.Classify(graphql.RawResponse{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"data":{"ok":true},"errors":[]}`),
		})

		assert.Equal(t, graphql.Completed, outcome.Kind)
	})

	t.Run("null data is still a data entry", func(t *testing.T) {
		outcome := graphql.Classify(graphql.RawResponse{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"data":null}`),
		})

		assert.Equal(t, graphql.Completed, outcome.Kind)
		assert.Equal(t, "null", string(outcome.Data))
	})
}

func TestClassifyCompletedWithErrors(t *testing.T) {
	outcome := graphql.Classify(graphql.RawResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"data":{"user":null},"errors":[{"message":"resolver failed","path":["user"]}]}`),
	})

	assert.Equal(t, graphql.CompletedWithErrors, outcome.Kind)
	assert.JSONEq(t, `{"user":null}`, string(outcome.Data))
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, "resolver failed", outcome.Errors[0].Message)

	var partial *graphql.PartialError
	require.ErrorAs(t, outcome.Err(), &partial)
	assert.Contains(t, partial.Error(), "resolver failed")
}

func TestClassifyRejected(t *testing.T) {
	t.Run("errors and no data entry", func(t *testing.T) {
		outcome := graphql.Classify(graphql.RawResponse{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"errors":[{"message":"syntax error"},{"message":"unknown field"}]}`),
		})

		require.Equal(t, graphql.Rejected, outcome.Kind)
		assert.Nil(t, outcome.Data)
		require.Len(t, outcome.Errors, 2)

		var rejected *graphql.RejectedError
		require.ErrorAs(t, outcome.Err(), &rejected)
		assert.Contains(t, rejected.Error(), "syntax error")
	})

	t.Run("legacy server using a failure status", func(t *testing.T) {
		// 4xx/5xx responses may still carry a valid envelope.
		outcome := graphql.Classify(graphql.RawResponse{
			StatusCode: http.StatusBadRequest,
			Body:       []byte(`{"errors":[{"message":"invalid document"}]}`),
		})

		assert.Equal(t, graphql.Rejected, outcome.Kind)
	})
}

func TestClassifyTransportFailure(t *testing.T) {
	t.Run("empty body regardless of status", func(t *testing.T) {
		for _, status := range []int{http.StatusOK, http.StatusInternalServerError} {
			outcome := graphql.Classify(graphql.RawResponse{StatusCode: status})

			require.Equal(t, graphql.TransportFailure, outcome.Kind)
			assert.ErrorIs(t, outcome.Cause(), graphql.ErrEmptyResponseBody)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		outcome := graphql.Classify(graphql.RawResponse{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"data":`),
		})

		require.Equal(t, graphql.TransportFailure, outcome.Kind)
		var envErr *graphql.EnvelopeError
		assert.ErrorAs(t, outcome.Err(), &envErr)
	})

	t.Run("server error with unparseable body", func(t *testing.T) {
		outcome := graphql.Classify(graphql.RawResponse{
			StatusCode: http.StatusBadGateway,
			Body:       []byte("upstream connect error"),
		})

		require.Equal(t, graphql.TransportFailure, outcome.Kind)
		var statusErr *graphql.StatusError
		require.ErrorAs(t, outcome.Cause(), &statusErr)
		assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	})

	t.Run("redirect status", func(t *testing.T) {
		outcome := graphql.Classify(graphql.RawResponse{
			StatusCode: http.StatusMovedPermanently,
			Body:       []byte(`{"data":{}}`),
		})

		require.Equal(t, graphql.TransportFailure, outcome.Kind)
		var statusErr *graphql.StatusError
		assert.ErrorAs(t, outcome.Cause(), &statusErr)
	})

	t.Run("envelope with neither data nor errors", func(t *testing.T) {
		for _, body := range []string{`{}`, `{"errors":[]}`, `{"extensions":{}}`} {
			outcome := graphql.Classify(graphql.RawResponse{
				StatusCode: http.StatusOK,
				Body:       []byte(body),
			})

			require.Equal(t, graphql.TransportFailure, outcome.Kind, "body: %s", body)
			assert.ErrorIs(t, outcome.Cause(), graphql.ErrMalformedEnvelope, "body: %s", body)
		}
	})

	t.Run("never panics on garbage", func(t *testing.T) {
		for _, body := range []string{"null", `"data"`, "[1,2,3]", "\x00\xff"} {
			assert.NotPanics(t, func() {
				outcome := graphql.Classify(graphql.RawResponse{
					StatusCode: http.StatusOK,
					Body:       []byte(body),
				})
				assert.Equal(t, graphql.TransportFailure, outcome.Kind)
			})
		}
	})
}

func TestOutcomeErr(t *testing.T) {
	t.Run("transport failure cause is surfaced", func(t *testing.T) {
		outcome := graphql.Classify(graphql.RawResponse{StatusCode: http.StatusOK})
		assert.True(t, errors.Is(outcome.Err(), graphql.ErrEmptyResponseBody))
	})
}
