package graphql_test

import (
	"encoding/json"
	"testing"

	"github.com/graphfleet/sgclient/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorUnmarshal(t *testing.T) {
	t.Run("message only", func(t *testing.T) {
		var gqlErr graphql.Error
		require.NoError(t, json.Unmarshal([]byte(`{"message":"boom"}`), &gqlErr))

		assert.Equal(t, "boom", gqlErr.Message)
		assert.Empty(t, gqlErr.Locations)
		assert.Empty(t, gqlErr.Path)
		assert.Empty(t, gqlErr.Extensions)
		assert.Equal(t, "boom", gqlErr.Error())
	})

	t.Run("mixed path segments", func(t *testing.T) {
		var gqlErr graphql.Error
		require.NoError(t, json.Unmarshal(
			[]byte(`{"message":"boom","path":["users",3,"email"]}`), &gqlErr))

		require.Len(t, gqlErr.Path, 3)
		assert.Equal(t, "users", gqlErr.Path[0].Field)
		assert.True(t, gqlErr.Path[1].IsIndex)
		assert.Equal(t, 3, gqlErr.Path[1].Index)
		assert.Equal(t, "email", gqlErr.Path[2].Field)
		assert.Equal(t, "boom (at users.3.email)", gqlErr.Error())
	})

	t.Run("locations and extensions", func(t *testing.T) {
		var gqlErr graphql.Error
		require.NoError(t, json.Unmarshal(
			[]byte(`{"message":"boom","locations":[{"line":2,"column":7}],"extensions":{"code":"BAD_INPUT"}}`),
			&gqlErr))

		require.Len(t, gqlErr.Locations, 1)
		assert.Equal(t, 2, gqlErr.Locations[0].Line)
		assert.Equal(t, 7, gqlErr.Locations[0].Column)
		assert.Equal(t, "BAD_INPUT", gqlErr.Extensions["code"])
	})

	t.Run("malformed optional fields are dropped", func(t *testing.T) {
		var gqlErr graphql.Error
		require.NoError(t, json.Unmarshal(
			[]byte(`{"message":"boom","path":"not-a-list","locations":42,"extensions":[]}`), &gqlErr))

		assert.Equal(t, "boom", gqlErr.Message)
		assert.Empty(t, gqlErr.Path)
		assert.Empty(t, gqlErr.Locations)
		assert.Empty(t, gqlErr.Extensions)
	})
}

func TestPathSegmentRoundTrip(t *testing.T) {
	path := []graphql.PathSegment{
		{Field: "users"},
		{Index: 0, IsIndex: true},
		{Field: "email"},
	}
	encoded, err := json.Marshal(path)
	require.NoError(t, err)
	assert.JSONEq(t, `["users",0,"email"]`, string(encoded))

	var decoded []graphql.PathSegment
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, path, decoded)
}

func TestResponseBodyDataPresence(t *testing.T) {
	var absent graphql.ResponseBody
	require.NoError(t, json.Unmarshal([]byte(`{"errors":[{"message":"x"}]}`), &absent))
	assert.Nil(t, absent.Data)

	var null graphql.ResponseBody
	require.NoError(t, json.Unmarshal([]byte(`{"data":null,"errors":[{"message":"x"}]}`), &null))
	assert.Equal(t, "null", string(null.Data))
}
