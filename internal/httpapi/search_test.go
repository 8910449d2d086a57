package httpapi

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSearchQueryReservedAndArbitraryKeys(t *testing.T) {
	values, err := url.ParseQuery("type=rectangle&minWidth=50&textContains=hi&strokeColor=%23ff0000")
	require.NoError(t, err)

	q := parseSearchQuery(values)
	assert.Equal(t, []string{"rectangle"}, q.Types)
	require.NotNil(t, q.MinWidth)
	assert.Equal(t, 50.0, *q.MinWidth)
	assert.Equal(t, "hi", q.TextContains)
	assert.Equal(t, "#ff0000", q.FieldEquals["strokeColor"])
	assert.NotContains(t, q.FieldEquals, "type")
	assert.NotContains(t, q.FieldEquals, "minWidth")
}

func TestParseSearchQueryTypesCommaSplit(t *testing.T) {
	values := url.Values{"types": []string{"rectangle,ellipse , diamond"}}

	q := parseSearchQuery(values)
	assert.ElementsMatch(t, []string{"rectangle", "ellipse", "diamond"}, q.Types)
}

func TestParseFloatPtrInvalidIsNil(t *testing.T) {
	assert.Nil(t, parseFloatPtr(""))
	assert.Nil(t, parseFloatPtr("not-a-number"))
	require.NotNil(t, parseFloatPtr("12.5"))
	assert.Equal(t, 12.5, *parseFloatPtr("12.5"))
}
