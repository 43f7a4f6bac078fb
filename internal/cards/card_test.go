package cards

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuitJSONRoundTrip(t *testing.T) {
	for _, s := range AllSuits {
		data, err := json.Marshal(s)
		require.NoError(t, err)

		var got Suit
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, s, got)
	}
}

func TestCardJSONLiteral(t *testing.T) {
	c := New(Hearts, King)
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"suit":"hearts","rank":13}`, string(data))
}

func TestParseSuitGlyph(t *testing.T) {
	s, ok := ParseSuit("♠")
	require.True(t, ok)
	assert.Equal(t, Spades, s)

	_, ok = ParseSuit("bogus")
	assert.False(t, ok)
}

func TestRankValid(t *testing.T) {
	assert.True(t, Two.Valid())
	assert.True(t, Ace.Valid())
	assert.False(t, Rank(1).Valid())
	assert.False(t, Rank(15).Valid())
}
