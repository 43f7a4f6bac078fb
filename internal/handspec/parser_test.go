package handspec

import (
	"testing"

	"github.com/lox/bspoker/internal/cards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCanonicalForms(t *testing.T) {
	highCardKing, err := NewHighCard(cards.King)
	require.NoError(t, err)
	pairOfKings, err := NewPair(cards.King)
	require.NoError(t, err)
	twoPairs3And7, err := NewTwoPairs(cards.Three, cards.Seven)
	require.NoError(t, err)
	threeJacks, err := NewThreeOfAKind(cards.Jack)
	require.NoError(t, err)
	straightFrom10, err := NewStraight(cards.Ten)
	require.NoError(t, err)
	flushOfHearts, err := NewFlush(cards.Hearts, []cards.Rank{cards.Two, cards.Five, cards.Seven, cards.King, cards.Ace})
	require.NoError(t, err)
	fullHouseJacksAnd10s, err := NewFullHouse(cards.Jack, cards.Ten)
	require.NoError(t, err)
	fourAces, err := NewFourOfAKind(cards.Ace)
	require.NoError(t, err)
	straightFlushSpadesFrom9, err := NewStraightFlush(cards.Spades, cards.Nine)
	require.NoError(t, err)
	royalFlushDiamonds, err := NewRoyalFlush(cards.Diamonds)
	require.NoError(t, err)

	cases := []struct {
		input string
		want  Declaration
	}{
		{"high card king", highCardKing},
		{"pair of kings", pairOfKings},
		{"two pairs 3 and 7", twoPairs3And7},
		{"three of a kind jacks", threeJacks},
		{"straight from 10", straightFrom10},
		{"flush of hearts: 2,5,7,king,ace", flushOfHearts},
		{"full house: 3 jacks and 2 10s", fullHouseJacksAnd10s},
		{"four of a kind aces", fourAces},
		{"straight flush spades from 9", straightFlushSpadesFrom9},
		{"royal flush diamonds", royalFlushDiamonds},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := Parse(tc.input)
			require.NoError(t, err)
			assert.True(t, Equal(tc.want, got), "Parse(%q) = %+v, want %+v", tc.input, got, tc.want)
		})
	}
}

func TestParseRoundTripsThroughString(t *testing.T) {
	highCardSeven, err := NewHighCard(cards.Seven)
	require.NoError(t, err)
	pairOfQueens, err := NewPair(cards.Queen)
	require.NoError(t, err)
	twoPairs4And9, err := NewTwoPairs(cards.Four, cards.Nine)
	require.NoError(t, err)
	threeTwos, err := NewThreeOfAKind(cards.Two)
	require.NoError(t, err)
	straightFrom6, err := NewStraight(cards.Six)
	require.NoError(t, err)
	flushOfClubs, err := NewFlush(cards.Clubs, []cards.Rank{cards.Three, cards.Four, cards.Five, cards.Six, cards.Seven})
	require.NoError(t, err)
	fullHouseKingsAndTwos, err := NewFullHouse(cards.King, cards.Two)
	require.NoError(t, err)
	fourTens, err := NewFourOfAKind(cards.Ten)
	require.NoError(t, err)
	straightFlushHeartsFrom5, err := NewStraightFlush(cards.Hearts, cards.Five)
	require.NoError(t, err)
	royalFlushSpades, err := NewRoyalFlush(cards.Spades)
	require.NoError(t, err)

	decls := []Declaration{
		highCardSeven,
		pairOfQueens,
		twoPairs4And9,
		threeTwos,
		straightFrom6,
		flushOfClubs,
		fullHouseKingsAndTwos,
		fourTens,
		straightFlushHeartsFrom5,
		royalFlushSpades,
	}

	for _, d := range decls {
		s := d.String()
		got, err := Parse(s)
		require.NoError(t, err, "Parse(%q)", s)
		assert.True(t, Equal(d, got), "round trip mismatch for %q: got %+v", s, got)
	}
}

func TestParseNormalizesCaseAndWhitespace(t *testing.T) {
	got, err := Parse("  PAIR   OF   Kings  ")
	require.NoError(t, err)
	want, err := NewPair(cards.King)
	require.NoError(t, err)
	assert.True(t, Equal(want, got))
}

func TestParseGlyphSuits(t *testing.T) {
	got, err := Parse("royal flush ♠")
	require.NoError(t, err)
	want, err := NewRoyalFlush(cards.Spades)
	require.NoError(t, err)
	assert.True(t, Equal(want, got))
}

func TestParseRejectsUnrecognizedInput(t *testing.T) {
	_, err := Parse("a pile of cards")
	require.Error(t, err)
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestParseRejectsInvalidStraightStart(t *testing.T) {
	_, err := Parse("straight from jack")
	require.Error(t, err)

	_, err = Parse("straight flush hearts from 10")
	require.Error(t, err)
}

func TestParseRejectsDuplicateTwoPairsRanks(t *testing.T) {
	_, err := Parse("two pairs 5 and 5")
	require.Error(t, err)
}

func TestParseRejectsFlushWithWrongRankCount(t *testing.T) {
	_, err := Parse("flush of hearts: 2,5,7,king")
	require.Error(t, err)
}
