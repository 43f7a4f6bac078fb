package handspec

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lox/bspoker/internal/cards"
)

// rankAliases maps every accepted rank token (already lowercased, already
// singular) to its Rank. Plural forms are handled by stripTrailingS before
// lookup, per §4.2's "plural s is stripped".
var rankAliases = map[string]cards.Rank{
	"2": cards.Two, "3": cards.Three, "4": cards.Four, "5": cards.Five,
	"6": cards.Six, "7": cards.Seven, "8": cards.Eight, "9": cards.Nine,
	"10": cards.Ten,
	"j":  cards.Jack, "jack": cards.Jack,
	"q":  cards.Queen, "queen": cards.Queen,
	"k":  cards.King, "king": cards.King,
	"a":  cards.Ace, "ace": cards.Ace,
}

func stripTrailingS(tok string) string {
	if strings.HasSuffix(tok, "s") && len(tok) > 1 {
		return strings.TrimSuffix(tok, "s")
	}
	return tok
}

func parseRankToken(tok string) (cards.Rank, bool) {
	tok = strings.TrimSpace(tok)
	if r, ok := rankAliases[tok]; ok {
		return r, true
	}
	stripped := stripTrailingS(tok)
	if r, ok := rankAliases[stripped]; ok {
		return r, true
	}
	return 0, false
}

func parseSuitToken(tok string) (cards.Suit, bool) {
	return cards.ParseSuit(strings.TrimSpace(tok))
}

var (
	reHighCard      = regexp.MustCompile(`^high card (?:of )?(\S+)$`)
	rePair          = regexp.MustCompile(`^pair of (\S+)$`)
	reTwoPairs      = regexp.MustCompile(`^two pairs (\S+) and (\S+)$`)
	reThreeOfAKind  = regexp.MustCompile(`^three of a kind (\S+)$`)
	reFourOfAKind   = regexp.MustCompile(`^four of a kind (\S+)$`)
	reStraight      = regexp.MustCompile(`^straight from (\S+)$`)
	reFlush         = regexp.MustCompile(`^flush of ([^\s:]+):?\s*(.+)$`)
	reFullHouse     = regexp.MustCompile(`^full house:?\s*(\d+)\s+(\S+?)s?\s+and\s+(\d+)\s+(\S+?)s?$`)
	reStraightFlush = regexp.MustCompile(`^straight flush (\S+) from (\S+)$`)
	reRoyalFlush    = regexp.MustCompile(`^royal flush (\S+)$`)
)

// normalize lowercases and collapses whitespace, per §4.2's "normalized
// lowercased string" input contract.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// Parse consumes a normalized lowercased hand-spec string and yields a
// Declaration, or fails with a *ParseError (§4.2).
func Parse(input string) (Declaration, error) {
	s := normalize(input)

	if m := reRoyalFlush.FindStringSubmatch(s); m != nil {
		suit, ok := parseSuitToken(m[1])
		if !ok {
			return Declaration{}, parseErrorf("unknown suit %q", m[1])
		}
		return NewRoyalFlush(suit)
	}

	if m := reStraightFlush.FindStringSubmatch(s); m != nil {
		suit, ok := parseSuitToken(m[1])
		if !ok {
			return Declaration{}, parseErrorf("unknown suit %q", m[1])
		}
		start, ok := parseRankToken(m[2])
		if !ok {
			return Declaration{}, parseErrorf("unknown rank %q", m[2])
		}
		return NewStraightFlush(suit, start)
	}

	if m := reFlush.FindStringSubmatch(s); m != nil {
		suit, ok := parseSuitToken(m[1])
		if !ok {
			return Declaration{}, parseErrorf("unknown suit %q", m[1])
		}
		tokens := strings.Split(m[2], ",")
		ranks := make([]cards.Rank, 0, len(tokens))
		for _, tok := range tokens {
			r, ok := parseRankToken(strings.TrimSpace(tok))
			if !ok {
				return Declaration{}, parseErrorf("unknown rank %q", tok)
			}
			ranks = append(ranks, r)
		}
		return NewFlush(suit, ranks)
	}

	if m := reFullHouse.FindStringSubmatch(s); m != nil {
		c1, _ := strconv.Atoi(m[1])
		r1, ok := parseRankToken(m[2])
		if !ok {
			return Declaration{}, parseErrorf("unknown rank %q", m[2])
		}
		c2, _ := strconv.Atoi(m[3])
		r2, ok := parseRankToken(m[4])
		if !ok {
			return Declaration{}, parseErrorf("unknown rank %q", m[4])
		}
		switch {
		case c1 == 3 && c2 == 2:
			return NewFullHouse(r1, r2)
		case c1 == 2 && c2 == 3:
			return NewFullHouse(r2, r1)
		default:
			return Declaration{}, parseErrorf("full house needs one triple (3) and one pair (2)")
		}
	}

	if m := reTwoPairs.FindStringSubmatch(s); m != nil {
		r1, ok := parseRankToken(m[1])
		if !ok {
			return Declaration{}, parseErrorf("unknown rank %q", m[1])
		}
		r2, ok := parseRankToken(m[2])
		if !ok {
			return Declaration{}, parseErrorf("unknown rank %q", m[2])
		}
		return NewTwoPairs(r1, r2)
	}

	if m := reFourOfAKind.FindStringSubmatch(s); m != nil {
		r, ok := parseRankToken(m[1])
		if !ok {
			return Declaration{}, parseErrorf("unknown rank %q", m[1])
		}
		return NewFourOfAKind(r)
	}

	if m := reThreeOfAKind.FindStringSubmatch(s); m != nil {
		r, ok := parseRankToken(m[1])
		if !ok {
			return Declaration{}, parseErrorf("unknown rank %q", m[1])
		}
		return NewThreeOfAKind(r)
	}

	if m := reStraight.FindStringSubmatch(s); m != nil {
		r, ok := parseRankToken(m[1])
		if !ok {
			return Declaration{}, parseErrorf("unknown rank %q", m[1])
		}
		return NewStraight(r)
	}

	if m := rePair.FindStringSubmatch(s); m != nil {
		r, ok := parseRankToken(m[1])
		if !ok {
			return Declaration{}, parseErrorf("unknown rank %q", m[1])
		}
		return NewPair(r)
	}

	if m := reHighCard.FindStringSubmatch(s); m != nil {
		r, ok := parseRankToken(m[1])
		if !ok {
			return Declaration{}, parseErrorf("unknown rank %q", m[1])
		}
		return NewHighCard(r)
	}

	return Declaration{}, parseErrorf("unrecognized hand spec: %q", input)
}
