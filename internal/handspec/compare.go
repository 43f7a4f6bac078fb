package handspec

import "github.com/lox/bspoker/internal/cards"

// Compare returns a strict total order between two declarations of
// (possibly) the same category: positive if a > b, negative if a < b, zero
// if they are equal under the §4.1 tie-break rules. Category differences
// dominate; within a category the comparator is category-specific.
//
// FLUSH ties on max rank are equal regardless of suit (§4.1, §9): a caller
// cannot raise a flush by changing suit alone. ROYAL_FLUSH is a unique
// terminal category — all royal flushes compare equal, and nothing in a
// higher category exists to beat one.
func Compare(a, b Declaration) int {
	if a.Category != b.Category {
		return int(a.Category) - int(b.Category)
	}

	switch a.Category {
	case HighCard, Pair, ThreeOfAKind, FourOfAKind, Straight, StraightFlush:
		return int(a.Rank) - int(b.Rank)
	case TwoPairs:
		if a.High != b.High {
			return int(a.High) - int(b.High)
		}
		return int(a.Low) - int(b.Low)
	case FullHouse:
		if a.Rank != b.Rank {
			return int(a.Rank) - int(b.Rank)
		}
		return int(a.PairRank) - int(b.PairRank)
	case Flush:
		return int(maxRank(a.Ranks)) - int(maxRank(b.Ranks))
	case RoyalFlush:
		return 0
	default:
		return 0
	}
}

func maxRank(ranks []cards.Rank) cards.Rank {
	max := ranks[0]
	for _, r := range ranks[1:] {
		if r > max {
			max = r
		}
	}
	return max
}

// GreaterThan reports whether a strictly exceeds b under the §4.1 ordering.
func GreaterThan(a, b Declaration) bool {
	return Compare(a, b) > 0
}

// Equal reports whether a and b compare as the same hand (same category and
// tie-break key), even if their raw literal fields differ (e.g. two FLUSH
// declarations on different suits with the same max rank).
func Equal(a, b Declaration) bool {
	return Compare(a, b) == 0
}
