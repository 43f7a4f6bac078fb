package handspec

import "github.com/lox/bspoker/internal/cards"

// Holds evaluates the membership predicate: does the declared hand H exist
// in the multiset of cards C? Each category has its own structural
// definition; FOUR_OF_A_KIND requires all four cards of the rank, not just
// four-or-more of something larger.
func Holds(d Declaration, cs []cards.Card) bool {
	switch d.Category {
	case HighCard:
		return countRank(cs, d.Rank) >= 1
	case Pair:
		return countRank(cs, d.Rank) >= 2
	case ThreeOfAKind:
		return countRank(cs, d.Rank) >= 3
	case FourOfAKind:
		return countRank(cs, d.Rank) == 4
	case TwoPairs:
		return countRank(cs, d.Low) >= 2 && countRank(cs, d.High) >= 2
	case FullHouse:
		return countRank(cs, d.Rank) >= 3 && countRank(cs, d.PairRank) >= 2
	case Straight:
		return consecutiveRanksPresent(cs, d.Rank, 0, 4)
	case Flush:
		for _, r := range d.Ranks {
			if !hasCard(cs, d.Suit, r) {
				return false
			}
		}
		return true
	case StraightFlush:
		for i := 0; i <= 4; i++ {
			if !hasCard(cs, d.Suit, d.Rank+cards.Rank(i)) {
				return false
			}
		}
		return true
	case RoyalFlush:
		for r := cards.Ten; r <= cards.Ace; r++ {
			if !hasCard(cs, d.Suit, r) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func countRank(cs []cards.Card, r cards.Rank) int {
	n := 0
	for _, c := range cs {
		if c.Rank == r {
			n++
		}
	}
	return n
}

func hasCard(cs []cards.Card, suit cards.Suit, r cards.Rank) bool {
	for _, c := range cs {
		if c.Suit == suit && c.Rank == r {
			return true
		}
	}
	return false
}

func consecutiveRanksPresent(cs []cards.Card, start cards.Rank, lo, hi int) bool {
	for i := lo; i <= hi; i++ {
		if countRank(cs, start+cards.Rank(i)) == 0 {
			return false
		}
	}
	return true
}
