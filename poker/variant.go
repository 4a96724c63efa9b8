package poker

import "fmt"

// Variant identifies a poker game variant the table engine can run.
type Variant string

const (
	Texas      Variant = "texas"
	ShortDeck  Variant = "short_deck"
	RoyalHold  Variant = "royal"
	Manila     Variant = "manila"
	Pineapple  Variant = "pineapple"
	FastFold   Variant = "fast_fold"
	Omaha      Variant = "omaha"
	OmahaHiLo  Variant = "omaha_hi_lo"
	Courchevel Variant = "courchevel"
)

// EvalMode describes how an evaluator builds its candidate 5-card hands.
type EvalMode int

const (
	// EvalBestOfUnion picks the best 5 cards from the union of hole and board.
	EvalBestOfUnion EvalMode = iota
	// EvalExactlyTwoHole requires exactly 2 hole cards and 3 board cards (Omaha family).
	EvalExactlyTwoHole
)

// Spec describes the rules a variant imposes on deck, deal, and evaluation.
type Spec struct {
	Name Variant

	// RankSet lists the 0-indexed ranks (0=Two..12=Ace) present in the deck.
	RankSet []int

	HoleCards int
	EvalMode  EvalMode
	HiLo      bool

	// ShortDeckOrder swaps the flush/full-house category ranking.
	ShortDeckOrder bool

	// CourchevelFlop turns one community card before preflop betting.
	CourchevelFlop bool

	MaxSeats int
}

func fullRankSet() []int {
	r := make([]int, 13)
	for i := range r {
		r[i] = i
	}
	return r
}

func rankRange(lowLabel int) []int {
	// lowLabel is the 0-indexed rank of the lowest card kept (e.g. 4 = Six).
	r := make([]int, 0, 13-lowLabel)
	for i := lowLabel; i <= 12; i++ {
		r = append(r, i)
	}
	return r
}

var registry = map[Variant]Spec{
	Texas: {
		Name: Texas, RankSet: fullRankSet(), HoleCards: 2,
		EvalMode: EvalBestOfUnion, MaxSeats: 9,
	},
	ShortDeck: {
		Name: ShortDeck, RankSet: rankRange(4), HoleCards: 2,
		EvalMode: EvalBestOfUnion, ShortDeckOrder: true, MaxSeats: 9,
	},
	RoyalHold: {
		Name: RoyalHold, RankSet: rankRange(8), HoleCards: 2,
		EvalMode: EvalBestOfUnion, MaxSeats: 6,
	},
	Manila: {
		Name: Manila, RankSet: rankRange(5), HoleCards: 2,
		EvalMode: EvalBestOfUnion, MaxSeats: 6,
	},
	Pineapple: {
		Name: Pineapple, RankSet: fullRankSet(), HoleCards: 3,
		EvalMode: EvalBestOfUnion, MaxSeats: 6,
	},
	FastFold: {
		Name: FastFold, RankSet: fullRankSet(), HoleCards: 2,
		EvalMode: EvalBestOfUnion, MaxSeats: 6,
	},
	Omaha: {
		Name: Omaha, RankSet: fullRankSet(), HoleCards: 4,
		EvalMode: EvalExactlyTwoHole, MaxSeats: 6,
	},
	OmahaHiLo: {
		Name: OmahaHiLo, RankSet: fullRankSet(), HoleCards: 4,
		EvalMode: EvalExactlyTwoHole, HiLo: true, MaxSeats: 6,
	},
	Courchevel: {
		Name: Courchevel, RankSet: fullRankSet(), HoleCards: 5,
		EvalMode: EvalExactlyTwoHole, HiLo: true, CourchevelFlop: true, MaxSeats: 6,
	},
}

// SpecFor returns the rules for a variant, or an error if the variant is unknown.
func SpecFor(v Variant) (Spec, error) {
	spec, ok := registry[v]
	if !ok {
		return Spec{}, fmt.Errorf("poker: unknown variant %q", v)
	}
	return spec, nil
}
