package game

import "sort"

// Pot is one main or side pot awarded at showdown (§4.3 "Side pots").
type Pot struct {
	Amount   int
	Eligible []int // seat indexes eligible to win this pot
}

// CalculatePots partitions a hand's contributions into a main pot and a
// side pot per distinct all-in level, ascending. This is the layering
// described in §4.3: for each all-in level L, the side pot holds
// min(contribution, L) - previousL from every seat, folded seats included
// (their chips stay in as dead money), eligible only to non-folded seats
// whose contribution reached L. A final pot
// holds whatever was contributed above the highest all-in level.
//
// Do not simplify this to splitting the total pot equally across winners
// while ignoring all-in caps — §9's Design Notes flags that as the
// behavior an implementation must NOT reproduce.
func CalculatePots(seats []*Seat) []Pot {
	levelSet := make(map[int]bool)
	for _, s := range seats {
		if s.IsAllIn && s.TotalBetThisHand > 0 {
			levelSet[s.TotalBetThisHand] = true
		}
	}

	if len(levelSet) == 0 {
		return []Pot{mainPotAbove(seats, 0)}
	}

	levels := make([]int, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Ints(levels)

	pots := make([]Pot, 0, len(levels)+1)
	previous := 0
	for _, level := range levels {
		pot := Pot{}
		for _, s := range seats {
			if !s.Folded && s.TotalBetThisHand > previous {
				pot.Eligible = append(pot.Eligible, s.SeatIndex)
			}
			contribution := s.TotalBetThisHand - previous
			if contribution > level-previous {
				contribution = level - previous
			}
			if contribution > 0 {
				pot.Amount += contribution
			}
		}
		if pot.Amount > 0 && len(pot.Eligible) > 0 {
			pots = append(pots, pot)
		}
		previous = level
	}

	final := mainPotAbove(seats, previous)
	if final.Amount > 0 && len(final.Eligible) > 0 {
		pots = append(pots, final)
	}
	if len(pots) == 0 {
		return []Pot{{Amount: 0}}
	}
	return pots
}

func mainPotAbove(seats []*Seat, floor int) Pot {
	pot := Pot{}
	for _, s := range seats {
		if s.TotalBetThisHand <= floor {
			continue
		}
		if !s.Folded {
			pot.Eligible = append(pot.Eligible, s.SeatIndex)
		}
		pot.Amount += s.TotalBetThisHand - floor
	}
	return pot
}

// Total sums the amount across every pot.
func Total(pots []Pot) int {
	total := 0
	for _, p := range pots {
		total += p.Amount
	}
	return total
}
