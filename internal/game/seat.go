package game

import (
	"time"

	"github.com/lox/pokerroom/poker"
)

// Seat is the server's view of one occupied position at a table (§3
// Seat/Player). PlayerID is the identity resolved by the external Identity
// Resolver; an unoccupied position simply has no Seat in TableState.Seats.
type Seat struct {
	SeatIndex   int
	PlayerID    string
	DisplayName string
	Stack       int

	HoleCards poker.Hand

	Folded      bool
	IsAllIn     bool
	HasActed    bool
	IsConnected bool

	CurrentRoundBet  int
	TotalBetThisHand int

	LastActionAt time.Time
}

// CanAct reports whether the seat is still eligible to take an action this hand.
func (s *Seat) CanAct() bool { return !s.Folded && !s.IsAllIn }

// resetForNewHand clears hand-local fields at the start of a new hand,
// preserving identity, stack, and connection status.
func (s *Seat) resetForNewHand() {
	s.HoleCards = 0
	s.Folded = false
	s.IsAllIn = false
	s.HasActed = false
	s.CurrentRoundBet = 0
	s.TotalBetThisHand = 0
}

// resetForNewStreet clears per-street betting fields; folded/all-in seats
// keep HasActed=true so they're never asked to act again this hand.
func (s *Seat) resetForNewStreet() {
	s.CurrentRoundBet = 0
	if !s.Folded && !s.IsAllIn {
		s.HasActed = false
	}
}

// contribute moves chips from the seat's stack into its round/hand totals,
// marking the seat all-in if it exhausts the stack. Returns the amount
// actually contributed (capped at the seat's stack).
func (s *Seat) contribute(amount int) int {
	if amount > s.Stack {
		amount = s.Stack
	}
	s.Stack -= amount
	s.CurrentRoundBet += amount
	s.TotalBetThisHand += amount
	if s.Stack == 0 {
		s.IsAllIn = true
	}
	return amount
}
