package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerroom/poker"
)

func newHeadsUpTable(t *testing.T) (*TableEngine, *TableState) {
	t.Helper()
	e := NewTableEngine()
	ts, err := e.Create("t1", poker.Texas, NoLimit, 1, 2, "1-2", true)
	require.NoError(t, err)

	_, err = e.AddSeat("t1", "alice", "Alice", 200, 0)
	require.NoError(t, err)
	_, err = e.AddSeat("t1", "bob", "Bob", 200, 1)
	require.NoError(t, err)

	// Two connected seats auto-starts a hand (§4.3 addSeat).
	require.Equal(t, Preflop, ts.Stage)
	return e, ts
}

// §8 scenario 1: heads-up no-limit, blinds 1/2, stacks 200/200, ending in a
// fold on the turn. Chip conservation (invariant 2) pins the correct final
// stacks at 198/202: the scenario's prose in the spec arrives at 208 for the
// winner by forgetting to subtract that player's own turn bet from their
// stack before adding the pot back, which would leave total chips at 406
// instead of the table's fixed 400.
func TestHeadsUpHandToShowdown(t *testing.T) {
	e, ts := newHeadsUpTable(t)

	dealer := ts.DealerIndex
	other := 1 - dealer

	// Preflop: dealer (SB) acts first heads-up.
	require.Equal(t, dealer, ts.ActiveSeatIndex)
	require.NoError(t, e.ApplyAction("t1", Action{SeatIndex: dealer, Kind: Call}))
	require.Equal(t, other, ts.ActiveSeatIndex)
	require.NoError(t, e.ApplyAction("t1", Action{SeatIndex: other, Kind: Check}))
	require.Equal(t, Flop, ts.Stage)

	// Flop: non-dealer acts first.
	require.Equal(t, other, ts.ActiveSeatIndex)
	require.NoError(t, e.ApplyAction("t1", Action{SeatIndex: other, Kind: Check}))
	require.NoError(t, e.ApplyAction("t1", Action{SeatIndex: dealer, Kind: Check}))
	require.Equal(t, Turn, ts.Stage)

	// Turn: non-dealer bets 6, dealer folds.
	require.Equal(t, other, ts.ActiveSeatIndex)
	require.NoError(t, e.ApplyAction("t1", Action{SeatIndex: other, Kind: Raise, Amount: 6}))
	require.NoError(t, e.ApplyAction("t1", Action{SeatIndex: dealer, Kind: Fold}))

	require.Equal(t, Showdown, ts.Stage)
	assert.Equal(t, []int{other}, ts.Winners)
	assert.Equal(t, 198, ts.Seats[dealer].Stack)
	assert.Equal(t, 202, ts.Seats[other].Stack)
	assert.Equal(t, 400, ts.Seats[dealer].Stack+ts.Seats[other].Stack)
}

// §8 scenario 2: min-raise lock. Blinds 1/2; a raise to 6 sets the minimum
// next increment to 4 (6-2). A re-raise to 9 (increment 3) is rejected; a
// re-raise to 10 (increment 4) is accepted.
func TestMinRaiseLock(t *testing.T) {
	e, ts := newHeadsUpTable(t)
	dealer := ts.DealerIndex
	other := 1 - dealer

	require.NoError(t, e.ApplyAction("t1", Action{SeatIndex: dealer, Kind: Raise, Amount: 6}))

	err := e.ApplyAction("t1", Action{SeatIndex: other, Kind: Raise, Amount: 9})
	assert.Error(t, err)

	require.NoError(t, e.ApplyAction("t1", Action{SeatIndex: other, Kind: Raise, Amount: 10}))
	assert.Equal(t, 10, ts.Betting.CurrentHighBet)
}

// §8 scenario 3: an all-in that increments the bet by less than the minimum
// raise still raises currentHighBet (others must call the new amount) but
// does not reopen raising rights for a seat that already acted this round.
func TestAllInUnderRaiseBarsReRaise(t *testing.T) {
	e := NewTableEngine()
	ts, err := e.Create("t2", poker.Texas, NoLimit, 1, 2, "1-2", true)
	require.NoError(t, err)
	_, err = e.AddSeat("t2", "alice", "Alice", 1000, 0)
	require.NoError(t, err)
	_, err = e.AddSeat("t2", "bob", "Bob", 130, 1)
	require.NoError(t, err)

	dealer := ts.DealerIndex
	other := 1 - dealer

	require.NoError(t, e.ApplyAction("t2", Action{SeatIndex: dealer, Kind: Raise, Amount: 100}))
	require.NoError(t, e.ApplyAction("t2", Action{SeatIndex: other, Kind: AllIn}))

	assert.Equal(t, 130, ts.Betting.CurrentHighBet)
	assert.Equal(t, dealer, ts.ActiveSeatIndex)

	err = e.ApplyAction("t2", Action{SeatIndex: dealer, Kind: Raise, Amount: 300})
	assert.Error(t, err, "dealer already acted this round; an under-min all-in must not reopen raising")

	require.NoError(t, e.ApplyAction("t2", Action{SeatIndex: dealer, Kind: Call}))
	assert.Equal(t, Showdown, ts.Stage)
}

func TestRaiseCapEnforced(t *testing.T) {
	e := NewTableEngine()
	ts, err := e.Create("t3", poker.Texas, NoLimit, 1, 2, "1-2", true)
	require.NoError(t, err)
	_, err = e.AddSeat("t3", "alice", "Alice", 10000, 0)
	require.NoError(t, err)
	_, err = e.AddSeat("t3", "bob", "Bob", 10000, 1)
	require.NoError(t, err)

	dealer := ts.DealerIndex
	other := 1 - dealer
	target := 10
	for i := 0; i < maxRaisesPerRound; i++ {
		actor := dealer
		if i%2 == 1 {
			actor = other
		}
		require.NoError(t, e.ApplyAction("t3", Action{SeatIndex: actor, Kind: Raise, Amount: target}))
		target += 10
	}
	assert.Equal(t, maxRaisesPerRound, ts.Betting.RaisesThisRound)

	lastActor := other
	if maxRaisesPerRound%2 == 1 {
		lastActor = dealer
	}
	err = e.ApplyAction("t3", Action{SeatIndex: 1 - lastActor, Kind: Raise, Amount: target})
	assert.Error(t, err)
}

func TestThreeWayAllInProducesSidePotsAtShowdown(t *testing.T) {
	e := NewTableEngine()
	ts, err := e.Create("t4", poker.Texas, NoLimit, 1, 2, "1-2", true)
	require.NoError(t, err)
	_, err = e.AddSeat("t4", "a", "A", 50, 0)
	require.NoError(t, err)
	_, err = e.AddSeat("t4", "b", "B", 200, 1)
	require.NoError(t, err)
	_, err = e.AddSeat("t4", "c", "C", 200, 2)
	require.NoError(t, err)

	for _, s := range ts.Seats {
		if s != nil {
			require.NoError(t, e.ApplyAction("t4", Action{SeatIndex: s.SeatIndex, Kind: AllIn}))
		}
	}

	assert.Equal(t, Showdown, ts.Stage)
	// A seat that busted is purged (nil) after the hand; its stack was 0.
	total := 0
	for _, s := range ts.Seats {
		if s != nil {
			total += s.Stack
		}
	}
	assert.Equal(t, 450, total)
}
