// Package game implements the Table Engine (§4.3): the only component
// permitted to mutate a table's state. Every table is represented by a
// TableState; TableEngine exposes the state machine's public operations.
package game

import (
	"errors"
	"sync"
	"time"

	"github.com/lox/pokerroom/internal/apperr"
	"github.com/lox/pokerroom/poker"
)

// TableState is the server's complete view of one table.
type TableState struct {
	ID          string
	Variant     poker.Variant
	BettingType BettingType
	SmallBlind  int
	BigBlind    int
	StakeLabel  string
	System      bool

	Stage Street

	Seats    []*Seat // len == MaxSeats; nil entry means the seat is empty
	MaxSeats int

	DealerIndex     int
	ActiveSeatIndex int // -1 when no seat is on the clock

	deck  *poker.Deck
	Board poker.Hand

	Betting *BettingRound

	HandNumber uint64
	Winners    []int

	LastActionAt time.Time

	// ActionLog is every action applied so far this hand, oldest first, per
	// §4.5's hand-history action sequence. Reset at the start of each hand.
	ActionLog []LoggedAction

	courchevelTurned bool
	dealerAssigned   bool
}

// LoggedAction is one action as applied to a hand's action sequence.
type LoggedAction struct {
	SeatIndex int
	Kind      ActionKind
	Amount    int
}

// TableEngine owns the registry of live tables. Per §5, every mutation of a
// given table's state is serialized by its caller (a per-table actor, see
// actor.go); TableEngine itself only guards the registry map, since the
// Lobby mints stake-ladder tables concurrently at startup (one goroutine
// per table via errgroup) and the Session Coordinator looks up tables from
// whichever goroutine is servicing a given connection.
type TableEngine struct {
	mu     sync.RWMutex
	tables map[string]*TableState
}

// NewTableEngine creates an empty table registry.
func NewTableEngine() *TableEngine {
	return &TableEngine{tables: make(map[string]*TableState)}
}

// Create registers a new table in the `waiting` stage.
func (e *TableEngine) Create(id string, variant poker.Variant, bettingType BettingType, smallBlind, bigBlind int, stakeLabel string, system bool) (*TableState, error) {
	spec, err := poker.SpecFor(variant)
	if err != nil {
		return nil, apperr.New(apperr.TableNotFound, "unknown variant: %v", err)
	}
	ts := &TableState{
		ID:              id,
		Variant:         variant,
		BettingType:     bettingType,
		SmallBlind:      smallBlind,
		BigBlind:        bigBlind,
		StakeLabel:      stakeLabel,
		System:          system,
		Stage:           Waiting,
		Seats:           make([]*Seat, spec.MaxSeats),
		MaxSeats:        spec.MaxSeats,
		ActiveSeatIndex: -1,
		Betting:         newBettingRound(bigBlind),
	}
	e.mu.Lock()
	e.tables[id] = ts
	e.mu.Unlock()
	return ts, nil
}

func (e *TableEngine) get(id string) (*TableState, error) {
	e.mu.RLock()
	ts, ok := e.tables[id]
	e.mu.RUnlock()
	if !ok {
		return nil, apperr.New(apperr.TableNotFound, "table %q not found", id)
	}
	return ts, nil
}

// State returns the live TableState for id, for read-only use by the Lobby
// and Session Coordinator (table listing, projection). Callers outside the
// table's own actor must not mutate the returned value.
func (e *TableEngine) State(id string) (*TableState, error) {
	return e.get(id)
}

// Remove drops a table from the registry entirely, e.g. when the Lobby
// tears down a user-created table.
func (e *TableEngine) Remove(id string) {
	e.mu.Lock()
	delete(e.tables, id)
	e.mu.Unlock()
}

// IDs returns every currently registered table id, in no particular order.
func (e *TableEngine) IDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.tables))
	for id := range e.tables {
		out = append(out, id)
	}
	return out
}

// AddSeat seats a player, per §4.3 addSeat. Re-attaches an existing
// disconnected seat for the same player rather than creating a second one.
func (e *TableEngine) AddSeat(id, playerID, displayName string, buyIn, seatIndex int) (int, error) {
	ts, err := e.get(id)
	if err != nil {
		return 0, err
	}

	for _, s := range ts.Seats {
		if s == nil || s.PlayerID != playerID {
			continue
		}
		if s.IsConnected {
			return 0, apperr.New(apperr.AlreadySeated, "player %q already seated at %q", playerID, id)
		}
		s.IsConnected = true
		s.DisplayName = displayName
		return s.SeatIndex, nil
	}

	idx := seatIndex
	if idx < 0 || idx >= ts.MaxSeats || ts.Seats[idx] != nil {
		idx = -1
		for i, s := range ts.Seats {
			if s == nil {
				idx = i
				break
			}
		}
		if idx == -1 {
			return 0, apperr.New(apperr.TableFull, "table %q has no free seats", id)
		}
	}

	ts.Seats[idx] = &Seat{
		SeatIndex:   idx,
		PlayerID:    playerID,
		DisplayName: displayName,
		Stack:       buyIn,
		IsConnected: true,
	}

	if ts.Stage == Waiting && countConnected(ts.Seats) >= 2 {
		_, _ = e.StartHand(id) // best-effort auto-start; a failure here just leaves the table waiting
	}

	return idx, nil
}

// RemoveSeat removes or folds-and-disconnects a seat, per §4.3 removeSeat.
func (e *TableEngine) RemoveSeat(id, playerID string) error {
	ts, err := e.get(id)
	if err != nil {
		return err
	}
	for i, s := range ts.Seats {
		if s == nil || s.PlayerID != playerID {
			continue
		}
		if ts.Stage == Waiting || ts.Stage == Showdown {
			ts.Seats[i] = nil
			return nil
		}
		s.Folded = true
		s.IsConnected = false
		return nil
	}
	return apperr.New(apperr.NotInHand, "player %q not seated at %q", playerID, id)
}

func countConnected(seats []*Seat) int {
	n := 0
	for _, s := range seats {
		if s != nil && s.IsConnected {
			n++
		}
	}
	return n
}

// occupiedSeats returns every non-empty seat, dropping the sparse nils that
// mark empty positions in TableState.Seats.
func occupiedSeats(seats []*Seat) []*Seat {
	out := make([]*Seat, 0, len(seats))
	for _, s := range seats {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func occupiedCount(seats []*Seat) int {
	n := 0
	for _, s := range seats {
		if s != nil {
			n++
		}
	}
	return n
}

// nextOccupied returns the next occupied seat index strictly after `from`,
// wrapping around the table, or -1 if no other seat is occupied.
func nextOccupied(seats []*Seat, from int) int {
	n := len(seats)
	for step := 1; step <= n; step++ {
		i := (from + step) % n
		if seats[i] != nil {
			return i
		}
	}
	return -1
}

// nextToAct returns the next seat strictly after `from` that CanAct, or -1.
func nextToAct(seats []*Seat, from int) int {
	n := len(seats)
	for step := 1; step <= n; step++ {
		i := (from + step) % n
		if seats[i] != nil && seats[i].CanAct() {
			return i
		}
	}
	return -1
}

// StartHand deals a fresh hand, per §4.3 startHand. Returns (nil, nil) when
// fewer than two seats remain after purging disconnected/stackless players.
func (e *TableEngine) StartHand(id string) (*TableState, error) {
	ts, err := e.get(id)
	if err != nil {
		return nil, err
	}

	for i, s := range ts.Seats {
		if s != nil && (!s.IsConnected || s.Stack <= 0) {
			ts.Seats[i] = nil
		}
	}
	if occupiedCount(ts.Seats) < 2 {
		return nil, nil
	}

	spec, err := poker.SpecFor(ts.Variant)
	if err != nil {
		return nil, err
	}

	for _, s := range ts.Seats {
		if s != nil {
			s.resetForNewHand()
		}
	}
	ts.Board = 0
	ts.Winners = nil
	ts.ActionLog = nil
	ts.courchevelTurned = false

	deck, err := poker.NewDeck(ts.Variant)
	if err != nil {
		return nil, err
	}
	ts.deck = deck

	if !ts.dealerAssigned {
		ts.DealerIndex = firstOccupied(ts.Seats)
		ts.dealerAssigned = true
	} else {
		ts.DealerIndex = nextOccupied(ts.Seats, ts.DealerIndex)
	}

	for _, s := range ts.Seats {
		if s == nil {
			continue
		}
		cards, err := ts.deck.Draw(spec.HoleCards)
		if err != nil {
			return nil, err
		}
		s.HoleCards = poker.NewHand(cards...)
	}

	if spec.CourchevelFlop {
		card, err := ts.deck.Draw(1)
		if err != nil {
			return nil, err
		}
		ts.Board = poker.NewHand(card...)
		ts.courchevelTurned = true
	}

	headsUp := occupiedCount(ts.Seats) == 2
	var sbIdx, bbIdx int
	if headsUp {
		sbIdx = ts.DealerIndex
		bbIdx = nextOccupied(ts.Seats, sbIdx)
	} else {
		sbIdx = nextOccupied(ts.Seats, ts.DealerIndex)
		bbIdx = nextOccupied(ts.Seats, sbIdx)
	}
	ts.Seats[sbIdx].contribute(ts.SmallBlind)
	ts.Seats[bbIdx].contribute(ts.BigBlind)

	ts.Betting = newBettingRound(ts.BigBlind)
	ts.Betting.CurrentHighBet = ts.BigBlind

	ts.Stage = Preflop
	ts.HandNumber++
	ts.ActiveSeatIndex = nextToAct(ts.Seats, bbIdx)
	ts.LastActionAt = time.Now()

	return ts, nil
}

func firstOccupied(seats []*Seat) int {
	for i, s := range seats {
		if s != nil {
			return i
		}
	}
	return -1
}

// Action is a player's request to act on their table.
type Action struct {
	SeatIndex int
	Kind      ActionKind
	Amount    int // the target total bet T, for Raise; the stack amount is implicit for AllIn
}

var errHandNotInProgress = errors.New("game: hand not in progress")

// ApplyAction validates and applies an action, per §4.3's action semantics
// table, then resolves round completion, stage advance, or showdown.
func (e *TableEngine) ApplyAction(id string, action Action) error {
	ts, err := e.get(id)
	if err != nil {
		return err
	}
	if ts.Stage == Waiting || ts.Stage == Showdown {
		return apperr.New(apperr.NotInHand, "%v", errHandNotInProgress)
	}
	if action.SeatIndex < 0 || action.SeatIndex >= len(ts.Seats) || ts.Seats[action.SeatIndex] == nil {
		return apperr.New(apperr.NotInHand, "seat %d is not occupied", action.SeatIndex)
	}
	if action.SeatIndex != ts.ActiveSeatIndex {
		return apperr.New(apperr.NotYourTurn, "seat %d is not on the clock", action.SeatIndex)
	}
	seat := ts.Seats[action.SeatIndex]
	if !seat.CanAct() {
		return apperr.New(apperr.NotInHand, "seat %d cannot act", action.SeatIndex)
	}

	if err := e.applyOne(ts, seat, action); err != nil {
		return err
	}

	ts.ActionLog = append(ts.ActionLog, LoggedAction{SeatIndex: action.SeatIndex, Kind: action.Kind, Amount: action.Amount})
	ts.LastActionAt = time.Now()
	e.resolveAfterAction(ts)
	return nil
}

func (e *TableEngine) applyOne(ts *TableState, seat *Seat, action Action) error {
	br := ts.Betting
	toCall := br.CurrentHighBet - seat.CurrentRoundBet

	switch action.Kind {
	case Fold:
		seat.Folded = true
		seat.HasActed = true

	case Check:
		if toCall != 0 {
			return apperr.NewIllegal(apperr.CheckWhenMustCall, "cannot check, %d owed", toCall)
		}
		seat.HasActed = true

	case Call:
		amount := toCall
		if amount > seat.Stack {
			amount = seat.Stack
		}
		seat.contribute(amount)
		seat.HasActed = true

	case Raise:
		if seat.HasActed {
			return apperr.NewIllegal(apperr.BelowMinRaise, "betting has not reopened since seat %d last acted", seat.SeatIndex)
		}
		target := action.Amount
		if target <= br.CurrentHighBet {
			return apperr.NewIllegal(apperr.BelowMinRaise, "raise target %d does not exceed current bet %d", target, br.CurrentHighBet)
		}
		increment := target - br.CurrentHighBet
		if increment < br.LastRaiseAmount {
			return apperr.NewIllegal(apperr.BelowMinRaise, "raise increment %d below minimum %d", increment, br.LastRaiseAmount)
		}
		if br.RaisesThisRound >= maxRaisesPerRound {
			return apperr.NewIllegal(apperr.MaxRaisesReached, "raise cap of %d reached", maxRaisesPerRound)
		}
		contribution := target - seat.CurrentRoundBet
		if contribution > seat.Stack {
			return apperr.NewIllegal(apperr.InsufficientStack, "stack %d cannot cover raise to %d", seat.Stack, target)
		}
		if ts.BettingType == PotLimit {
			potCeiling := potTotal(ts) + br.CurrentHighBet + toCall
			if target > potCeiling {
				return apperr.NewIllegal(apperr.AbovePotLimit, "raise to %d exceeds pot-limit ceiling %d", target, potCeiling)
			}
		}
		prevHigh := br.CurrentHighBet
		seat.contribute(contribution)
		br.CurrentHighBet = target
		br.LastRaiseAmount = target - prevHigh
		br.RaisesThisRound++
		br.LastRaiser = seat.SeatIndex
		seat.HasActed = true
		clearActedExcept(ts.Seats, seat.SeatIndex)

	case AllIn:
		if seat.Stack <= 0 {
			return apperr.NewIllegal(apperr.InsufficientStack, "seat %d has no stack to push all-in", seat.SeatIndex)
		}
		seat.contribute(seat.Stack)
		newTotal := seat.CurrentRoundBet
		if newTotal > br.CurrentHighBet {
			increment := newTotal - br.CurrentHighBet
			prevHigh := br.CurrentHighBet
			br.CurrentHighBet = newTotal
			br.RaisesThisRound++
			br.LastRaiser = seat.SeatIndex
			if increment >= br.LastRaiseAmount {
				// Full raise: reopens betting for everyone else.
				br.LastRaiseAmount = newTotal - prevHigh
				clearActedExcept(ts.Seats, seat.SeatIndex)
			}
			// Under-raise all-in: currentHighBet still rises (others must
			// call the new amount or fold) but minRaise and HasActed for
			// seats that already acted are left untouched, so a player who
			// already had a full turn this round cannot use it to re-raise.
		}
		seat.HasActed = true

	default:
		return apperr.New(apperr.ActionIllegal, "unknown action kind %v", action.Kind)
	}

	return nil
}

// clearActedExcept re-opens the betting round for every non-folded,
// non-all-in seat other than the raiser, per the raise effect in §4.3.
func clearActedExcept(seats []*Seat, raiser int) {
	for _, s := range seats {
		if s == nil || s.SeatIndex == raiser {
			continue
		}
		if !s.Folded && !s.IsAllIn {
			s.HasActed = false
		}
	}
}

func potTotal(ts *TableState) int {
	total := 0
	for _, s := range ts.Seats {
		if s != nil {
			total += s.TotalBetThisHand
		}
	}
	return total
}

func nonFolded(seats []*Seat) []*Seat {
	var out []*Seat
	for _, s := range seats {
		if s != nil && !s.Folded {
			out = append(out, s)
		}
	}
	return out
}

// resolveAfterAction implements §4.3's round-completion and stage-advance
// rules after an action has been applied.
func (e *TableEngine) resolveAfterAction(ts *TableState) {
	live := nonFolded(ts.Seats)
	if len(live) == 1 {
		e.goToShowdown(ts)
		return
	}

	var toAct []*Seat
	for _, s := range live {
		if s.CanAct() {
			toAct = append(toAct, s)
		}
	}

	roundDone := true
	for _, s := range toAct {
		if !s.HasActed || s.CurrentRoundBet != ts.Betting.CurrentHighBet {
			roundDone = false
			break
		}
	}
	if !roundDone {
		ts.ActiveSeatIndex = nextToAct(ts.Seats, ts.ActiveSeatIndex)
		return
	}

	if len(toAct) <= 1 {
		e.runOutBoard(ts)
		e.goToShowdown(ts)
		return
	}

	e.advanceStage(ts)
}

// advanceStage deals the next street and resets per-street betting fields.
func (e *TableEngine) advanceStage(ts *TableState) {
	for _, s := range ts.Seats {
		if s != nil {
			s.resetForNewStreet()
		}
	}
	ts.Betting.resetForNewStreet()

	switch ts.Stage {
	case Preflop:
		n := 3
		if ts.courchevelTurned {
			n = 2
		}
		cards, err := ts.deck.Draw(n)
		if err != nil {
			e.abortHandOnFatalError(ts, err)
			return
		}
		ts.Board |= poker.NewHand(cards...)
		ts.Stage = Flop
	case Flop:
		cards, err := ts.deck.Draw(1)
		if err != nil {
			e.abortHandOnFatalError(ts, err)
			return
		}
		ts.Board |= poker.NewHand(cards...)
		ts.Stage = Turn
	case Turn:
		cards, err := ts.deck.Draw(1)
		if err != nil {
			e.abortHandOnFatalError(ts, err)
			return
		}
		ts.Board |= poker.NewHand(cards...)
		ts.Stage = River
	case River:
		e.goToShowdown(ts)
		return
	}

	first := nextToAct(ts.Seats, ts.DealerIndex)
	ts.ActiveSeatIndex = first
	if first == -1 {
		e.runOutBoard(ts)
		e.goToShowdown(ts)
	}
}

// runOutBoard deals every remaining community card when all live players
// are committed (all-in or the sole actor), per §4.3's round-completion rule.
func (e *TableEngine) runOutBoard(ts *TableState) {
	for ts.Stage != River && ts.Stage != Showdown {
		switch ts.Stage {
		case Preflop:
			n := 3
			if ts.courchevelTurned {
				n = 2
			}
			cards, err := ts.deck.Draw(n)
			if err != nil {
				e.abortHandOnFatalError(ts, err)
				return
			}
			ts.Board |= poker.NewHand(cards...)
			ts.Stage = Flop
		case Flop:
			cards, err := ts.deck.Draw(1)
			if err != nil {
				e.abortHandOnFatalError(ts, err)
				return
			}
			ts.Board |= poker.NewHand(cards...)
			ts.Stage = Turn
		case Turn:
			cards, err := ts.deck.Draw(1)
			if err != nil {
				e.abortHandOnFatalError(ts, err)
				return
			}
			ts.Board |= poker.NewHand(cards...)
			ts.Stage = River
		}
	}
}

// abortHandOnFatalError implements §7's fatal-invariant-violation policy:
// refund every seat's contribution this hand and reset to waiting.
func (e *TableEngine) abortHandOnFatalError(ts *TableState, _ error) {
	for _, s := range ts.Seats {
		if s == nil {
			continue
		}
		s.Stack += s.TotalBetThisHand
		s.resetForNewHand()
	}
	ts.Stage = Waiting
	ts.ActiveSeatIndex = -1
	ts.Board = 0
}

// goToShowdown evaluates all live hands (or awards uncontested), distributes
// every pot per §4.3, and leaves the table ready for the next hand.
func (e *TableEngine) goToShowdown(ts *TableState) {
	ts.Stage = Showdown
	ts.ActiveSeatIndex = -1

	live := nonFolded(ts.Seats)
	if len(live) == 1 {
		live[0].Stack += potTotal(ts)
		ts.Winners = []int{live[0].SeatIndex}
		e.purgeAfterHand(ts)
		return
	}

	pots := CalculatePots(occupiedSeats(ts.Seats))
	winners := make(map[int]bool)
	for _, pot := range pots {
		awardPot(ts, pot, winners)
	}
	ts.Winners = ts.Winners[:0]
	for idx := range winners {
		ts.Winners = append(ts.Winners, idx)
	}

	e.purgeAfterHand(ts)
}

// awardPot distributes a single pot to its high-hand (and, for hi-lo
// variants, low-hand) winners, splitting evenly with odd chips going to the
// first eligible winner clockwise from the dealer (§4.3).
func awardPot(ts *TableState, pot Pot, winners map[int]bool) {
	spec, err := poker.SpecFor(ts.Variant)
	if err != nil || len(pot.Eligible) == 0 {
		return
	}

	entries := make([]scoredSeat, 0, len(pot.Eligible))
	for _, idx := range pot.Eligible {
		seat := ts.Seats[idx]
		high, err := poker.EvaluateBest(seat.HoleCards, ts.Board, ts.Variant)
		if err != nil {
			continue
		}
		var low poker.LowResult
		if spec.HiLo {
			low, _ = poker.EvaluateLow(seat.HoleCards, ts.Board, ts.Variant)
		}
		entries = append(entries, scoredSeat{idx: idx, high: high, low: low})
	}
	if len(entries) == 0 {
		return
	}

	highWinners := bestByHigh(entries)
	lowWinners, hasLow := bestByLow(entries)

	if spec.HiLo && hasLow {
		half := pot.Amount / 2
		remainder := pot.Amount - half*2
		distribute(ts, highWinners, half, winners)
		distribute(ts, lowWinners, half+remainder, winners)
		return
	}
	distribute(ts, highWinners, pot.Amount, winners)
}

// scoredSeat pairs a pot-eligible seat with its evaluated high (and,
// for hi-lo variants, low) hand.
type scoredSeat struct {
	idx  int
	high poker.Result
	low  poker.LowResult
}

func bestByHigh(entries []scoredSeat) []int {
	best := entries[0].high
	out := []int{entries[0].idx}
	for _, e := range entries[1:] {
		cmp := poker.CompareHands(e.high, best)
		if cmp > 0 {
			best = e.high
			out = []int{e.idx}
		} else if cmp == 0 {
			out = append(out, e.idx)
		}
	}
	return out
}

func bestByLow(entries []scoredSeat) ([]int, bool) {
	var best poker.LowResult
	var out []int
	found := false
	for _, e := range entries {
		if !e.low.Qualifies {
			continue
		}
		if !found {
			best = e.low
			out = []int{e.idx}
			found = true
			continue
		}
		cmp := poker.CompareLow(e.low, best)
		if cmp > 0 {
			best = e.low
			out = []int{e.idx}
		} else if cmp == 0 {
			out = append(out, e.idx)
		}
	}
	return out, found
}

// distribute splits amount evenly across winning seat indexes, giving the
// remainder to the first winner in seat order clockwise from the dealer.
func distribute(ts *TableState, seatIdxs []int, amount int, winners map[int]bool) {
	if len(seatIdxs) == 0 || amount == 0 {
		return
	}
	share := amount / len(seatIdxs)
	remainder := amount - share*len(seatIdxs)

	ordered := orderClockwiseFromDealer(ts, seatIdxs)
	for i, idx := range ordered {
		give := share
		if i == 0 {
			give += remainder
		}
		ts.Seats[idx].Stack += give
		winners[idx] = true
	}
}

func orderClockwiseFromDealer(ts *TableState, seatIdxs []int) []int {
	set := make(map[int]bool, len(seatIdxs))
	for _, i := range seatIdxs {
		set[i] = true
	}
	n := len(ts.Seats)
	out := make([]int, 0, len(seatIdxs))
	for step := 1; step <= n; step++ {
		i := (ts.DealerIndex + step) % n
		if set[i] {
			out = append(out, i)
		}
	}
	return out
}

// purgeAfterHand removes disconnected or stackless seats after showdown, per
// §4.3. It does not auto-start the next hand; that is the Session
// Coordinator's job (§4.7 next-hand scheduling).
func (e *TableEngine) purgeAfterHand(ts *TableState) {
	for i, s := range ts.Seats {
		if s != nil && (!s.IsConnected || s.Stack <= 0) {
			ts.Seats[i] = nil
		}
	}
}
