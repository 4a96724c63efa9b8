package session

import (
	"context"
	"sync"
	"testing"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerroom/internal/auth"
	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/gameid"
	"github.com/lox/pokerroom/internal/handhistory"
	"github.com/lox/pokerroom/internal/lobby"
	"github.com/lox/pokerroom/internal/wallet"
)

// fakeSender records every event sent to it for assertions.
type fakeSender struct {
	mu     sync.Mutex
	events []string
	last   map[string]any
}

func (f *fakeSender) Send(event string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	if f.last == nil {
		f.last = make(map[string]any)
	}
	f.last[event] = data
	return nil
}

func (f *fakeSender) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == event {
			n++
		}
	}
	return n
}

func newTestCoordinator(t *testing.T) (*Coordinator, *game.TableEngine, *quartz.Mock) {
	t.Helper()
	engine := game.NewTableEngine()
	lb := lobby.New(engine, gameid.NewTableIDGenerator())
	validator := game.NewValidator(quartz.NewMock(t))
	clock := quartz.NewMock(t)
	c := New(engine, lb, validator, auth.NewNoopValidator(), wallet.NewNoop(), handhistory.NewStore(), clock)
	return c, engine, clock
}

func connectAs(t *testing.T, c *Coordinator, sessionID string) (*Session, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	s, err := c.Connect(context.Background(), sessionID, "any-token", sender)
	require.NoError(t, err)
	return s, sender
}

func TestConnectWithNoopValidatorIsUnauthenticated(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	s, _ := connectAs(t, c, "s1")
	assert.Empty(t, s.PlayerID())
}

func TestJoinTableRequiresAuthentication(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	_, err := engine.Create("t1", "texas", game.NoLimit, 1, 2, "1-2", true)
	require.NoError(t, err)
	s, _ := connectAs(t, c, "s1")

	reply := c.Dispatch(s, "joinTable", map[string]any{"tableId": "t1", "buyIn": 200, "seatIndex": 0})
	assert.False(t, reply["success"].(bool))
}

func TestJoinTableSeatsAuthenticatedPlayerAndBroadcasts(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	_, err := engine.Create("t1", "texas", game.NoLimit, 1, 2, "1-2", true)
	require.NoError(t, err)

	s, sender := connectAs(t, c, "s1")
	s.Bind("alice", "Alice")

	reply := c.Dispatch(s, "joinTable", map[string]any{"tableId": "t1", "buyIn": 200, "seatIndex": 0})
	require.True(t, reply["success"].(bool))
	assert.Equal(t, 1, sender.count("gameState"))
}

func TestActionRejectsMismatchedPlayerID(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	_, err := engine.Create("t1", "texas", game.NoLimit, 1, 2, "1-2", true)
	require.NoError(t, err)

	s1, _ := connectAs(t, c, "s1")
	s1.Bind("alice", "Alice")
	s2, _ := connectAs(t, c, "s2")
	s2.Bind("bob", "Bob")

	require.True(t, c.Dispatch(s1, "joinTable", map[string]any{"tableId": "t1", "buyIn": 200, "seatIndex": 0})["success"].(bool))
	require.True(t, c.Dispatch(s2, "joinTable", map[string]any{"tableId": "t1", "buyIn": 200, "seatIndex": 1})["success"].(bool))

	reply := c.Dispatch(s1, "action", map[string]any{"tableId": "t1", "playerId": "bob", "kind": "fold"})
	assert.False(t, reply["success"].(bool))
}

func TestTwoPlayersJoiningAutoStartsHandAndActionsDriveIt(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	_, err := engine.Create("t1", "texas", game.NoLimit, 1, 2, "1-2", true)
	require.NoError(t, err)

	s1, _ := connectAs(t, c, "s1")
	s1.Bind("alice", "Alice")
	s2, _ := connectAs(t, c, "s2")
	s2.Bind("bob", "Bob")

	require.True(t, c.Dispatch(s1, "joinTable", map[string]any{"tableId": "t1", "buyIn": 200, "seatIndex": 0})["success"].(bool))
	require.True(t, c.Dispatch(s2, "joinTable", map[string]any{"tableId": "t1", "buyIn": 200, "seatIndex": 1})["success"].(bool))

	ts, err := engine.State("t1")
	require.NoError(t, err)
	require.Equal(t, game.Preflop, ts.Stage)

	reply := c.Dispatch(s1, "action", map[string]any{"tableId": "t1", "playerId": "alice", "kind": "fold"})
	if !reply["success"].(bool) {
		reply = c.Dispatch(s2, "action", map[string]any{"tableId": "t1", "playerId": "bob", "kind": "fold"})
		require.True(t, reply["success"].(bool))
	}
}

func TestWatchTableReceivesSanitizedSpectatorState(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	_, err := engine.Create("t1", "texas", game.NoLimit, 1, 2, "1-2", true)
	require.NoError(t, err)

	watcher, sender := connectAs(t, c, "spectator")
	reply := c.Dispatch(watcher, "watchTable", map[string]any{"tableId": "t1"})
	require.True(t, reply["success"].(bool))
	assert.Equal(t, 1, sender.count("spectatorState"))
}

func TestDisconnectStartsGraceTimerAndExpiryRemovesSeat(t *testing.T) {
	c, engine, mock := newTestCoordinator(t)
	_, err := engine.Create("t1", "texas", game.NoLimit, 1, 2, "1-2", true)
	require.NoError(t, err)

	s1, _ := connectAs(t, c, "s1")
	s1.Bind("alice", "Alice")
	require.True(t, c.Dispatch(s1, "joinTable", map[string]any{"tableId": "t1", "buyIn": 200, "seatIndex": 0})["success"].(bool))

	c.Disconnect("s1")

	ts, err := engine.State("t1")
	require.NoError(t, err)
	require.NotNil(t, ts.Seats[0])
	assert.False(t, ts.Seats[0].IsConnected)

	mock.Advance(disconnectGrace).MustWait(context.Background())

	ts, err = engine.State("t1")
	require.NoError(t, err)
	assert.Nil(t, ts.Seats[0])
}

func TestReconnectBeforeGraceExpiryCancelsTimer(t *testing.T) {
	c, engine, mock := newTestCoordinator(t)
	_, err := engine.Create("t1", "texas", game.NoLimit, 1, 2, "1-2", true)
	require.NoError(t, err)

	s1, _ := connectAs(t, c, "s1")
	s1.Bind("alice", "Alice")
	require.True(t, c.Dispatch(s1, "joinTable", map[string]any{"tableId": "t1", "buyIn": 200, "seatIndex": 0})["success"].(bool))

	c.Disconnect("s1")

	s1b, _ := connectAs(t, c, "s1b")
	s1b.Bind("alice", "Alice")
	require.True(t, c.Dispatch(s1b, "joinTable", map[string]any{"tableId": "t1", "buyIn": 200, "seatIndex": 0})["success"].(bool))

	mock.Advance(disconnectGrace).MustWait(context.Background())

	ts, err := engine.State("t1")
	require.NoError(t, err)
	require.NotNil(t, ts.Seats[0])
	assert.True(t, ts.Seats[0].IsConnected)
}

func TestActionClockExpiryAppliesImplicitFold(t *testing.T) {
	c, engine, mock := newTestCoordinator(t)
	_, err := engine.Create("t1", "texas", game.NoLimit, 1, 2, "1-2", true)
	require.NoError(t, err)

	s1, _ := connectAs(t, c, "s1")
	s1.Bind("alice", "Alice")
	s2, _ := connectAs(t, c, "s2")
	s2.Bind("bob", "Bob")

	require.True(t, c.Dispatch(s1, "joinTable", map[string]any{"tableId": "t1", "buyIn": 200, "seatIndex": 0})["success"].(bool))
	require.True(t, c.Dispatch(s2, "joinTable", map[string]any{"tableId": "t1", "buyIn": 200, "seatIndex": 1})["success"].(bool))

	ts, err := engine.State("t1")
	require.NoError(t, err)
	require.Equal(t, game.Preflop, ts.Stage)
	onClock := ts.ActiveSeatIndex

	// Heads-up, so whoever is on the clock preflop still owes the blind
	// differential and cannot check: the implicit action must be a fold.
	mock.Advance(actionClock).MustWait(context.Background())

	ts, err = engine.State("t1")
	require.NoError(t, err)
	require.Len(t, ts.ActionLog, 1)
	assert.Equal(t, onClock, ts.ActionLog[0].SeatIndex)
	assert.Equal(t, game.Fold, ts.ActionLog[0].Kind)
}

func TestActionClockExpiryAppliesImplicitCheckWhenLegal(t *testing.T) {
	c, engine, mock := newTestCoordinator(t)
	_, err := engine.Create("t1", "texas", game.NoLimit, 1, 2, "1-2", true)
	require.NoError(t, err)

	s1, _ := connectAs(t, c, "s1")
	s1.Bind("alice", "Alice")
	s2, _ := connectAs(t, c, "s2")
	s2.Bind("bob", "Bob")

	require.True(t, c.Dispatch(s1, "joinTable", map[string]any{"tableId": "t1", "buyIn": 200, "seatIndex": 0})["success"].(bool))
	require.True(t, c.Dispatch(s2, "joinTable", map[string]any{"tableId": "t1", "buyIn": 200, "seatIndex": 1})["success"].(bool))

	ts, err := engine.State("t1")
	require.NoError(t, err)
	onClock := ts.ActiveSeatIndex
	onClockPlayer := ts.Seats[onClock].PlayerID
	var onClockSession *Session
	if onClockPlayer == "alice" {
		onClockSession = s1
	} else {
		onClockSession = s2
	}

	// Calling preflop brings both seats' CurrentRoundBet level, so the next
	// seat to act (now facing no bet to call) can legally check.
	require.True(t, c.Dispatch(onClockSession, "action", map[string]any{"tableId": "t1", "playerId": onClockPlayer, "kind": "call"})["success"].(bool))

	ts, err = engine.State("t1")
	require.NoError(t, err)
	require.Equal(t, game.Preflop, ts.Stage)
	secondOnClock := ts.ActiveSeatIndex
	require.NotEqual(t, onClock, secondOnClock)

	mock.Advance(actionClock).MustWait(context.Background())

	ts, err = engine.State("t1")
	require.NoError(t, err)
	last := ts.ActionLog[len(ts.ActionLog)-1]
	assert.Equal(t, secondOnClock, last.SeatIndex)
	assert.Equal(t, game.Check, last.Kind)
}

func TestGetTablesListsProvisionedTables(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	_, err := engine.Create("t1", "texas", game.NoLimit, 1, 2, "1-2", true)
	require.NoError(t, err)

	s, _ := connectAs(t, c, "s1")
	reply := c.Dispatch(s, "getTables", nil)
	require.True(t, reply["success"].(bool))
	tables, ok := reply["tables"].([]lobby.Summary)
	require.True(t, ok)
	assert.Len(t, tables, 1)
}
