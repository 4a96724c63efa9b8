package lobby

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerroom/internal/config"
	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/gameid"
)

func newTestLobby() *Lobby {
	return New(game.NewTableEngine(), gameid.NewTableIDGenerator())
}

func TestProvisionStakeLadderCreatesSystemTables(t *testing.T) {
	l := newTestLobby()
	stakes := []config.StakeConfig{
		{Variant: "texas", StakeLabel: "1-2", BettingType: "no_limit", SmallBlind: 1, BigBlind: 2, TableCount: 3},
		{Variant: "omaha", StakeLabel: "2-5", BettingType: "pot_limit", SmallBlind: 2, BigBlind: 5, TableCount: 2},
	}
	require.NoError(t, l.ProvisionStakeLadder(stakes))

	summaries := l.List()
	require.Len(t, summaries, 5)
	for _, s := range summaries {
		assert.True(t, s.System)
		assert.Zero(t, s.ConnectedSeats)
	}
}

func TestCreateUserTableIsNotSystem(t *testing.T) {
	l := newTestLobby()
	id, err := l.CreateUserTable("texas", "1-2", 1, 2, game.NoLimit)
	require.NoError(t, err)

	s, err := l.Get(id)
	require.NoError(t, err)
	assert.False(t, s.System)
	assert.Equal(t, "texas", s.Variant)
	assert.Equal(t, "1-2", s.StakeLabel)
	assert.Equal(t, "no_limit", s.BettingType)
}

func TestGetUnknownTableReturnsError(t *testing.T) {
	l := newTestLobby()
	_, err := l.Get("nonexistent")
	assert.Error(t, err)
}

func TestRemoveUserTableRefusesSystemTable(t *testing.T) {
	l := newTestLobby()
	require.NoError(t, l.ProvisionStakeLadder([]config.StakeConfig{
		{Variant: "texas", StakeLabel: "1-2", BettingType: "no_limit", SmallBlind: 1, BigBlind: 2, TableCount: 1},
	}))
	summaries := l.List()
	require.Len(t, summaries, 1)

	err := l.RemoveUserTable(summaries[0].ID)
	assert.Error(t, err)

	_, err = l.Get(summaries[0].ID)
	assert.NoError(t, err, "system table must still exist after the refused removal")
}

func TestEnsureCapacityMintsAnotherTableWhenClassIsFull(t *testing.T) {
	l := newTestLobby()
	require.NoError(t, l.ProvisionStakeLadder([]config.StakeConfig{
		{Variant: "texas", StakeLabel: "1-2", BettingType: "no_limit", SmallBlind: 1, BigBlind: 2, TableCount: 1},
	}))
	summaries := l.List()
	require.Len(t, summaries, 1)

	ts, err := l.engine.State(summaries[0].ID)
	require.NoError(t, err)
	for i := 0; i < ts.MaxSeats; i++ {
		ts.Seats[i] = &game.Seat{SeatIndex: i, PlayerID: "p"}
	}

	require.NoError(t, l.EnsureCapacity("texas", "1-2"))
	assert.Len(t, l.List(), 2, "a full class should mint one more system table")
}

func TestEnsureCapacityIsNoopWhenClassHasRoom(t *testing.T) {
	l := newTestLobby()
	require.NoError(t, l.ProvisionStakeLadder([]config.StakeConfig{
		{Variant: "texas", StakeLabel: "1-2", BettingType: "no_limit", SmallBlind: 1, BigBlind: 2, TableCount: 1},
	}))

	require.NoError(t, l.EnsureCapacity("texas", "1-2"))
	assert.Len(t, l.List(), 1, "an empty table is not at capacity")
}

func TestEnsureCapacityIgnoresUnconfiguredClass(t *testing.T) {
	l := newTestLobby()
	require.NoError(t, l.EnsureCapacity("omaha", "5-10"))
	assert.Empty(t, l.List(), "a class with no stake-ladder rung is never auto-provisioned")
}

func TestRemoveUserTableRemovesUserTable(t *testing.T) {
	l := newTestLobby()
	id, err := l.CreateUserTable("texas", "1-2", 1, 2, game.NoLimit)
	require.NoError(t, err)

	require.NoError(t, l.RemoveUserTable(id))

	_, err = l.Get(id)
	assert.Error(t, err)
}
