// Package session implements the Session Coordinator (§4.7): it maps
// transport sessions to (playerId, tableId), dispatches client requests,
// authorizes player-scoped messages, and fans out per-viewer projections.
// Grounded on internal/server/bot.go's per-connection state and
// internal/server/game_manager.go's map-of-instances shape, generalized
// from a single bot-per-socket model to sessions that can watch, seat, and
// reconnect independently of any one table.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/pokerroom/internal/apperr"
	"github.com/lox/pokerroom/internal/auth"
	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/gameid"
	"github.com/lox/pokerroom/internal/handhistory"
	"github.com/lox/pokerroom/internal/lobby"
	"github.com/lox/pokerroom/internal/wallet"
	"github.com/lox/pokerroom/poker"
)

// Disconnect grace, next-hand scheduling, and action-clock delays (§4.7,
// §4.3's turn timer).
const (
	disconnectGrace = 30 * time.Second
	nextHandDelay   = 5 * time.Second
	actionClock     = 30 * time.Second
)

// Sender delivers one named event to a single transport session. Grounded
// on Bot.SendMessage, generalized from a raw []byte push over msgpack to an
// (event, data) pair since the wire envelope is JSON per §6.
type Sender interface {
	Send(event string, data any) error
}

// Session is one connected transport session. It may be unauthenticated
// (spectator-only), authenticated but unseated, or bound to a seat at one
// table; it may also watch a table without a seat, or subscribe to the
// lobby's table list.
type Session struct {
	ID     string
	sender Sender

	mu          sync.RWMutex
	playerID    string
	displayName string
	tableID     string
	watching    bool
}

// Bind records the session's resolved identity after a successful handshake.
func (s *Session) Bind(playerID, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerID = playerID
	s.displayName = displayName
}

// PlayerID returns the session's bound player id, or "" if unauthenticated.
func (s *Session) PlayerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerID
}

func (s *Session) setTable(tableID string, watching bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tableID = tableID
	s.watching = watching
}

func (s *Session) clearTable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tableID = ""
	s.watching = false
}

func (s *Session) currentTable() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tableID, s.watching
}

func (s *Session) send(event string, data any) {
	if s.sender == nil {
		return
	}
	_ = s.sender.Send(event, data)
}

// Coordinator is the Session Coordinator (C7). One Coordinator serves a
// whole server process: every table's mutations are funneled through that
// table's own TableActor, so the Coordinator itself never blocks one
// table's callers behind another's.
type Coordinator struct {
	engine    *game.TableEngine
	lobby     *lobby.Lobby
	validator *game.Validator
	auther    auth.Validator
	wallet    wallet.Adapter
	history   *handhistory.Store
	clock     quartz.Clock

	mu              sync.Mutex
	sessions        map[string]*Session
	tableSessions   map[string]map[string]struct{} // tableId -> sessionIds (seated + watching)
	lobbySubs       map[string]struct{}
	actors          map[string]*game.TableActor
	disconnectTimer map[string]*quartz.Timer // key: tableId+"/"+playerId
	nextHandTimer   map[string]*quartz.Timer // key: tableId
	actionTimer     map[string]*quartz.Timer // key: tableId
	actionTimerSeat map[string]int           // key: tableId, the seat the live actionTimer is clocking

	preHandStacks map[string]map[int]int // tableId -> seatIndex -> stack before the live hand
	settledHand   map[string]uint64      // tableId -> last hand number settled with the wallet
}

// New constructs a Coordinator. clock should be quartz.NewReal() in
// production and quartz.NewMock(t) in tests.
func New(engine *game.TableEngine, lb *lobby.Lobby, validator *game.Validator, auther auth.Validator, wal wallet.Adapter, history *handhistory.Store, clock quartz.Clock) *Coordinator {
	return &Coordinator{
		engine:          engine,
		lobby:           lb,
		validator:       validator,
		auther:          auther,
		wallet:          wal,
		history:         history,
		clock:           clock,
		sessions:        make(map[string]*Session),
		tableSessions:   make(map[string]map[string]struct{}),
		lobbySubs:       make(map[string]struct{}),
		actors:          make(map[string]*game.TableActor),
		disconnectTimer: make(map[string]*quartz.Timer),
		nextHandTimer:   make(map[string]*quartz.Timer),
		actionTimer:     make(map[string]*quartz.Timer),
		actionTimerSeat: make(map[string]int),
		preHandStacks:   make(map[string]map[int]int),
		settledHand:     make(map[string]uint64),
	}
}

// Connect registers a new session. If token resolves to an identity the
// session is bound to it; otherwise the session may still spectate (§4.7
// Connection). A definitively invalid token is rejected outright.
func (c *Coordinator) Connect(ctx context.Context, sessionID string, token string, sender Sender) (*Session, error) {
	s := &Session{ID: sessionID, sender: sender}

	identity, err := c.auther.Validate(ctx, token)
	if err != nil {
		s.send("authError", map[string]any{"error": err.Error()})
		return nil, err
	}
	if identity != nil {
		s.Bind(identity.PlayerID, identity.DisplayName)
	}

	c.mu.Lock()
	c.sessions[sessionID] = s
	c.mu.Unlock()
	return s, nil
}

// Disconnect tears down a session's transport-visible state. If it held a
// seat, the seat is marked disconnected and a 30-second grace timer starts
// (§4.7 Disconnect grace); purely watching/lobby subscriptions are dropped
// immediately.
func (c *Coordinator) Disconnect(sessionID string) {
	c.mu.Lock()
	s, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.sessions, sessionID)
	delete(c.lobbySubs, sessionID)
	for _, members := range c.tableSessions {
		delete(members, sessionID)
	}
	c.mu.Unlock()

	tableID, watching := s.currentTable()
	if tableID == "" || watching {
		return
	}
	playerID := s.PlayerID()
	if playerID == "" {
		return
	}

	c.withTable(tableID, func(ts *game.TableState) {
		for _, seat := range ts.Seats {
			if seat != nil && seat.PlayerID == playerID {
				seat.IsConnected = false
			}
		}
	})
	c.broadcastTable(tableID)
	c.startDisconnectTimer(tableID, playerID)
}

func (c *Coordinator) startDisconnectTimer(tableID, playerID string) {
	key := tableID + "/" + playerID
	c.mu.Lock()
	if existing, ok := c.disconnectTimer[key]; ok {
		existing.Stop()
	}
	timer := c.clock.AfterFunc(disconnectGrace, func() {
		c.expireDisconnect(tableID, playerID)
	})
	c.disconnectTimer[key] = timer
	c.mu.Unlock()
}

func (c *Coordinator) cancelDisconnectTimer(tableID, playerID string) {
	key := tableID + "/" + playerID
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.disconnectTimer[key]; ok {
		existing.Stop()
		delete(c.disconnectTimer, key)
	}
}

func (c *Coordinator) expireDisconnect(tableID, playerID string) {
	c.mu.Lock()
	delete(c.disconnectTimer, tableID+"/"+playerID)
	c.mu.Unlock()

	_ = c.engine.RemoveSeat(tableID, playerID)
	c.broadcastTable(tableID)
}

// actorFor lazily creates the per-table actor that serializes every
// mutation of tableID's state (§5).
func (c *Coordinator) actorFor(tableID string) *game.TableActor {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.actors[tableID]
	if !ok {
		a = game.NewTableActor(64)
		c.actors[tableID] = a
	}
	return a
}

func (c *Coordinator) withTable(tableID string, fn func(ts *game.TableState)) error {
	ts, err := c.engine.State(tableID)
	if err != nil {
		return err
	}
	return c.actorFor(tableID).Submit(context.Background(), func() {
		fn(ts)
	})
}

// Dispatch routes one decoded client event to its handler (§4.7 Dispatch;
// §6's client->server event list). It returns the reply payload for the
// `{success, error?, ...}` envelope §6 mandates.
func (c *Coordinator) Dispatch(s *Session, event string, data map[string]any) map[string]any {
	var err error
	var extra map[string]any

	switch event {
	case "createUserTable":
		extra, err = c.handleCreateUserTable(data)
	case "joinTable":
		err = c.handleJoinTable(s, data)
	case "leaveTable":
		err = c.handleLeaveTable(s, data)
	case "startHand":
		err = c.handleStartHand(s, data)
	case "action":
		err = c.handleAction(s, data)
	case "changeSeat":
		err = c.handleChangeSeat(s, data)
	case "watchTable":
		err = c.handleWatchTable(s, data)
	case "unwatchTable":
		err = c.handleUnwatchTable(s, data)
	case "getTables":
		extra = map[string]any{"tables": c.lobby.List()}
	case "subscribeTables":
		c.mu.Lock()
		c.lobbySubs[s.ID] = struct{}{}
		c.mu.Unlock()
		extra = map[string]any{"tables": c.lobby.List()}
	case "unsubscribeTables":
		c.mu.Lock()
		delete(c.lobbySubs, s.ID)
		c.mu.Unlock()
	case "getState":
		extra, err = c.handleGetState(s, data)
	default:
		err = fmt.Errorf("session: unrecognized event %q", event)
	}

	if err != nil {
		return map[string]any{"success": false, "error": err.Error()}
	}
	reply := map[string]any{"success": true}
	for k, v := range extra {
		reply[k] = v
	}
	return reply
}

func requireAuth(s *Session) (string, error) {
	playerID := s.PlayerID()
	if playerID == "" {
		return "", apperr.New(apperr.NotAuthenticated, "session is not authenticated")
	}
	return playerID, nil
}

// requireOwnership enforces §4.7 Authorization: a player-scoped message's
// claimed player id must equal the session's bound identity.
func requireOwnership(s *Session, claimedPlayerID string) error {
	bound, err := requireAuth(s)
	if err != nil {
		return err
	}
	if claimedPlayerID != "" && claimedPlayerID != bound {
		return apperr.New(apperr.Unauthorized, "claimed player id does not match the session's identity")
	}
	return nil
}

func stringField(data map[string]any, key string) string {
	v, _ := data[key].(string)
	return v
}

func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (c *Coordinator) handleCreateUserTable(data map[string]any) (map[string]any, error) {
	variant := poker.Variant(stringField(data, "variant"))
	stakeLabel := stringField(data, "stakeLabel")
	bettingType := game.NoLimit
	if stringField(data, "bettingType") == "pot_limit" {
		bettingType = game.PotLimit
	}
	blinds, _ := data["blinds"].(map[string]any)
	small := intField(blinds, "small")
	big := intField(blinds, "big")

	id, err := c.lobby.CreateUserTable(variant, stakeLabel, small, big, bettingType)
	if err != nil {
		return nil, err
	}
	return map[string]any{"tableId": id}, nil
}

func (c *Coordinator) handleJoinTable(s *Session, data map[string]any) error {
	playerID, err := requireAuth(s)
	if err != nil {
		return err
	}
	tableID := stringField(data, "tableId")
	buyIn := intField(data, "buyIn")
	seatIndex := intField(data, "seatIndex")

	if err := c.wallet.Reserve(context.Background(), playerID, buyIn); err != nil {
		return err
	}

	displayName := s.displayNameSnapshot()
	if _, err := c.engine.AddSeat(tableID, playerID, displayName, buyIn, seatIndex); err != nil {
		return err
	}
	s.setTable(tableID, false)
	c.addWatcher(tableID, s.ID)
	c.cancelDisconnectTimer(tableID, playerID)
	c.broadcastTable(tableID)

	if ts, err := c.engine.State(tableID); err == nil {
		// best-effort: a failure to mint extra stake-ladder capacity should
		// not fail the join that triggered it.
		_ = c.lobby.EnsureCapacity(string(ts.Variant), ts.StakeLabel)
	}
	return nil
}

func (s *Session) displayNameSnapshot() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.displayName
}

func (c *Coordinator) handleLeaveTable(s *Session, data map[string]any) error {
	playerID, err := requireAuth(s)
	if err != nil {
		return err
	}
	tableID := stringField(data, "tableId")
	if err := c.engine.RemoveSeat(tableID, playerID); err != nil {
		return err
	}
	c.removeWatcher(tableID, s.ID)
	s.clearTable()
	c.broadcastTable(tableID)
	return nil
}

func (c *Coordinator) handleStartHand(s *Session, data map[string]any) error {
	if _, err := requireAuth(s); err != nil {
		return err
	}
	tableID := stringField(data, "tableId")

	pre, err := c.engine.State(tableID)
	if err != nil {
		return err
	}
	preStacks := snapshotStacks(pre)

	if _, err := c.engine.StartHand(tableID); err != nil {
		return err
	}
	c.mu.Lock()
	c.preHandStacks[tableID] = preStacks
	c.mu.Unlock()
	c.broadcastTable(tableID)
	return nil
}

func snapshotStacks(ts *game.TableState) map[int]int {
	out := make(map[int]int, len(ts.Seats))
	for _, seat := range ts.Seats {
		if seat != nil {
			out[seat.SeatIndex] = seat.Stack
		}
	}
	return out
}

func (c *Coordinator) handleAction(s *Session, data map[string]any) error {
	playerID, err := requireAuth(s)
	if err != nil {
		return err
	}
	tableID := stringField(data, "tableId")
	claimed := stringField(data, "playerId")
	if err := requireOwnership(s, claimed); err != nil {
		return err
	}

	ts, err := c.engine.State(tableID)
	if err != nil {
		return err
	}
	seatIndex := -1
	for _, seat := range ts.Seats {
		if seat != nil && seat.PlayerID == playerID {
			seatIndex = seat.SeatIndex
		}
	}
	if seatIndex < 0 {
		return apperr.New(apperr.NotInHand, "player %q is not seated at table %q", playerID, tableID)
	}

	kind, err := parseActionKind(stringField(data, "kind"))
	if err != nil {
		return err
	}
	action := game.Action{SeatIndex: seatIndex, Kind: kind, Amount: intField(data, "amount")}

	if err := c.validator.Check(ts, playerID, action); err != nil {
		return err
	}
	c.cancelDisconnectTimer(tableID, playerID)

	var applyErr error
	if err := c.actorFor(tableID).Submit(context.Background(), func() {
		applyErr = c.engine.ApplyAction(tableID, action)
	}); err != nil {
		return err
	}
	if applyErr != nil {
		return applyErr
	}
	c.broadcastTable(tableID)
	return nil
}

func parseActionKind(kind string) (game.ActionKind, error) {
	switch kind {
	case "fold":
		return game.Fold, nil
	case "check":
		return game.Check, nil
	case "call":
		return game.Call, nil
	case "raise":
		return game.Raise, nil
	case "allin":
		return game.AllIn, nil
	default:
		return 0, apperr.New(apperr.ActionIllegal, "unrecognized action kind %q", kind)
	}
}

func (c *Coordinator) handleChangeSeat(s *Session, data map[string]any) error {
	playerID, err := requireAuth(s)
	if err != nil {
		return err
	}
	tableID := stringField(data, "tableId")
	newSeatIndex := intField(data, "newSeatIndex")
	displayName := s.displayNameSnapshot()

	ts, err := c.engine.State(tableID)
	if err != nil {
		return err
	}
	var stack int
	for _, seat := range ts.Seats {
		if seat != nil && seat.PlayerID == playerID {
			stack = seat.Stack
		}
	}
	if err := c.engine.RemoveSeat(tableID, playerID); err != nil {
		return err
	}
	if _, err := c.engine.AddSeat(tableID, playerID, displayName, stack, newSeatIndex); err != nil {
		return err
	}
	c.broadcastTable(tableID)
	return nil
}

func (c *Coordinator) handleWatchTable(s *Session, data map[string]any) error {
	tableID := stringField(data, "tableId")
	if _, err := c.engine.State(tableID); err != nil {
		return err
	}
	s.setTable(tableID, true)
	c.addWatcher(tableID, s.ID)
	c.broadcastOneSpectator(tableID, s)
	return nil
}

func (c *Coordinator) handleUnwatchTable(s *Session, data map[string]any) error {
	tableID := stringField(data, "tableId")
	c.removeWatcher(tableID, s.ID)
	s.clearTable()
	return nil
}

func (c *Coordinator) handleGetState(s *Session, data map[string]any) (map[string]any, error) {
	tableID := stringField(data, "tableId")
	view, err := c.engine.ProjectFor(tableID, s.PlayerID())
	if err != nil {
		return nil, err
	}
	return map[string]any{"state": view}, nil
}

func (c *Coordinator) addWatcher(tableID, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	members, ok := c.tableSessions[tableID]
	if !ok {
		members = make(map[string]struct{})
		c.tableSessions[tableID] = members
	}
	members[sessionID] = struct{}{}
}

func (c *Coordinator) removeWatcher(tableID, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if members, ok := c.tableSessions[tableID]; ok {
		delete(members, sessionID)
	}
}

// broadcastTable projects and emits state to every seated/watching session
// at tableID (§4.7 Broadcast), then schedules or cancels the next-hand
// timer depending on the resulting stage.
func (c *Coordinator) broadcastTable(tableID string) {
	ts, err := c.engine.State(tableID)
	if err != nil {
		return
	}

	c.mu.Lock()
	members := make([]*Session, 0, len(c.tableSessions[tableID]))
	for id := range c.tableSessions[tableID] {
		if s, ok := c.sessions[id]; ok {
			members = append(members, s)
		}
	}
	c.mu.Unlock()

	connected := 0
	for _, seat := range ts.Seats {
		if seat != nil && seat.IsConnected {
			connected++
		}
	}

	for _, s := range members {
		_, watching := s.currentTable()
		viewerID := ""
		if !watching {
			viewerID = s.PlayerID()
		}
		view, err := c.engine.ProjectFor(tableID, viewerID)
		if err != nil {
			continue
		}
		if watching {
			s.send("spectatorState", view)
		} else {
			s.send("gameState", view)
		}
	}

	c.broadcastLobby()

	if ts.Stage == game.Showdown {
		c.settleHand(tableID, ts)
	}
	if ts.Stage == game.Showdown && connected >= 2 {
		c.scheduleNextHand(tableID)
	} else {
		c.cancelNextHand(tableID)
	}

	if ts.Stage != game.Waiting && ts.Stage != game.Showdown && ts.ActiveSeatIndex >= 0 {
		c.scheduleActionClock(tableID, ts.ActiveSeatIndex)
	} else {
		c.cancelActionClock(tableID)
	}
}

func (c *Coordinator) broadcastOneSpectator(tableID string, s *Session) {
	view, err := c.engine.ProjectFor(tableID, "")
	if err != nil {
		return
	}
	s.send("spectatorState", view)
}

func (c *Coordinator) broadcastLobby() {
	c.mu.Lock()
	subs := make([]*Session, 0, len(c.lobbySubs))
	for id := range c.lobbySubs {
		if s, ok := c.sessions[id]; ok {
			subs = append(subs, s)
		}
	}
	c.mu.Unlock()
	if len(subs) == 0 {
		return
	}
	tables := c.lobby.List()
	for _, s := range subs {
		s.send("tableList", tables)
	}
}

// scheduleNextHand arranges a single delayed startHand call (§4.7
// Next-hand scheduling). At most one timer per table is live; a later call
// is a no-op while one is already pending.
func (c *Coordinator) scheduleNextHand(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.nextHandTimer[tableID]; ok {
		return
	}
	c.nextHandTimer[tableID] = c.clock.AfterFunc(nextHandDelay, func() {
		c.mu.Lock()
		delete(c.nextHandTimer, tableID)
		c.mu.Unlock()
		if _, err := c.engine.StartHand(tableID); err == nil {
			c.broadcastTable(tableID)
		}
	})
}

func (c *Coordinator) cancelNextHand(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.nextHandTimer[tableID]; ok {
		t.Stop()
		delete(c.nextHandTimer, tableID)
	}
}

// scheduleActionClock arms the 30-second turn timer (§4.3 turn timer) for
// the seat now on the clock, counting from the moment it is armed (the
// engine's LastActionAt is not consulted). A call for the
// seat already being clocked is a no-op; a call for a different seat (the
// table advanced since the timer was armed) restarts the clock.
func (c *Coordinator) scheduleActionClock(tableID string, seatIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.actionTimer[tableID]; ok {
		if c.actionTimerSeat[tableID] == seatIndex {
			return
		}
		t.Stop()
	}
	c.actionTimerSeat[tableID] = seatIndex
	c.actionTimer[tableID] = c.clock.AfterFunc(actionClock, func() {
		c.expireActionClock(tableID, seatIndex)
	})
}

func (c *Coordinator) cancelActionClock(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.actionTimer[tableID]; ok {
		t.Stop()
		delete(c.actionTimer, tableID)
	}
	delete(c.actionTimerSeat, tableID)
}

// expireActionClock applies the §4.3 turn-timer default: an implicit check
// if legal, else an implicit fold. It re-validates the seat is still the
// one on the clock before acting, since the timer may have fired just after
// a race with a real action already advanced the table.
func (c *Coordinator) expireActionClock(tableID string, seatIndex int) {
	c.mu.Lock()
	if c.actionTimerSeat[tableID] != seatIndex {
		c.mu.Unlock()
		return
	}
	delete(c.actionTimer, tableID)
	delete(c.actionTimerSeat, tableID)
	c.mu.Unlock()

	_ = c.actorFor(tableID).Submit(context.Background(), func() {
		ts, err := c.engine.State(tableID)
		if err != nil || ts.ActiveSeatIndex != seatIndex {
			return
		}
		action := game.Action{SeatIndex: seatIndex, Kind: game.Check}
		if err := c.engine.ApplyAction(tableID, action); err != nil {
			action.Kind = game.Fold
			_ = c.engine.ApplyAction(tableID, action)
		}
	})
	c.broadcastTable(tableID)
}

// settleHand runs once per hand, the first time broadcastTable observes
// Stage == Showdown: it credits each seat's net winnings through the
// Wallet Adapter and records the hand in history. §6 assigns the engine
// itself the job of invoking the wallet adapters "at seat join, at pot
// award, and at hand end", but the core deliberately never imports wallet
// (see DESIGN.md) so the Coordinator performs the pot-award/hand-end calls
// once it observes the resulting state, using the pre-hand snapshot taken
// in handleStartHand to compute each seat's delta.
func (c *Coordinator) settleHand(tableID string, ts *game.TableState) {
	c.mu.Lock()
	if c.settledHand[tableID] == ts.HandNumber {
		c.mu.Unlock()
		return
	}
	c.settledHand[tableID] = ts.HandNumber
	pre := c.preHandStacks[tableID]
	c.mu.Unlock()

	if pre == nil {
		return
	}

	rec := handhistory.Record{
		ID:         gameid.NewRecordID(),
		TableID:    tableID,
		HandNumber: ts.HandNumber,
		Variant:    string(ts.Variant),
		TotalPot:   0,
		FinishedAt: c.clock.Now(),
	}
	rec.Board = cardStrings(ts.Board)
	for _, a := range ts.ActionLog {
		rec.Actions = append(rec.Actions, handhistory.ActionEntry{
			SeatIndex: a.SeatIndex,
			Kind:      a.Kind.String(),
			Amount:    a.Amount,
		})
	}

	for _, seat := range ts.Seats {
		if seat == nil {
			continue
		}
		before, ok := pre[seat.SeatIndex]
		if !ok {
			continue
		}
		delta := seat.Stack - before
		if delta > 0 {
			if err := c.wallet.Credit(context.Background(), seat.PlayerID, delta); err != nil {
				continue
			}
		}
		var description string
		if !seat.Folded {
			if result, err := poker.EvaluateBest(seat.HoleCards, ts.Board, ts.Variant); err == nil {
				description = result.Category.String()
			}
		}
		rec.Seats = append(rec.Seats, handhistory.SeatResult{
			SeatIndex:       seat.SeatIndex,
			PlayerID:        seat.PlayerID,
			HoleCards:       cardStrings(seat.HoleCards),
			StartingStack:   before,
			NetChips:        delta,
			Won:             delta > 0,
			WentToShowdown:  !seat.Folded,
			HandDescription: description,
		})
		rec.TotalPot += max(delta, 0)
	}

	c.history.Append(rec)
	_ = c.wallet.RakeContribution(context.Background(), wallet.HandMeta{TableID: tableID, HandNumber: ts.HandNumber}, nil)
}

// Shutdown stops every live table actor concurrently, draining each one's
// queued jobs before its goroutine exits. It fans the drain out across
// goroutines via errgroup rather than closing actors one at a time, since a
// busy deployment may have hundreds of live tables at shutdown.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	actors := make([]*game.TableActor, 0, len(c.actors))
	for _, a := range c.actors {
		actors = append(actors, a)
	}
	for _, t := range c.disconnectTimer {
		t.Stop()
	}
	for _, t := range c.nextHandTimer {
		t.Stop()
	}
	for _, t := range c.actionTimer {
		t.Stop()
	}
	c.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, a := range actors {
		a := a
		g.Go(func() error {
			a.Close()
			return nil
		})
	}
	return g.Wait()
}

func cardStrings(h poker.Hand) []string {
	cards := h.Cards()
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}
