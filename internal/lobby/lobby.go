// Package lobby implements the table registry and stake-ladder
// auto-provisioning (C6), grounded on internal/server/game_manager.go's
// map-of-instances-with-mutex shape, generalized from a fixed single-table
// list to a variant/stake ladder the operator configures.
package lobby

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lox/pokerroom/internal/config"
	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/gameid"
	"github.com/lox/pokerroom/poker"
)

// Summary is the lightweight, client-facing view of one table (the
// `tableList` event payload, §6).
type Summary struct {
	ID             string `json:"id"`
	Variant        string `json:"variant"`
	StakeLabel     string `json:"stakeLabel"`
	BettingType    string `json:"bettingType"`
	SmallBlind     int    `json:"smallBlind"`
	BigBlind       int    `json:"bigBlind"`
	MaxSeats       int    `json:"maxSeats"`
	ConnectedSeats int    `json:"connectedSeats"`
	HandNumber     uint64 `json:"handNumber"`
	System         bool   `json:"system"`
}

// Lobby owns table provisioning: it auto-creates system tables for every
// configured stake rung, keeps each (variant, stake) class seatable as
// players join (§4.6's dynamic-lobby policy), and mints user-created tables
// on request, naming them via gameid.TableIDGenerator.
type Lobby struct {
	engine *game.TableEngine
	ids    *gameid.TableIDGenerator

	mu       sync.Mutex
	classCfg map[string]config.StakeConfig // key: variant+"/"+stakeLabel
}

// New creates a Lobby backed by engine, minting ids from ids.
func New(engine *game.TableEngine, ids *gameid.TableIDGenerator) *Lobby {
	return &Lobby{engine: engine, ids: ids, classCfg: make(map[string]config.StakeConfig)}
}

func classKey(variant, stakeLabel string) string {
	return variant + "/" + stakeLabel
}

// ProvisionStakeLadder creates TableCount system tables for every stake
// rung in cfg, per SPEC_FULL.md's Lobby auto-provisioning. Every table
// mint runs on its own goroutine via errgroup, since a deployment with a
// long stake ladder and high per-rung TableCount should not pay for
// minting tables one at a time at startup.
func (l *Lobby) ProvisionStakeLadder(stakes []config.StakeConfig) error {
	var g errgroup.Group
	for _, s := range stakes {
		s := s
		l.mu.Lock()
		l.classCfg[classKey(s.Variant, s.StakeLabel)] = s
		l.mu.Unlock()

		variant := poker.Variant(s.Variant)
		bettingType := game.NoLimit
		if s.BettingType == "pot_limit" {
			bettingType = game.PotLimit
		}
		for i := 0; i < s.TableCount; i++ {
			g.Go(func() error {
				id := l.ids.System(s.Variant, s.StakeLabel)
				if _, err := l.engine.Create(id, variant, bettingType, s.SmallBlind, s.BigBlind, s.StakeLabel, true); err != nil {
					return fmt.Errorf("lobby: provision %s/%s: %w", s.Variant, s.StakeLabel, err)
				}
				return nil
			})
		}
	}
	return g.Wait()
}

// EnsureCapacity implements §4.6's dynamic-lobby policy: whenever a player
// joins, the (variant, stakeLabel) class is checked and, if every system
// table in that class is at its seat cap, one more is minted from the same
// configured rung. Classes the stake ladder never configured (e.g. a
// variant/stake only ever reached via CreateUserTable) are left alone —
// there is no rung to scale from.
func (l *Lobby) EnsureCapacity(variant, stakeLabel string) error {
	l.mu.Lock()
	cfg, ok := l.classCfg[classKey(variant, stakeLabel)]
	l.mu.Unlock()
	if !ok {
		return nil
	}

	for _, id := range l.engine.IDs() {
		ts, err := l.engine.State(id)
		if err != nil || !ts.System || string(ts.Variant) != variant || ts.StakeLabel != stakeLabel {
			continue
		}
		if occupiedSeatCount(ts) < ts.MaxSeats {
			return nil
		}
	}

	bettingType := game.NoLimit
	if cfg.BettingType == "pot_limit" {
		bettingType = game.PotLimit
	}
	l.mu.Lock()
	id := l.ids.System(cfg.Variant, cfg.StakeLabel)
	l.mu.Unlock()
	if _, err := l.engine.Create(id, poker.Variant(cfg.Variant), bettingType, cfg.SmallBlind, cfg.BigBlind, cfg.StakeLabel, true); err != nil {
		return fmt.Errorf("lobby: ensure capacity %s/%s: %w", variant, stakeLabel, err)
	}
	return nil
}

func occupiedSeatCount(ts *game.TableState) int {
	n := 0
	for _, s := range ts.Seats {
		if s != nil {
			n++
		}
	}
	return n
}

// CreateUserTable mints a user-requested table for the given variant, stake
// label, blinds, and betting type (the `createUserTable` event, §6).
func (l *Lobby) CreateUserTable(variant poker.Variant, stakeLabel string, smallBlind, bigBlind int, bettingType game.BettingType) (string, error) {
	id := l.ids.User(string(variant), stakeLabel)
	if _, err := l.engine.Create(id, variant, bettingType, smallBlind, bigBlind, stakeLabel, false); err != nil {
		return "", err
	}
	return id, nil
}

// List returns a Summary for every currently registered table.
func (l *Lobby) List() []Summary {
	ids := l.engine.IDs()
	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		ts, err := l.engine.State(id)
		if err != nil {
			continue
		}
		out = append(out, summarize(ts))
	}
	return out
}

// Get returns the Summary for a single table.
func (l *Lobby) Get(id string) (Summary, error) {
	ts, err := l.engine.State(id)
	if err != nil {
		return Summary{}, err
	}
	return summarize(ts), nil
}

func summarize(ts *game.TableState) Summary {
	connected := 0
	for _, s := range ts.Seats {
		if s != nil && s.IsConnected {
			connected++
		}
	}
	bettingType := "no_limit"
	if ts.BettingType == game.PotLimit {
		bettingType = "pot_limit"
	}
	return Summary{
		ID:             ts.ID,
		Variant:        string(ts.Variant),
		StakeLabel:     ts.StakeLabel,
		BettingType:    bettingType,
		SmallBlind:     ts.SmallBlind,
		BigBlind:       ts.BigBlind,
		MaxSeats:       ts.MaxSeats,
		ConnectedSeats: connected,
		HandNumber:     ts.HandNumber,
		System:         ts.System,
	}
}

// RemoveUserTable tears down a user-created table, e.g. once it empties
// out. System tables provisioned from the stake ladder are never removed
// this way; they persist for the life of the server.
func (l *Lobby) RemoveUserTable(id string) error {
	ts, err := l.engine.State(id)
	if err != nil {
		return err
	}
	if ts.System {
		return fmt.Errorf("lobby: table %q is a system table and cannot be removed", id)
	}
	l.engine.Remove(id)
	return nil
}
