package gameid

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// classCounters hands out a monotonic counter per (prefix, variant, stake)
// class, per §4.6 "a monotonic counter unique per class". The map itself is
// mutex-guarded since the Lobby provisions stake-ladder tables concurrently
// (one goroutine per table via errgroup); the counter value underneath each
// entry still increments atomically so readers never need the lock once an
// entry exists.
type classCounters struct {
	mu       sync.Mutex
	counters map[string]*uint64
}

func newClassCounters() *classCounters {
	return &classCounters{counters: make(map[string]*uint64)}
}

func (c *classCounters) next(class string) uint64 {
	c.mu.Lock()
	ctr, ok := c.counters[class]
	if !ok {
		var zero uint64
		ctr = &zero
		c.counters[class] = ctr
	}
	c.mu.Unlock()
	return atomic.AddUint64(ctr, 1)
}

// TableIDGenerator encodes table ids as prefix/variant/stake/counter, with
// the counter monotonic within each (prefix, variant, stake) class.
type TableIDGenerator struct {
	classes *classCounters
}

// NewTableIDGenerator creates a generator with its own class counters.
func NewTableIDGenerator() *TableIDGenerator {
	return &TableIDGenerator{classes: newClassCounters()}
}

// System mints the next system-table id for a (variant, stake) class.
func (g *TableIDGenerator) System(variant, stake string) string {
	return g.next("sys", variant, stake)
}

// User mints the next user-table id for a (variant, stake) class.
func (g *TableIDGenerator) User(variant, stake string) string {
	return g.next("usr", variant, stake)
}

func (g *TableIDGenerator) next(prefix, variant, stake string) string {
	class := fmt.Sprintf("%s:%s:%s", prefix, variant, stake)
	n := g.classes.next(class)
	return fmt.Sprintf("%s-%s-%s-%d", prefix, variant, stake, n)
}
