package game

import (
	"time"

	"github.com/coder/quartz"

	"github.com/lox/pokerroom/internal/apperr"
)

const (
	rateLimitWindow       = time.Second
	rateLimitMaxActions   = 5
	minActionInterval     = 100 * time.Millisecond
	lowSeverityFloor      = 200 * time.Millisecond
	activityLogCapacity   = 1000
)

// Severity grades a flagged validator activity.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
)

// Activity is one flagged validator event, retained for operator review.
type Activity struct {
	At       time.Time
	TableID  string
	PlayerID string
	Code     apperr.Code
	Severity Severity
	Detail   string
}

// playerBucket tracks one (player, table) pair's recent action timestamps
// for rate limiting and inter-action timing.
type playerBucket struct {
	recent []time.Time
	last   time.Time
}

// Validator is the pure predicate layer in front of TableEngine.ApplyAction
// (§4.4). It is stateful only in its rate/timing buckets and activity log.
type Validator struct {
	clock quartz.Clock

	buckets map[string]*playerBucket // key: tableID + "/" + playerID
	log     []Activity
}

// NewValidator creates a Validator driven by the given clock. Use
// quartz.NewReal() in production and quartz.NewMock(t) in tests.
func NewValidator(clock quartz.Clock) *Validator {
	return &Validator{
		clock:   clock,
		buckets: make(map[string]*playerBucket),
	}
}

func bucketKey(tableID, playerID string) string { return tableID + "/" + playerID }

// Check runs the §4.4 checks, in order, against a proposed action. It does
// not mutate table state; callers run it before TableEngine.ApplyAction.
func (v *Validator) Check(ts *TableState, playerID string, action Action) error {
	now := v.clock.Now()
	key := bucketKey(ts.ID, playerID)
	b, ok := v.buckets[key]
	if !ok {
		b = &playerBucket{}
		v.buckets[key] = b
	}

	cutoff := now.Add(-rateLimitWindow)
	kept := b.recent[:0]
	for _, t := range b.recent {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.recent = kept
	if len(b.recent) >= rateLimitMaxActions {
		v.flag(ts.ID, playerID, apperr.RateLimited, SeverityMedium, "rate limit exceeded")
		return apperr.New(apperr.RateLimited, "more than %d actions in the last second", rateLimitMaxActions)
	}

	if !b.last.IsZero() {
		delta := now.Sub(b.last)
		if delta < minActionInterval {
			v.flag(ts.ID, playerID, apperr.TimingViolation, SeverityMedium, "inter-action delta below floor")
			return apperr.New(apperr.TimingViolation, "action arrived %s after the last one, below the %s floor", delta, minActionInterval)
		}
		if delta < lowSeverityFloor {
			v.flag(ts.ID, playerID, apperr.TimingViolation, SeverityLow, "inter-action delta suspiciously low")
		}
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
	if action.Kind == Check && ts.Betting.CurrentHighBet-seat.CurrentRoundBet != 0 {
		return apperr.NewIllegal(apperr.CheckWhenMustCall, "cannot check with a live bet to call")
	}

	b.recent = append(b.recent, now)
	b.last = now
	return nil
}

func (v *Validator) flag(tableID, playerID string, code apperr.Code, sev Severity, detail string) {
	v.log = append(v.log, Activity{
		At:       v.clock.Now(),
		TableID:  tableID,
		PlayerID: playerID,
		Code:     code,
		Severity: sev,
		Detail:   detail,
	})
	if len(v.log) > activityLogCapacity {
		v.log = v.log[len(v.log)-activityLogCapacity:]
	}
}

// Activities returns a copy of the flagged activity log, most recent last.
func (v *Validator) Activities() []Activity {
	out := make([]Activity, len(v.log))
	copy(out, v.log)
	return out
}
