package pipeline

import (
	"sync"
	"time"
)

// Outcome is the terminal verdict recorded for one (address, generation).
type Outcome int

const (
	// OutcomeAlerted means an alert was dispatched (or dispatch was
	// attempted and claimed) for this address in this generation.
	OutcomeAlerted Outcome = iota
	// OutcomeFiltered means the token did not satisfy the filter; the entry
	// is re-evaluated after the next configuration change.
	OutcomeFiltered
	// OutcomeErrored means processing failed after the address was known.
	OutcomeErrored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAlerted:
		return "alerted"
	case OutcomeFiltered:
		return "filtered-out"
	default:
		return "errored"
	}
}

// record is the per-address dedup entry. A record is settled exactly once
// per generation; a configuration change invalidates it wholesale.
type record struct {
	generation uint64
	outcome    Outcome
	claimed    bool // claimed but not yet settled (dispatch in flight)
	seenAt     time.Time
}

// DedupGuard enforces at-most-once alerting per (address, generation) even
// under concurrent or duplicate delivery. All decisions for one address are
// linearized under a single mutex: of two concurrent deliveries of the same
// address, exactly one wins the claim.
type DedupGuard struct {
	mu        sync.Mutex
	records   map[string]record
	retention time.Duration // 0 = keep for process lifetime
	now       func() time.Time
}

// NewDedupGuard creates a guard. retention bounds how long settled records
// are kept before Sweep may evict them; zero keeps them for the process
// lifetime (the reference behavior).
func NewDedupGuard(retention time.Duration) *DedupGuard {
	return &DedupGuard{
		records:   make(map[string]record),
		retention: retention,
		now:       time.Now,
	}
}

// Claim reports whether the caller may proceed to evaluate and possibly
// alert for address under generation, and reserves the alert slot if so.
// It returns false when the address already alerted (or has a claim in
// flight) for the same generation. Records from older generations are
// discarded: a configuration change re-opens every address, and a prior
// filtered-out verdict is always re-evaluated.
func (g *DedupGuard) Claim(address string, generation uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[address]
	if ok && rec.generation == generation {
		if rec.claimed || rec.outcome == OutcomeAlerted {
			return false
		}
		// Settled as filtered/errored this generation: identical config,
		// identical verdict, nothing new to say. Replays stay suppressed.
		return false
	}

	g.records[address] = record{
		generation: generation,
		claimed:    true,
		seenAt:     g.now(),
	}
	return true
}

// Settle finalizes a claimed entry with its outcome. It must be called with
// the same generation that won the Claim; a stale settle (configuration
// changed mid-flight) is dropped so it cannot clobber a newer claim.
func (g *DedupGuard) Settle(address string, generation uint64, outcome Outcome) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[address]
	if !ok || rec.generation != generation {
		return
	}
	rec.claimed = false
	rec.outcome = outcome
	rec.seenAt = g.now()
	g.records[address] = rec
}

// Outcome returns the settled outcome for address at generation, if any.
func (g *DedupGuard) Outcome(address string, generation uint64) (Outcome, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[address]
	if !ok || rec.generation != generation || rec.claimed {
		return 0, false
	}
	return rec.outcome, true
}

// Len returns the number of tracked addresses.
func (g *DedupGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records)
}

// Sweep evicts settled records older than the retention window. In-flight
// claims are never evicted. No-op when retention is zero.
func (g *DedupGuard) Sweep() int {
	if g.retention <= 0 {
		return 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().Add(-g.retention)
	evicted := 0
	for addr, rec := range g.records {
		if !rec.claimed && rec.seenAt.Before(cutoff) {
			delete(g.records, addr)
			evicted++
		}
	}
	return evicted
}
