package filters

import (
	"errors"
	"strconv"
	"sync"
)

// ErrInvalidFilterUpdate marks user-supplied filter mutations that were
// rejected at the store boundary. The prior configuration stays in effect.
var ErrInvalidFilterUpdate = errors.New("invalid filter update")

// Store owns the filter configuration for one subscriber scope. Reads return
// an independent copy plus the generation that produced it; writes are
// validate-then-swap and bump the generation, which is what scopes dedup
// decisions (an address suppressed under generation N is re-evaluated under
// N+1).
type Store struct {
	mu         sync.RWMutex
	config     Config
	generation uint64
}

// NewStore creates a store seeded with cfg at generation 1.
func NewStore(cfg Config) *Store {
	return &Store{config: cfg, generation: 1}
}

// NewDefaultStore creates a store seeded with DefaultConfig.
func NewDefaultStore() *Store {
	return NewStore(DefaultConfig())
}

// Snapshot returns a copy of the current configuration and its generation.
// The copy is safe to read concurrently with later writes; a write landing
// mid-batch cannot produce a torn view.
func (s *Store) Snapshot() (Config, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config, s.generation
}

// Generation returns the current configuration generation.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Update applies mutate to a scratch copy of the configuration, validates the
// result, and swaps it in atomically. On any error the stored configuration
// and generation are unchanged.
func (s *Store) Update(mutate func(*Config) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.config
	if err := mutate(&next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}

	s.config = next
	s.generation++
	return nil
}

// SetRange updates one named numeric range. Unknown field names and inverted
// ranges are rejected with ErrInvalidFilterUpdate.
func (s *Store) SetRange(field string, min, max float64) error {
	return s.Update(func(c *Config) error {
		r, err := c.rangeByName(field)
		if err != nil {
			return err
		}
		r.Min = min
		r.Max = max
		return nil
	})
}

// SetFlag updates one named boolean field. The value must parse as a bool
// ("true"/"false", "1"/"0").
func (s *Store) SetFlag(field string, value string) error {
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return errors.Join(ErrInvalidFilterUpdate, err)
	}
	return s.Update(func(c *Config) error {
		f, err := c.flagByName(field)
		if err != nil {
			return err
		}
		*f = parsed
		return nil
	})
}
