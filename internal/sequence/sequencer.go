// Package sequence builds and iterates prompt orderings for practice runs.
package sequence

import (
	"math"
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/hanasu-app/hanasu/internal/domain"
)

// Mode selects how a rebuilt order is arranged.
type Mode string

const (
	Sequential Mode = "sequential"
	Shuffled   Mode = "random"
)

// Filter restricts the catalog to the active level and, optionally, type.
// Empty fields match everything.
type Filter struct {
	Level string
	Type  string
}

// Sequencer holds the current prompt pool and a cyclic ordering over it.
// The pool and order are replaced only by Rebuild; TakeNext only advances
// the cursor. The UI layer reads the pool concurrently, so all access is
// guarded.
type Sequencer struct {
	mu       sync.RWMutex
	pool     []*domain.Prompt
	order    []int
	pos      int // -1 means before the first position
	mode     Mode
	filter   Filter
	collator *collate.Collator
	rng      *rand.Rand
}

// New creates an empty sequencer. Ordering ties are broken with a
// locale-aware comparison.
func New() *Sequencer {
	return &Sequencer{
		pos:      -1,
		collator: collate.New(language.Japanese),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

var digits = regexp.MustCompile(`\d+`)

// subIndex extracts the numeric ordering key from a prompt's sub or display
// identifier. Prompts without a numeric key sort last.
func subIndex(p *domain.Prompt) int {
	for _, v := range []string{p.Sub, p.DisplayID, p.ID} {
		if v == "" {
			continue
		}
		if m := digits.FindString(v); m != "" {
			if n, err := strconv.Atoi(m); err == nil {
				return n
			}
		}
		break
	}
	return math.MaxInt
}

func displayKey(p *domain.Prompt) string {
	if p.DisplayID != "" {
		return p.DisplayID
	}
	return p.ID
}

// Rebuild filters the catalog to the active level/type and rebuilds the
// order for the given mode. The cursor resets to before position 0.
// Rebuild must be called when the filter changes, never on Next/Retry.
func (s *Sequencer) Rebuild(catalog []*domain.Prompt, f Filter, mode Mode) {
	pool := make([]*domain.Prompt, 0, len(catalog))
	for _, p := range catalog {
		if f.Level != "" && p.Level != f.Level {
			continue
		}
		if f.Type != "" && p.Type != f.Type {
			continue
		}
		pool = append(pool, p)
	}

	order := make([]int, len(pool))
	for i := range order {
		order[i] = i
	}

	if mode == Sequential {
		sort.SliceStable(order, func(a, b int) bool {
			pa, pb := pool[order[a]], pool[order[b]]
			na, nb := subIndex(pa), subIndex(pb)
			if na != nb {
				return na < nb
			}
			return s.collator.CompareString(displayKey(pa), displayKey(pb)) < 0
		})
	} else {
		s.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	s.mu.Lock()
	s.pool = pool
	s.order = order
	s.pos = -1
	s.mode = mode
	s.filter = f
	s.mu.Unlock()
}

// TakeNext advances the cursor by one and returns the prompt at that
// position, wrapping to the first prompt after the last. Returns nil when
// the pool is empty.
func (s *Sequencer) TakeNext() *domain.Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pool) == 0 || len(s.order) == 0 {
		return nil
	}
	s.pos = (s.pos + 1) % len(s.order)
	return s.pool[s.order[s.pos]]
}

// Len returns the size of the current pool.
func (s *Sequencer) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pool)
}

// Filter returns the active filter.
func (s *Sequencer) Filter() Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Mode returns the active ordering mode.
func (s *Sequencer) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Order returns a copy of the current order permutation.
func (s *Sequencer) Order() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}
