// Package marble implements the phase-tiered, score-weighted random selector.
package marble

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var ErrEmpty = errors.New("marble bag is empty")

type entry struct {
	id    uuid.UUID
	score float64
}

// Bag groups candidates into phases. The lowest non-empty phase always wins;
// within it a candidate is drawn with probability proportional to its score.
type Bag struct {
	rng    *rand.Rand
	phases map[int][]entry
	index  map[int]map[uuid.UUID]int
}

func New(rng *rand.Rand) *Bag {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Bag{
		rng:    rng,
		phases: map[int][]entry{},
		index:  map[int]map[uuid.UUID]int{},
	}
}

// Add ignores scores that are not positive and finite. Adding the same id twice
// in one phase sums its scores.
func (b *Bag) Add(phase int, id uuid.UUID, score float64) {
	if !(score > 0) || math.IsInf(score, 1) {
		return
	}
	idx, ok := b.index[phase]
	if !ok {
		idx = map[uuid.UUID]int{}
		b.index[phase] = idx
	}
	if i, seen := idx[id]; seen {
		b.phases[phase][i].score += score
		return
	}
	idx[id] = len(b.phases[phase])
	b.phases[phase] = append(b.phases[phase], entry{id: id, score: score})
}

// Pick leaves the bag unchanged.
func (b *Bag) Pick() (uuid.UUID, error) {
	phase, ok := b.lowestPhase()
	if !ok {
		return uuid.Nil, ErrEmpty
	}
	entries := b.phases[phase]
	total := 0.0
	for _, e := range entries {
		total += e.score
	}
	r := b.rng.Float64() * total
	for _, e := range entries {
		if r < e.score {
			return e.id, nil
		}
		r -= e.score
	}
	return entries[len(entries)-1].id, nil
}

func (b *Bag) IsEmpty() bool {
	_, ok := b.lowestPhase()
	return !ok
}

func (b *Bag) Size() int {
	n := 0
	for _, entries := range b.phases {
		n += len(entries)
	}
	return n
}

func (b *Bag) String() string {
	phases := b.sortedPhases()
	if len(phases) == 0 {
		return "MarbleBag{}"
	}
	parts := make([]string, 0, len(phases))
	for _, p := range phases {
		items := make([]string, 0, len(b.phases[p]))
		for _, e := range b.phases[p] {
			items = append(items, fmt.Sprintf("%s:%g", e.id.String()[:8], e.score))
		}
		parts = append(parts, fmt.Sprintf("phase %d [%s]", p, strings.Join(items, " ")))
	}
	return "MarbleBag{" + strings.Join(parts, "; ") + "}"
}

func (b *Bag) lowestPhase() (int, bool) {
	phases := b.sortedPhases()
	if len(phases) == 0 {
		return 0, false
	}
	return phases[0], true
}

func (b *Bag) sortedPhases() []int {
	out := make([]int, 0, len(b.phases))
	for p, entries := range b.phases {
		if len(entries) > 0 {
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}
