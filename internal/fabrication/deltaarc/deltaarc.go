// Package deltaarc plans when each layer of a main-program run fades in.
package deltaarc

import (
	"math"
	"math/rand"
	"strings"

	"github.com/yungbote/fabricator/internal/domain/fabrication"
)

// DeltaUnlimited marks a bound that is always satisfied.
const DeltaUnlimited = -1

// Bounds is the delta window in which a layer is audible: [In, Out).
type Bounds struct {
	In  int
	Out int
}

func Unlimited() Bounds { return Bounds{In: DeltaUnlimited, Out: DeltaUnlimited} }

func (b Bounds) Contains(delta int) bool { return InBounds(b.In, b.Out, delta) }

func InBounds(deltaIn, deltaOut, delta int) bool {
	if deltaIn != DeltaUnlimited && delta < deltaIn {
		return false
	}
	if deltaOut != DeltaUnlimited && delta >= deltaOut {
		return false
	}
	return true
}

type Request struct {
	AutoIntensity  bool
	SegmentType    fabrication.SegmentType
	Layers         []string
	Prioritize     []string
	LayersIncoming int
	RunBeats       int
	BeatsPerBar    int
	// Prior holds the bounds chosen for each layer in the previous segment.
	Prior map[string]Bounds
}

// Arc is the computed plan. Order is the shuffled layer order for new runs,
// or the request order otherwise.
type Arc struct {
	Order  []string
	Bounds map[string]Bounds
}

func (a Arc) For(layer string) Bounds {
	if b, ok := a.Bounds[layer]; ok {
		return b
	}
	return Unlimited()
}

type Calculator struct {
	rng *rand.Rand
}

func New(rng *rand.Rand) *Calculator {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Calculator{rng: rng}
}

func (c *Calculator) Compute(req Request) Arc {
	layers := dedupe(req.Layers)
	arc := Arc{Order: layers, Bounds: make(map[string]Bounds, len(layers))}

	if !req.AutoIntensity {
		for _, l := range layers {
			arc.Bounds[l] = Unlimited()
		}
		return arc
	}

	switch req.SegmentType {
	case fabrication.SegmentTypeInitial, fabrication.SegmentTypeNextMain, fabrication.SegmentTypeNextMacro:
		return c.plan(req, layers)
	default:
		for _, l := range layers {
			if b, ok := req.Prior[l]; ok {
				arc.Bounds[l] = b
			} else {
				arc.Bounds[l] = Unlimited()
			}
		}
		return arc
	}
}

func (c *Calculator) plan(req Request, layers []string) Arc {
	var prioritized, secondary []string
	for _, l := range layers {
		if matchesAny(l, req.Prioritize) {
			prioritized = append(prioritized, l)
		} else {
			secondary = append(secondary, l)
		}
	}
	c.shuffle(prioritized)
	c.shuffle(secondary)
	order := append(prioritized, secondary...)

	arc := Arc{Order: order, Bounds: make(map[string]Bounds, len(order))}
	unit := 0
	if denom := len(order) + req.LayersIncoming; denom > 0 && req.RunBeats > 0 {
		unit = req.RunBeats / denom
	}
	deltaIn := 0
	for i, l := range order {
		if i > 0 {
			deltaIn += c.step(unit, req.BeatsPerBar)
		}
		arc.Bounds[l] = Bounds{In: deltaIn, Out: DeltaUnlimited}
	}
	return arc
}

// step jitters unit uniformly by a quarter either way, snapping to whole bars
// when the unit spans at least one bar. Steps are never below one beat.
func (c *Calculator) step(unit, beatsPerBar int) int {
	if unit <= 0 {
		return 1
	}
	jittered := float64(unit) * (0.75 + c.rng.Float64()*0.5)
	s := int(math.Floor(jittered))
	if beatsPerBar > 0 && unit >= beatsPerBar {
		bars := int(math.Round(jittered / float64(beatsPerBar)))
		if bars < 1 {
			bars = 1
		}
		s = bars * beatsPerBar
	}
	if s < 1 {
		s = 1
	}
	return s
}

func (c *Calculator) shuffle(s []string) {
	c.rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

// Fade is the volume multiplier of a layer at delta: zero outside its bounds,
// ramping up over fadeBeats after In and down over fadeBeats before Out.
func Fade(b Bounds, delta int, fadeBeats int) float64 {
	if !b.Contains(delta) {
		return 0
	}
	if fadeBeats <= 0 {
		return 1
	}
	v := 1.0
	if b.In != DeltaUnlimited {
		v = math.Min(v, float64(delta-b.In+1)/float64(fadeBeats))
	}
	if b.Out != DeltaUnlimited {
		v = math.Min(v, float64(b.Out-delta)/float64(fadeBeats))
	}
	return math.Max(0, math.Min(1, v))
}

func matchesAny(layer string, terms []string) bool {
	l := strings.ToLower(layer)
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && strings.Contains(l, t) {
			return true
		}
	}
	return false
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
