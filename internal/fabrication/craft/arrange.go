package craft

import (
	"fmt"
	"math"

	"github.com/yungbote/fabricator/internal/domain/aggregates"
	types "github.com/yungbote/fabricator/internal/domain/content"
	"github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/fabrication/deltaarc"
)

// loopPattern repeats a pattern from the top of the segment to its end and
// calls fn for every event that starts inside the segment.
func (f *Fabricator) loopPattern(pattern *types.ProgramSequencePattern, sequenceTotal int, fn func(e *types.ProgramSequencePatternEvent, pos float64)) error {
	if pattern == nil {
		return aggregates.Fatal("craft.arrange", fmt.Errorf("nil pattern in segment %d", f.segment.Offset))
	}
	length := pattern.Total
	if length <= 0 {
		length = sequenceTotal
	}
	if length <= 0 {
		return aggregates.Fatal("craft.arrange", fmt.Errorf("pattern %s has no length", pattern.Name))
	}
	events := f.snap.Events(pattern.ID)
	total := float64(f.segment.Total)
	for start := 0.0; start < total; start += float64(length) {
		for _, e := range events {
			if e.Position < 0 || e.Position >= float64(length) {
				continue
			}
			pos := start + e.Position
			if pos >= total {
				continue
			}
			fn(e, pos)
		}
	}
	return nil
}

func choiceBounds(c *fabrication.SegmentChoice) deltaarc.Bounds {
	return deltaarc.Bounds{In: c.DeltaIn, Out: c.DeltaOut}
}

// volume combines the delta-arc fade at pos with event, instrument and type levels.
func (f *Fabricator) volume(c *fabrication.SegmentChoice, inst *types.Instrument, velocity, pos float64) float64 {
	delta := f.segment.Delta + int(math.Floor(pos))
	fade := deltaarc.Fade(choiceBounds(c), delta, f.tpl.DeltaArcFadeBeats)
	return fade * velocity * inst.Volume * f.tpl.TypeVolume(inst.Type)
}

// span converts a beat position and duration into segment-relative micros.
func (f *Fabricator) span(pos, duration float64) (int64, int64) {
	start := f.tc.MicrosAtPosition(pos)
	end := f.tc.MicrosAtPosition(pos + duration)
	if end < start {
		end = start
	}
	return start, end - start
}

// pickLength gives one-shot instruments the full audio length.
func pickLength(inst *types.Instrument, audio *types.InstrumentAudio, length int64) int64 {
	if inst.Config.OneShot && audio.LengthSeconds > 0 {
		return int64(math.Round(audio.LengthSeconds * 1e6))
	}
	return length
}

// layerPrior maps layer names to the bounds their choices had in the previous segments of this run.
func (f *Fabricator) layerPrior(name func(c fabrication.SegmentChoice) (string, bool)) map[string]deltaarc.Bounds {
	prior := map[string]deltaarc.Bounds{}
	if !f.isContinue() {
		return prior
	}
	for _, rec := range f.retro.MainRun() {
		for _, c := range rec.Choices {
			if n, ok := name(c); ok {
				prior[n] = deltaarc.Bounds{In: c.DeltaIn, Out: c.DeltaOut}
			}
		}
	}
	return prior
}

// rollMute decides whether a new layer sits out this run.
func (f *Fabricator) rollMute(t types.InstrumentType) bool {
	p := f.tpl.MuteProbability[t]
	if p <= 0 {
		return false
	}
	return f.rng.Float64() < p
}
