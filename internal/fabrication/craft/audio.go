package craft

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	types "github.com/yungbote/fabricator/internal/domain/content"
	"github.com/yungbote/fabricator/internal/music"
)

// audioForEvent matches a percussive event name to an audio: exact event
// name first, then the same event-name bucket, then the closest name.
func (f *Fabricator) audioForEvent(inst *types.Instrument, trackID uuid.UUID, event string) (*types.InstrumentAudio, bool) {
	key := noteKey{trackID: trackID, note: music.Atonal}
	if a, ok := f.sticky(inst, f.stickyNotes[key]); ok {
		return a, true
	}
	audios := f.snap.Audios(inst.ID)
	if len(audios) == 0 {
		return nil, false
	}
	candidates := filterAudios(audios, func(a *types.InstrumentAudio) bool { return strings.EqualFold(a.Event, event) })
	if len(candidates) == 0 {
		if bucket := f.eventBucket(event); bucket != "" {
			candidates = filterAudios(audios, func(a *types.InstrumentAudio) bool { return f.eventBucket(a.Event) == bucket })
		}
	}
	if len(candidates) == 0 {
		candidates = closestByName(audios, event, func(a *types.InstrumentAudio) string { return a.Event })
	}
	a := candidates[f.rng.Intn(len(candidates))]
	if inst.Config.AudioSelectionPersistent {
		f.stickyNotes[key] = a.ID
	}
	return a, true
}

// audioForNote picks the audio playing a pitched note. Multiphonic instruments
// need an audio per pitch; others are pitched by the renderer.
func (f *Fabricator) audioForNote(inst *types.Instrument, trackID uuid.UUID, note music.Note) (*types.InstrumentAudio, bool) {
	key := noteKey{trackID: trackID, note: note.String()}
	if a, ok := f.sticky(inst, f.stickyNotes[key]); ok {
		return a, true
	}
	audios := f.snap.Audios(inst.ID)
	if len(audios) == 0 {
		return nil, false
	}
	candidates := audios
	if inst.Config.Multiphonic && !note.IsAtonal() {
		best := -1
		var nearest []*types.InstrumentAudio
		for _, a := range audios {
			n, err := music.ParseNote(a.Tones)
			if err != nil || n.IsAtonal() {
				continue
			}
			d := n.Delta(note)
			if d < 0 {
				d = -d
			}
			switch {
			case best < 0 || d < best:
				best, nearest = d, []*types.InstrumentAudio{a}
			case d == best:
				nearest = append(nearest, a)
			}
		}
		if len(nearest) > 0 {
			candidates = nearest
		}
	}
	a := candidates[f.rng.Intn(len(candidates))]
	if inst.Config.AudioSelectionPersistent {
		f.stickyNotes[key] = a.ID
	}
	return a, true
}

// audioForChord picks the audio named for a chord, or the closest name.
func (f *Fabricator) audioForChord(inst *types.Instrument, chord string) (*types.InstrumentAudio, bool) {
	key := chordKey{instrumentID: inst.ID, chord: strings.ToUpper(chord)}
	if a, ok := f.sticky(inst, f.stickyChords[key]); ok {
		return a, true
	}
	audios := f.snap.Audios(inst.ID)
	if len(audios) == 0 {
		return nil, false
	}
	candidates := filterAudios(audios, func(a *types.InstrumentAudio) bool {
		return strings.EqualFold(a.Tones, chord) || strings.EqualFold(a.Name, chord)
	})
	if len(candidates) == 0 {
		candidates = closestByName(audios, chord, func(a *types.InstrumentAudio) string { return a.Tones })
	}
	a := candidates[f.rng.Intn(len(candidates))]
	if inst.Config.AudioSelectionPersistent {
		f.stickyChords[key] = a.ID
	}
	return a, true
}

func (f *Fabricator) sticky(inst *types.Instrument, id uuid.UUID) (*types.InstrumentAudio, bool) {
	if !inst.Config.AudioSelectionPersistent || id == uuid.Nil {
		return nil, false
	}
	return f.snap.Audio(id)
}

func (f *Fabricator) eventBucket(name string) string {
	switch {
	case containsFold(f.tpl.EventNamesLarge, name):
		return "large"
	case containsFold(f.tpl.EventNamesMedium, name):
		return "medium"
	case containsFold(f.tpl.EventNamesSmall, name):
		return "small"
	}
	return ""
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}

func filterAudios(audios []*types.InstrumentAudio, keep func(*types.InstrumentAudio) bool) []*types.InstrumentAudio {
	out := []*types.InstrumentAudio{}
	for _, a := range audios {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// closestByName returns the audios at minimal edit distance from want,
// comparing both the given field and the audio name.
func closestByName(audios []*types.InstrumentAudio, want string, field func(*types.InstrumentAudio) string) []*types.InstrumentAudio {
	want = strings.ToUpper(strings.TrimSpace(want))
	best := -1
	var out []*types.InstrumentAudio
	for _, a := range audios {
		d := levenshtein.ComputeDistance(want, strings.ToUpper(field(a)))
		if dn := levenshtein.ComputeDistance(want, strings.ToUpper(a.Name)); dn < d {
			d = dn
		}
		switch {
		case best < 0 || d < best:
			best, out = d, []*types.InstrumentAudio{a}
		case d == best:
			out = append(out, a)
		}
	}
	return out
}
