package craft

import (
	"math"

	"github.com/google/uuid"

	types "github.com/yungbote/fabricator/internal/domain/content"
	"github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/fabrication/deltaarc"
	"github.com/yungbote/fabricator/internal/fabrication/notepicker"
	"github.com/yungbote/fabricator/internal/music"
)

// detailLayer is what one instrument type plays in this segment.
type detailLayer struct {
	itype   types.InstrumentType
	inst    *types.Instrument
	program *types.Program
	seq     *types.ProgramSequence
	voice   *types.ProgramVoice
	parent  *fabrication.SegmentChoice
	mute    bool
}

// craftDetail fills one layer per instrument type in the template's detail order.
func (f *Fabricator) craftDetail() error {
	names := make([]string, 0, len(f.tpl.DetailLayerOrder))
	for _, t := range f.tpl.DetailLayerOrder {
		names = append(names, string(t))
	}
	arc := f.arcs.Compute(deltaarc.Request{
		AutoIntensity:  f.tpl.AutoIntensity,
		SegmentType:    f.segment.Type,
		Layers:         names,
		Prioritize:     f.tpl.DeltaArcDetailPrioritize,
		LayersIncoming: f.tpl.DeltaArcDetailLayersIncoming,
		RunBeats:       f.mainRunBeats(),
		BeatsPerBar:    f.tpl.BeatsPerBar,
		Prior:          f.layerPrior(detailLayerName),
	})

	for _, t := range f.tpl.DetailLayerOrder {
		layer, ok := f.detailLayerFor(t)
		if !ok {
			continue
		}
		choice := f.addDetailChoice(layer, arc.For(string(t)))
		if layer.mute {
			continue
		}
		var err error
		switch layer.inst.Mode {
		case types.InstrumentModeChord:
			f.arrangeChordMode(choice, layer.inst)
		case types.InstrumentModeLoop:
			f.arrangeLoopMode(choice, layer)
		default:
			err = f.arrangeEventMode(choice, layer)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func detailLayerName(c fabrication.SegmentChoice) (string, bool) {
	if c.InstrumentID == nil || c.ProgramType == string(types.ProgramTypeRhythm) {
		return "", false
	}
	return c.InstrumentType, true
}

func (f *Fabricator) previousDetailChoice(t types.InstrumentType) (*fabrication.SegmentChoice, bool) {
	if f.previous == nil {
		return nil, false
	}
	for i := range f.previous.Choices {
		c := &f.previous.Choices[i]
		if n, ok := detailLayerName(*c); ok && n == string(t) {
			return c, true
		}
	}
	return nil, false
}

// detailLayerFor reuses the previous segment's layer on continuation and
// otherwise chooses fresh material.
func (f *Fabricator) detailLayerFor(t types.InstrumentType) (detailLayer, bool) {
	if f.isContinue() {
		if prev, ok := f.previousDetailChoice(t); ok {
			if layer, ok := f.continueDetailLayer(t, prev); ok {
				return layer, true
			}
		}
	}

	inst, ok := f.chooseInstrument(t, nil)
	if !ok {
		f.reportMissing("no %s instrument fits the segment", t)
		return detailLayer{}, false
	}
	layer := detailLayer{itype: t, inst: inst, mute: f.rollMute(t)}
	if inst.Mode == types.InstrumentModeChord || inst.Mode == types.InstrumentModeLoop {
		return layer, true
	}

	hasVoice := func(p *types.Program) bool { return firstVoiceOfType(f.snap.Voices(p.ID), t) != nil }
	program, ok := f.chooseProgram(types.ProgramTypeDetail, uuid.Nil, hasVoice)
	if !ok {
		f.reportMissing("no detail program with a %s voice", t)
		return detailLayer{}, false
	}
	layer.program = program
	layer.voice = firstVoiceOfType(f.snap.Voices(program.ID), t)
	layer.seq, _ = f.chooseSequence(program.ID)
	return layer, true
}

func (f *Fabricator) continueDetailLayer(t types.InstrumentType, prev *fabrication.SegmentChoice) (detailLayer, bool) {
	inst, ok := f.snap.Instrument(*prev.InstrumentID)
	if !ok {
		return detailLayer{}, false
	}
	layer := detailLayer{itype: t, inst: inst, parent: prev, mute: prev.Mute}
	if inst.Mode == types.InstrumentModeChord || inst.Mode == types.InstrumentModeLoop {
		return layer, true
	}
	if prev.ProgramID == nil || prev.ProgramVoiceID == nil {
		return detailLayer{}, false
	}
	program, ok := f.snap.Program(*prev.ProgramID)
	if !ok {
		return detailLayer{}, false
	}
	voice, ok := f.snap.Voice(*prev.ProgramVoiceID)
	if !ok {
		return detailLayer{}, false
	}
	layer.program, layer.voice = program, voice
	if prev.ProgramSequenceID != nil {
		layer.seq, _ = f.snap.Sequence(*prev.ProgramSequenceID)
	}
	if layer.seq == nil {
		layer.seq, _ = f.chooseSequence(program.ID)
	}
	return layer, true
}

func firstVoiceOfType(voices []*types.ProgramVoice, t types.InstrumentType) *types.ProgramVoice {
	for _, v := range voices {
		if v.Type == t {
			return v
		}
	}
	return nil
}

func (f *Fabricator) addDetailChoice(layer detailLayer, bounds deltaarc.Bounds) *fabrication.SegmentChoice {
	c := &fabrication.SegmentChoice{
		InstrumentID:   uuidPtr(layer.inst.ID),
		InstrumentType: string(layer.itype),
		InstrumentMode: string(layer.inst.Mode),
		DeltaIn:        bounds.In,
		DeltaOut:       bounds.Out,
		Mute:           layer.mute,
	}
	if layer.program != nil {
		c.ProgramID = uuidPtr(layer.program.ID)
		c.ProgramType = string(types.ProgramTypeDetail)
	}
	if layer.seq != nil {
		c.ProgramSequenceID = uuidPtr(layer.seq.ID)
	}
	if layer.voice != nil {
		c.ProgramVoiceID = uuidPtr(layer.voice.ID)
	}
	if layer.parent != nil {
		c.ParentChoiceID = uuidPtr(layer.parent.ID)
	}
	return f.addChoice(c)
}

// arrangeEventMode voices each pattern event against the chord section it falls in.
func (f *Fabricator) arrangeEventMode(choice *fabrication.SegmentChoice, layer detailLayer) error {
	if layer.seq == nil || layer.voice == nil {
		f.reportMissing("detail program %s has no sequence for %s", programName(layer.program), layer.itype)
		return nil
	}
	patterns := f.snap.Patterns(layer.seq.ID, layer.voice.ID)
	if len(patterns) == 0 {
		f.reportMissing("no pattern for detail voice %s in sequence %s", layer.voice.Name, layer.seq.Name)
		return nil
	}
	pattern := patterns[f.rng.Intn(len(patterns))]
	arr := f.addArrangement(choice, uuidPtr(pattern.ID), nil)
	inst := layer.inst
	return f.loopPattern(pattern, layer.seq.Total, func(e *types.ProgramSequencePatternEvent, pos float64) {
		amp := f.volume(choice, inst, e.Velocity, pos)
		if amp <= 0 {
			return
		}
		source, err := music.ParseNotes(e.Tones)
		if err != nil {
			f.addMessage(fabrication.MessageTypeWarning, "event %s tones %q: %v", e.ID, e.Tones, err)
			return
		}
		voicing := f.voicingAt(pos, layer.itype)
		if len(voicing) == 0 {
			voicing = source
		}
		picker := notepicker.New(f.ranges[layer.voice.ID], voicing, f.tpl.SeeksInversions(layer.itype), f.rng)
		picker.Pick(source)
		f.ranges[layer.voice.ID] = picker.TargetRange()

		trackName := ""
		if track, ok := f.snap.Track(e.ProgramVoiceTrackID); ok {
			trackName = track.Name
		}
		start, length := f.span(pos, e.Duration)
		for _, note := range picker.Picked() {
			audio, ok := f.audioForNote(inst, e.ProgramVoiceTrackID, note)
			if !ok {
				f.reportMissing("no audio in instrument %s", inst.Name)
				return
			}
			f.addPick(arr, &fabrication.SegmentChoiceArrangementPick{
				ProgramSequencePatternEventID: uuidPtr(e.ID),
				InstrumentAudioID:             audio.ID,
				Event:                         trackName,
				StartAtSegmentMicros:          start,
				LengthMicros:                  pickLength(inst, audio, length),
				Amplitude:                     amp,
				Tones:                         note.String(),
			})
		}
	})
}

// voicingAt returns the voicing notes for an instrument type at a position,
// falling back to a plain voicing of the section's chord.
func (f *Fabricator) voicingAt(pos float64, t types.InstrumentType) []music.Note {
	s, ok := f.sectionAt(pos)
	if !ok {
		return nil
	}
	if notes := f.voicings[s.chord.ID][t]; len(notes) > 0 {
		return notes
	}
	chord, err := music.ParseChord(s.chord.Name)
	if err != nil || chord.IsNoChord() {
		return nil
	}
	octave := 4
	if r, ok := f.tpl.VoicingOctaves[t]; ok {
		octave = r[0]
	}
	return chord.Voice(octave)
}

// arrangeChordMode plays one audio per chord section; a chordless segment is
// one section on the key's tonic.
func (f *Fabricator) arrangeChordMode(choice *fabrication.SegmentChoice, inst *types.Instrument) {
	sections := f.sections
	if len(sections) == 0 {
		key := music.ParseKey(f.segment.Key)
		tonic := key.Tonic.Name(key.Accidental())
		if key.Minor {
			tonic += "m"
		}
		sections = []section{{chord: &fabrication.SegmentChord{Name: tonic}, from: 0, to: float64(f.segment.Total)}}
	}
	for _, s := range sections {
		chord, err := music.ParseChord(s.chord.Name)
		if err == nil && chord.IsNoChord() {
			continue
		}
		amp := f.volume(choice, inst, 1, s.from)
		if amp <= 0 {
			continue
		}
		audio, ok := f.audioForChord(inst, s.chord.Name)
		if !ok {
			f.reportMissing("no audio in instrument %s for chord %s", inst.Name, s.chord.Name)
			return
		}
		var chordID *uuid.UUID
		if s.chord.ID != uuid.Nil {
			chordID = uuidPtr(s.chord.ID)
		}
		arr := f.addArrangement(choice, nil, chordID)
		start, length := f.span(s.from, s.to-s.from)
		f.addPick(arr, &fabrication.SegmentChoiceArrangementPick{
			InstrumentAudioID:    audio.ID,
			Event:                s.chord.Name,
			StartAtSegmentMicros: start,
			LengthMicros:         length,
			Amplitude:            amp,
			Tones:                s.chord.Name,
		})
	}
}

// arrangeLoopMode repeats one audio end to end across the segment, keeping the
// audio a continued layer played before.
func (f *Fabricator) arrangeLoopMode(choice *fabrication.SegmentChoice, layer detailLayer) {
	inst := layer.inst
	var audio *types.InstrumentAudio
	if layer.parent != nil {
		for _, p := range f.retro.PicksByChoice(layer.parent.ID) {
			if a, ok := f.snap.Audio(p.InstrumentAudioID); ok {
				audio = a
				break
			}
		}
	}
	if audio == nil {
		audios := f.snap.Audios(inst.ID)
		if len(audios) == 0 {
			f.reportMissing("no audio in loop instrument %s", inst.Name)
			return
		}
		audio = audios[f.rng.Intn(len(audios))]
	}
	total := float64(f.segment.Total)
	loop := float64(audio.LoopBeats)
	if loop <= 0 {
		loop = total
	}
	arr := f.addArrangement(choice, nil, nil)
	for pos := 0.0; pos < total; pos += loop {
		amp := f.volume(choice, inst, 1, pos)
		if amp <= 0 {
			continue
		}
		start, length := f.span(pos, math.Min(loop, total-pos))
		f.addPick(arr, &fabrication.SegmentChoiceArrangementPick{
			InstrumentAudioID:    audio.ID,
			Event:                audio.Event,
			StartAtSegmentMicros: start,
			LengthMicros:         length,
			Amplitude:            amp,
			Tones:                audio.Tones,
		})
	}
}

func programName(p *types.Program) string {
	if p == nil {
		return "(none)"
	}
	return p.Name
}
