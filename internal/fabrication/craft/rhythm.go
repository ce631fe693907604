package craft

import (
	"github.com/google/uuid"

	types "github.com/yungbote/fabricator/internal/domain/content"
	"github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/fabrication/deltaarc"
)

// craftRhythm chooses a rhythm program, an instrument per voice, and lays the
// voices' patterns across the segment.
func (f *Fabricator) craftRhythm() error {
	program, seq, parent := f.rhythmProgram()
	if program == nil {
		f.reportMissing("no rhythm program fits the segment")
		return nil
	}
	if seq == nil {
		f.reportMissing("rhythm program %s has no sequence", program.Name)
		return nil
	}
	programChoice := &fabrication.SegmentChoice{
		ProgramID:         uuidPtr(program.ID),
		ProgramType:       string(types.ProgramTypeRhythm),
		ProgramSequenceID: uuidPtr(seq.ID),
		DeltaIn:           deltaarc.DeltaUnlimited,
		DeltaOut:          deltaarc.DeltaUnlimited,
	}
	if parent != nil {
		programChoice.ParentChoiceID = uuidPtr(parent.ID)
	}
	f.addChoice(programChoice)

	voices := f.snap.Voices(program.ID)
	names := make([]string, 0, len(voices))
	for _, v := range voices {
		names = append(names, v.Name)
	}
	arc := f.arcs.Compute(deltaarc.Request{
		AutoIntensity:  f.tpl.AutoIntensity,
		SegmentType:    f.segment.Type,
		Layers:         names,
		Prioritize:     f.tpl.DeltaArcRhythmPrioritize,
		LayersIncoming: f.tpl.DeltaArcRhythmLayersIncoming,
		RunBeats:       f.mainRunBeats(),
		BeatsPerBar:    f.tpl.BeatsPerBar,
		Prior:          f.layerPrior(f.voiceName),
	})

	for _, voice := range voices {
		if err := f.craftRhythmVoice(program, seq, voice, arc.For(voice.Name)); err != nil {
			return err
		}
	}
	return nil
}

// rhythmProgram carries the previous rhythm program over on continuation.
func (f *Fabricator) rhythmProgram() (*types.Program, *types.ProgramSequence, *fabrication.SegmentChoice) {
	if f.isContinue() {
		if prev, ok := f.retro.PreviousChoiceOfProgramType(types.ProgramTypeRhythm); ok && prev.ProgramID != nil {
			if p, ok := f.snap.Program(*prev.ProgramID); ok {
				if prev.ProgramSequenceID != nil {
					if seq, ok := f.snap.Sequence(*prev.ProgramSequenceID); ok {
						return p, seq, prev
					}
				}
				seq, _ := f.chooseSequence(p.ID)
				return p, seq, prev
			}
		}
	}
	p, ok := f.chooseProgram(types.ProgramTypeRhythm, uuid.Nil, nil)
	if !ok {
		return nil, nil, nil
	}
	seq, _ := f.chooseSequence(p.ID)
	return p, seq, nil
}

func (f *Fabricator) voiceName(c fabrication.SegmentChoice) (string, bool) {
	if c.ProgramVoiceID == nil {
		return "", false
	}
	v, ok := f.snap.Voice(*c.ProgramVoiceID)
	if !ok {
		return "", false
	}
	return v.Name, true
}

// runChoiceForVoice finds the newest choice in this main run whose voice has
// the same name.
func (f *Fabricator) runChoiceForVoice(name string) (*fabrication.SegmentChoice, bool) {
	for _, c := range f.retro.RunChoicesWithVoice() {
		if n, ok := f.voiceName(c); ok && n == name {
			c := c
			return &c, true
		}
	}
	return nil, false
}

func (f *Fabricator) craftRhythmVoice(program *types.Program, seq *types.ProgramSequence, voice *types.ProgramVoice, bounds deltaarc.Bounds) error {
	var inst *types.Instrument
	var parent *fabrication.SegmentChoice
	mute := false
	if f.isContinue() {
		if prev, ok := f.runChoiceForVoice(voice.Name); ok && prev.InstrumentID != nil {
			if in, ok := f.snap.Instrument(*prev.InstrumentID); ok {
				inst, parent, mute = in, prev, prev.Mute
			}
		}
	}
	if inst == nil {
		in, ok := f.chooseInstrument(voice.Type, nil)
		if !ok {
			f.reportMissing("no %s instrument for rhythm voice %s", voice.Type, voice.Name)
			return nil
		}
		inst = in
		mute = f.rollMute(inst.Type)
	}

	choice := &fabrication.SegmentChoice{
		ProgramID:         uuidPtr(program.ID),
		ProgramType:       string(types.ProgramTypeRhythm),
		ProgramSequenceID: uuidPtr(seq.ID),
		ProgramVoiceID:    uuidPtr(voice.ID),
		InstrumentID:      uuidPtr(inst.ID),
		InstrumentType:    string(inst.Type),
		InstrumentMode:    string(inst.Mode),
		DeltaIn:           bounds.In,
		DeltaOut:          bounds.Out,
		Mute:              mute,
	}
	if parent != nil {
		choice.ParentChoiceID = uuidPtr(parent.ID)
	}
	f.addChoice(choice)
	if mute {
		return nil
	}

	patterns := f.snap.Patterns(seq.ID, voice.ID)
	if len(patterns) == 0 {
		f.reportMissing("no pattern for rhythm voice %s in sequence %s", voice.Name, seq.Name)
		return nil
	}
	pattern := patterns[f.rng.Intn(len(patterns))]
	arr := f.addArrangement(choice, uuidPtr(pattern.ID), nil)
	return f.loopPattern(pattern, seq.Total, func(e *types.ProgramSequencePatternEvent, pos float64) {
		amp := f.volume(choice, inst, e.Velocity, pos)
		if amp <= 0 {
			return
		}
		track, ok := f.snap.Track(e.ProgramVoiceTrackID)
		if !ok {
			f.reportMissing("track %s of voice %s", e.ProgramVoiceTrackID, voice.Name)
			return
		}
		audio, ok := f.audioForEvent(inst, track.ID, track.Name)
		if !ok {
			f.reportMissing("no audio in instrument %s for %s", inst.Name, track.Name)
			return
		}
		start, length := f.span(pos, e.Duration)
		tones := e.Tones
		if tones == "" {
			tones = audio.Tones
		}
		f.addPick(arr, &fabrication.SegmentChoiceArrangementPick{
			ProgramSequencePatternEventID: uuidPtr(e.ID),
			InstrumentAudioID:             audio.ID,
			Event:                         track.Name,
			StartAtSegmentMicros:          start,
			LengthMicros:                  pickLength(inst, audio, length),
			Amplitude:                     amp,
			Tones:                         tones,
		})
	})
}
