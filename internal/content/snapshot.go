// Package content builds the in-memory library snapshot a craft pass reads from.
package content

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	types "github.com/yungbote/fabricator/internal/domain/content"
)

// Snapshot is an arena of library entities addressed by id. Relationships are
// id fields resolved through the snapshot; lists keep insertion order.
type Snapshot struct {
	programs     map[uuid.UUID]*types.Program
	programOrder []*types.Program
	programMemes map[uuid.UUID][]*types.ProgramMeme

	sequences         map[uuid.UUID]*types.ProgramSequence
	sequencesByParent map[uuid.UUID][]*types.ProgramSequence

	bindings         map[uuid.UUID]*types.ProgramSequenceBinding
	bindingsByParent map[uuid.UUID][]*types.ProgramSequenceBinding
	bindingMemes     map[uuid.UUID][]*types.ProgramSequenceBindingMeme

	chords           map[uuid.UUID]*types.ProgramSequenceChord
	chordsBySequence map[uuid.UUID][]*types.ProgramSequenceChord
	voicingsByChord  map[uuid.UUID][]*types.ProgramSequenceChordVoicing

	patterns           map[uuid.UUID]*types.ProgramSequencePattern
	patternsBySequence map[uuid.UUID][]*types.ProgramSequencePattern
	eventsByPattern    map[uuid.UUID][]*types.ProgramSequencePatternEvent

	voices         map[uuid.UUID]*types.ProgramVoice
	voicesByParent map[uuid.UUID][]*types.ProgramVoice
	tracks         map[uuid.UUID]*types.ProgramVoiceTrack

	instruments        map[uuid.UUID]*types.Instrument
	instrumentOrder    []*types.Instrument
	instrumentMemes    map[uuid.UUID][]*types.InstrumentMeme
	audios             map[uuid.UUID]*types.InstrumentAudio
	audiosByInstrument map[uuid.UUID][]*types.InstrumentAudio

	bound map[uuid.UUID]bool
	size  int
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		programs:           map[uuid.UUID]*types.Program{},
		programMemes:       map[uuid.UUID][]*types.ProgramMeme{},
		sequences:          map[uuid.UUID]*types.ProgramSequence{},
		sequencesByParent:  map[uuid.UUID][]*types.ProgramSequence{},
		bindings:           map[uuid.UUID]*types.ProgramSequenceBinding{},
		bindingsByParent:   map[uuid.UUID][]*types.ProgramSequenceBinding{},
		bindingMemes:       map[uuid.UUID][]*types.ProgramSequenceBindingMeme{},
		chords:             map[uuid.UUID]*types.ProgramSequenceChord{},
		chordsBySequence:   map[uuid.UUID][]*types.ProgramSequenceChord{},
		voicingsByChord:    map[uuid.UUID][]*types.ProgramSequenceChordVoicing{},
		patterns:           map[uuid.UUID]*types.ProgramSequencePattern{},
		patternsBySequence: map[uuid.UUID][]*types.ProgramSequencePattern{},
		eventsByPattern:    map[uuid.UUID][]*types.ProgramSequencePatternEvent{},
		voices:             map[uuid.UUID]*types.ProgramVoice{},
		voicesByParent:     map[uuid.UUID][]*types.ProgramVoice{},
		tracks:             map[uuid.UUID]*types.ProgramVoiceTrack{},
		instruments:        map[uuid.UUID]*types.Instrument{},
		instrumentMemes:    map[uuid.UUID][]*types.InstrumentMeme{},
		audios:             map[uuid.UUID]*types.InstrumentAudio{},
		audiosByInstrument: map[uuid.UUID][]*types.InstrumentAudio{},
		bound:              map[uuid.UUID]bool{},
	}
}

// Put ingests one entity. Every Kind is handled; an unknown kind or a nil id is rejected.
func (s *Snapshot) Put(e types.Entity) error {
	if e == nil {
		return fmt.Errorf("put: nil entity")
	}
	if e.EntityID() == uuid.Nil {
		return fmt.Errorf("put %s: missing id", e.Kind())
	}
	switch e.Kind() {
	case types.KindProgram:
		v := e.(*types.Program)
		if _, dup := s.programs[v.ID]; !dup {
			s.programOrder = append(s.programOrder, v)
		}
		s.programs[v.ID] = v
	case types.KindProgramMeme:
		v := e.(*types.ProgramMeme)
		s.programMemes[v.ProgramID] = append(s.programMemes[v.ProgramID], v)
	case types.KindProgramSequence:
		v := e.(*types.ProgramSequence)
		s.sequences[v.ID] = v
		s.sequencesByParent[v.ProgramID] = append(s.sequencesByParent[v.ProgramID], v)
	case types.KindProgramSequenceBinding:
		v := e.(*types.ProgramSequenceBinding)
		s.bindings[v.ID] = v
		s.bindingsByParent[v.ProgramID] = append(s.bindingsByParent[v.ProgramID], v)
	case types.KindProgramSequenceBindingMeme:
		v := e.(*types.ProgramSequenceBindingMeme)
		s.bindingMemes[v.ProgramSequenceBindingID] = append(s.bindingMemes[v.ProgramSequenceBindingID], v)
	case types.KindProgramSequenceChord:
		v := e.(*types.ProgramSequenceChord)
		s.chords[v.ID] = v
		s.chordsBySequence[v.ProgramSequenceID] = append(s.chordsBySequence[v.ProgramSequenceID], v)
	case types.KindProgramSequenceChordVoicing:
		v := e.(*types.ProgramSequenceChordVoicing)
		s.voicingsByChord[v.ProgramSequenceChordID] = append(s.voicingsByChord[v.ProgramSequenceChordID], v)
	case types.KindProgramSequencePattern:
		v := e.(*types.ProgramSequencePattern)
		s.patterns[v.ID] = v
		s.patternsBySequence[v.ProgramSequenceID] = append(s.patternsBySequence[v.ProgramSequenceID], v)
	case types.KindProgramSequencePatternEvent:
		v := e.(*types.ProgramSequencePatternEvent)
		s.eventsByPattern[v.ProgramSequencePatternID] = append(s.eventsByPattern[v.ProgramSequencePatternID], v)
	case types.KindProgramVoice:
		v := e.(*types.ProgramVoice)
		s.voices[v.ID] = v
		s.voicesByParent[v.ProgramID] = append(s.voicesByParent[v.ProgramID], v)
	case types.KindProgramVoiceTrack:
		v := e.(*types.ProgramVoiceTrack)
		s.tracks[v.ID] = v
	case types.KindInstrument:
		v := e.(*types.Instrument)
		if _, dup := s.instruments[v.ID]; !dup {
			s.instrumentOrder = append(s.instrumentOrder, v)
		}
		s.instruments[v.ID] = v
	case types.KindInstrumentMeme:
		v := e.(*types.InstrumentMeme)
		s.instrumentMemes[v.InstrumentID] = append(s.instrumentMemes[v.InstrumentID], v)
	case types.KindInstrumentAudio:
		v := e.(*types.InstrumentAudio)
		s.audios[v.ID] = v
		s.audiosByInstrument[v.InstrumentID] = append(s.audiosByInstrument[v.InstrumentID], v)
	case types.KindTemplateBinding:
		v := e.(*types.TemplateBinding)
		s.bound[v.TargetID] = true
	default:
		return fmt.Errorf("put: unsupported kind %s", e.Kind())
	}
	s.size++
	return nil
}

// PutAll stops at the first rejected entity.
func (s *Snapshot) PutAll(entities ...types.Entity) error {
	for _, e := range entities {
		if err := s.Put(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *Snapshot) Size() int { return s.size }

// IsBound reports whether a program or instrument is directly bound to the template.
func (s *Snapshot) IsBound(id uuid.UUID) bool { return s.bound[id] }

func (s *Snapshot) Program(id uuid.UUID) (*types.Program, bool) {
	p, ok := s.programs[id]
	return p, ok
}

func (s *Snapshot) ProgramsOfType(t types.ProgramType) []*types.Program {
	out := []*types.Program{}
	for _, p := range s.programOrder {
		if p.Type == t {
			out = append(out, p)
		}
	}
	return out
}

func (s *Snapshot) ProgramMemes(programID uuid.UUID) []string {
	out := make([]string, 0, len(s.programMemes[programID]))
	for _, m := range s.programMemes[programID] {
		out = append(out, m.Name)
	}
	return out
}

func (s *Snapshot) Sequence(id uuid.UUID) (*types.ProgramSequence, bool) {
	v, ok := s.sequences[id]
	return v, ok
}

func (s *Snapshot) Sequences(programID uuid.UUID) []*types.ProgramSequence {
	return s.sequencesByParent[programID]
}

func (s *Snapshot) Binding(id uuid.UUID) (*types.ProgramSequenceBinding, bool) {
	v, ok := s.bindings[id]
	return v, ok
}

// Bindings returns the program's sequence bindings ordered by offset.
func (s *Snapshot) Bindings(programID uuid.UUID) []*types.ProgramSequenceBinding {
	out := append([]*types.ProgramSequenceBinding(nil), s.bindingsByParent[programID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

func (s *Snapshot) BindingsAtOffset(programID uuid.UUID, offset int) []*types.ProgramSequenceBinding {
	out := []*types.ProgramSequenceBinding{}
	for _, b := range s.bindingsByParent[programID] {
		if b.Offset == offset {
			out = append(out, b)
		}
	}
	return out
}

// NextBindingOffset returns the smallest binding offset strictly greater than offset.
func (s *Snapshot) NextBindingOffset(programID uuid.UUID, offset int) (int, bool) {
	next, found := 0, false
	for _, b := range s.bindingsByParent[programID] {
		if b.Offset > offset && (!found || b.Offset < next) {
			next, found = b.Offset, true
		}
	}
	return next, found
}

func (s *Snapshot) BindingMemes(bindingID uuid.UUID) []string {
	out := make([]string, 0, len(s.bindingMemes[bindingID]))
	for _, m := range s.bindingMemes[bindingID] {
		out = append(out, m.Name)
	}
	return out
}

// Chords returns a sequence's chords ordered by position.
func (s *Snapshot) Chords(sequenceID uuid.UUID) []*types.ProgramSequenceChord {
	out := append([]*types.ProgramSequenceChord(nil), s.chordsBySequence[sequenceID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (s *Snapshot) Voicings(chordID uuid.UUID) []*types.ProgramSequenceChordVoicing {
	return s.voicingsByChord[chordID]
}

func (s *Snapshot) Voicing(chordID uuid.UUID, t types.InstrumentType) (*types.ProgramSequenceChordVoicing, bool) {
	for _, v := range s.voicingsByChord[chordID] {
		if v.Type == t {
			return v, true
		}
	}
	return nil, false
}

func (s *Snapshot) Pattern(id uuid.UUID) (*types.ProgramSequencePattern, bool) {
	v, ok := s.patterns[id]
	return v, ok
}

// Patterns returns the candidate patterns of one voice within a sequence.
func (s *Snapshot) Patterns(sequenceID, voiceID uuid.UUID) []*types.ProgramSequencePattern {
	out := []*types.ProgramSequencePattern{}
	for _, p := range s.patternsBySequence[sequenceID] {
		if p.ProgramVoiceID == voiceID {
			out = append(out, p)
		}
	}
	return out
}

// Events returns a pattern's events ordered by position.
func (s *Snapshot) Events(patternID uuid.UUID) []*types.ProgramSequencePatternEvent {
	out := append([]*types.ProgramSequencePatternEvent(nil), s.eventsByPattern[patternID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (s *Snapshot) Voice(id uuid.UUID) (*types.ProgramVoice, bool) {
	v, ok := s.voices[id]
	return v, ok
}

// Voices returns a program's voices in their configured order.
func (s *Snapshot) Voices(programID uuid.UUID) []*types.ProgramVoice {
	out := append([]*types.ProgramVoice(nil), s.voicesByParent[programID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (s *Snapshot) Track(id uuid.UUID) (*types.ProgramVoiceTrack, bool) {
	v, ok := s.tracks[id]
	return v, ok
}


func (s *Snapshot) Instrument(id uuid.UUID) (*types.Instrument, bool) {
	v, ok := s.instruments[id]
	return v, ok
}

func (s *Snapshot) InstrumentsOfType(t types.InstrumentType) []*types.Instrument {
	out := []*types.Instrument{}
	for _, i := range s.instrumentOrder {
		if i.Type == t {
			out = append(out, i)
		}
	}
	return out
}

func (s *Snapshot) InstrumentMemes(instrumentID uuid.UUID) []string {
	out := make([]string, 0, len(s.instrumentMemes[instrumentID]))
	for _, m := range s.instrumentMemes[instrumentID] {
		out = append(out, m.Name)
	}
	return out
}

func (s *Snapshot) Audio(id uuid.UUID) (*types.InstrumentAudio, bool) {
	v, ok := s.audios[id]
	return v, ok
}

func (s *Snapshot) Audios(instrumentID uuid.UUID) []*types.InstrumentAudio {
	return s.audiosByInstrument[instrumentID]
}
