// Package content holds the read-only musical library consumed by the craft engine.
package content

import "github.com/google/uuid"

// Kind enumerates every library entity the snapshot arena accepts.
type Kind int

const (
	KindProgram Kind = iota + 1
	KindProgramMeme
	KindProgramSequence
	KindProgramSequenceBinding
	KindProgramSequenceBindingMeme
	KindProgramSequenceChord
	KindProgramSequenceChordVoicing
	KindProgramSequencePattern
	KindProgramSequencePatternEvent
	KindProgramVoice
	KindProgramVoiceTrack
	KindInstrument
	KindInstrumentMeme
	KindInstrumentAudio
	KindTemplateBinding
)

var kindNames = map[Kind]string{
	KindProgram:                     "Program",
	KindProgramMeme:                 "ProgramMeme",
	KindProgramSequence:             "ProgramSequence",
	KindProgramSequenceBinding:      "ProgramSequenceBinding",
	KindProgramSequenceBindingMeme:  "ProgramSequenceBindingMeme",
	KindProgramSequenceChord:        "ProgramSequenceChord",
	KindProgramSequenceChordVoicing: "ProgramSequenceChordVoicing",
	KindProgramSequencePattern:      "ProgramSequencePattern",
	KindProgramSequencePatternEvent: "ProgramSequencePatternEvent",
	KindProgramVoice:                "ProgramVoice",
	KindProgramVoiceTrack:           "ProgramVoiceTrack",
	KindInstrument:                  "Instrument",
	KindInstrumentMeme:              "InstrumentMeme",
	KindInstrumentAudio:             "InstrumentAudio",
	KindTemplateBinding:             "TemplateBinding",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Unknown"
}

// Entity is implemented by every library type.
type Entity interface {
	EntityID() uuid.UUID
	Kind() Kind
}
