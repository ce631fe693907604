package content

import "github.com/google/uuid"

type ProgramType string

const (
	ProgramTypeMacro  ProgramType = "Macro"
	ProgramTypeMain   ProgramType = "Main"
	ProgramTypeRhythm ProgramType = "Rhythm"
	ProgramTypeDetail ProgramType = "Detail"
)

type State string

const (
	StatePublished State = "Published"
	StateDraft     State = "Draft"
)

type Program struct {
	ID      uuid.UUID
	Name    string
	Type    ProgramType
	State   State
	Key     string
	Tempo   float64
	Density float64
}

type ProgramMeme struct {
	ID        uuid.UUID
	ProgramID uuid.UUID
	Name      string
}

type ProgramSequence struct {
	ID        uuid.UUID
	ProgramID uuid.UUID
	Name      string
	Key       string
	Total     int
	Density   float64
}

// ProgramSequenceBinding places a sequence at an offset of a macro or main program.
type ProgramSequenceBinding struct {
	ID                uuid.UUID
	ProgramID         uuid.UUID
	ProgramSequenceID uuid.UUID
	Offset            int
}

type ProgramSequenceBindingMeme struct {
	ID                       uuid.UUID
	ProgramID                uuid.UUID
	ProgramSequenceBindingID uuid.UUID
	Name                     string
}

type ProgramSequenceChord struct {
	ID                uuid.UUID
	ProgramID         uuid.UUID
	ProgramSequenceID uuid.UUID
	Name              string
	Position          float64
}

type ProgramSequenceChordVoicing struct {
	ID                     uuid.UUID
	ProgramID              uuid.UUID
	ProgramSequenceChordID uuid.UUID
	Type                   InstrumentType
	Notes                  string
}

type ProgramVoice struct {
	ID        uuid.UUID
	ProgramID uuid.UUID
	Type      InstrumentType
	Name      string
	Order     float64
}

type ProgramVoiceTrack struct {
	ID             uuid.UUID
	ProgramID      uuid.UUID
	ProgramVoiceID uuid.UUID
	Name           string
	Order          float64
}

type ProgramSequencePattern struct {
	ID                uuid.UUID
	ProgramID         uuid.UUID
	ProgramSequenceID uuid.UUID
	ProgramVoiceID    uuid.UUID
	Name              string
	Total             int
}

type ProgramSequencePatternEvent struct {
	ID                       uuid.UUID
	ProgramID                uuid.UUID
	ProgramSequencePatternID uuid.UUID
	ProgramVoiceTrackID      uuid.UUID
	Position                 float64
	Duration                 float64
	Velocity                 float64
	Tones                    string
}

func (e *Program) EntityID() uuid.UUID                     { return e.ID }
func (e *ProgramMeme) EntityID() uuid.UUID                 { return e.ID }
func (e *ProgramSequence) EntityID() uuid.UUID             { return e.ID }
func (e *ProgramSequenceBinding) EntityID() uuid.UUID      { return e.ID }
func (e *ProgramSequenceBindingMeme) EntityID() uuid.UUID  { return e.ID }
func (e *ProgramSequenceChord) EntityID() uuid.UUID        { return e.ID }
func (e *ProgramSequenceChordVoicing) EntityID() uuid.UUID { return e.ID }
func (e *ProgramSequencePattern) EntityID() uuid.UUID      { return e.ID }
func (e *ProgramSequencePatternEvent) EntityID() uuid.UUID { return e.ID }
func (e *ProgramVoice) EntityID() uuid.UUID                { return e.ID }
func (e *ProgramVoiceTrack) EntityID() uuid.UUID           { return e.ID }

func (*Program) Kind() Kind                     { return KindProgram }
func (*ProgramMeme) Kind() Kind                 { return KindProgramMeme }
func (*ProgramSequence) Kind() Kind             { return KindProgramSequence }
func (*ProgramSequenceBinding) Kind() Kind      { return KindProgramSequenceBinding }
func (*ProgramSequenceBindingMeme) Kind() Kind  { return KindProgramSequenceBindingMeme }
func (*ProgramSequenceChord) Kind() Kind        { return KindProgramSequenceChord }
func (*ProgramSequenceChordVoicing) Kind() Kind { return KindProgramSequenceChordVoicing }
func (*ProgramSequencePattern) Kind() Kind      { return KindProgramSequencePattern }
func (*ProgramSequencePatternEvent) Kind() Kind { return KindProgramSequencePatternEvent }
func (*ProgramVoice) Kind() Kind                { return KindProgramVoice }
func (*ProgramVoiceTrack) Kind() Kind           { return KindProgramVoiceTrack }
