package content

import "github.com/google/uuid"

type InstrumentType string

const (
	InstrumentTypeBass       InstrumentType = "Bass"
	InstrumentTypeDrum       InstrumentType = "Drum"
	InstrumentTypeHook       InstrumentType = "Hook"
	InstrumentTypePad        InstrumentType = "Pad"
	InstrumentTypePercussion InstrumentType = "Percussion"
	InstrumentTypeStab       InstrumentType = "Stab"
	InstrumentTypeSticky     InstrumentType = "Sticky"
	InstrumentTypeStripe     InstrumentType = "Stripe"
	InstrumentTypeBackground InstrumentType = "Background"
)

// InstrumentTypes lists every instrument type in canonical order.
var InstrumentTypes = []InstrumentType{
	InstrumentTypeBass,
	InstrumentTypeDrum,
	InstrumentTypeHook,
	InstrumentTypePad,
	InstrumentTypePercussion,
	InstrumentTypeStab,
	InstrumentTypeSticky,
	InstrumentTypeStripe,
	InstrumentTypeBackground,
}

// IsTonal reports whether voices of this type carry pitched notes.
func (t InstrumentType) IsTonal() bool {
	switch t {
	case InstrumentTypeDrum, InstrumentTypePercussion, InstrumentTypeBackground:
		return false
	default:
		return true
	}
}

type InstrumentMode string

const (
	InstrumentModeEvent InstrumentMode = "Event"
	InstrumentModeChord InstrumentMode = "Chord"
	InstrumentModeLoop  InstrumentMode = "Loop"
)

type InstrumentConfig struct {
	// AudioSelectionPersistent makes repeated notes and chords reuse their first audio.
	AudioSelectionPersistent bool
	Multiphonic              bool
	OneShot                  bool
	OneShotCutoffEnabled     bool
}

type Instrument struct {
	ID     uuid.UUID
	Name   string
	Type   InstrumentType
	Mode   InstrumentMode
	State  State
	Volume float64
	Config InstrumentConfig
}

type InstrumentMeme struct {
	ID           uuid.UUID
	InstrumentID uuid.UUID
	Name         string
}

type InstrumentAudio struct {
	ID           uuid.UUID
	InstrumentID uuid.UUID
	Name         string
	Event        string
	Tones        string
	Volume       float64
	Intensity    float64
	Tempo        float64
	// LoopBeats is the musical length of a loop audio.
	LoopBeats     int
	LengthSeconds float64
	WaveformKey   string
}

type TemplateBindingType string

const (
	TemplateBindingProgram    TemplateBindingType = "Program"
	TemplateBindingInstrument TemplateBindingType = "Instrument"
)

// TemplateBinding marks library content as directly bound to a template.
type TemplateBinding struct {
	ID       uuid.UUID
	Type     TemplateBindingType
	TargetID uuid.UUID
}

func (e *Instrument) EntityID() uuid.UUID      { return e.ID }
func (e *InstrumentMeme) EntityID() uuid.UUID  { return e.ID }
func (e *InstrumentAudio) EntityID() uuid.UUID { return e.ID }
func (e *TemplateBinding) EntityID() uuid.UUID { return e.ID }

func (*Instrument) Kind() Kind      { return KindInstrument }
func (*InstrumentMeme) Kind() Kind  { return KindInstrumentMeme }
func (*InstrumentAudio) Kind() Kind { return KindInstrumentAudio }
func (*TemplateBinding) Kind() Kind { return KindTemplateBinding }
