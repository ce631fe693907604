package fabrication

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SegmentChoice is a decision to use one program, and optionally one voice and instrument, in a segment.
type SegmentChoice struct {
	ID                       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SegmentID                uuid.UUID  `gorm:"type:uuid;not null;index" json:"segment_id"`
	ProgramID                *uuid.UUID `gorm:"type:uuid;index" json:"program_id,omitempty"`
	ProgramType              string     `gorm:"column:program_type;index" json:"program_type,omitempty"`
	ProgramSequenceID        *uuid.UUID `gorm:"type:uuid" json:"program_sequence_id,omitempty"`
	ProgramSequenceBindingID *uuid.UUID `gorm:"type:uuid" json:"program_sequence_binding_id,omitempty"`
	ProgramVoiceID           *uuid.UUID `gorm:"type:uuid" json:"program_voice_id,omitempty"`
	InstrumentID             *uuid.UUID `gorm:"type:uuid;index" json:"instrument_id,omitempty"`
	InstrumentType           string     `gorm:"column:instrument_type;index" json:"instrument_type,omitempty"`
	InstrumentMode           string     `gorm:"column:instrument_mode" json:"instrument_mode,omitempty"`
	DeltaIn                  int        `gorm:"column:delta_in;not null" json:"delta_in"`
	DeltaOut                 int        `gorm:"column:delta_out;not null" json:"delta_out"`
	Mute                     bool       `gorm:"column:mute;not null;default:false" json:"mute"`
	// ParentChoiceID points at the prior segment's choice this one continues.
	ParentChoiceID *uuid.UUID `gorm:"type:uuid" json:"parent_choice_id,omitempty"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
}

func (SegmentChoice) TableName() string { return "segment_choice" }

func (c *SegmentChoice) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// SegmentChoiceArrangement groups picks under one choice for one pattern or chord section.
type SegmentChoiceArrangement struct {
	ID                       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SegmentID                uuid.UUID  `gorm:"type:uuid;not null;index" json:"segment_id"`
	SegmentChoiceID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"segment_choice_id"`
	ProgramSequencePatternID *uuid.UUID `gorm:"type:uuid" json:"program_sequence_pattern_id,omitempty"`
	SegmentChordID           *uuid.UUID `gorm:"type:uuid" json:"segment_chord_id,omitempty"`
	CreatedAt                time.Time  `gorm:"not null" json:"created_at"`
}

func (SegmentChoiceArrangement) TableName() string { return "segment_choice_arrangement" }

func (a *SegmentChoiceArrangement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// SegmentChoiceArrangementPick is one concrete sounding event.
type SegmentChoiceArrangementPick struct {
	ID                            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SegmentID                     uuid.UUID  `gorm:"type:uuid;not null;index" json:"segment_id"`
	SegmentChoiceID               uuid.UUID  `gorm:"type:uuid;not null;index" json:"segment_choice_id"`
	SegmentChoiceArrangementID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"segment_choice_arrangement_id"`
	ProgramSequencePatternEventID *uuid.UUID `gorm:"type:uuid" json:"program_sequence_pattern_event_id,omitempty"`
	InstrumentAudioID             uuid.UUID  `gorm:"type:uuid;not null" json:"instrument_audio_id"`
	Event                         string     `gorm:"column:event" json:"event"`
	StartAtSegmentMicros          int64      `gorm:"column:start_at_segment_micros;not null" json:"start_at_segment_micros"`
	LengthMicros                  int64      `gorm:"column:length_micros;not null" json:"length_micros"`
	Amplitude                     float64    `gorm:"column:amplitude;not null" json:"amplitude"`
	Tones                         string     `gorm:"column:tones" json:"tones"`
	CreatedAt                     time.Time  `gorm:"not null" json:"created_at"`
}

func (SegmentChoiceArrangementPick) TableName() string { return "segment_choice_arrangement_pick" }

func (p *SegmentChoiceArrangementPick) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
