package fabrication

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SegmentMeme struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SegmentID uuid.UUID `gorm:"type:uuid;not null;index" json:"segment_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (SegmentMeme) TableName() string { return "segment_meme" }

func (m *SegmentMeme) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type SegmentChord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SegmentID uuid.UUID `gorm:"type:uuid;not null;index" json:"segment_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Position  float64   `gorm:"column:position;not null" json:"position"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (SegmentChord) TableName() string { return "segment_chord" }

func (c *SegmentChord) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type SegmentChordVoicing struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SegmentID      uuid.UUID `gorm:"type:uuid;not null;index" json:"segment_id"`
	SegmentChordID uuid.UUID `gorm:"type:uuid;not null;index" json:"segment_chord_id"`
	Type           string    `gorm:"column:type;not null" json:"type"`
	Notes          string    `gorm:"column:notes" json:"notes"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

func (SegmentChordVoicing) TableName() string { return "segment_chord_voicing" }

func (v *SegmentChordVoicing) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

type MessageType string

const (
	MessageTypeDebug   MessageType = "debug"
	MessageTypeInfo    MessageType = "info"
	MessageTypeWarning MessageType = "warning"
	MessageTypeError   MessageType = "error"
	// MessageTypeMissing reports library content the craft needed but could not find.
	MessageTypeMissing MessageType = "missing"
)

// SegmentMessage is a human-readable diagnostic attached to a segment. Messages survive reverts.
type SegmentMessage struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	SegmentID uuid.UUID   `gorm:"type:uuid;not null;index" json:"segment_id"`
	Type      MessageType `gorm:"column:type;not null;index" json:"type"`
	Body      string      `gorm:"column:body;type:text" json:"body"`
	CreatedAt time.Time   `gorm:"not null" json:"created_at"`
}

func (SegmentMessage) TableName() string { return "segment_message" }

func (m *SegmentMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// CraftOutput is everything one successful craft pass writes for a segment.
type CraftOutput struct {
	Segment      *Segment
	Memes        []*SegmentMeme
	Chords       []*SegmentChord
	Voicings     []*SegmentChordVoicing
	Choices      []*SegmentChoice
	Arrangements []*SegmentChoiceArrangement
	Picks        []*SegmentChoiceArrangementPick
	Messages     []*SegmentMessage
}
