package fabrication

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SegmentState string

const (
	SegmentStatePlanned  SegmentState = "PLANNED"
	SegmentStateCrafting SegmentState = "CRAFTING"
	SegmentStateCrafted  SegmentState = "CRAFTED"
	SegmentStateDubbing  SegmentState = "DUBBING"
	SegmentStateDubbed   SegmentState = "DUBBED"
	SegmentStateFailed   SegmentState = "FAILED"
)

type SegmentType string

const (
	SegmentTypePending   SegmentType = "PENDING"
	SegmentTypeInitial   SegmentType = "INITIAL"
	SegmentTypeContinue  SegmentType = "CONTINUE"
	SegmentTypeNextMain  SegmentType = "NEXT_MAIN"
	SegmentTypeNextMacro SegmentType = "NEXT_MACRO"
)

// Segment is one fabricated slice of musical time within a chain.
// Exactly one segment exists per (chain, offset).
type Segment struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ChainID    uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_segment_chain_offset,priority:1" json:"chain_id"`
	Offset     int64        `gorm:"column:offset_index;not null;uniqueIndex:idx_segment_chain_offset,priority:2" json:"offset"`
	State      SegmentState `gorm:"column:state;not null;index" json:"state"`
	Type       SegmentType  `gorm:"column:type;not null" json:"type"`
	BeginAt    time.Time    `gorm:"column:begin_at;not null;index" json:"begin_at"`
	EndAt      *time.Time   `gorm:"column:end_at;index" json:"end_at,omitempty"`
	Key        string       `gorm:"column:musical_key" json:"key"`
	Total      int          `gorm:"column:total;not null;default:0" json:"total"`
	Tempo      float64      `gorm:"column:tempo;not null;default:0" json:"tempo"`
	Density    float64      `gorm:"column:density;not null;default:0" json:"density"`
	Delta      int          `gorm:"column:delta;not null;default:0" json:"delta"`
	StorageKey string       `gorm:"column:storage_key" json:"storage_key,omitempty"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

func (Segment) TableName() string { return "segment" }

func (s *Segment) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// DurationMicros is the segment length, or zero while the end is unknown.
func (s *Segment) DurationMicros() int64 {
	if s == nil || s.EndAt == nil {
		return 0
	}
	return s.EndAt.Sub(s.BeginAt).Microseconds()
}
