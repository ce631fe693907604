// Package realtime carries segment lifecycle events to downstream consumers
// such as the dubber.
package realtime

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSegmentCrafted EventType = "segment.crafted"
	EventSegmentFailed  EventType = "segment.failed"
	EventSegmentDubbed  EventType = "segment.dubbed"
	EventChainComplete  EventType = "chain.complete"
	EventChainFailed    EventType = "chain.failed"
)

type Event struct {
	Type      EventType `json:"type"`
	ChainID   uuid.UUID `json:"chain_id"`
	SegmentID uuid.UUID `json:"segment_id,omitempty"`
	Offset    int64     `json:"offset"`
	State     string    `json:"state,omitempty"`
	At        time.Time `json:"at"`
	// Data holds event specific fields such as pick counts.
	Data map[string]any `json:"data,omitempty"`
}
