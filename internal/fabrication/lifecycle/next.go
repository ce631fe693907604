package lifecycle

import (
	"time"

	"github.com/yungbote/fabricator/internal/domain/fabrication"
)

// Decision is the outcome of looking at a chain's last segment.
type Decision struct {
	// Template is the next segment to create, nil when there is none.
	Template *fabrication.Segment
	// Complete is set when the chain has played past its stop time.
	Complete bool
}

// NextSegment decides whether to build another segment or complete the chain.
// last is the chain's highest-offset segment, nil when it has none. A last
// segment without an end time yields neither a template nor completion.
func NextSegment(c *fabrication.Chain, last *fabrication.Segment, now time.Time, cfg Config) Decision {
	if last == nil {
		return Decision{Template: &fabrication.Segment{
			ChainID: c.ID,
			Offset:  0,
			State:   fabrication.SegmentStatePlanned,
			Type:    fabrication.SegmentTypePending,
			BeginAt: c.StartAt,
			Delta:   0,
		}}
	}
	if last.EndAt == nil {
		return Decision{}
	}
	if c.StopAt != nil && last.EndAt.After(*c.StopAt) &&
		now.After(c.StopAt.Add(cfg.CompletionGrace)) &&
		last.State == fabrication.SegmentStateDubbed {
		return Decision{Complete: true}
	}
	return Decision{Template: &fabrication.Segment{
		ChainID: c.ID,
		Offset:  last.Offset + 1,
		State:   fabrication.SegmentStatePlanned,
		Type:    fabrication.SegmentTypePending,
		BeginAt: *last.EndAt,
		Delta:   last.Delta,
	}}
}
