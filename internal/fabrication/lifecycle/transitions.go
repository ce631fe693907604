// Package lifecycle holds the chain and segment state machines.
package lifecycle

import (
	"time"

	"github.com/yungbote/fabricator/internal/domain/aggregates"
	"github.com/yungbote/fabricator/internal/domain/fabrication"
)

var chainTransitions = map[fabrication.ChainState][]fabrication.ChainState{
	fabrication.ChainStateDraft:     {fabrication.ChainStateDraft, fabrication.ChainStateReady},
	fabrication.ChainStateReady:     {fabrication.ChainStateDraft, fabrication.ChainStateReady, fabrication.ChainStateFabricate},
	fabrication.ChainStateFabricate: {fabrication.ChainStateFabricate, fabrication.ChainStateFailed, fabrication.ChainStateComplete},
	fabrication.ChainStateComplete:  {fabrication.ChainStateComplete},
	fabrication.ChainStateFailed:    {fabrication.ChainStateFailed},
}

var segmentTransitions = map[fabrication.SegmentState][]fabrication.SegmentState{
	fabrication.SegmentStatePlanned: {fabrication.SegmentStatePlanned, fabrication.SegmentStateCrafting},
	fabrication.SegmentStateCrafting: {
		fabrication.SegmentStateCrafting,
		fabrication.SegmentStateCrafted,
		fabrication.SegmentStateDubbing,
		fabrication.SegmentStateFailed,
		fabrication.SegmentStatePlanned,
	},
	fabrication.SegmentStateCrafted: {fabrication.SegmentStateCrafted, fabrication.SegmentStateDubbing},
	fabrication.SegmentStateDubbing: {fabrication.SegmentStateDubbing, fabrication.SegmentStateDubbed, fabrication.SegmentStateFailed},
	fabrication.SegmentStateDubbed:  {fabrication.SegmentStateDubbed},
	fabrication.SegmentStateFailed:  {fabrication.SegmentStateFailed},
}

func ChainCanTransition(from, to fabrication.ChainState) bool {
	for _, s := range chainTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func SegmentCanTransition(from, to fabrication.SegmentState) bool {
	for _, s := range segmentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func RequireChainTransition(from, to fabrication.ChainState) error {
	if !ChainCanTransition(from, to) {
		return aggregates.Privilege("chain.transition", "transition from %s to %s is not allowed", from, to)
	}
	return nil
}

func RequireSegmentTransition(from, to fabrication.SegmentState) error {
	if !SegmentCanTransition(from, to) {
		return aggregates.Privilege("segment.transition", "transition from %s to %s is not allowed", from, to)
	}
	return nil
}

// SegmentStates lists the segment states in lifecycle order.
var SegmentStates = []fabrication.SegmentState{
	fabrication.SegmentStatePlanned,
	fabrication.SegmentStateCrafting,
	fabrication.SegmentStateCrafted,
	fabrication.SegmentStateDubbing,
	fabrication.SegmentStateDubbed,
	fabrication.SegmentStateFailed,
}

var ChainStates = []fabrication.ChainState{
	fabrication.ChainStateDraft,
	fabrication.ChainStateReady,
	fabrication.ChainStateFabricate,
	fabrication.ChainStateComplete,
	fabrication.ChainStateFailed,
}

// Config carries the timing knobs of the chain lifecycle.
type Config struct {
	StartLead        time.Duration
	PreviewLengthMax time.Duration
	CompletionGrace  time.Duration
}

// ApplyChainState validates and applies a chain transition in memory. Entering
// DRAFT, READY or FABRICATE restarts the chain clock; preview chains also get
// a stop time. The chain is untouched when the transition is rejected.
func ApplyChainState(c *fabrication.Chain, to fabrication.ChainState, now time.Time, cfg Config) error {
	if c == nil {
		return aggregates.Validation("chain.transition", "chain is required")
	}
	if err := RequireChainTransition(c.State, to); err != nil {
		return err
	}
	c.State = to
	switch to {
	case fabrication.ChainStateDraft, fabrication.ChainStateReady, fabrication.ChainStateFabricate:
		c.StartAt = now.Add(cfg.StartLead).UTC()
		if c.IsPreview() {
			stop := c.StartAt.Add(cfg.PreviewLengthMax)
			c.StopAt = &stop
		}
	}
	return nil
}

// ApplySegmentState validates and applies a segment transition in memory.
func ApplySegmentState(s *fabrication.Segment, to fabrication.SegmentState) error {
	if s == nil {
		return aggregates.Validation("segment.transition", "segment is required")
	}
	if err := RequireSegmentTransition(s.State, to); err != nil {
		return err
	}
	s.State = to
	return nil
}
