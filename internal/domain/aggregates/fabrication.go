package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fabricator/internal/domain/fabrication"
)

// SegmentAggregate owns every write that changes a segment's state or its
// craft output. Implementations run each operation in one transaction.
type SegmentAggregate interface {
	// Plan creates a PLANNED segment. A second segment at the same
	// (chain, offset) fails with CodeConflict.
	Plan(ctx context.Context, template *fabrication.Segment) (*fabrication.Segment, error)
	Transition(ctx context.Context, in TransitionSegmentInput) (TransitionSegmentResult, error)
	// CommitCraft moves a CRAFTING segment to CRAFTED and stores the whole craft output with it.
	CommitCraft(ctx context.Context, out *fabrication.CraftOutput) error
	// Revert drops the craft output of a PLANNED or CRAFTING segment and keeps its messages.
	Revert(ctx context.Context, in RevertSegmentInput) (RevertSegmentResult, error)
	// Fail marks the segment FAILED and records why. No craft output is kept.
	Fail(ctx context.Context, in FailSegmentInput) error
}

type TransitionSegmentInput struct {
	SegmentID uuid.UUID
	To        fabrication.SegmentState
	// From, when set, is the state the caller read. Any other stored state
	// fails with a conflict and the same-state no-op is skipped.
	From []fabrication.SegmentState
	// StorageKey is recorded when set, e.g. by the dubber on DUBBED.
	StorageKey string
}

type TransitionSegmentResult struct {
	SegmentID uuid.UUID
	From      fabrication.SegmentState
	To        fabrication.SegmentState
	Changed   bool
}

type RevertSegmentInput struct {
	SegmentID uuid.UUID
	// ToPlanned also moves a CRAFTING segment back to PLANNED.
	ToPlanned bool
	Reason    string
}

type RevertSegmentResult struct {
	SegmentID uuid.UUID
	State     fabrication.SegmentState
}

type FailSegmentInput struct {
	SegmentID uuid.UUID
	Messages  []*fabrication.SegmentMessage
}

// ChainAggregate owns chain state changes and chain-wide cascades.
type ChainAggregate interface {
	Transition(ctx context.Context, in TransitionChainInput) (*fabrication.Chain, error)
	// Revive replaces a chain with a fresh one that inherits its template,
	// config and embed key. The old chain ends FAILED.
	Revive(ctx context.Context, in ReviveChainInput) (*fabrication.Chain, error)
	// Destroy deletes the chain with all of its segments and their output.
	Destroy(ctx context.Context, chainID uuid.UUID) error
}

type TransitionChainInput struct {
	ChainID uuid.UUID
	To      fabrication.ChainState
	Now     time.Time
}

type ReviveChainInput struct {
	ChainID uuid.UUID
	Reason  string
	Now     time.Time
}
