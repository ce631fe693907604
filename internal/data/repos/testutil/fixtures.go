package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/fabricator/internal/domain/fabrication"
)

func SeedChain(tb testing.TB, ctx context.Context, tx *gorm.DB, state types.ChainState, startAt time.Time) *types.Chain {
	tb.Helper()
	c := &types.Chain{
		ID:         uuid.New(),
		AccountID:  uuid.New(),
		TemplateID: uuid.New(),
		Name:       "chain",
		Type:       types.ChainTypeProduction,
		State:      state,
		StartAt:    startAt.UTC(),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed chain: %v", err)
	}
	return c
}

func SeedSegment(tb testing.TB, ctx context.Context, tx *gorm.DB, chainID uuid.UUID, offset int64, state types.SegmentState, beginAt time.Time, length time.Duration) *types.Segment {
	tb.Helper()
	s := &types.Segment{
		ID:      uuid.New(),
		ChainID: chainID,
		Offset:  offset,
		State:   state,
		Type:    types.SegmentTypePending,
		BeginAt: beginAt.UTC(),
	}
	if length > 0 {
		end := beginAt.Add(length).UTC()
		s.EndAt = &end
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed segment: %v", err)
	}
	return s
}
