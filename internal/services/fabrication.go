package services

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dataagg "github.com/yungbote/fabricator/internal/data/aggregates"
	"github.com/yungbote/fabricator/internal/data/repos"
	domainagg "github.com/yungbote/fabricator/internal/domain/aggregates"
	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/fabrication/craft"
	"github.com/yungbote/fabricator/internal/fabrication/retrospective"
	"github.com/yungbote/fabricator/internal/observability"
	"github.com/yungbote/fabricator/internal/platform/ctxutil"
	"github.com/yungbote/fabricator/internal/platform/dbctx"
	"github.com/yungbote/fabricator/internal/platform/logger"
)

// FabricateOutcome says what one FabricateNext call did.
type FabricateOutcome string

const (
	OutcomeCrafted  FabricateOutcome = "crafted"
	OutcomeAhead    FabricateOutcome = "ahead"
	OutcomeWaiting  FabricateOutcome = "waiting"
	OutcomeComplete FabricateOutcome = "complete"
	OutcomeFailed   FabricateOutcome = "failed"
	OutcomeInactive FabricateOutcome = "inactive"
	OutcomeLostRace FabricateOutcome = "lost_race"
)

type FabricateResult struct {
	Outcome FabricateOutcome
	Segment *types.Segment
	Picks   int
	Missing int
}

// Done reports whether the chain will never need another tick.
func (r FabricateResult) Done() bool {
	return r.Outcome == OutcomeComplete || r.Outcome == OutcomeFailed || r.Outcome == OutcomeInactive
}

type FabricationService interface {
	// FabricateNext crafts at most one segment of the chain.
	FabricateNext(ctx context.Context, chainID uuid.UUID, now time.Time) (FabricateResult, error)
	// RecoverStale returns segments stuck in CRAFTING since before olderThan to PLANNED.
	RecoverStale(ctx context.Context, olderThan time.Duration, now time.Time) (int, error)
}

type FabricationDeps struct {
	Log      *logger.Logger
	Repos    repos.Set
	Chains   ChainService
	Segments SegmentService
	Content  ContentSource
	Metrics  *observability.Metrics
	// History caps how many prior segments a craft pass can look back on.
	History int
}

type fabricationService struct {
	log      *logger.Logger
	repos    repos.Set
	chains   ChainService
	segments SegmentService
	content  ContentSource
	metrics  *observability.Metrics
	history  int
}

func NewFabricationService(deps FabricationDeps) FabricationService {
	if deps.History <= 0 {
		deps.History = 64
	}
	return &fabricationService{
		log:      deps.Log.With("service", "FabricationService"),
		repos:    deps.Repos,
		chains:   deps.Chains,
		segments: deps.Segments,
		content:  deps.Content,
		metrics:  deps.Metrics,
		history:  deps.History,
	}
}

func (s *fabricationService) FabricateNext(ctx context.Context, chainID uuid.UUID, now time.Time) (FabricateResult, error) {
	const op = "Fabrication.FabricateNext"
	ctx = ctxutil.WithChain(ctx, chainID.String(), "")
	chain, err := s.chains.Get(ctx, chainID)
	if err != nil {
		return FabricateResult{}, err
	}
	switch chain.State {
	case types.ChainStateFabricate:
	case types.ChainStateComplete:
		return FabricateResult{Outcome: OutcomeComplete}, nil
	case types.ChainStateFailed:
		return FabricateResult{Outcome: OutcomeFailed}, nil
	default:
		return FabricateResult{Outcome: OutcomeInactive}, nil
	}

	snap, tpl, err := s.content.Load(ctx, chain)
	if err != nil {
		return FabricateResult{}, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	last, err := s.segments.GetLast(ctx, chainID)
	if err != nil {
		return FabricateResult{}, err
	}
	var seg *types.Segment
	switch {
	case last != nil && last.State == types.SegmentStateFailed:
		// A failed segment has no end, so nothing can follow it.
		if _, err := s.chains.UpdateState(ctx, chainID, types.ChainStateFailed, now); err != nil {
			return FabricateResult{}, err
		}
		return FabricateResult{Outcome: OutcomeFailed, Segment: last}, nil
	case last != nil && last.State == types.SegmentStatePlanned:
		seg = last
	case last != nil && last.State == types.SegmentStateCrafting:
		return FabricateResult{Outcome: OutcomeWaiting, Segment: last}, nil
	case last != nil && last.EndAt != nil && last.EndAt.After(now.Add(time.Duration(tpl.BufferAheadSeconds)*time.Second)):
		return FabricateResult{Outcome: OutcomeAhead, Segment: last}, nil
	default:
		template, err := s.chains.BuildNextSegmentOrComplete(ctx, chainID, now)
		if err != nil {
			return FabricateResult{}, err
		}
		if template == nil {
			if c, err := s.chains.Get(ctx, chainID); err == nil && c.State == types.ChainStateComplete {
				return FabricateResult{Outcome: OutcomeComplete}, nil
			}
			return FabricateResult{Outcome: OutcomeWaiting}, nil
		}
		seg, err = s.segments.Create(ctx, template)
		if domainagg.IsCode(err, domainagg.CodeConflict) {
			return FabricateResult{Outcome: OutcomeLostRace}, nil
		}
		if err != nil {
			return FabricateResult{}, err
		}
	}

	if err := s.segments.Claim(ctx, seg.ID); err != nil {
		if domainagg.IsCode(err, domainagg.CodeConflict) {
			return FabricateResult{Outcome: OutcomeLostRace}, nil
		}
		return FabricateResult{}, err
	}
	seg.State = types.SegmentStateCrafting

	retro, err := s.loadRetrospective(ctx, chainID, seg.Offset)
	if err != nil {
		s.replan(ctx, seg.ID, "retrospective load failed")
		return FabricateResult{}, err
	}

	ctx, span := observability.Tracer().Start(ctx, "fabrication.craft",
		trace.WithAttributes(observability.SegmentAttributes(chainID.String(), seg.Offset)...))
	defer span.End()

	start := time.Now()
	out, craftErr := craft.Craft(craft.Input{
		Segment:       *seg,
		Snapshot:      snap,
		Retrospective: retro,
		Template:      tpl,
		Seed:          SegmentSeed(chainID, seg.Offset),
	})
	dur := time.Since(start)

	if craftErr != nil {
		span.RecordError(craftErr)
		span.SetStatus(codes.Error, "craft failed")
		s.metrics.ObserveCraft(string(OutcomeFailed), string(seg.Type), dur, nil, 0)
		s.log.Ctx(ctx).Error("craft failed", "offset", seg.Offset, "error", craftErr)
		if err := s.segments.MarkFailed(ctx, seg.ID, craftErr.Error()); err != nil {
			return FabricateResult{}, err
		}
		if _, err := s.chains.UpdateState(ctx, chainID, types.ChainStateFailed, now); err != nil {
			return FabricateResult{}, err
		}
		seg.State = types.SegmentStateFailed
		return FabricateResult{Outcome: OutcomeFailed, Segment: seg}, nil
	}

	if err := s.segments.CommitCraft(ctx, out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		s.replan(ctx, seg.ID, "commit failed")
		return FabricateResult{}, err
	}

	picksByType, missing := craftStats(out)
	s.metrics.ObserveCraft(string(OutcomeCrafted), string(out.Segment.Type), dur, picksByType, missing)
	span.SetAttributes(
		attribute.String("fabricator.segment_type", string(out.Segment.Type)),
		attribute.Int("fabricator.picks", len(out.Picks)),
		attribute.Int("fabricator.missing", missing),
	)
	s.log.Ctx(ctx).Info("segment crafted",
		"offset", out.Segment.Offset,
		"type", out.Segment.Type,
		"picks", len(out.Picks),
		"missing", missing,
		"duration_ms", dur.Milliseconds(),
	)
	return FabricateResult{Outcome: OutcomeCrafted, Segment: out.Segment, Picks: len(out.Picks), Missing: missing}, nil
}

func (s *fabricationService) RecoverStale(ctx context.Context, olderThan time.Duration, now time.Time) (int, error) {
	stale, err := s.repos.Segments.ListStale(dbctx.Context{Ctx: ctx}, types.SegmentStateCrafting, now.Add(-olderThan))
	if err != nil {
		return 0, dataagg.MapError("Fabrication.RecoverStale", err)
	}
	n := 0
	for _, seg := range stale {
		if err := s.segments.Replan(ctx, seg.ID, fmt.Sprintf("crafting since %s", seg.UpdatedAt.UTC().Format(time.RFC3339))); err != nil {
			if domainagg.IsCode(err, domainagg.CodeConflict) || domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
				continue
			}
			return n, err
		}
		n++
	}
	if n > 0 {
		s.metrics.IncSegmentsReverted(n)
		s.log.Warn("reverted stale segments", "count", n)
	}
	return n, nil
}

func (s *fabricationService) replan(ctx context.Context, id uuid.UUID, reason string) {
	if err := s.segments.Replan(context.WithoutCancel(ctx), id, reason); err != nil {
		s.log.Warn("replan after failure", "segment_id", id, "error", err)
	}
}

// loadRetrospective reads the last History segments before offset with their craft output.
func (s *fabricationService) loadRetrospective(ctx context.Context, chainID uuid.UUID, offset int64) (*retrospective.Retrospective, error) {
	const op = "Fabrication.LoadRetrospective"
	if offset == 0 {
		return retrospective.New(), nil
	}
	from := offset - int64(s.history)
	if from < 0 {
		from = 0
	}
	dbc := dbctx.Context{Ctx: ctx}
	segs, err := s.repos.Segments.ListByChain(dbc, chainID, from, int(offset-from))
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	ids := make([]uuid.UUID, 0, len(segs))
	records := make(map[uuid.UUID]*retrospective.Record, len(segs))
	for _, seg := range segs {
		if seg.Offset >= offset {
			continue
		}
		ids = append(ids, seg.ID)
		records[seg.ID] = &retrospective.Record{Segment: *seg}
	}

	choices, err := s.repos.Craft.ListChoices(dbc, ids)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	for _, c := range choices {
		records[c.SegmentID].Choices = append(records[c.SegmentID].Choices, *c)
	}
	arrangements, err := s.repos.Craft.ListArrangements(dbc, ids)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	for _, a := range arrangements {
		records[a.SegmentID].Arrangements = append(records[a.SegmentID].Arrangements, *a)
	}
	picks, err := s.repos.Craft.ListPicks(dbc, ids)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	for _, p := range picks {
		records[p.SegmentID].Picks = append(records[p.SegmentID].Picks, *p)
	}
	memes, err := s.repos.Craft.ListMemes(dbc, ids)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	for _, m := range memes {
		records[m.SegmentID].Memes = append(records[m.SegmentID].Memes, *m)
	}
	chords, err := s.repos.Craft.ListChords(dbc, ids)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	for _, c := range chords {
		records[c.SegmentID].Chords = append(records[c.SegmentID].Chords, *c)
	}

	out := make([]retrospective.Record, 0, len(records))
	for _, id := range ids {
		out = append(out, *records[id])
	}
	return retrospective.New(out...), nil
}

// SegmentSeed derives the craft seed from the segment's identity so a
// re-craft of the same segment makes the same choices.
func SegmentSeed(chainID uuid.UUID, offset int64) int64 {
	h := fnv.New64a()
	_, _ = h.Write(chainID[:])
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(offset))
	_, _ = h.Write(buf[:])
	return int64(h.Sum64())
}

func craftStats(out *types.CraftOutput) (map[string]int, int) {
	typeOf := make(map[uuid.UUID]string, len(out.Choices))
	for _, c := range out.Choices {
		t := c.InstrumentType
		if t == "" {
			t = c.ProgramType
		}
		typeOf[c.ID] = t
	}
	picks := map[string]int{}
	for _, p := range out.Picks {
		picks[typeOf[p.SegmentChoiceID]]++
	}
	missing := 0
	for _, m := range out.Messages {
		if m.Type == types.MessageTypeMissing {
			missing++
		}
	}
	return picks, missing
}
