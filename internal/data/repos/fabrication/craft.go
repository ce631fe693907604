package fabrication

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/platform/dbctx"
	"github.com/yungbote/fabricator/internal/platform/logger"
)

const insertBatchSize = 500

// CraftRepo stores what a craft pass produces for a segment: memes, chords,
// voicings, choices, arrangements, picks and messages.
type CraftRepo interface {
	Insert(dbc dbctx.Context, out *types.CraftOutput) error
	AddMessages(dbc dbctx.Context, msgs []*types.SegmentMessage) error

	ListChoices(dbc dbctx.Context, segmentIDs []uuid.UUID) ([]*types.SegmentChoice, error)
	ListArrangements(dbc dbctx.Context, segmentIDs []uuid.UUID) ([]*types.SegmentChoiceArrangement, error)
	ListPicks(dbc dbctx.Context, segmentIDs []uuid.UUID) ([]*types.SegmentChoiceArrangementPick, error)
	ListMemes(dbc dbctx.Context, segmentIDs []uuid.UUID) ([]*types.SegmentMeme, error)
	ListChords(dbc dbctx.Context, segmentIDs []uuid.UUID) ([]*types.SegmentChord, error)
	ListVoicings(dbc dbctx.Context, segmentIDs []uuid.UUID) ([]*types.SegmentChordVoicing, error)
	ListMessages(dbc dbctx.Context, segmentIDs []uuid.UUID) ([]*types.SegmentMessage, error)

	// DeleteCraft removes crafted content but keeps messages.
	DeleteCraft(dbc dbctx.Context, segmentIDs []uuid.UUID) error
	DeleteAll(dbc dbctx.Context, segmentIDs []uuid.UUID) error
}

type craftRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCraftRepo(db *gorm.DB, baseLog *logger.Logger) CraftRepo {
	return &craftRepo{
		db:  db,
		log: baseLog.With("repo", "CraftRepo"),
	}
}

func (r *craftRepo) Insert(dbc dbctx.Context, out *types.CraftOutput) error {
	if out == nil {
		return nil
	}
	db := dbc.Resolve(r.db)
	if err := createAll(db, out.Memes); err != nil {
		return err
	}
	if err := createAll(db, out.Chords); err != nil {
		return err
	}
	if err := createAll(db, out.Voicings); err != nil {
		return err
	}
	if err := createAll(db, out.Choices); err != nil {
		return err
	}
	if err := createAll(db, out.Arrangements); err != nil {
		return err
	}
	if err := createAll(db, out.Picks); err != nil {
		return err
	}
	return createAll(db, out.Messages)
}

func (r *craftRepo) AddMessages(dbc dbctx.Context, msgs []*types.SegmentMessage) error {
	return createAll(dbc.Resolve(r.db), msgs)
}

func (r *craftRepo) ListChoices(dbc dbctx.Context, segmentIDs []uuid.UUID) ([]*types.SegmentChoice, error) {
	return listBySegments[types.SegmentChoice](dbc.Resolve(r.db), segmentIDs, "created_at ASC")
}

func (r *craftRepo) ListArrangements(dbc dbctx.Context, segmentIDs []uuid.UUID) ([]*types.SegmentChoiceArrangement, error) {
	return listBySegments[types.SegmentChoiceArrangement](dbc.Resolve(r.db), segmentIDs, "created_at ASC")
}

func (r *craftRepo) ListPicks(dbc dbctx.Context, segmentIDs []uuid.UUID) ([]*types.SegmentChoiceArrangementPick, error) {
	return listBySegments[types.SegmentChoiceArrangementPick](dbc.Resolve(r.db), segmentIDs, "start_at_segment_micros ASC")
}

func (r *craftRepo) ListMemes(dbc dbctx.Context, segmentIDs []uuid.UUID) ([]*types.SegmentMeme, error) {
	return listBySegments[types.SegmentMeme](dbc.Resolve(r.db), segmentIDs, "created_at ASC")
}

func (r *craftRepo) ListChords(dbc dbctx.Context, segmentIDs []uuid.UUID) ([]*types.SegmentChord, error) {
	return listBySegments[types.SegmentChord](dbc.Resolve(r.db), segmentIDs, "position ASC")
}

func (r *craftRepo) ListVoicings(dbc dbctx.Context, segmentIDs []uuid.UUID) ([]*types.SegmentChordVoicing, error) {
	return listBySegments[types.SegmentChordVoicing](dbc.Resolve(r.db), segmentIDs, "created_at ASC")
}

func (r *craftRepo) ListMessages(dbc dbctx.Context, segmentIDs []uuid.UUID) ([]*types.SegmentMessage, error) {
	return listBySegments[types.SegmentMessage](dbc.Resolve(r.db), segmentIDs, "created_at ASC")
}

func (r *craftRepo) DeleteCraft(dbc dbctx.Context, segmentIDs []uuid.UUID) error {
	if len(segmentIDs) == 0 {
		return nil
	}
	db := dbc.Resolve(r.db)
	for _, model := range []interface{}{
		&types.SegmentChoiceArrangementPick{},
		&types.SegmentChoiceArrangement{},
		&types.SegmentChoice{},
		&types.SegmentChordVoicing{},
		&types.SegmentChord{},
		&types.SegmentMeme{},
	} {
		if err := db.Where("segment_id IN ?", segmentIDs).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *craftRepo) DeleteAll(dbc dbctx.Context, segmentIDs []uuid.UUID) error {
	if len(segmentIDs) == 0 {
		return nil
	}
	if err := r.DeleteCraft(dbc, segmentIDs); err != nil {
		return err
	}
	return dbc.Resolve(r.db).Where("segment_id IN ?", segmentIDs).Delete(&types.SegmentMessage{}).Error
}

func createAll[T any](db *gorm.DB, rows []*T) error {
	if len(rows) == 0 {
		return nil
	}
	return db.CreateInBatches(rows, insertBatchSize).Error
}

func listBySegments[T any](db *gorm.DB, segmentIDs []uuid.UUID, order string) ([]*T, error) {
	var out []*T
	if len(segmentIDs) == 0 {
		return out, nil
	}
	if err := db.Where("segment_id IN ?", segmentIDs).Order(order).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
