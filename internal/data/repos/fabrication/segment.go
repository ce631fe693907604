package fabrication

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/platform/dbctx"
	"github.com/yungbote/fabricator/internal/platform/logger"
)

type SegmentRepo interface {
	Create(dbc dbctx.Context, seg *types.Segment) (*types.Segment, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Segment, error)
	GetByOffset(dbc dbctx.Context, chainID uuid.UUID, offset int64) (*types.Segment, error)
	GetLast(dbc dbctx.Context, chainID uuid.UUID) (*types.Segment, error)
	ListByChain(dbc dbctx.Context, chainID uuid.UUID, fromOffset int64, limit int) ([]*types.Segment, error)
	ListStale(dbc dbctx.Context, state types.SegmentState, updatedBefore time.Time) ([]*types.Segment, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	DeleteByChain(dbc dbctx.Context, chainID uuid.UUID) ([]uuid.UUID, error)
}

type segmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSegmentRepo(db *gorm.DB, baseLog *logger.Logger) SegmentRepo {
	return &segmentRepo{
		db:  db,
		log: baseLog.With("repo", "SegmentRepo"),
	}
}

// Create relies on the (chain_id, offset_index) unique index; a second segment
// at the same offset fails with a unique violation.
func (r *segmentRepo) Create(dbc dbctx.Context, seg *types.Segment) (*types.Segment, error) {
	if seg == nil {
		return nil, nil
	}
	if err := dbc.Resolve(r.db).Create(seg).Error; err != nil {
		return nil, err
	}
	return seg, nil
}

func (r *segmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Segment, error) {
	var s types.Segment
	if err := dbc.Resolve(r.db).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *segmentRepo) GetByOffset(dbc dbctx.Context, chainID uuid.UUID, offset int64) (*types.Segment, error) {
	var s types.Segment
	if err := dbc.Resolve(r.db).
		Where("chain_id = ? AND offset_index = ?", chainID, offset).
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetLast returns the highest-offset segment of the chain, or nil when the
// chain has none.
func (r *segmentRepo) GetLast(dbc dbctx.Context, chainID uuid.UUID) (*types.Segment, error) {
	var s types.Segment
	err := dbc.Resolve(r.db).
		Where("chain_id = ?", chainID).
		Order("offset_index DESC").
		Limit(1).
		Find(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

func (r *segmentRepo) ListByChain(dbc dbctx.Context, chainID uuid.UUID, fromOffset int64, limit int) ([]*types.Segment, error) {
	var out []*types.Segment
	q := dbc.Resolve(r.db).
		Where("chain_id = ? AND offset_index >= ?", chainID, fromOffset).
		Order("offset_index ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *segmentRepo) ListStale(dbc dbctx.Context, state types.SegmentState, updatedBefore time.Time) ([]*types.Segment, error) {
	var out []*types.Segment
	if err := dbc.Resolve(r.db).
		Where("state = ? AND updated_at < ?", state, updatedBefore).
		Order("updated_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *segmentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Resolve(r.db).
		Model(&types.Segment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeleteByChain removes every segment of a chain and returns their ids so the
// caller can cascade.
func (r *segmentRepo) DeleteByChain(dbc dbctx.Context, chainID uuid.UUID) ([]uuid.UUID, error) {
	db := dbc.Resolve(r.db)
	var ids []uuid.UUID
	if err := db.Model(&types.Segment{}).Where("chain_id = ?", chainID).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return ids, nil
	}
	if err := db.Where("chain_id = ?", chainID).Delete(&types.Segment{}).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
