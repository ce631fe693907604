package fabrication

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/platform/dbctx"
	"github.com/yungbote/fabricator/internal/platform/logger"
)

type ChainRepo interface {
	Create(dbc dbctx.Context, chain *types.Chain) (*types.Chain, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Chain, error)
	GetByEmbedKey(dbc dbctx.Context, embedKey string) (*types.Chain, error)
	ListByState(dbc dbctx.Context, states []types.ChainState) ([]*types.Chain, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type chainRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChainRepo(db *gorm.DB, baseLog *logger.Logger) ChainRepo {
	return &chainRepo{
		db:  db,
		log: baseLog.With("repo", "ChainRepo"),
	}
}

func (r *chainRepo) Create(dbc dbctx.Context, chain *types.Chain) (*types.Chain, error) {
	if chain == nil {
		return nil, nil
	}
	if err := dbc.Resolve(r.db).Create(chain).Error; err != nil {
		return nil, err
	}
	return chain, nil
}

func (r *chainRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Chain, error) {
	var c types.Chain
	if err := dbc.Resolve(r.db).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByEmbedKey looks the chain up by its public alias, case-insensitively.
func (r *chainRepo) GetByEmbedKey(dbc dbctx.Context, embedKey string) (*types.Chain, error) {
	embedKey = strings.ToLower(strings.TrimSpace(embedKey))
	var c types.Chain
	if err := dbc.Resolve(r.db).
		Where("embed_key = ?", embedKey).
		Order("created_at DESC").
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *chainRepo) ListByState(dbc dbctx.Context, states []types.ChainState) ([]*types.Chain, error) {
	var out []*types.Chain
	if len(states) == 0 {
		return out, nil
	}
	if err := dbc.Resolve(r.db).
		Where("state IN ?", states).
		Order("start_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chainRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Chain{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *chainRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.Resolve(r.db).Where("id = ?", id).Delete(&types.Chain{}).Error
}
