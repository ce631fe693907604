package fabrication

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChainType string

const (
	ChainTypeProduction ChainType = "PRODUCTION"
	ChainTypePreview    ChainType = "PREVIEW"
)

type ChainState string

const (
	ChainStateDraft     ChainState = "DRAFT"
	ChainStateReady     ChainState = "READY"
	ChainStateFabricate ChainState = "FABRICATE"
	ChainStateComplete  ChainState = "COMPLETE"
	ChainStateFailed    ChainState = "FAILED"
)

// Chain is one fabrication run producing a continuous sequence of segments.
type Chain struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"account_id"`
	TemplateID uuid.UUID  `gorm:"type:uuid;not null;index" json:"template_id"`
	Name       string     `gorm:"column:name;not null" json:"name"`
	Type       ChainType  `gorm:"column:type;not null;index" json:"type"`
	State      ChainState `gorm:"column:state;not null;index" json:"state"`
	StartAt    time.Time  `gorm:"column:start_at;not null;index" json:"start_at"`
	StopAt     *time.Time `gorm:"column:stop_at;index" json:"stop_at,omitempty"`
	// EmbedKey is the public alias of the chain; unique when set.
	EmbedKey *string `gorm:"column:embed_key;uniqueIndex" json:"embed_key,omitempty"`
	// Config holds template configuration overrides as YAML-compatible JSON.
	Config    datatypes.JSON `gorm:"column:config" json:"config,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (Chain) TableName() string { return "chain" }

func (c *Chain) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *Chain) IsPreview() bool { return c != nil && c.Type == ChainTypePreview }
