package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/fabricator/internal/data/repos/fabrication"
	"github.com/yungbote/fabricator/internal/platform/logger"
)

type ChainRepo = fabrication.ChainRepo
type SegmentRepo = fabrication.SegmentRepo
type CraftRepo = fabrication.CraftRepo

func NewChainRepo(db *gorm.DB, baseLog *logger.Logger) ChainRepo {
	return fabrication.NewChainRepo(db, baseLog)
}

func NewSegmentRepo(db *gorm.DB, baseLog *logger.Logger) SegmentRepo {
	return fabrication.NewSegmentRepo(db, baseLog)
}

func NewCraftRepo(db *gorm.DB, baseLog *logger.Logger) CraftRepo {
	return fabrication.NewCraftRepo(db, baseLog)
}

// Set is every repo the fabricator needs, built over one database handle.
type Set struct {
	Chains   ChainRepo
	Segments SegmentRepo
	Craft    CraftRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Chains:   NewChainRepo(db, baseLog),
		Segments: NewSegmentRepo(db, baseLog),
		Craft:    NewCraftRepo(db, baseLog),
	}
}
