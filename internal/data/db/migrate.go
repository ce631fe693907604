package db

import (
	"gorm.io/gorm"

	types "github.com/yungbote/fabricator/internal/domain/fabrication"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Chains and their segments
		&types.Chain{},
		&types.Segment{},

		// Crafted segment content
		&types.SegmentMeme{},
		&types.SegmentChord{},
		&types.SegmentChordVoicing{},
		&types.SegmentChoice{},
		&types.SegmentChoiceArrangement{},
		&types.SegmentChoiceArrangementPick{},

		// Diagnostics survive reverts
		&types.SegmentMessage{},
	)
}
