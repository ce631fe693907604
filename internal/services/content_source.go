package services

import (
	"context"
	"fmt"

	"github.com/yungbote/fabricator/internal/content"
	contenttypes "github.com/yungbote/fabricator/internal/domain/content"
	"github.com/yungbote/fabricator/internal/domain/fabrication"
)

// ContentSource resolves the library snapshot and template configuration a
// chain fabricates against.
type ContentSource interface {
	Load(ctx context.Context, chain *fabrication.Chain) (*content.Snapshot, contenttypes.TemplateConfig, error)
}

type libraryContent struct {
	lib *content.Library
}

// NewLibraryContent serves every chain from one loaded library. A chain's own
// config document is layered over the library template.
func NewLibraryContent(lib *content.Library) ContentSource {
	return &libraryContent{lib: lib}
}

func (c *libraryContent) Load(_ context.Context, chain *fabrication.Chain) (*content.Snapshot, contenttypes.TemplateConfig, error) {
	if c.lib == nil {
		return nil, contenttypes.TemplateConfig{}, fmt.Errorf("no content library loaded")
	}
	var override []byte
	if chain != nil {
		override = []byte(chain.Config)
	}
	tpl, err := c.lib.TemplateFor(override)
	if err != nil {
		return nil, tpl, fmt.Errorf("chain template config: %w", err)
	}
	return c.lib.Snapshot, tpl, nil
}
