package meme

import (
	types "github.com/yungbote/fabricator/internal/domain/content"
)

// Taxonomy holds mutually exclusive categories of memes.
type Taxonomy struct {
	categoryOf map[string]string
}

func NewTaxonomy(categories []types.MemeCategory) *Taxonomy {
	t := &Taxonomy{categoryOf: map[string]string{}}
	for _, c := range categories {
		name := Normalize(c.Name)
		if name == "" {
			continue
		}
		for _, m := range c.Memes {
			if stem := Parse(m).Stem; stem != "" {
				t.categoryOf[stem] = name
			}
		}
	}
	return t
}

// CategoryOf returns the category a meme belongs to, if any.
func (t *Taxonomy) CategoryOf(raw string) (string, bool) {
	if t == nil {
		return "", false
	}
	c, ok := t.categoryOf[Parse(raw).Stem]
	return c, ok
}

// IsAllowed is false when two different members of one category are present.
// Anti memes do not count as members.
func (t *Taxonomy) IsAllowed(raw []string) bool {
	return t.allowed(ParseAll(raw))
}

func (t *Taxonomy) allowed(memes []Meme) bool {
	if t == nil {
		return true
	}
	seen := map[string]string{}
	for _, m := range memes {
		if m.Anti {
			continue
		}
		cat, ok := t.categoryOf[m.Stem]
		if !ok {
			continue
		}
		if prev, ok := seen[cat]; ok && prev != m.Stem {
			return false
		}
		seen[cat] = m.Stem
	}
	return true
}
