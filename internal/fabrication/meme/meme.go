// Package meme scores and gates content by its meme tags.
package meme

import (
	"strings"

	"github.com/kljensen/snowball/english"
)

const (
	antiPrefix   = "!"
	uniquePrefix = "$"
)

// Meme is one parsed tag. Anti memes (!X) forbid X; unique memes ($X) may not
// be chosen while X is already active.
type Meme struct {
	Raw    string
	Name   string
	Stem   string
	Anti   bool
	Unique bool
}

func Parse(raw string) Meme {
	m := Meme{Raw: raw}
	name := strings.ToUpper(strings.TrimSpace(raw))
	for {
		switch {
		case strings.HasPrefix(name, antiPrefix):
			m.Anti = true
			name = strings.TrimSpace(name[len(antiPrefix):])
			continue
		case strings.HasPrefix(name, uniquePrefix):
			m.Unique = true
			name = strings.TrimSpace(name[len(uniquePrefix):])
			continue
		}
		break
	}
	m.Name = name
	m.Stem = Stem(name)
	return m
}

func ParseAll(raw []string) []Meme {
	out := make([]Meme, 0, len(raw))
	for _, r := range raw {
		m := Parse(r)
		if m.Name == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Stem normalizes a meme name word by word with the English snowball stemmer.
func Stem(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, w := range words {
		words[i] = english.Stem(w, false)
	}
	return strings.ToUpper(strings.Join(words, " "))
}

// Normalize returns the uppercase name with grammar prefixes removed.
func Normalize(raw string) string {
	return Parse(raw).Name
}
