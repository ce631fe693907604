// Package craft fills one segment with choices, arrangements and picks.
package craft

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/yungbote/fabricator/internal/content"
	"github.com/yungbote/fabricator/internal/domain/aggregates"
	types "github.com/yungbote/fabricator/internal/domain/content"
	"github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/fabrication/deltaarc"
	"github.com/yungbote/fabricator/internal/fabrication/meme"
	"github.com/yungbote/fabricator/internal/fabrication/retrospective"
	"github.com/yungbote/fabricator/internal/fabrication/timing"
	"github.com/yungbote/fabricator/internal/music"
)

// Input is everything a craft pass reads. Nothing in it is mutated.
type Input struct {
	Segment       fabrication.Segment
	Snapshot      *content.Snapshot
	Retrospective *retrospective.Retrospective
	Template      types.TemplateConfig
	Seed          int64
}

type noteKey struct {
	trackID uuid.UUID
	note    string
}

type chordKey struct {
	instrumentID uuid.UUID
	chord        string
}

// section is one chord's span of the segment in beats.
type section struct {
	chord    *fabrication.SegmentChord
	from, to float64
}

// Fabricator is the context of a single craft pass. Its caches die with it.
type Fabricator struct {
	snap  *content.Snapshot
	retro *retrospective.Retrospective
	tpl   types.TemplateConfig
	rng   *rand.Rand

	segment  *fabrication.Segment
	previous *retrospective.Record
	taxonomy *meme.Taxonomy
	stack    *meme.Stack
	tc       *timing.TimeComputer
	arcs     *deltaarc.Calculator
	out      fabrication.CraftOutput

	macroProgram *types.Program
	mainProgram  *types.Program
	mainSequence *types.ProgramSequence
	sections     []section
	voicings     map[uuid.UUID]map[types.InstrumentType][]music.Note

	stickyNotes  map[noteKey]uuid.UUID
	stickyChords map[chordKey]uuid.UUID
	ranges       map[uuid.UUID]music.NoteRange
	missing      map[string]bool
}

func newFabricator(in Input) (*Fabricator, error) {
	if in.Snapshot == nil {
		return nil, aggregates.Fatal("craft", fmt.Errorf("content snapshot is required"))
	}
	if in.Segment.ID == uuid.Nil {
		return nil, aggregates.Fatal("craft", fmt.Errorf("segment id is required"))
	}
	retro := in.Retrospective
	if retro == nil {
		retro = retrospective.New()
	}
	seg := in.Segment
	f := &Fabricator{
		snap:         in.Snapshot,
		retro:        retro,
		tpl:          in.Template,
		rng:          rand.New(rand.NewSource(in.Seed)),
		segment:      &seg,
		taxonomy:     meme.NewTaxonomy(in.Template.MemeTaxonomy),
		voicings:     map[uuid.UUID]map[types.InstrumentType][]music.Note{},
		stickyNotes:  map[noteKey]uuid.UUID{},
		stickyChords: map[chordKey]uuid.UUID{},
		ranges:       map[uuid.UUID]music.NoteRange{},
		missing:      map[string]bool{},
	}
	f.previous, _ = retro.Previous()
	f.stack = meme.NewStack(f.taxonomy)
	f.arcs = deltaarc.New(f.rng)
	f.out.Segment = f.segment
	return f, nil
}

// Craft runs every pass over one segment and returns the buffered writes. A
// returned error is always fatal for the segment; missing content only adds
// messages.
func Craft(in Input) (*fabrication.CraftOutput, error) {
	f, err := newFabricator(in)
	if err != nil {
		return nil, err
	}
	if err := f.craftMacroMain(); err != nil {
		return nil, err
	}
	if err := f.craftRhythm(); err != nil {
		return nil, err
	}
	if err := f.craftDetail(); err != nil {
		return nil, err
	}
	f.finalizeOneShots()
	return &f.out, nil
}

func (f *Fabricator) isContinue() bool {
	return f.segment.Type == fabrication.SegmentTypeContinue
}

func (f *Fabricator) addMessage(t fabrication.MessageType, format string, args ...any) {
	f.out.Messages = append(f.out.Messages, &fabrication.SegmentMessage{
		ID:        uuid.New(),
		SegmentID: f.segment.ID,
		Type:      t,
		Body:      fmt.Sprintf(format, args...),
	})
}

// reportMissing records a missing-content message once per body.
func (f *Fabricator) reportMissing(format string, args ...any) {
	body := fmt.Sprintf(format, args...)
	if f.missing[body] {
		return
	}
	f.missing[body] = true
	f.addMessage(fabrication.MessageTypeMissing, "%s", body)
}

func (f *Fabricator) addChoice(c *fabrication.SegmentChoice) *fabrication.SegmentChoice {
	c.ID = uuid.New()
	c.SegmentID = f.segment.ID
	f.out.Choices = append(f.out.Choices, c)
	return c
}

func (f *Fabricator) addArrangement(choice *fabrication.SegmentChoice, patternID, chordID *uuid.UUID) *fabrication.SegmentChoiceArrangement {
	a := &fabrication.SegmentChoiceArrangement{
		ID:                       uuid.New(),
		SegmentID:                f.segment.ID,
		SegmentChoiceID:          choice.ID,
		ProgramSequencePatternID: patternID,
		SegmentChordID:           chordID,
	}
	f.out.Arrangements = append(f.out.Arrangements, a)
	return a
}

func (f *Fabricator) addPick(a *fabrication.SegmentChoiceArrangement, p *fabrication.SegmentChoiceArrangementPick) {
	p.ID = uuid.New()
	p.SegmentID = f.segment.ID
	p.SegmentChoiceID = a.SegmentChoiceID
	p.SegmentChoiceArrangementID = a.ID
	f.out.Picks = append(f.out.Picks, p)
}

// mainRunBeats is the length of the whole main program in beats.
func (f *Fabricator) mainRunBeats() int {
	if f.mainProgram == nil {
		return 0
	}
	total := 0
	for _, b := range f.snap.Bindings(f.mainProgram.ID) {
		if seq, ok := f.snap.Sequence(b.ProgramSequenceID); ok {
			total += seq.Total
		}
	}
	return total
}

// sectionAt returns the chord section covering a beat position.
func (f *Fabricator) sectionAt(pos float64) (section, bool) {
	for _, s := range f.sections {
		if pos >= s.from && pos < s.to {
			return s, true
		}
	}
	return section{}, false
}

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }
