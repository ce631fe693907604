package craft

import (
	"github.com/google/uuid"

	types "github.com/yungbote/fabricator/internal/domain/content"
	"github.com/yungbote/fabricator/internal/fabrication/marble"
)

const (
	phaseBound     = 1
	phasePublished = 2
)

// phaseOf puts directly bound content ahead of merely published content.
// Unbound drafts are not candidates.
func (f *Fabricator) phaseOf(id uuid.UUID, state types.State) (int, bool) {
	if f.snap.IsBound(id) {
		return phaseBound, true
	}
	if state == types.StatePublished {
		return phasePublished, true
	}
	return 0, false
}

// chooseProgram draws a program of type t whose memes fit the active stack.
// exclude is skipped unless nothing else qualifies.
func (f *Fabricator) chooseProgram(t types.ProgramType, exclude uuid.UUID, accept func(*types.Program) bool) (*types.Program, bool) {
	build := func(skip uuid.UUID) *marble.Bag {
		bag := marble.New(f.rng)
		for _, p := range f.snap.ProgramsOfType(t) {
			if p.ID == skip || (accept != nil && !accept(p)) {
				continue
			}
			memes := f.snap.ProgramMemes(p.ID)
			if !f.stack.IsAllowed(memes) {
				continue
			}
			phase, ok := f.phaseOf(p.ID, p.State)
			if !ok {
				continue
			}
			bag.Add(phase, p.ID, 1+f.stack.Score(memes))
		}
		return bag
	}
	bag := build(exclude)
	if bag.IsEmpty() && exclude != uuid.Nil {
		bag = build(uuid.Nil)
	}
	id, err := bag.Pick()
	if err != nil {
		return nil, false
	}
	return f.snap.Program(id)
}

func (f *Fabricator) chooseInstrument(t types.InstrumentType, accept func(*types.Instrument) bool) (*types.Instrument, bool) {
	bag := marble.New(f.rng)
	for _, in := range f.snap.InstrumentsOfType(t) {
		if accept != nil && !accept(in) {
			continue
		}
		memes := f.snap.InstrumentMemes(in.ID)
		if !f.stack.IsAllowed(memes) {
			continue
		}
		phase, ok := f.phaseOf(in.ID, in.State)
		if !ok {
			continue
		}
		bag.Add(phase, in.ID, 1+f.stack.Score(memes))
	}
	id, err := bag.Pick()
	if err != nil {
		return nil, false
	}
	return f.snap.Instrument(id)
}

// chooseBinding picks one of the program's sequence bindings at offset.
func (f *Fabricator) chooseBinding(programID uuid.UUID, offset int) (*types.ProgramSequenceBinding, bool) {
	candidates := f.snap.BindingsAtOffset(programID, offset)
	if len(candidates) == 0 {
		return nil, false
	}
	return candidates[f.rng.Intn(len(candidates))], true
}

func (f *Fabricator) firstBinding(programID uuid.UUID) (*types.ProgramSequenceBinding, bool) {
	all := f.snap.Bindings(programID)
	if len(all) == 0 {
		return nil, false
	}
	return f.chooseBinding(programID, all[0].Offset)
}

// chooseSequence picks a sequence of a program that has no bindings of its own.
func (f *Fabricator) chooseSequence(programID uuid.UUID) (*types.ProgramSequence, bool) {
	seqs := f.snap.Sequences(programID)
	if len(seqs) == 0 {
		return nil, false
	}
	return seqs[f.rng.Intn(len(seqs))], true
}
