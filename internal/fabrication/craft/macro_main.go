package craft

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fabricator/internal/domain/aggregates"
	types "github.com/yungbote/fabricator/internal/domain/content"
	"github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/fabrication/deltaarc"
	"github.com/yungbote/fabricator/internal/fabrication/timing"
	"github.com/yungbote/fabricator/internal/music"
)

// craftMacroMain decides the segment type, chooses macro and main material
// and sets the segment's musical attributes and end time.
func (f *Fabricator) craftMacroMain() error {
	var prevMacro, prevMain *fabrication.SegmentChoice
	if f.previous != nil {
		prevMacro, _ = f.retro.PreviousChoiceOfProgramType(types.ProgramTypeMacro)
		prevMain, _ = f.retro.PreviousChoiceOfProgramType(types.ProgramTypeMain)
	}
	var prevMainProgram, prevMacroProgram *types.Program
	if prevMain != nil && prevMain.ProgramID != nil {
		prevMainProgram, _ = f.snap.Program(*prevMain.ProgramID)
	}
	if prevMacro != nil && prevMacro.ProgramID != nil {
		prevMacroProgram, _ = f.snap.Program(*prevMacro.ProgramID)
	}

	var macroBinding, mainBinding *types.ProgramSequenceBinding
	segType := fabrication.SegmentTypeInitial

	switch {
	case prevMainProgram == nil:
		f.macroProgram, macroBinding = f.chooseMacro(uuid.Nil)
		f.mainProgram, mainBinding = f.chooseMain(uuid.Nil)

	case f.hasNextOffset(prevMainProgram.ID, prevMain.ProgramSequenceBindingID):
		segType = fabrication.SegmentTypeContinue
		f.macroProgram = prevMacroProgram
		if f.macroProgram != nil && prevMacro.ProgramSequenceBindingID != nil {
			macroBinding, _ = f.snap.Binding(*prevMacro.ProgramSequenceBindingID)
		}
		f.pushMemes(f.macroProgram, macroBinding)
		f.mainProgram = prevMainProgram
		next, _ := f.nextOffset(prevMainProgram.ID, prevMain.ProgramSequenceBindingID)
		mainBinding, _ = f.chooseBinding(prevMainProgram.ID, next)
		f.pushMemes(f.mainProgram, mainBinding)

	case prevMacroProgram != nil && f.hasNextOffset(prevMacroProgram.ID, prevMacro.ProgramSequenceBindingID):
		segType = fabrication.SegmentTypeNextMain
		f.macroProgram = prevMacroProgram
		next, _ := f.nextOffset(prevMacroProgram.ID, prevMacro.ProgramSequenceBindingID)
		macroBinding, _ = f.chooseBinding(prevMacroProgram.ID, next)
		f.pushMemes(f.macroProgram, macroBinding)
		f.mainProgram, mainBinding = f.chooseMain(prevMainProgram.ID)

	default:
		segType = fabrication.SegmentTypeNextMacro
		exclude := uuid.Nil
		if prevMacroProgram != nil {
			exclude = prevMacroProgram.ID
		}
		f.macroProgram, macroBinding = f.chooseMacro(exclude)
		f.mainProgram, mainBinding = f.chooseMain(prevMainProgram.ID)
	}

	if f.macroProgram == nil {
		f.reportMissing("no macro program fits the template")
	}
	if f.mainProgram == nil {
		return aggregates.Fatal("craft.main", fmt.Errorf("no main program available for segment %d", f.segment.Offset))
	}
	if mainBinding == nil {
		return aggregates.Fatal("craft.main", fmt.Errorf("main program %s has no sequence binding", f.mainProgram.Name))
	}
	seq, ok := f.snap.Sequence(mainBinding.ProgramSequenceID)
	if !ok {
		return aggregates.Fatal("craft.main", fmt.Errorf("main program %s binds a missing sequence", f.mainProgram.Name))
	}
	f.mainSequence = seq

	if err := f.applySegmentAttributes(segType); err != nil {
		return err
	}

	if f.macroProgram != nil {
		c := &fabrication.SegmentChoice{
			ProgramID:   uuidPtr(f.macroProgram.ID),
			ProgramType: string(types.ProgramTypeMacro),
			DeltaIn:     deltaarc.DeltaUnlimited,
			DeltaOut:    deltaarc.DeltaUnlimited,
		}
		if macroBinding != nil {
			c.ProgramSequenceID = uuidPtr(macroBinding.ProgramSequenceID)
			c.ProgramSequenceBindingID = uuidPtr(macroBinding.ID)
		}
		if segType == fabrication.SegmentTypeContinue && prevMacro != nil {
			c.ParentChoiceID = uuidPtr(prevMacro.ID)
		}
		f.addChoice(c)
	}
	mainChoice := &fabrication.SegmentChoice{
		ProgramID:                uuidPtr(f.mainProgram.ID),
		ProgramType:              string(types.ProgramTypeMain),
		ProgramSequenceID:        uuidPtr(seq.ID),
		ProgramSequenceBindingID: uuidPtr(mainBinding.ID),
		DeltaIn:                  deltaarc.DeltaUnlimited,
		DeltaOut:                 deltaarc.DeltaUnlimited,
	}
	if segType == fabrication.SegmentTypeContinue {
		mainChoice.ParentChoiceID = uuidPtr(prevMain.ID)
	}
	f.addChoice(mainChoice)

	for _, m := range f.stack.Memes() {
		f.out.Memes = append(f.out.Memes, &fabrication.SegmentMeme{ID: uuid.New(), SegmentID: f.segment.ID, Name: m})
	}
	f.buildChords()
	return nil
}

func (f *Fabricator) chooseMacro(exclude uuid.UUID) (*types.Program, *types.ProgramSequenceBinding) {
	p, ok := f.chooseProgram(types.ProgramTypeMacro, exclude, nil)
	if !ok {
		return nil, nil
	}
	b, _ := f.firstBinding(p.ID)
	f.pushMemes(p, b)
	return p, b
}

func (f *Fabricator) chooseMain(exclude uuid.UUID) (*types.Program, *types.ProgramSequenceBinding) {
	hasBindings := func(p *types.Program) bool { return len(f.snap.Bindings(p.ID)) > 0 }
	p, ok := f.chooseProgram(types.ProgramTypeMain, exclude, hasBindings)
	if !ok {
		return nil, nil
	}
	b, _ := f.firstBinding(p.ID)
	f.pushMemes(p, b)
	return p, b
}

// pushMemes activates a program's memes and those of its chosen binding.
func (f *Fabricator) pushMemes(p *types.Program, b *types.ProgramSequenceBinding) {
	if p != nil {
		f.stack.Add(f.snap.ProgramMemes(p.ID)...)
	}
	if b != nil {
		f.stack.Add(f.snap.BindingMemes(b.ID)...)
	}
}

func (f *Fabricator) nextOffset(programID uuid.UUID, bindingID *uuid.UUID) (int, bool) {
	if bindingID == nil {
		return 0, false
	}
	b, ok := f.snap.Binding(*bindingID)
	if !ok {
		return 0, false
	}
	return f.snap.NextBindingOffset(programID, b.Offset)
}

func (f *Fabricator) hasNextOffset(programID uuid.UUID, bindingID *uuid.UUID) bool {
	_, ok := f.nextOffset(programID, bindingID)
	return ok
}

func (f *Fabricator) applySegmentAttributes(segType fabrication.SegmentType) error {
	seg := f.segment
	seg.Type = segType
	seg.Key = f.mainSequence.Key
	if seg.Key == "" {
		seg.Key = f.mainProgram.Key
	}
	seg.Key = music.ParseKey(seg.Key).String()
	seg.Total = f.mainSequence.Total
	seg.Tempo = f.mainProgram.Tempo
	seg.Density = f.mainSequence.Density
	if seg.Density <= 0 {
		seg.Density = f.mainProgram.Density
	}
	seg.Delta = 0
	if segType == fabrication.SegmentTypeContinue && f.previous != nil {
		seg.Delta = f.previous.Segment.Delta + f.previous.Segment.Total
	}
	if seg.Total <= 0 {
		return aggregates.Fatal("craft.timing", fmt.Errorf("main sequence %s has no length", f.mainSequence.Name))
	}
	startTempo := seg.Tempo
	if f.previous != nil && f.previous.Segment.Tempo > 0 {
		startTempo = f.previous.Segment.Tempo
	}
	tc, err := timing.New(float64(seg.Total), startTempo, seg.Tempo)
	if err != nil {
		return aggregates.Fatal("craft.timing", err)
	}
	f.tc = tc
	end := seg.BeginAt.Add(time.Duration(tc.TotalMicros()) * time.Microsecond)
	seg.EndAt = &end
	return nil
}

// buildChords copies the main sequence's chords and voicings into the segment
// and derives the chord sections.
func (f *Fabricator) buildChords() {
	total := float64(f.segment.Total)
	for _, c := range f.snap.Chords(f.mainSequence.ID) {
		if c.Position >= total {
			continue
		}
		sc := &fabrication.SegmentChord{ID: uuid.New(), SegmentID: f.segment.ID, Name: c.Name, Position: c.Position}
		f.out.Chords = append(f.out.Chords, sc)
		byType := map[types.InstrumentType][]music.Note{}
		for _, v := range f.snap.Voicings(c.ID) {
			f.out.Voicings = append(f.out.Voicings, &fabrication.SegmentChordVoicing{
				ID:             uuid.New(),
				SegmentID:      f.segment.ID,
				SegmentChordID: sc.ID,
				Type:           string(v.Type),
				Notes:          v.Notes,
			})
			notes, err := music.ParseNotes(v.Notes)
			if err != nil {
				f.addMessage(fabrication.MessageTypeWarning, "chord %s voicing %s: %v", c.Name, v.Type, err)
				continue
			}
			byType[v.Type] = notes
		}
		f.voicings[sc.ID] = byType
	}
	for i, c := range f.out.Chords {
		to := total
		if i+1 < len(f.out.Chords) {
			to = f.out.Chords[i+1].Position
		}
		f.sections = append(f.sections, section{chord: c, from: c.Position, to: to})
	}
}
