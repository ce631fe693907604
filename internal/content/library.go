package content

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	types "github.com/yungbote/fabricator/internal/domain/content"
)

// libraryNamespace derives stable uuids for slug ids and for unnamed children.
var libraryNamespace = uuid.MustParse("6f1c3e0a-5b8d-4c0e-9a51-2d7be0c4a9f3")

// Library is a loaded library file: the snapshot plus its template.
type Library struct {
	TemplateID uuid.UUID
	Template   types.TemplateConfig
	Snapshot   *Snapshot

	// TemplateOverride is the raw config document the template was built from.
	TemplateOverride []byte
}

// TemplateFor layers a chain's own config document over the library template.
func (l *Library) TemplateFor(chainConfig []byte) (types.TemplateConfig, error) {
	if len(chainConfig) == 0 {
		return l.Template, nil
	}
	return ParseTemplateConfig(l.TemplateOverride, chainConfig)
}

type yamlLibrary struct {
	Template    yamlTemplate     `yaml:"template"`
	Programs    []yamlProgram    `yaml:"programs"`
	Instruments []yamlInstrument `yaml:"instruments"`
}

type yamlTemplate struct {
	ID       string        `yaml:"id"`
	Bindings []yamlBinding `yaml:"bindings"`
	Config   yaml.Node     `yaml:"config"`
}

type yamlBinding struct {
	Program    string `yaml:"program"`
	Instrument string `yaml:"instrument"`
}

type yamlProgram struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Type      string         `yaml:"type"`
	State     string         `yaml:"state"`
	Key       string         `yaml:"key"`
	Tempo     float64        `yaml:"tempo"`
	Density   float64        `yaml:"density"`
	Memes     []string       `yaml:"memes"`
	Voices    []yamlVoice    `yaml:"voices"`
	Sequences []yamlSequence `yaml:"sequences"`
	Bindings  []yamlSeqBind  `yaml:"bindings"`
}

type yamlVoice struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Type   string   `yaml:"type"`
	Tracks []string `yaml:"tracks"`
}

type yamlSequence struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	Key      string        `yaml:"key"`
	Total    int           `yaml:"total"`
	Density  float64       `yaml:"density"`
	Chords   []yamlChord   `yaml:"chords"`
	Patterns []yamlPattern `yaml:"patterns"`
}

type yamlChord struct {
	Name     string            `yaml:"name"`
	Position float64           `yaml:"position"`
	Voicings map[string]string `yaml:"voicings"`
}

type yamlPattern struct {
	ID     string      `yaml:"id"`
	Voice  string      `yaml:"voice"`
	Name   string      `yaml:"name"`
	Total  int         `yaml:"total"`
	Events []yamlEvent `yaml:"events"`
}

type yamlEvent struct {
	Track    string  `yaml:"track"`
	Position float64 `yaml:"position"`
	Duration float64 `yaml:"duration"`
	Velocity float64 `yaml:"velocity"`
	Tones    string  `yaml:"tones"`
}

type yamlSeqBind struct {
	Sequence string   `yaml:"sequence"`
	Offset   int      `yaml:"offset"`
	Memes    []string `yaml:"memes"`
}

type yamlInstrument struct {
	ID     string         `yaml:"id"`
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"`
	Mode   string         `yaml:"mode"`
	State  string         `yaml:"state"`
	Volume *float64       `yaml:"volume"`
	Config yamlInstConfig `yaml:"config"`
	Memes  []string       `yaml:"memes"`
	Audios []yamlAudio    `yaml:"audios"`
}

type yamlInstConfig struct {
	AudioSelectionPersistent bool `yaml:"audio_selection_persistent"`
	Multiphonic              bool `yaml:"multiphonic"`
	OneShot                  bool `yaml:"one_shot"`
	OneShotCutoffEnabled     bool `yaml:"one_shot_cutoff_enabled"`
}

type yamlAudio struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Event         string   `yaml:"event"`
	Tones         string   `yaml:"tones"`
	Volume        *float64 `yaml:"volume"`
	Intensity     float64  `yaml:"intensity"`
	Tempo         float64  `yaml:"tempo"`
	LoopBeats     int      `yaml:"loop_beats"`
	LengthSeconds float64  `yaml:"length_seconds"`
	WaveformKey   string   `yaml:"waveform_key"`
}

// LoadLibrary reads a YAML library file from disk.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read library %s: %w", path, err)
	}
	return ParseLibrary(data)
}

// ParseLibrary decodes a library document. Ids may be uuids or slugs; slugs map
// to stable uuids so the same file always yields the same snapshot.
func ParseLibrary(data []byte) (*Library, error) {
	var doc yamlLibrary
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode library: %w", err)
	}

	lib := &Library{Snapshot: NewSnapshot()}
	if doc.Template.ID != "" {
		lib.TemplateID = resolveID("template", doc.Template.ID)
	}

	var override []byte
	if doc.Template.Config.Kind != 0 {
		raw, err := yaml.Marshal(&doc.Template.Config)
		if err != nil {
			return nil, fmt.Errorf("template config: %w", err)
		}
		override = raw
	}
	tpl, err := ParseTemplateConfig(override)
	if err != nil {
		return nil, err
	}
	lib.Template = tpl
	lib.TemplateOverride = override

	b := &libraryBuilder{snap: lib.Snapshot}
	for i := range doc.Programs {
		b.program(&doc.Programs[i])
	}
	for i := range doc.Instruments {
		b.instrument(&doc.Instruments[i])
	}
	for i, bind := range doc.Template.Bindings {
		tb := &types.TemplateBinding{ID: childID(lib.TemplateID, "binding", i)}
		switch {
		case bind.Program != "":
			tb.Type, tb.TargetID = types.TemplateBindingProgram, resolveID("program", bind.Program)
		case bind.Instrument != "":
			tb.Type, tb.TargetID = types.TemplateBindingInstrument, resolveID("instrument", bind.Instrument)
		default:
			b.fail(fmt.Errorf("template binding %d: program or instrument is required", i))
			continue
		}
		b.put(tb)
	}
	if b.err != nil {
		return nil, b.err
	}
	return lib, nil
}

type libraryBuilder struct {
	snap *Snapshot
	err  error
}

func (b *libraryBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *libraryBuilder) put(e types.Entity) {
	if err := b.snap.Put(e); err != nil {
		b.fail(err)
	}
}

func (b *libraryBuilder) program(p *yamlProgram) {
	if strings.TrimSpace(p.ID) == "" {
		b.fail(fmt.Errorf("program %q: id is required", p.Name))
		return
	}
	ptype, ok := parseProgramType(p.Type)
	if !ok {
		b.fail(fmt.Errorf("program %s: unknown type %q", p.ID, p.Type))
		return
	}
	pid := resolveID("program", p.ID)
	b.put(&types.Program{
		ID:      pid,
		Name:    p.Name,
		Type:    ptype,
		State:   parseState(p.State),
		Key:     p.Key,
		Tempo:   p.Tempo,
		Density: p.Density,
	})
	for i, m := range p.Memes {
		b.put(&types.ProgramMeme{ID: childID(pid, "meme", i), ProgramID: pid, Name: m})
	}

	trackIDs := map[uuid.UUID]map[string]uuid.UUID{}
	for vi, v := range p.Voices {
		vid := resolveID("voice", v.ID)
		itype, ok := parseInstrumentType(v.Type)
		if !ok {
			b.fail(fmt.Errorf("voice %s: unknown type %q", v.ID, v.Type))
			continue
		}
		b.put(&types.ProgramVoice{ID: vid, ProgramID: pid, Type: itype, Name: v.Name, Order: float64(vi)})
		trackIDs[vid] = map[string]uuid.UUID{}
		for ti, name := range v.Tracks {
			tid := childID(vid, "track:"+strings.ToUpper(name), 0)
			trackIDs[vid][strings.ToUpper(name)] = tid
			b.put(&types.ProgramVoiceTrack{ID: tid, ProgramID: pid, ProgramVoiceID: vid, Name: name, Order: float64(ti)})
		}
	}

	for _, s := range p.Sequences {
		sid := resolveID("sequence", s.ID)
		b.put(&types.ProgramSequence{ID: sid, ProgramID: pid, Name: s.Name, Key: s.Key, Total: s.Total, Density: s.Density})
		for ci, c := range s.Chords {
			cid := childID(sid, "chord", ci)
			b.put(&types.ProgramSequenceChord{ID: cid, ProgramID: pid, ProgramSequenceID: sid, Name: c.Name, Position: c.Position})
			for _, vt := range sortedKeys(c.Voicings) {
				notes := c.Voicings[vt]
				itype, ok := parseInstrumentType(vt)
				if !ok {
					b.fail(fmt.Errorf("chord %s@%v: unknown voicing type %q", c.Name, c.Position, vt))
					continue
				}
				b.put(&types.ProgramSequenceChordVoicing{
					ID:                     childID(cid, "voicing:"+string(itype), 0),
					ProgramID:              pid,
					ProgramSequenceChordID: cid,
					Type:                   itype,
					Notes:                  notes,
				})
			}
		}
		for _, pat := range s.Patterns {
			vid := resolveID("voice", pat.Voice)
			tracks, ok := trackIDs[vid]
			if !ok {
				b.fail(fmt.Errorf("pattern %s: unknown voice %q", pat.ID, pat.Voice))
				continue
			}
			patID := resolveID("pattern", pat.ID)
			b.put(&types.ProgramSequencePattern{
				ID:                patID,
				ProgramID:         pid,
				ProgramSequenceID: sid,
				ProgramVoiceID:    vid,
				Name:              pat.Name,
				Total:             pat.Total,
			})
			for ei, e := range pat.Events {
				tid, ok := tracks[strings.ToUpper(e.Track)]
				if !ok {
					b.fail(fmt.Errorf("pattern %s event %d: unknown track %q", pat.ID, ei, e.Track))
					continue
				}
				b.put(&types.ProgramSequencePatternEvent{
					ID:                       childID(patID, "event", ei),
					ProgramID:                pid,
					ProgramSequencePatternID: patID,
					ProgramVoiceTrackID:      tid,
					Position:                 e.Position,
					Duration:                 e.Duration,
					Velocity:                 e.Velocity,
					Tones:                    e.Tones,
				})
			}
		}
	}

	for bi, sb := range p.Bindings {
		bid := childID(pid, "binding", bi)
		b.put(&types.ProgramSequenceBinding{
			ID:                bid,
			ProgramID:         pid,
			ProgramSequenceID: resolveID("sequence", sb.Sequence),
			Offset:            sb.Offset,
		})
		for mi, m := range sb.Memes {
			b.put(&types.ProgramSequenceBindingMeme{ID: childID(bid, "meme", mi), ProgramID: pid, ProgramSequenceBindingID: bid, Name: m})
		}
	}
}

func (b *libraryBuilder) instrument(in *yamlInstrument) {
	if strings.TrimSpace(in.ID) == "" {
		b.fail(fmt.Errorf("instrument %q: id is required", in.Name))
		return
	}
	itype, ok := parseInstrumentType(in.Type)
	if !ok {
		b.fail(fmt.Errorf("instrument %s: unknown type %q", in.ID, in.Type))
		return
	}
	iid := resolveID("instrument", in.ID)
	mode := types.InstrumentMode(in.Mode)
	switch mode {
	case types.InstrumentModeEvent, types.InstrumentModeChord, types.InstrumentModeLoop:
	case "":
		mode = types.InstrumentModeEvent
	default:
		b.fail(fmt.Errorf("instrument %s: unknown mode %q", in.ID, in.Mode))
		return
	}
	b.put(&types.Instrument{
		ID:     iid,
		Name:   in.Name,
		Type:   itype,
		Mode:   mode,
		State:  parseState(in.State),
		Volume: floatOr(in.Volume, 1),
		Config: types.InstrumentConfig{
			AudioSelectionPersistent: in.Config.AudioSelectionPersistent,
			Multiphonic:              in.Config.Multiphonic,
			OneShot:                  in.Config.OneShot,
			OneShotCutoffEnabled:     in.Config.OneShotCutoffEnabled,
		},
	})
	for i, m := range in.Memes {
		b.put(&types.InstrumentMeme{ID: childID(iid, "meme", i), InstrumentID: iid, Name: m})
	}
	for i, a := range in.Audios {
		aid := childID(iid, "audio", i)
		if a.ID != "" {
			aid = resolveID("audio", a.ID)
		}
		b.put(&types.InstrumentAudio{
			ID:            aid,
			InstrumentID:  iid,
			Name:          a.Name,
			Event:         a.Event,
			Tones:         a.Tones,
			Volume:        floatOr(a.Volume, 1),
			Intensity:     a.Intensity,
			Tempo:         a.Tempo,
			LoopBeats:     a.LoopBeats,
			LengthSeconds: a.LengthSeconds,
			WaveformKey:   a.WaveformKey,
		})
	}
}

// resolveID accepts a literal uuid or derives one from kind and slug.
func resolveID(kind, raw string) uuid.UUID {
	raw = strings.TrimSpace(raw)
	if id, err := uuid.Parse(raw); err == nil {
		return id
	}
	return uuid.NewSHA1(libraryNamespace, []byte(kind+":"+raw))
}

func childID(parent uuid.UUID, role string, index int) uuid.UUID {
	return uuid.NewSHA1(parent, []byte(role+"#"+strconv.Itoa(index)))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func floatOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func parseProgramType(s string) (types.ProgramType, bool) {
	for _, t := range []types.ProgramType{types.ProgramTypeMacro, types.ProgramTypeMain, types.ProgramTypeRhythm, types.ProgramTypeDetail} {
		if strings.EqualFold(s, string(t)) {
			return t, true
		}
	}
	return "", false
}

func parseInstrumentType(s string) (types.InstrumentType, bool) {
	for _, t := range types.InstrumentTypes {
		if strings.EqualFold(s, string(t)) {
			return t, true
		}
	}
	return "", false
}

func parseState(s string) types.State {
	if strings.EqualFold(s, string(types.StateDraft)) {
		return types.StateDraft
	}
	return types.StatePublished
}

// ProgramID returns the id a slug resolves to as a program.
func ProgramID(slug string) uuid.UUID { return resolveID("program", slug) }

func InstrumentID(slug string) uuid.UUID { return resolveID("instrument", slug) }

func VoiceID(slug string) uuid.UUID { return resolveID("voice", slug) }

func SequenceID(slug string) uuid.UUID { return resolveID("sequence", slug) }

func PatternID(slug string) uuid.UUID { return resolveID("pattern", slug) }
