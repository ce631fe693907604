package content

// MemeCategory is a taxonomy category; two different members may not be active together.
type MemeCategory struct {
	Name  string   `yaml:"name" json:"name"`
	Memes []string `yaml:"memes" json:"memes"`
}

type OutputFormat struct {
	Encoding  string `yaml:"encoding" json:"encoding"`
	FrameRate int    `yaml:"frame_rate" json:"frame_rate"`
	Channels  int    `yaml:"channels" json:"channels"`
}

// TemplateConfig carries the fabrication knobs of one template.
type TemplateConfig struct {
	AutoIntensity                bool     `yaml:"auto_intensity" json:"auto_intensity"`
	DeltaArcRhythmPrioritize     []string `yaml:"delta_arc_rhythm_prioritize" json:"delta_arc_rhythm_prioritize"`
	DeltaArcDetailPrioritize     []string `yaml:"delta_arc_detail_prioritize" json:"delta_arc_detail_prioritize"`
	DeltaArcRhythmLayersIncoming int      `yaml:"delta_arc_rhythm_layers_incoming" json:"delta_arc_rhythm_layers_incoming"`
	DeltaArcDetailLayersIncoming int      `yaml:"delta_arc_detail_layers_incoming" json:"delta_arc_detail_layers_incoming"`
	DeltaArcFadeBeats            int      `yaml:"delta_arc_fade_beats" json:"delta_arc_fade_beats"`
	BeatsPerBar                  int      `yaml:"beats_per_bar" json:"beats_per_bar"`

	DetailLayerOrder      []InstrumentType           `yaml:"detail_layer_order" json:"detail_layer_order"`
	MuteProbability       map[InstrumentType]float64 `yaml:"mute_probability" json:"mute_probability"`
	InstrumentTypeVolume  map[InstrumentType]float64 `yaml:"instrument_type_volume" json:"instrument_type_volume"`
	OneShotCutoffTypes    []InstrumentType           `yaml:"one_shot_cutoff_types" json:"one_shot_cutoff_types"`
	InversionSeekingTypes []InstrumentType           `yaml:"inversion_seeking_types" json:"inversion_seeking_types"`
	VoicingOctaves        map[InstrumentType][2]int  `yaml:"voicing_octaves" json:"voicing_octaves"`

	EventNamesLarge  []string `yaml:"event_names_large" json:"event_names_large"`
	EventNamesMedium []string `yaml:"event_names_medium" json:"event_names_medium"`
	EventNamesSmall  []string `yaml:"event_names_small" json:"event_names_small"`

	MemeTaxonomy []MemeCategory `yaml:"meme_taxonomy" json:"meme_taxonomy"`
	Output       OutputFormat   `yaml:"output" json:"output"`

	BufferAheadSeconds  int `yaml:"buffer_ahead_seconds" json:"buffer_ahead_seconds"`
	BufferBeforeSeconds int `yaml:"buffer_before_seconds" json:"buffer_before_seconds"`
}

func (c TemplateConfig) IsOneShotCutoff(t InstrumentType) bool {
	return containsType(c.OneShotCutoffTypes, t)
}

func (c TemplateConfig) SeeksInversions(t InstrumentType) bool {
	return containsType(c.InversionSeekingTypes, t)
}

// TypeVolume defaults to unity for unconfigured types.
func (c TemplateConfig) TypeVolume(t InstrumentType) float64 {
	if v, ok := c.InstrumentTypeVolume[t]; ok {
		return v
	}
	return 1
}

func containsType(list []InstrumentType, t InstrumentType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}
