package content

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/fabricator/internal/domain/content"
)

// TemplateConfigEnv points at a YAML file replacing the embedded defaults.
const TemplateConfigEnv = "FABRICATION_TEMPLATE_YAML"

//go:embed default_template.yaml
var defaultTemplateFS embed.FS

func readDefaultTemplate() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(TemplateConfigEnv)); path != "" {
		return os.ReadFile(path)
	}
	return defaultTemplateFS.ReadFile("default_template.yaml")
}

// DefaultTemplateConfig decodes a fresh copy of the defaults on every call so
// callers never share maps.
func DefaultTemplateConfig() (types.TemplateConfig, error) {
	return ParseTemplateConfig(nil)
}

// ParseTemplateConfig layers override documents over the defaults, later
// documents winning.
func ParseTemplateConfig(overrides ...[]byte) (types.TemplateConfig, error) {
	var cfg types.TemplateConfig
	base, err := readDefaultTemplate()
	if err != nil {
		return cfg, fmt.Errorf("read default template: %w", err)
	}
	if err := yaml.Unmarshal(base, &cfg); err != nil {
		return cfg, fmt.Errorf("decode default template: %w", err)
	}
	for _, override := range overrides {
		if len(strings.TrimSpace(string(override))) == 0 {
			continue
		}
		if err := yaml.Unmarshal(override, &cfg); err != nil {
			return cfg, fmt.Errorf("decode template override: %w", err)
		}
	}
	if err := ValidateTemplateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func ValidateTemplateConfig(cfg types.TemplateConfig) error {
	if cfg.BeatsPerBar <= 0 {
		return fmt.Errorf("template: beats_per_bar must be positive")
	}
	if cfg.DeltaArcFadeBeats < 0 {
		return fmt.Errorf("template: delta_arc_fade_beats must not be negative")
	}
	if cfg.DeltaArcRhythmLayersIncoming < 0 || cfg.DeltaArcDetailLayersIncoming < 0 {
		return fmt.Errorf("template: layers incoming must not be negative")
	}
	for t, p := range cfg.MuteProbability {
		if p < 0 || p > 1 {
			return fmt.Errorf("template: mute_probability for %s out of range: %v", t, p)
		}
	}
	for t, v := range cfg.InstrumentTypeVolume {
		if v < 0 {
			return fmt.Errorf("template: instrument_type_volume for %s is negative", t)
		}
	}
	for t, r := range cfg.VoicingOctaves {
		if r[0] > r[1] {
			return fmt.Errorf("template: voicing_octaves for %s is inverted", t)
		}
	}
	seen := map[string]bool{}
	for _, c := range cfg.MemeTaxonomy {
		name := strings.ToUpper(strings.TrimSpace(c.Name))
		if name == "" {
			return fmt.Errorf("template: meme taxonomy category name is required")
		}
		if seen[name] {
			return fmt.Errorf("template: duplicate meme taxonomy category %s", name)
		}
		seen[name] = true
	}
	if cfg.Output.FrameRate <= 0 || cfg.Output.Channels <= 0 {
		return fmt.Errorf("template: output frame_rate and channels must be positive")
	}
	if cfg.BufferAheadSeconds < 0 || cfg.BufferBeforeSeconds < 0 {
		return fmt.Errorf("template: buffer seconds must not be negative")
	}
	return nil
}
