package content

import (
	"testing"

	types "github.com/yungbote/fabricator/internal/domain/content"
)

func TestDefaultTemplateConfig(t *testing.T) {
	cfg, err := DefaultTemplateConfig()
	if err != nil {
		t.Fatalf("DefaultTemplateConfig: %v", err)
	}
	if !cfg.AutoIntensity {
		t.Fatalf("auto intensity should default on")
	}
	if len(cfg.MemeTaxonomy) == 0 {
		t.Fatalf("expected a default meme taxonomy")
	}
	if !cfg.IsOneShotCutoff(types.InstrumentTypeStab) {
		t.Fatalf("stab should be a one-shot cutoff type")
	}
	if cfg.TypeVolume("Unknown") != 1 {
		t.Fatalf("unconfigured type volume should be 1")
	}
}

func TestTemplateOverrideDoesNotLeakIntoDefaults(t *testing.T) {
	cfg, err := ParseTemplateConfig([]byte("mute_probability:\n  Hook: 1.0\n"))
	if err != nil {
		t.Fatalf("ParseTemplateConfig: %v", err)
	}
	if cfg.MuteProbability[types.InstrumentTypeHook] != 1.0 {
		t.Fatalf("override not applied")
	}
	if cfg.MuteProbability[types.InstrumentTypeStab] != 0.25 {
		t.Fatalf("sibling default lost: %v", cfg.MuteProbability)
	}
	def, _ := DefaultTemplateConfig()
	if def.MuteProbability[types.InstrumentTypeHook] != 0.25 {
		t.Fatalf("defaults mutated by override")
	}
}

func TestTemplateValidation(t *testing.T) {
	bad := []string{
		"beats_per_bar: 0\n",
		"mute_probability:\n  Pad: 1.5\n",
		"voicing_octaves:\n  Pad: [5, 3]\n",
		"meme_taxonomy:\n  - {name: COLOR}\n  - {name: color}\n",
		"output: {frame_rate: 0, channels: 2}\n",
	}
	for _, doc := range bad {
		if _, err := ParseTemplateConfig([]byte(doc)); err == nil {
			t.Fatalf("expected validation error for %q", doc)
		}
	}
}
