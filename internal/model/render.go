package model

import "fmt"

// RenderConfig is the immutable payload of a render job. It describes the
// script, the narration voice, the output target, and the optional background
// layers. Producers create it once; the pipeline never modifies it.
type RenderConfig struct {
	Script          string           `json:"script" validate:"required,min=1"`
	Voice           VoiceConfig      `json:"voice" validate:"required"`
	Output          OutputConfig     `json:"output" validate:"required"`
	BackgroundMusic *MusicConfig     `json:"backgroundMusic,omitempty"`
	Binaural        *BinauralConfig  `json:"binaural,omitempty"`
	Solfeggio       *SolfeggioConfig `json:"solfeggio,omitempty"`
	// LayerGains overrides the per-layer defaults and any gain set on the
	// layer blocks themselves. Keys are layer kinds ("voice", "music", ...).
	LayerGains map[LayerKind]float64 `json:"layerGains,omitempty"`
}

// VoiceConfig selects the TTS provider and voice for the narration layer.
type VoiceConfig struct {
	Provider Provider      `json:"provider" validate:"required"`
	VoiceID  string        `json:"voiceId" validate:"required"`
	Settings VoiceSettings `json:"settings"`
}

// VoiceSettings carries provider synthesis knobs. Zero values mean
// provider defaults.
type VoiceSettings struct {
	Speed           float64 `json:"speed,omitempty" validate:"omitempty,gte=0.5,lte=2"`
	Stability       float64 `json:"stability,omitempty" validate:"omitempty,gte=0,lte=1"`
	SimilarityBoost float64 `json:"similarityBoost,omitempty" validate:"omitempty,gte=0,lte=1"`
	Style           float64 `json:"style,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// OutputConfig describes the artifact the job must produce.
type OutputConfig struct {
	TargetDurationSeconds float64 `json:"targetDurationSeconds" validate:"required,gt=0,lte=14400"`
	PauseSeconds          float64 `json:"pauseSeconds" validate:"required,gte=1,lte=30"`
	Format                Format  `json:"format" validate:"required"`
	Quality               Quality `json:"quality,omitempty"`
	// NormalizationTargetLUFS is the integrated loudness target for the
	// final mix. Zero means the configured default (typically -16 LUFS).
	NormalizationTargetLUFS float64 `json:"normalizationTargetLufs,omitempty" validate:"omitempty,gte=-36,lte=-6"`
}

// MusicConfig references a background music asset by storage key or URL.
type MusicConfig struct {
	Source string  `json:"source" validate:"required"`
	GainDB float64 `json:"gainDb"`
}

// BinauralConfig enables a binaural-beat tone layer.
type BinauralConfig struct {
	Enabled bool    `json:"enabled"`
	Band    Band    `json:"band"`
	GainDB  float64 `json:"gainDb"`
}

// SolfeggioConfig enables a fixed-frequency tone layer.
type SolfeggioConfig struct {
	Enabled     bool    `json:"enabled"`
	FrequencyHz float64 `json:"frequencyHz"`
	GainDB      float64 `json:"gainDb"`
}

// Validate checks the semantic invariants that struct tags cannot express.
// It runs before any synthesis work begins; every violation is a ConfigError.
func (c *RenderConfig) Validate() error {
	valid := false
	for _, p := range ValidProviders {
		if c.Voice.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return &ConfigError{Field: "voice.provider", Message: fmt.Sprintf("unsupported voice provider %q", c.Voice.Provider)}
	}

	if c.Output.PauseSeconds < 1 || c.Output.PauseSeconds > 30 {
		return &ConfigError{Field: "output.pauseSeconds", Message: fmt.Sprintf("pause seconds %.2f outside [1, 30]", c.Output.PauseSeconds)}
	}
	if c.Output.TargetDurationSeconds <= 0 {
		return &ConfigError{Field: "output.targetDurationSeconds", Message: "target duration must be positive"}
	}

	formatOK := false
	for _, f := range ValidFormats {
		if c.Output.Format == f {
			formatOK = true
			break
		}
	}
	if !formatOK {
		return &ConfigError{Field: "output.format", Message: fmt.Sprintf("unsupported output format %q", c.Output.Format)}
	}

	if c.Binaural != nil && c.Binaural.Enabled {
		if _, ok := c.Binaural.Band.BeatFrequency(); !ok {
			return &ConfigError{Field: "binaural.band", Message: fmt.Sprintf("unknown band %q", c.Binaural.Band)}
		}
	}
	if c.Solfeggio != nil && c.Solfeggio.Enabled {
		if c.Solfeggio.FrequencyHz <= 0 || c.Solfeggio.FrequencyHz > 20000 {
			return &ConfigError{Field: "solfeggio.frequencyHz", Message: fmt.Sprintf("frequency %.1f Hz outside (0, 20000]", c.Solfeggio.FrequencyHz)}
		}
	}
	if c.BackgroundMusic != nil && c.BackgroundMusic.Source == "" {
		return &ConfigError{Field: "backgroundMusic.source", Message: "music source reference is empty"}
	}

	return nil
}

// GainDB resolves the effective gain for a layer: the layerGains table wins,
// then the layer block's own gain, then the built-in default.
func (c *RenderConfig) GainDB(kind LayerKind) float64 {
	if g, ok := c.LayerGains[kind]; ok {
		return g
	}
	switch kind {
	case LayerMusic:
		if c.BackgroundMusic != nil && c.BackgroundMusic.GainDB != 0 {
			return c.BackgroundMusic.GainDB
		}
	case LayerBinaural:
		if c.Binaural != nil && c.Binaural.GainDB != 0 {
			return c.Binaural.GainDB
		}
	case LayerSolfeggio:
		if c.Solfeggio != nil && c.Solfeggio.GainDB != 0 {
			return c.Solfeggio.GainDB
		}
	}
	return DefaultLayerGains[kind]
}

// TargetLUFS returns the normalization target, falling back to def when the
// payload leaves it unset.
func (c *RenderConfig) TargetLUFS(def float64) float64 {
	if c.Output.NormalizationTargetLUFS != 0 {
		return c.Output.NormalizationTargetLUFS
	}
	return def
}
