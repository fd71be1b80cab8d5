package model

// Job status
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether a job in this status can never transition again.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Brainwave-entrainment bands
type Band string

const (
	BandDelta Band = "delta"
	BandTheta Band = "theta"
	BandAlpha Band = "alpha"
	BandBeta  Band = "beta"
	BandGamma Band = "gamma"
)

var ValidBands = []Band{BandDelta, BandTheta, BandAlpha, BandBeta, BandGamma}

// BandFrequencies maps each entrainment band to its beat frequency in Hz.
// Read-only; never mutated at runtime.
var BandFrequencies = map[Band]float64{
	BandDelta: 2.0,
	BandTheta: 6.0,
	BandAlpha: 10.0,
	BandBeta:  20.0,
	BandGamma: 40.0,
}

// BeatFrequency returns the beat frequency for a band, or false when the band
// is not a known entrainment band.
func (b Band) BeatFrequency() (float64, bool) {
	hz, ok := BandFrequencies[b]
	return hz, ok
}

// Delivery formats
type Format string

const (
	FormatWAV Format = "wav"
)

var ValidFormats = []Format{FormatWAV}

// Voice providers
type Provider string

const (
	ProviderElevenLabs Provider = "elevenlabs"
	ProviderOpenAI     Provider = "openai"
)

var ValidProviders = []Provider{ProviderElevenLabs, ProviderOpenAI}

// Output quality tiers
type Quality string

const (
	QualityStandard Quality = "standard" // 44.1 kHz
	QualityHigh     Quality = "high"     // 48 kHz
)

// SampleRate returns the engine sample rate for a quality tier.
func (q Quality) SampleRate() int {
	if q == QualityHigh {
		return 48000
	}
	return 44100
}

// Layer kinds
type LayerKind string

const (
	LayerVoice     LayerKind = "voice"
	LayerMusic     LayerKind = "music"
	LayerBinaural  LayerKind = "binaural"
	LayerSolfeggio LayerKind = "solfeggio"
	LayerSilence   LayerKind = "silence"
)

// DefaultLayerGains holds the per-layer gain (dB) applied when neither the
// layer block nor the layerGains table overrides it.
var DefaultLayerGains = map[LayerKind]float64{
	LayerVoice:     0.0,
	LayerMusic:     -12.0,
	LayerBinaural:  -18.0,
	LayerSolfeggio: -20.0,
}
