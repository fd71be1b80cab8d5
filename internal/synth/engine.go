package synth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AlchemyApps/mindScript-sub006/internal/model"
)

// SpeechResult is the provider-native output of one TTS synthesis call.
type SpeechResult struct {
	Audio       []byte
	ContentType string
}

// SpeechSynthesizer is the TTS collaborator boundary.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, script, voiceID string, settings model.VoiceSettings) (*SpeechResult, error)
}

// ObjectStorage is the artifact storage boundary.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
}

// ProgressFunc receives stage updates during a render. Implementations must
// tolerate being called from the job's goroutine only.
type ProgressFunc func(progress int, stage string)

// Options tunes the engine. Zero values fall back to sensible defaults.
type Options struct {
	SampleRate           int
	DefaultTargetLUFS    float64
	PreviewSeconds       float64
	PreviewOffsetSeconds float64
	CrossfadeSeconds     float64
	MusicFadeSeconds     float64
}

func (o *Options) fillDefaults() {
	if o.SampleRate == 0 {
		o.SampleRate = 44100
	}
	if o.DefaultTargetLUFS == 0 {
		o.DefaultTargetLUFS = -16
	}
	if o.PreviewSeconds == 0 {
		o.PreviewSeconds = 15
	}
	if o.PreviewOffsetSeconds == 0 {
		o.PreviewOffsetSeconds = 30
	}
	if o.CrossfadeSeconds == 0 {
		o.CrossfadeSeconds = 2
	}
	if o.MusicFadeSeconds == 0 {
		o.MusicFadeSeconds = 3
	}
}

// Engine turns one render-job payload into a mixed, normalized, encoded and
// uploaded artifact. All state is per-call; a single engine is safe for
// concurrent jobs.
type Engine struct {
	opts         Options
	synthesizers map[model.Provider]SpeechSynthesizer
	storage      ObjectStorage
	httpClient   *http.Client
}

// NewEngine builds an engine over explicitly injected collaborators.
func NewEngine(opts Options, synthesizers map[model.Provider]SpeechSynthesizer, storage ObjectStorage) *Engine {
	opts.fillDefaults()
	return &Engine{
		opts:         opts,
		synthesizers: synthesizers,
		storage:      storage,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Render executes the full pipeline for one job: validate, narrate, fit,
// prepare optional layers, mix, normalize, encode, upload.
func (e *Engine) Render(ctx context.Context, job *model.RenderJob, progress ProgressFunc) (*model.RenderResult, error) {
	if progress == nil {
		progress = func(int, string) {}
	}
	cfg := &job.Payload

	progress(5, "Validating configuration")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	target := cfg.Output.TargetDurationSeconds
	rate := e.sampleRate(cfg)

	progress(10, "Synthesizing narration")
	voice, err := e.voiceLayer(ctx, cfg, rate)
	if err != nil {
		return nil, err
	}

	progress(35, "Fitting narration to target duration")
	voice, err = FitVoiceToDuration(voice, target, cfg.Output.PauseSeconds)
	if err != nil {
		return nil, err
	}
	layers := []Layer{{Kind: model.LayerVoice, Buf: voice, GainDB: cfg.GainDB(model.LayerVoice)}}

	if cfg.BackgroundMusic != nil {
		progress(50, "Preparing background music")
		music, err := e.musicLayer(ctx, cfg.BackgroundMusic, target, rate)
		if err != nil {
			return nil, err
		}
		layers = append(layers, Layer{Kind: model.LayerMusic, Buf: music, GainDB: cfg.GainDB(model.LayerMusic)})
	}

	if cfg.Binaural != nil && cfg.Binaural.Enabled {
		progress(65, "Generating entrainment tones")
		tone, err := BinauralTone(rate, cfg.Binaural.Band, target)
		if err != nil {
			return nil, err
		}
		layers = append(layers, Layer{Kind: model.LayerBinaural, Buf: tone, GainDB: cfg.GainDB(model.LayerBinaural)})
	}
	if cfg.Solfeggio != nil && cfg.Solfeggio.Enabled {
		progress(70, "Generating solfeggio tone")
		tone := SolfeggioTone(rate, cfg.Solfeggio.FrequencyHz, target)
		layers = append(layers, Layer{Kind: model.LayerSolfeggio, Buf: tone, GainDB: cfg.GainDB(model.LayerSolfeggio)})
	}

	progress(75, "Mixing layers")
	mix, err := Mix(layers)
	if err != nil {
		return nil, err
	}

	progress(85, "Normalizing loudness")
	NormalizeToLUFS(mix, cfg.TargetLUFS(e.opts.DefaultTargetLUFS))

	progress(92, "Encoding artifact")
	preview := ExtractPreview(mix, e.opts.PreviewOffsetSeconds, e.opts.PreviewSeconds, 1.0)

	dir, err := os.MkdirTemp("", "render-"+job.ID+"-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	mixPath := filepath.Join(dir, "mix.wav")
	previewPath := filepath.Join(dir, "preview.wav")
	if err := EncodeWAVFile(mix, mixPath); err != nil {
		return nil, err
	}
	if err := EncodeWAVFile(preview, previewPath); err != nil {
		return nil, err
	}

	progress(96, "Uploading artifact")
	artifactKey := fmt.Sprintf("renders/%s/%s.wav", job.TrackID, job.ID)
	previewKey := fmt.Sprintf("renders/%s/%s.preview.wav", job.TrackID, job.ID)

	artifactURL, size, err := e.uploadFile(ctx, artifactKey, mixPath)
	if err != nil {
		return nil, err
	}
	previewURL, _, err := e.uploadFile(ctx, previewKey, previewPath)
	if err != nil {
		return nil, err
	}

	return &model.RenderResult{
		ArtifactURL:     artifactURL,
		PreviewURL:      previewURL,
		DurationSeconds: mix.Duration(),
		SizeBytes:       size,
		Format:          cfg.Output.Format,
	}, nil
}

// sampleRate resolves the render sample rate: the payload's quality tier
// when present, otherwise the engine default.
func (e *Engine) sampleRate(cfg *model.RenderConfig) int {
	if cfg.Output.Quality != "" {
		return cfg.Output.Quality.SampleRate()
	}
	return e.opts.SampleRate
}

// voiceLayer synthesizes the script once and returns a stereo clip at the
// render sample rate, regardless of the provider's native channel count.
func (e *Engine) voiceLayer(ctx context.Context, cfg *model.RenderConfig, rate int) (*Buffer, error) {
	tts, ok := e.synthesizers[cfg.Voice.Provider]
	if !ok || tts == nil {
		return nil, &model.ConfigError{
			Field:   "voice.provider",
			Message: fmt.Sprintf("no synthesizer configured for provider %q", cfg.Voice.Provider),
		}
	}

	res, err := tts.Synthesize(ctx, cfg.Script, cfg.Voice.VoiceID, cfg.Voice.Settings)
	if err != nil {
		return nil, err
	}

	buf, err := DecodeAudio(res.Audio, res.ContentType, rate)
	if err != nil {
		return nil, &model.ProviderError{
			Provider: string(cfg.Voice.Provider),
			Op:       "decode synthesis output",
			Err:      err,
		}
	}
	return buf, nil
}

// musicLayer fetches the music source (storage key or URL), decodes it and
// fits it to the target duration.
func (e *Engine) musicLayer(ctx context.Context, cfg *model.MusicConfig, target float64, rate int) (*Buffer, error) {
	data, contentType, err := e.fetchMusic(ctx, cfg.Source)
	if err != nil {
		return nil, err
	}
	src, err := DecodeAudio(data, contentType, rate)
	if err != nil {
		return nil, &model.ConfigError{Field: "backgroundMusic.source", Message: err.Error()}
	}
	return PrepareMusicLayer(src, target, e.opts.CrossfadeSeconds, e.opts.MusicFadeSeconds)
}

func (e *Engine) fetchMusic(ctx context.Context, source string) ([]byte, string, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, "", &model.ConfigError{Field: "backgroundMusic.source", Message: err.Error()}
		}
		resp, err := e.httpClient.Do(req)
		if err != nil {
			return nil, "", &model.ProviderError{Provider: "music-source", Op: "GET " + source, Err: err}
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", &model.ProviderError{Provider: "music-source", Op: "GET " + source, Err: err}
		}
		if resp.StatusCode != http.StatusOK {
			return nil, "", &model.ProviderError{
				Provider:   "music-source",
				Op:         "GET " + source,
				StatusCode: resp.StatusCode,
				Body:       truncate(string(body), 512),
			}
		}
		return body, resp.Header.Get("Content-Type"), nil
	}

	if e.storage == nil {
		return nil, "", &model.ConfigError{Field: "backgroundMusic.source", Message: "storage not configured for key sources"}
	}
	data, err := e.storage.Download(ctx, source)
	if err != nil {
		return nil, "", err
	}
	return data, "", nil
}

func (e *Engine) uploadFile(ctx context.Context, key, path string) (string, int64, error) {
	if e.storage == nil {
		return "", 0, &model.ConfigError{Field: "storage", Message: "object storage not configured"}
	}
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("stat artifact: %w", err)
	}
	url, err := e.storage.Upload(ctx, key, f, "audio/wav")
	if err != nil {
		return "", 0, err
	}
	return url, info.Size(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
