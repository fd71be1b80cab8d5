package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/AlchemyApps/mindScript-sub006/internal/config"
	"github.com/AlchemyApps/mindScript-sub006/internal/model"
	"github.com/AlchemyApps/mindScript-sub006/internal/synth"
)

// ElevenLabsClient implements synth.SpeechSynthesizer against the ElevenLabs
// text-to-speech API. Responses arrive as MP3.
type ElevenLabsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	modelID    string
}

// NewElevenLabsClient creates a new ElevenLabs API client.
func NewElevenLabsClient(cfg *config.ElevenLabsConfig) *ElevenLabsClient {
	return &ElevenLabsClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		modelID: cfg.ModelID,
	}
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id,omitempty"`
	VoiceSettings *elevenLabsVoiceSetting `json:"voice_settings,omitempty"`
}

type elevenLabsVoiceSetting struct {
	Stability       float64 `json:"stability,omitempty"`
	SimilarityBoost float64 `json:"similarity_boost,omitempty"`
	Style           float64 `json:"style,omitempty"`
	Speed           float64 `json:"speed,omitempty"`
}

// Synthesize renders the script once with the given voice. Provider failures
// are returned as ProviderError with the upstream status and body captured
// verbatim so the job's failure detail stays diagnosable.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, script, voiceID string, settings model.VoiceSettings) (*synth.SpeechResult, error) {
	payload := elevenLabsRequest{
		Text:    script,
		ModelID: c.modelID,
	}
	if settings != (model.VoiceSettings{}) {
		payload.VoiceSettings = &elevenLabsVoiceSetting{
			Stability:       settings.Stability,
			SimilarityBoost: settings.SimilarityBoost,
			Style:           settings.Style,
			Speed:           settings.Speed,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey)

	log.Printf("[TTS elevenlabs] → POST %s (%d chars)", endpoint, len(script))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[TTS elevenlabs] ✗ POST %s — request failed: %v", endpoint, err)
		return nil, &model.ProviderError{Provider: "elevenlabs", Op: "text-to-speech", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.ProviderError{Provider: "elevenlabs", Op: "text-to-speech", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[TTS elevenlabs] ← %d POST %s — %s", resp.StatusCode, endpoint, string(respBody))
		return nil, &model.ProviderError{
			Provider:   "elevenlabs",
			Op:         "text-to-speech",
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	log.Printf("[TTS elevenlabs] ← %d POST %s (%d bytes)", resp.StatusCode, endpoint, len(respBody))

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return &synth.SpeechResult{Audio: respBody, ContentType: contentType}, nil
}

// IsConfigured returns true if the client has valid configuration.
func (c *ElevenLabsClient) IsConfigured() bool {
	return c.apiKey != ""
}
