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

// OpenAIClient implements synth.SpeechSynthesizer against the OpenAI speech
// API. WAV output is requested so decoding stays lossless.
type OpenAIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	ttsModel   string
}

// NewOpenAIClient creates a new OpenAI speech client.
func NewOpenAIClient(cfg *config.OpenAIConfig) *OpenAIClient {
	return &OpenAIClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		ttsModel: cfg.Model,
	}
}

type openAISpeechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed,omitempty"`
}

func (c *OpenAIClient) Synthesize(ctx context.Context, script, voiceID string, settings model.VoiceSettings) (*synth.SpeechResult, error) {
	payload := openAISpeechRequest{
		Model:          c.ttsModel,
		Input:          script,
		Voice:          voiceID,
		ResponseFormat: "wav",
		Speed:          settings.Speed,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/audio/speech"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Printf("[TTS openai] → POST %s (%d chars)", endpoint, len(script))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[TTS openai] ✗ POST %s — request failed: %v", endpoint, err)
		return nil, &model.ProviderError{Provider: "openai", Op: "audio/speech", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.ProviderError{Provider: "openai", Op: "audio/speech", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[TTS openai] ← %d POST %s — %s", resp.StatusCode, endpoint, string(respBody))
		return nil, &model.ProviderError{
			Provider:   "openai",
			Op:         "audio/speech",
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	log.Printf("[TTS openai] ← %d POST %s (%d bytes)", resp.StatusCode, endpoint, len(respBody))

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/wav"
	}
	return &synth.SpeechResult{Audio: respBody, ContentType: contentType}, nil
}

// IsConfigured returns true if the client has valid configuration.
func (c *OpenAIClient) IsConfigured() bool {
	return c.apiKey != ""
}
