package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	ElevenLabs ElevenLabsConfig
	OpenAI     OpenAIConfig
	R2         R2Config
	Worker     WorkerConfig
	Audio      AudioConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	RenderPerHour int
}

type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	ModelID string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type WorkerConfig struct {
	BatchSize        int
	StalenessMinutes int
	TickSeconds      int
}

type AudioConfig struct {
	SampleRate           int
	TargetLUFS           float64
	PreviewSeconds       float64
	PreviewOffsetSeconds float64
	CrossfadeSeconds     float64
	MusicFadeSeconds     float64
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("ELEVENLABS_API_KEY")
	readSecret("OPENAI_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("elevenlabs.api_key", "ELEVENLABS_API_KEY")
	_ = viper.BindEnv("elevenlabs.base_url", "ELEVENLABS_BASE_URL")
	_ = viper.BindEnv("elevenlabs.model_id", "ELEVENLABS_MODEL_ID")
	_ = viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = viper.BindEnv("openai.model", "OPENAI_TTS_MODEL")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("worker.batch_size", "WORKER_BATCH_SIZE")
	_ = viper.BindEnv("worker.staleness_minutes", "WORKER_STALENESS_MINUTES")
	_ = viper.BindEnv("worker.tick_seconds", "WORKER_TICK_SECONDS")
	_ = viper.BindEnv("audio.sample_rate", "AUDIO_SAMPLE_RATE")
	_ = viper.BindEnv("audio.target_lufs", "AUDIO_TARGET_LUFS")
	_ = viper.BindEnv("audio.preview_seconds", "AUDIO_PREVIEW_SECONDS")
	_ = viper.BindEnv("audio.preview_offset_seconds", "AUDIO_PREVIEW_OFFSET_SECONDS")
	_ = viper.BindEnv("ratelimit.render_per_hour", "RATELIMIT_RENDER_PER_HOUR")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.render_per_hour", 10)

	// ElevenLabs defaults
	viper.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io")
	viper.SetDefault("elevenlabs.model_id", "eleven_multilingual_v2")

	// OpenAI defaults
	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.model", "tts-1-hd")

	// Worker defaults
	viper.SetDefault("worker.batch_size", 5)
	viper.SetDefault("worker.staleness_minutes", 10)
	viper.SetDefault("worker.tick_seconds", 30)

	// Audio defaults
	viper.SetDefault("audio.sample_rate", 44100)
	viper.SetDefault("audio.target_lufs", -16.0)
	viper.SetDefault("audio.preview_seconds", 15.0)
	viper.SetDefault("audio.preview_offset_seconds", 30.0)
	viper.SetDefault("audio.crossfade_seconds", 2.0)
	viper.SetDefault("audio.music_fade_seconds", 3.0)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			RenderPerHour: viper.GetInt("ratelimit.render_per_hour"),
		},
		ElevenLabs: ElevenLabsConfig{
			APIKey:  viper.GetString("elevenlabs.api_key"),
			BaseURL: viper.GetString("elevenlabs.base_url"),
			ModelID: viper.GetString("elevenlabs.model_id"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  viper.GetString("openai.api_key"),
			BaseURL: viper.GetString("openai.base_url"),
			Model:   viper.GetString("openai.model"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		Worker: WorkerConfig{
			BatchSize:        viper.GetInt("worker.batch_size"),
			StalenessMinutes: viper.GetInt("worker.staleness_minutes"),
			TickSeconds:      viper.GetInt("worker.tick_seconds"),
		},
		Audio: AudioConfig{
			SampleRate:           viper.GetInt("audio.sample_rate"),
			TargetLUFS:           viper.GetFloat64("audio.target_lufs"),
			PreviewSeconds:       viper.GetFloat64("audio.preview_seconds"),
			PreviewOffsetSeconds: viper.GetFloat64("audio.preview_offset_seconds"),
			CrossfadeSeconds:     viper.GetFloat64("audio.crossfade_seconds"),
			MusicFadeSeconds:     viper.GetFloat64("audio.music_fade_seconds"),
		},
	}

	return cfg, nil
}
