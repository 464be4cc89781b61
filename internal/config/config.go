// Package config loads service configuration from the environment, optionally
// overlaid on a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

// Config is the full service configuration.
type Config struct {
	Service       ServiceConfig       `toml:"service"`
	Editor        EditorConfig        `toml:"editor"`
	TTS           TTSConfig           `toml:"tts"`
	AI            AIConfig            `toml:"ai"`
	Store         StoreConfig         `toml:"store"`
	Kafka         KafkaConfig         `toml:"kafka"`
	Observability ObservabilityConfig `toml:"observability"`
}

// ServiceConfig identifies the service and its listeners.
type ServiceConfig struct {
	Principal string `toml:"principal"`
	GRPCPort  string `toml:"grpc_port"`
	HTTPPort  string `toml:"http_port"`
}

// EditorConfig holds document defaults.
type EditorConfig struct {
	PageSize          int    `toml:"page_size"`
	AnimationCycleMs  int    `toml:"animation_cycle_ms"`
	Language          string `toml:"language"`
	DefaultVoiceID    string `toml:"default_voice_id"`
	DefaultVoiceName  string `toml:"default_voice_name"`
	DiscardStale      bool   `toml:"discard_stale"`
	RenderConcurrency int    `toml:"render_concurrency"`
}

// AnimationCycle is the delay before AI-touched blocks lose their animation flag.
func (e EditorConfig) AnimationCycle() time.Duration {
	return time.Duration(e.AnimationCycleMs) * time.Millisecond
}

// TTSConfig selects and configures the speech synthesis provider.
type TTSConfig struct {
	Provider       string `toml:"provider"` // mock, elevenlabs, google
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	ModelID        string `toml:"model_id"`
	OutputFormat   string `toml:"output_format"`
	AudioEncoding  string `toml:"audio_encoding"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the provider request timeout.
func (t TTSConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// AIConfig configures the chat-completion collaborator.
type AIConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// StoreConfig locates the script database.
type StoreConfig struct {
	Path string `toml:"path"`
}

// KafkaConfig configures the document event publisher.
type KafkaConfig struct {
	Enabled     bool     `toml:"enabled"`
	Brokers     []string `toml:"brokers"`
	TopicEdited string   `toml:"topic_edited"`
	TopicSaved  string   `toml:"topic_saved"`
	Principal   string   `toml:"principal"`
}

// ObservabilityConfig configures logging and the metrics listener.
type ObservabilityConfig struct {
	LogLevel    string `toml:"log_level"`
	LogFormat   string `toml:"log_format"`
	MetricsPort string `toml:"metrics_port"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Principal: "svc-script-editor",
			GRPCPort:  "50051",
			HTTPPort:  "8080",
		},
		Editor: EditorConfig{
			PageSize:          10,
			AnimationCycleMs:  1000,
			Language:          "en-US",
			DiscardStale:      true,
			RenderConcurrency: 4,
		},
		TTS: TTSConfig{
			Provider:       "mock",
			ModelID:        "eleven_multilingual_v2",
			OutputFormat:   "mp3_44100_128",
			AudioEncoding:  "MP3",
			TimeoutSeconds: 60,
		},
		AI: AIConfig{
			BaseURL:        "https://openrouter.ai/api/v1/chat/completions",
			Model:          "google/gemini-2.5-flash-lite",
			TimeoutSeconds: 60,
		},
		Store: StoreConfig{
			Path: "data/scripts.db",
		},
		Kafka: KafkaConfig{
			Brokers:     []string{"localhost:9092"},
			TopicEdited: "script.document.edited",
			TopicSaved:  "script.document.saved",
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPort: "9090",
		},
	}
}

// Load builds the configuration: defaults, then the TOML file named by
// CONFIG_FILE, then environment variables. Variables from the dotenv file
// named by ENV_FILE (default .env) fill in the environment without
// overriding it. Unparseable values keep the previous layer's value.
func Load() *Config {
	LoadDotEnv(envOrDefault("ENV_FILE", ".env"))
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.MergeFile(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Ignoring config file")
		}
	}
	cfg.applyEnv()
	return cfg
}

// LoadDotEnv exports variables from a dotenv file that are not already set.
// A missing file is not an error.
func LoadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("Ignoring env file")
		}
		return
	}
	log.Info().Str("path", path).Msg("Loaded environment variables from env file")
}

// MergeFile overlays values present in a TOML file onto cfg.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Service.Principal = envOrDefault("SERVICE_PRINCIPAL", c.Service.Principal)
	c.Service.GRPCPort = envOrDefault("GRPC_PORT", c.Service.GRPCPort)
	c.Service.HTTPPort = envOrDefault("HTTP_PORT", c.Service.HTTPPort)

	c.Editor.PageSize = envOrDefaultInt("EDITOR_PAGE_SIZE", c.Editor.PageSize)
	c.Editor.AnimationCycleMs = envOrDefaultInt("EDITOR_ANIMATION_CYCLE_MS", c.Editor.AnimationCycleMs)
	c.Editor.Language = envOrDefault("EDITOR_LANGUAGE", c.Editor.Language)
	c.Editor.DefaultVoiceID = envOrDefault("EDITOR_DEFAULT_VOICE_ID", c.Editor.DefaultVoiceID)
	c.Editor.DefaultVoiceName = envOrDefault("EDITOR_DEFAULT_VOICE_NAME", c.Editor.DefaultVoiceName)
	c.Editor.DiscardStale = envOrDefaultBool("EDITOR_DISCARD_STALE", c.Editor.DiscardStale)
	c.Editor.RenderConcurrency = envOrDefaultInt("EDITOR_RENDER_CONCURRENCY", c.Editor.RenderConcurrency)

	c.TTS.Provider = strings.ToLower(envOrDefault("TTS_PROVIDER", c.TTS.Provider))
	c.TTS.APIKey = envOrDefault("TTS_API_KEY", c.TTS.APIKey)
	c.TTS.BaseURL = envOrDefault("TTS_BASE_URL", c.TTS.BaseURL)
	c.TTS.ModelID = envOrDefault("TTS_MODEL_ID", c.TTS.ModelID)
	c.TTS.OutputFormat = envOrDefault("TTS_OUTPUT_FORMAT", c.TTS.OutputFormat)
	c.TTS.AudioEncoding = envOrDefault("TTS_AUDIO_ENCODING", c.TTS.AudioEncoding)
	c.TTS.TimeoutSeconds = envOrDefaultInt("TTS_TIMEOUT_SECONDS", c.TTS.TimeoutSeconds)

	c.AI.APIKey = envOrDefault("AI_API_KEY", c.AI.APIKey)
	c.AI.BaseURL = envOrDefault("AI_BASE_URL", c.AI.BaseURL)
	c.AI.Model = envOrDefault("AI_MODEL", c.AI.Model)
	c.AI.TimeoutSeconds = envOrDefaultInt("AI_TIMEOUT_SECONDS", c.AI.TimeoutSeconds)

	c.Store.Path = envOrDefault("STORE_PATH", c.Store.Path)

	c.Kafka.Enabled = envOrDefaultBool("KAFKA_ENABLED", c.Kafka.Enabled)
	c.Kafka.Brokers = envOrDefaultList("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.TopicEdited = envOrDefault("KAFKA_TOPIC_EDITED", c.Kafka.TopicEdited)
	c.Kafka.TopicSaved = envOrDefault("KAFKA_TOPIC_SAVED", c.Kafka.TopicSaved)
	c.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", c.Kafka.Principal)
	if c.Kafka.Principal == "" {
		c.Kafka.Principal = c.Service.Principal
	}

	c.Observability.LogLevel = envOrDefault("LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.LogFormat = envOrDefault("LOG_FORMAT", c.Observability.LogFormat)
	c.Observability.MetricsPort = envOrDefault("METRICS_PORT", c.Observability.MetricsPort)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
