// Package config handles loading and validating the pcast configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the root configuration for pcast.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	Generation GenerationConfig `mapstructure:"generation"`
	TTS        TTSConfig        `mapstructure:"tts"`
	Audio      AudioConfig      `mapstructure:"audio"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Podcast    PodcastDefaults  `mapstructure:"podcast"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each network surface.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
	MQTT MQTTConfig `mapstructure:"mqtt"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"` // base topic; requests arrive on <topic>/requests
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// GenerationConfig selects and configures the script text backend.
type GenerationConfig struct {
	Backend string        `mapstructure:"backend"` // "gemini", "openai" or "local"
	Timeout time.Duration `mapstructure:"timeout"`
	Gemini  GeminiConfig  `mapstructure:"gemini"`
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Local   LocalConfig   `mapstructure:"local"`
}

// GeminiConfig holds Gemini API settings shared by the text and speech backends.
type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"` // speech REST endpoint root
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// LocalConfig holds self-hosted LLM settings (Ollama /api/generate).
type LocalConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// TTSConfig selects and configures the text-to-speech backend and the
// per-turn synthesis policy.
type TTSConfig struct {
	Backend     string        `mapstructure:"backend"` // "gemini" or "piper"
	Timeout     time.Duration `mapstructure:"timeout"` // per attempt
	MaxRetries  int           `mapstructure:"max_retries"`
	Backoff     time.Duration `mapstructure:"backoff"`
	Concurrency int           `mapstructure:"concurrency"`
	Gemini      GeminiConfig  `mapstructure:"gemini"`
	Piper       PiperConfig   `mapstructure:"piper"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// Voices maps a pcast voice id (e.g., "kore") or a language tag (e.g.,
// "fil-PH") to a Piper voice model name. Voice ids take precedence.
type PiperConfig struct {
	Endpoint string            `mapstructure:"endpoint"` // Wyoming TCP endpoint (host:port)
	Voices   map[string]string `mapstructure:"voices"`
}

// AudioConfig controls the assembled output format.
type AudioConfig struct {
	SampleRate int           `mapstructure:"sample_rate"`
	Gap        time.Duration `mapstructure:"gap"`
}

// StorageConfig selects where artifacts are written.
type StorageConfig struct {
	Backend string             `mapstructure:"backend"` // "local", "minio" or "none"
	Local   LocalStorageConfig `mapstructure:"local"`
	MinIO   MinIOConfig        `mapstructure:"minio"`
}

// LocalStorageConfig configures the filesystem store.
type LocalStorageConfig struct {
	Dir string `mapstructure:"dir"`
}

// MinIOConfig configures the S3-compatible object store.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// PodcastDefaults holds the podcast options used by one-shot CLI runs.
type PodcastDefaults struct {
	SpeakerA string `mapstructure:"speaker_a"`
	SpeakerB string `mapstructure:"speaker_b"`
	VoiceA   string `mapstructure:"voice_a"`
	VoiceB   string `mapstructure:"voice_b"`
	Language string `mapstructure:"language"`
	Accent   string `mapstructure:"accent"`
	Duration string `mapstructure:"duration"`
	Topic    string `mapstructure:"topic"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"topic":     "podcast.topic",
	"speaker-a": "podcast.speaker_a",
	"speaker-b": "podcast.speaker_b",
	"voice-a":   "podcast.voice_a",
	"voice-b":   "podcast.voice_b",
	"language":  "podcast.language",
	"accent":    "podcast.accent",
	"duration":  "podcast.duration",
	"output":    "storage.local.dir",
	"log-level": "logging.level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.mqtt.enabled", false)
	v.SetDefault("transports.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("transports.mqtt.topic", "pcast")
	v.SetDefault("transports.mqtt.client_id", "pcast")
	v.SetDefault("transports.mqtt.username", "")
	v.SetDefault("transports.mqtt.password", "${MQTT_PASSWORD}")
	v.SetDefault("generation.backend", "gemini")
	v.SetDefault("generation.timeout", 2*time.Minute)
	v.SetDefault("generation.gemini.api_key", "${GEMINI_API_KEY}")
	v.SetDefault("generation.gemini.model", "gemini-2.5-flash")
	v.SetDefault("generation.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("generation.openai.model", "gpt-4o")
	v.SetDefault("generation.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("generation.local.endpoint", "http://localhost:11434/api/generate")
	v.SetDefault("generation.local.model", "llama3")
	v.SetDefault("tts.backend", "gemini")
	v.SetDefault("tts.timeout", time.Minute)
	v.SetDefault("tts.max_retries", 2)
	v.SetDefault("tts.backoff", 2*time.Second)
	v.SetDefault("tts.concurrency", 4)
	v.SetDefault("tts.gemini.api_key", "${GEMINI_API_KEY}")
	v.SetDefault("tts.gemini.model", "gemini-2.5-flash-preview-tts")
	v.SetDefault("tts.gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("audio.sample_rate", 24000)
	v.SetDefault("audio.gap", 400*time.Millisecond)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local.dir", "generated_podcasts")
	v.SetDefault("storage.minio.endpoint", "localhost:9000")
	v.SetDefault("storage.minio.access_key", "${MINIO_ACCESS_KEY}")
	v.SetDefault("storage.minio.secret_key", "${MINIO_SECRET_KEY}")
	v.SetDefault("storage.minio.bucket", "podcasts")
	v.SetDefault("storage.minio.prefix", "")
	v.SetDefault("storage.minio.use_ssl", false)
	v.SetDefault("podcast.speaker_a", "Host 1")
	v.SetDefault("podcast.speaker_b", "Host 2")
	v.SetDefault("podcast.voice_a", "male")
	v.SetDefault("podcast.voice_b", "female")
	v.SetDefault("podcast.language", "english")
	v.SetDefault("podcast.accent", "neutral")
	v.SetDefault("podcast.duration", "short")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Load reads the configuration from file, environment variables, CLI flags
// and defaults. If configFile is non-empty it is used directly; otherwise the
// standard search order applies: ./pcast.yaml, ./configs/pcast.yaml,
// /etc/pcast/pcast.yaml. flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	// A .env file is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("pcast")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/pcast")
	}

	// Environment variables: PCAST_TTS_BACKEND, PCAST_AUDIO_SAMPLE_RATE, etc.
	v.SetEnvPrefix("PCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${GEMINI_API_KEY}").
	cfg.Generation.Gemini.APIKey = resolveEnvRef(cfg.Generation.Gemini.APIKey)
	cfg.Generation.OpenAI.APIKey = resolveEnvRef(cfg.Generation.OpenAI.APIKey)
	cfg.TTS.Gemini.APIKey = resolveEnvRef(cfg.TTS.Gemini.APIKey)
	cfg.Storage.MinIO.AccessKey = resolveEnvRef(cfg.Storage.MinIO.AccessKey)
	cfg.Storage.MinIO.SecretKey = resolveEnvRef(cfg.Storage.MinIO.SecretKey)
	cfg.Transports.MQTT.Password = resolveEnvRef(cfg.Transports.MQTT.Password)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.Generation.Backend {
	case "gemini", "openai", "local":
	default:
		errs = append(errs, fmt.Errorf("unknown generation backend %q", c.Generation.Backend))
	}
	switch c.TTS.Backend {
	case "gemini", "piper":
	default:
		errs = append(errs, fmt.Errorf("unknown tts backend %q", c.TTS.Backend))
	}
	switch c.Storage.Backend {
	case "local", "minio", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.TTS.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("tts.concurrency must be at least 1, got %d", c.TTS.Concurrency))
	}
	if c.TTS.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("tts.max_retries must not be negative, got %d", c.TTS.MaxRetries))
	}
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	if c.Audio.Gap < 0 {
		errs = append(errs, fmt.Errorf("audio.gap must not be negative, got %s", c.Audio.Gap))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var
// value. Unset variables resolve to the empty string.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
