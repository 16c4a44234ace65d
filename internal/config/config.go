// Package config provides configuration loading from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration for the transcription server and
// the remote transcriber adapter.
type Config struct {
	Server        ServerConfig
	Decoder       DecoderConfig
	Admission     AdmissionConfig
	LanguageDet   LanguageDetectionConfig
	Auth          AuthConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
	Adapter       AdapterConfig
}

// ServerConfig holds HTTP listener settings for the transcription server.
type ServerConfig struct {
	ListenAddr string
}

// DecoderConfig describes the decoder identity and its decoding options (§4.1, §6).
type DecoderConfig struct {
	ModelSize                string
	Device                   string
	ComputeType              string
	CPUThreads               int
	Backend                  string // "fake" or "whispercpp"
	WhisperCppURL            string
	BeamSize                 int
	BestOf                   int
	CompressionRatioThresh   float64
	LogProbThreshold         float64
	NoSpeechThreshold        float64
	ConditionOnPreviousText  bool
	PromptResetOnTemperature float64
	VADFilter                bool
	VADFilterThreshold       float64
	VADMinSilenceDurationMs  int
	UseTemperatureFallback   bool
}

// AdmissionConfig holds §4.1/§6 admission-control knobs.
type AdmissionConfig struct {
	MaxConcurrent    int
	MaxQueue         int
	FailFastWhenBusy bool
	BusyRetryAfterS  float64
}

// LanguageDetectionConfig holds §4.1/§6 language-detection knobs.
type LanguageDetectionConfig struct {
	Threshold float64
	Segments  int
}

// AuthConfig holds the shared-secret token for the TS's auth check (§4.1, §6).
type AuthConfig struct {
	APIToken string
}

// KafkaConfig holds Kafka publisher configuration for finalized-transcript events.
type KafkaConfig struct {
	Enabled   bool
	Brokers   []string
	Topic     string
	Principal string
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	MetricsAddr    string
	MetricsEnabled bool
	LogLevel       string
	LogFormat      string
}

// AdapterConfig holds Remote Transcriber Adapter configuration (§6).
type AdapterConfig struct {
	URL         string
	APIKey      string
	Model       string
	Temperature float64
	VADModel    string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: envOrDefault("LISTEN_ADDR", ":8000"),
		},
		Decoder: DecoderConfig{
			ModelSize:                envOrDefault("MODEL_SIZE", "large-v3-turbo"),
			Device:                   envOrDefault("DEVICE", "cuda"),
			ComputeType:              envOrDefault("COMPUTE_TYPE", "int8"),
			CPUThreads:               envOrDefaultInt("CPU_THREADS", 0),
			Backend:                  envOrDefault("DECODER_BACKEND", "fake"),
			WhisperCppURL:            envOrDefault("WHISPERCPP_URL", "http://localhost:8088/inference"),
			BeamSize:                 envOrDefaultInt("BEAM_SIZE", 5),
			BestOf:                   envOrDefaultInt("BEST_OF", 5),
			CompressionRatioThresh:   envOrDefaultFloat("COMPRESSION_RATIO_THRESHOLD", 2.4),
			LogProbThreshold:         envOrDefaultFloat("LOG_PROB_THRESHOLD", -1.0),
			NoSpeechThreshold:        envOrDefaultFloat("NO_SPEECH_THRESHOLD", 0.6),
			ConditionOnPreviousText:  envOrDefaultBool("CONDITION_ON_PREVIOUS_TEXT", true),
			PromptResetOnTemperature: envOrDefaultFloat("PROMPT_RESET_ON_TEMPERATURE", 0.5),
			VADFilter:                envOrDefaultBool("VAD_FILTER", true),
			VADFilterThreshold:       envOrDefaultFloat("VAD_FILTER_THRESHOLD", 0.5),
			VADMinSilenceDurationMs:  envOrDefaultInt("VAD_MIN_SILENCE_DURATION_MS", 160),
			UseTemperatureFallback:   envOrDefaultBool("USE_TEMPERATURE_FALLBACK", false),
		},
		Admission: AdmissionConfig{
			MaxConcurrent:    envOrDefaultInt("MAX_CONCURRENT_TRANSCRIPTIONS", 2),
			MaxQueue:         envOrDefaultInt("MAX_QUEUE_SIZE", 10),
			FailFastWhenBusy: envOrDefaultBool("FAIL_FAST_WHEN_BUSY", true),
			BusyRetryAfterS:  envOrDefaultFloat("BUSY_RETRY_AFTER_S", 1),
		},
		LanguageDet: LanguageDetectionConfig{
			Threshold: envOrDefaultFloat("LANGUAGE_DETECTION_THRESHOLD", 0.5),
			Segments:  envOrDefaultInt("LANGUAGE_DETECTION_SEGMENTS", 10),
		},
		Auth: AuthConfig{
			APIToken: envOrDefault("API_TOKEN", ""),
		},
		Kafka: KafkaConfig{
			Enabled:   envOrDefault("KAFKA_ENABLED", "false") == "true",
			Brokers:   strings.Split(envOrDefault("KAFKA_BROKERS", "localhost:9092"), ","),
			Topic:     envOrDefault("KAFKA_TOPIC_COMPLETED", "transcription.completed"),
			Principal: envOrDefault("KAFKA_PRINCIPAL", "svc-transcription-server"),
		},
		Observability: ObservabilityConfig{
			MetricsAddr:    envOrDefault("METRICS_ADDR", ":9090"),
			MetricsEnabled: envOrDefault("METRICS_ENABLED", "true") == "true",
			LogLevel:       envOrDefault("LOG_LEVEL", "info"),
			LogFormat:      envOrDefault("LOG_FORMAT", "json"),
		},
		Adapter: AdapterConfig{
			URL:         envOrDefault("REMOTE_TRANSCRIBER_URL", ""),
			APIKey:      envOrDefault("REMOTE_TRANSCRIBER_API_KEY", ""),
			Model:       envOrDefault("REMOTE_TRANSCRIBER_MODEL", "default"),
			Temperature: envOrDefaultFloat("REMOTE_TRANSCRIBER_TEMPERATURE", 0),
			VADModel:    envOrDefault("REMOTE_TRANSCRIBER_VAD_MODEL", ""),
		},
	}
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

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
