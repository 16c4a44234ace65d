package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"LISTEN_ADDR", "MODEL_SIZE", "DEVICE", "MAX_CONCURRENT_TRANSCRIPTIONS",
		"MAX_QUEUE_SIZE", "FAIL_FAST_WHEN_BUSY", "BUSY_RETRY_AFTER_S", "API_TOKEN",
		"USE_TEMPERATURE_FALLBACK", "LANGUAGE_DETECTION_THRESHOLD",
	} {
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.Server.ListenAddr != ":8000" {
		t.Errorf("ListenAddr = %q, want :8000", cfg.Server.ListenAddr)
	}
	if cfg.Decoder.ModelSize != "large-v3-turbo" {
		t.Errorf("ModelSize = %q, want large-v3-turbo", cfg.Decoder.ModelSize)
	}
	if cfg.Admission.MaxConcurrent != 2 {
		t.Errorf("MaxConcurrent = %d, want 2", cfg.Admission.MaxConcurrent)
	}
	if cfg.Admission.MaxQueue != 10 {
		t.Errorf("MaxQueue = %d, want 10", cfg.Admission.MaxQueue)
	}
	if !cfg.Admission.FailFastWhenBusy {
		t.Error("FailFastWhenBusy = false, want true")
	}
	if cfg.Admission.BusyRetryAfterS != 1 {
		t.Errorf("BusyRetryAfterS = %v, want 1", cfg.Admission.BusyRetryAfterS)
	}
	if cfg.Auth.APIToken != "" {
		t.Errorf("APIToken = %q, want empty", cfg.Auth.APIToken)
	}
	if cfg.Decoder.UseTemperatureFallback {
		t.Error("UseTemperatureFallback = true, want false")
	}
	if cfg.LanguageDet.Threshold != 0.5 {
		t.Errorf("LanguageDet.Threshold = %v, want 0.5", cfg.LanguageDet.Threshold)
	}
}

func TestLoadOverrides(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "admission overrides",
			env: map[string]string{
				"MAX_CONCURRENT_TRANSCRIPTIONS": "4",
				"MAX_QUEUE_SIZE":                "1",
				"FAIL_FAST_WHEN_BUSY":           "false",
				"BUSY_RETRY_AFTER_S":            "2.5",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Admission.MaxConcurrent != 4 {
					t.Errorf("MaxConcurrent = %d, want 4", cfg.Admission.MaxConcurrent)
				}
				if cfg.Admission.MaxQueue != 1 {
					t.Errorf("MaxQueue = %d, want 1", cfg.Admission.MaxQueue)
				}
				if cfg.Admission.FailFastWhenBusy {
					t.Error("FailFastWhenBusy = true, want false")
				}
				if cfg.Admission.BusyRetryAfterS != 2.5 {
					t.Errorf("BusyRetryAfterS = %v, want 2.5", cfg.Admission.BusyRetryAfterS)
				}
			},
		},
		{
			name: "decoder backend override",
			env: map[string]string{
				"DECODER_BACKEND": "whispercpp",
				"WHISPERCPP_URL":  "http://decoder.local/inference",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Decoder.Backend != "whispercpp" {
					t.Errorf("Backend = %q, want whispercpp", cfg.Decoder.Backend)
				}
				if cfg.Decoder.WhisperCppURL != "http://decoder.local/inference" {
					t.Errorf("WhisperCppURL = %q, want http://decoder.local/inference", cfg.Decoder.WhisperCppURL)
				}
			},
		},
		{
			name: "invalid numeric value falls back to default",
			env: map[string]string{
				"MAX_CONCURRENT_TRANSCRIPTIONS": "not-a-number",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Admission.MaxConcurrent != 2 {
					t.Errorf("MaxConcurrent = %d, want default 2 on parse failure", cfg.Admission.MaxConcurrent)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				os.Setenv(k, v)
				t.Cleanup(func() { os.Unsetenv(k) })
			}
			tt.check(t, Load())
		})
	}
}
