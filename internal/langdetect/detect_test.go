package langdetect

import (
	"context"
	"testing"

	"transcription-core/internal/decoder"
	fakedecoder "transcription-core/internal/decoder/fake"
)

func buffer(seconds float64) decoder.AudioBuffer {
	n := int(seconds * 16000)
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.2
	}
	return decoder.AudioBuffer{Samples: samples, SampleRate: 16000}
}

func TestDetectHighConfidenceEnglish(t *testing.T) {
	dec := fakedecoder.New(decoder.ModelInfo{ModelSize: "test"})

	result, err := Detect(context.Background(), dec, buffer(30), Config{Threshold: 0.5, Segments: 10})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.Language != "en" {
		t.Errorf("Language = %q, want en", result.Language)
	}
	if result.Probability < 0.5 {
		t.Errorf("Probability = %v, want >= 0.5", result.Probability)
	}
}

func TestDetectLowConfidenceFallsBackToEnglishZeroProbability(t *testing.T) {
	dec := fakedecoder.New(decoder.ModelInfo{ModelSize: "test"})
	dec.ProbeFn = func(_ context.Context, _ decoder.AudioBuffer, _ decoder.Options) ([]decoder.LanguageProbability, error) {
		return []decoder.LanguageProbability{
			{Language: "en", Probability: 0.2},
			{Language: "es", Probability: 0.15},
		}, nil
	}

	result, err := Detect(context.Background(), dec, buffer(10), Config{Threshold: 0.5, Segments: 10})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.Language != "en" || result.Probability != 0.0 {
		t.Errorf("got %+v, want {en 0.0 ...}", result)
	}
}

func TestDetectStopsEarlyOnHighConfidence(t *testing.T) {
	dec := fakedecoder.New(decoder.ModelInfo{ModelSize: "test"})
	calls := 0
	dec.ProbeFn = func(_ context.Context, _ decoder.AudioBuffer, _ decoder.Options) ([]decoder.LanguageProbability, error) {
		calls++
		return []decoder.LanguageProbability{
			{Language: "es", Probability: 0.95},
		}, nil
	}

	// 100 seconds would be 10 full windows; high confidence should stop well before that.
	_, err := Detect(context.Background(), dec, buffer(100), Config{Threshold: 0.5, Segments: 10})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if calls >= 10 {
		t.Errorf("expected early stop, but scanned all %d windows", calls)
	}
}

func TestDetectSilenceFallsBackToEnglish(t *testing.T) {
	dec := fakedecoder.New(decoder.ModelInfo{ModelSize: "test"})
	silence := decoder.AudioBuffer{Samples: make([]float32, 16000*5), SampleRate: 16000}

	result, err := Detect(context.Background(), dec, silence, Config{Threshold: 0.5, Segments: 10})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.Language != "en" || result.Probability != 0.0 {
		t.Errorf("got %+v, want {en 0.0 ...}", result)
	}
}
