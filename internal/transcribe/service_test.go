package transcribe

import (
	"context"
	"testing"

	"transcription-core/internal/admission"
	"transcription-core/internal/decoder"
	fakedecoder "transcription-core/internal/decoder/fake"
	"transcription-core/internal/langdetect"
)

func loudBuffer(seconds float64) decoder.AudioBuffer {
	n := int(seconds * 16000)
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.3
	}
	return decoder.AudioBuffer{Samples: samples, SampleRate: 16000}
}

func newTestService(dec decoder.Decoder) *Service {
	gate := admission.New(admission.Config{MaxConcurrent: 2, MaxQueue: 10, FailFastWhenBusy: true, BusyRetryAfterS: 1})
	return &Service{
		Decoder: dec,
		Gate:    gate,
		DecodeOpts: DecodeOptions{
			CompressionRatioThresh: 2.4,
			LogProbThreshold:       -1.0,
			NoSpeechThreshold:      0.6,
			UseTemperatureFallback: true,
		},
		LangDetect: langdetect.Config{Threshold: 0.5, Segments: 10},
	}
}

func TestTranscribeAcceptedOnFirstTemperature(t *testing.T) {
	dec := fakedecoder.New(decoder.ModelInfo{ModelSize: "test"})
	svc := newTestService(dec)

	resp, err := svc.Transcribe(context.Background(), "req-1", loudBuffer(2), Request{Language: "en"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(resp.Segments) != 1 {
		t.Fatalf("Segments = %d, want 1", len(resp.Segments))
	}
	if resp.Segments[0].ID != 0 {
		t.Errorf("Segment ID = %d, want 0", resp.Segments[0].ID)
	}
	if resp.Duration != resp.Segments[len(resp.Segments)-1].End {
		t.Errorf("Duration %v != last segment end %v", resp.Duration, resp.Segments[len(resp.Segments)-1].End)
	}
}

func TestTranscribeSilenceReturnsEmptyResponse(t *testing.T) {
	dec := fakedecoder.New(decoder.ModelInfo{ModelSize: "test"})
	svc := newTestService(dec)

	silence := decoder.AudioBuffer{Samples: make([]float32, 16000*2), SampleRate: 16000}
	resp, err := svc.Transcribe(context.Background(), "req-2", silence, Request{Language: "en"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Text != "" || len(resp.Segments) != 0 || resp.Duration != 0 {
		t.Errorf("want empty response for silence, got %+v", resp)
	}
}

func TestTranscribeHallucinationFallsBackThroughTemperatures(t *testing.T) {
	dec := fakedecoder.New(decoder.ModelInfo{ModelSize: "test"})
	var seenTemps []float64
	dec.DecodeFn = func(_ context.Context, _ decoder.AudioBuffer, opts decoder.Options) ([]decoder.Segment, error) {
		seenTemps = append(seenTemps, opts.Temperature)
		if opts.Temperature < 0.6 {
			// Hallucinated: compression ratio over threshold.
			return []decoder.Segment{{ID: 0, Start: 0, End: 1, Text: "x", AvgLogProb: -0.2, CompressionRatio: 3.0, NoSpeechProb: 0.05, Temperature: opts.Temperature}}, nil
		}
		return []decoder.Segment{{ID: 0, Start: 0, End: 1, Text: "clean text", AvgLogProb: -0.2, CompressionRatio: 1.1, NoSpeechProb: 0.05, Temperature: opts.Temperature}}, nil
	}
	svc := newTestService(dec)

	resp, err := svc.Transcribe(context.Background(), "req-3", loudBuffer(1), Request{Language: "en"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Text != "clean text" {
		t.Errorf("Text = %q, want clean text", resp.Text)
	}
	if seenTemps[0] != 0.0 || seenTemps[len(seenTemps)-1] != 0.6 {
		t.Errorf("expected the chain to climb to 0.6, got %v", seenTemps)
	}
}

func TestTranscribeAllTemperaturesRejectedReturnsLastAttempt(t *testing.T) {
	dec := fakedecoder.New(decoder.ModelInfo{ModelSize: "test"})
	dec.DecodeFn = func(_ context.Context, _ decoder.AudioBuffer, opts decoder.Options) ([]decoder.Segment, error) {
		return []decoder.Segment{{ID: 0, Start: 0, End: 1, Text: "garbled", AvgLogProb: -0.2, CompressionRatio: 9.0, NoSpeechProb: 0.05, Temperature: opts.Temperature}}, nil
	}
	svc := newTestService(dec)

	resp, err := svc.Transcribe(context.Background(), "req-4", loudBuffer(1), Request{Language: "en"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Text != "garbled" {
		t.Errorf("expected the last attempt to be forwarded, got %q", resp.Text)
	}
	if resp.Segments[0].Temperature != 1.0 {
		t.Errorf("last attempt should be at the final temperature 1.0, got %v", resp.Segments[0].Temperature)
	}
}

func TestTranscribeEnglishBiasGuardReportsUnknown(t *testing.T) {
	dec := fakedecoder.New(decoder.ModelInfo{ModelSize: "test"})
	dec.ProbeFn = func(_ context.Context, _ decoder.AudioBuffer, _ decoder.Options) ([]decoder.LanguageProbability, error) {
		return []decoder.LanguageProbability{{Language: "en", Probability: 0.60}}, nil
	}
	var decodedLanguageHint string
	dec.DecodeFn = func(_ context.Context, _ decoder.AudioBuffer, opts decoder.Options) ([]decoder.Segment, error) {
		decodedLanguageHint = opts.Language
		return []decoder.Segment{{ID: 0, Start: 0, End: 1, Text: "hello", AvgLogProb: -0.2, CompressionRatio: 1.1, NoSpeechProb: 0.05}}, nil
	}
	svc := newTestService(dec)

	resp, err := svc.Transcribe(context.Background(), "req-5", loudBuffer(10), Request{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Language != "unknown" || resp.LanguageProbability != 0.0 {
		t.Errorf("want language=unknown probability=0.0, got %q %v", resp.Language, resp.LanguageProbability)
	}
	if decodedLanguageHint != "" {
		t.Errorf("decoder should not be locked to English, got hint %q", decodedLanguageHint)
	}
}

func TestTranscribeShedUnderAdmissionPressure(t *testing.T) {
	dec := fakedecoder.New(decoder.ModelInfo{ModelSize: "test"})
	gate := admission.New(admission.Config{MaxConcurrent: 1, MaxQueue: 1, FailFastWhenBusy: true, BusyRetryAfterS: 1})
	svc := &Service{
		Decoder:    dec,
		Gate:       gate,
		DecodeOpts: DecodeOptions{CompressionRatioThresh: 2.4, LogProbThreshold: -1.0, NoSpeechThreshold: 0.6},
		LangDetect: langdetect.Config{Threshold: 0.5, Segments: 10},
	}

	release, err := gate.Acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	_, err = svc.Transcribe(context.Background(), "req-6", loudBuffer(1), Request{Language: "en"})
	shed, ok := err.(*admission.ErrShed)
	if !ok {
		t.Fatalf("want *admission.ErrShed, got %v", err)
	}
	if shed.RetryAfterSeconds != 1 {
		t.Errorf("RetryAfterSeconds = %v, want 1", shed.RetryAfterSeconds)
	}
}
