package transcribe

import (
	"context"
	"errors"
	"strings"
	"time"

	"transcription-core/internal/admission"
	"transcription-core/internal/audio"
	"transcription-core/internal/decoder"
	"transcription-core/internal/langdetect"
	"transcription-core/internal/logging"
	"transcription-core/internal/metrics"
)

// temperatureFallbackChain is the fixed escalation order of §4.1.
var temperatureFallbackChain = []float64{0.0, 0.2, 0.4, 0.6, 0.8, 1.0}

// englishBiasThreshold below this confidence an "en" detection result is
// not trusted enough to lock the decoder to English (§4.1 English-bias guard).
const englishBiasThreshold = 0.65

// DecodeOptions carries the fixed decoder search/gating parameters (§4.1, §6)
// that apply to every decode attempt regardless of temperature.
type DecodeOptions struct {
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

// Service orchestrates admission control, language detection, temperature
// fallback decoding, and response shaping for one decoder.
type Service struct {
	Decoder     decoder.Decoder
	Gate        *admission.Gate
	DecodeOpts  DecodeOptions
	LangDetect  langdetect.Config
	Metrics     *metrics.Metrics
	OnCompleted func(ctx context.Context, requestID string, resp Response)
}

// NewService wires the admission gate's accept/shed hooks into m, so that
// AdmissionInFlight, AdmissionWaiting, RequestsAccepted, and RequestsShed
// are refreshed on every accept and shed without the HTTP layer having to
// know about the gate.
func NewService(dec decoder.Decoder, gate *admission.Gate, decodeOpts DecodeOptions, langDetect langdetect.Config, m *metrics.Metrics) *Service {
	if m != nil {
		gate.OnAccept(func() {
			m.RequestsAccepted.Inc()
			m.AdmissionInFlight.Set(float64(gate.InFlight()))
			m.AdmissionWaiting.Set(float64(gate.Waiting()))
		})
		gate.OnShed(func(reason string) {
			m.RecordShed(reason)
			m.AdmissionWaiting.Set(float64(gate.Waiting()))
		})
	}
	return &Service{
		Decoder:    dec,
		Gate:       gate,
		DecodeOpts: decodeOpts,
		LangDetect: langDetect,
		Metrics:    m,
	}
}

// Transcribe runs the full §4.1 pipeline for one request: admission,
// resampling, language detection (when the caller did not supply a
// language), temperature-fallback decoding, and response shaping.
//
// The returned *admission.ErrShed (via errors.As) signals that the request
// was shed under admission pressure and should be surfaced as HTTP 503.
func (s *Service) Transcribe(ctx context.Context, requestID string, buf decoder.AudioBuffer, req Request) (Response, error) {
	release, err := s.Gate.Acquire()
	if err != nil {
		var shed *admission.ErrShed
		if errors.As(err, &shed) {
			return Response{}, shed
		}
		return Response{}, err
	}
	defer func() {
		release()
		if s.Metrics != nil {
			s.Metrics.AdmissionInFlight.Set(float64(s.Gate.InFlight()))
		}
	}()

	log := logging.WithRequest(requestID)

	resampled := audio.Resample16kMono(buf)

	language := req.Language
	languageProbability := 0.0
	languageHint := req.Language

	if language == "" {
		result, err := langdetect.Detect(ctx, s.Decoder, resampled, s.LangDetect)
		if err != nil {
			return Response{}, err
		}
		language, languageProbability, languageHint = applyEnglishBiasGuard(result)
		if language == "unknown" && s.Metrics != nil {
			s.Metrics.LanguageUnknown.Inc()
		}
	}

	segments, outcome, err := s.decodeWithFallback(ctx, resampled, req, languageHint)
	if err != nil {
		return Response{}, err
	}

	log.Debug().Str("outcome", outcome).Int("segments", len(segments)).Msg("decode complete")

	resp := shapeResponse(segments, language, languageProbability)

	if s.OnCompleted != nil {
		s.OnCompleted(ctx, requestID, resp)
	}

	return resp, nil
}

// applyEnglishBiasGuard implements the §4.1 guard: an "en" detection below
// englishBiasThreshold is not trusted enough to lock the decoder, and the
// response reports the unknown sentinel instead. Only fires on a real
// detection (probability > 0); the langdetect failure/silence sentinel
// ("en", 0.0) passes through unchanged so pure-silence input still reports
// language="en" per §8, rather than being rewritten to "unknown".
func applyEnglishBiasGuard(result langdetect.Result) (language string, probability float64, decoderHint string) {
	if result.Probability > 0 && result.Language == "en" && result.Probability < englishBiasThreshold {
		return "unknown", 0.0, ""
	}
	return result.Language, result.Probability, result.Language
}

// decodeWithFallback walks the temperature chain (or decodes once at the
// requested temperature), classifying each attempt as silence,
// hallucination, or accepted per §4.1.
func (s *Service) decodeWithFallback(ctx context.Context, buf decoder.AudioBuffer, req Request, languageHint string) ([]decoder.Segment, string, error) {
	temps := []float64{req.Temperature}
	if s.DecodeOpts.UseTemperatureFallback {
		temps = temperatureFallbackChain
	}

	var lastSegments []decoder.Segment
	var lastOutcome string

	for _, temp := range temps {
		opts := decoder.Options{
			Language:                 languageHint,
			Task:                     req.Task,
			Prompt:                   req.Prompt,
			Temperature:              temp,
			BeamSize:                 s.DecodeOpts.BeamSize,
			BestOf:                   s.DecodeOpts.BestOf,
			CompressionRatioThresh:   s.DecodeOpts.CompressionRatioThresh,
			LogProbThreshold:         s.DecodeOpts.LogProbThreshold,
			NoSpeechThreshold:        s.DecodeOpts.NoSpeechThreshold,
			ConditionOnPreviousText:  s.DecodeOpts.ConditionOnPreviousText,
			PromptResetOnTemperature: s.DecodeOpts.PromptResetOnTemperature,
			VADFilter:                s.DecodeOpts.VADFilter,
			VADFilterThreshold:       s.DecodeOpts.VADFilterThreshold,
			VADMinSilenceDurationMs:  s.DecodeOpts.VADMinSilenceDurationMs,
		}

		start := time.Now()
		segments, err := s.Decoder.Decode(ctx, buf, opts)
		if err != nil {
			return nil, "", err
		}

		outcome := classify(segments, s.DecodeOpts.CompressionRatioThresh, s.DecodeOpts.LogProbThreshold, s.DecodeOpts.NoSpeechThreshold)
		if s.Metrics != nil {
			s.Metrics.RecordDecode(outcome, time.Since(start).Seconds())
		}

		lastSegments, lastOutcome = segments, outcome

		if outcome == "silence" {
			return nil, outcome, nil
		}
		if outcome == "accepted" {
			return segments, outcome, nil
		}
		// hallucinated: try the next temperature.
	}

	// All temperatures rejected: emit the last attempt anyway (§4.1).
	return lastSegments, lastOutcome, nil
}

// classify implements the §4.1 silence/hallucination/accepted classification.
func classify(segments []decoder.Segment, compressionRatioThresh, logProbThresh, noSpeechThresh float64) string {
	if len(segments) == 0 {
		return "silence"
	}

	allSilent := true
	anyHallucinated := false
	for _, seg := range segments {
		if !(seg.NoSpeechProb > noSpeechThresh && seg.AvgLogProb < logProbThresh) {
			allSilent = false
		}
		if seg.CompressionRatio > compressionRatioThresh || seg.AvgLogProb < logProbThresh {
			anyHallucinated = true
		}
	}
	if allSilent {
		return "silence"
	}
	if anyHallucinated {
		return "hallucinated"
	}
	return "accepted"
}

// shapeResponse assigns dense sequential ids, computes duration, and joins
// segment text per §4.1 Response shaping.
func shapeResponse(segments []decoder.Segment, language string, languageProbability float64) Response {
	if len(segments) == 0 {
		return Response{
			Text:                "",
			Language:            language,
			LanguageProbability: languageProbability,
			Duration:            0,
			Segments:            []Segment{},
		}
	}

	out := make([]Segment, len(segments))
	texts := make([]string, len(segments))
	for i, seg := range segments {
		noSpeech := seg.NoSpeechProb
		if noSpeech < 0 {
			noSpeech = 0
		}
		if noSpeech > 1 {
			noSpeech = 1
		}
		out[i] = Segment{
			ID:               i,
			Seek:             0,
			Start:            seg.Start,
			End:              seg.End,
			Text:             strings.TrimSpace(seg.Text),
			Tokens:           []int{},
			Temperature:      seg.Temperature,
			AvgLogprob:       seg.AvgLogProb,
			CompressionRatio: seg.CompressionRatio,
			NoSpeechProb:     noSpeech,
			AudioStart:       seg.Start,
			AudioEnd:         seg.End,
		}
		texts[i] = out[i].Text
	}

	return Response{
		Text:                strings.TrimSpace(strings.Join(texts, " ")),
		Language:            language,
		LanguageProbability: languageProbability,
		Duration:            out[len(out)-1].End,
		Segments:            out,
	}
}
