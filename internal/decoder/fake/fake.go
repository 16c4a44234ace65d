// Package fake provides an in-memory deterministic decoder for tests and
// for local operation without a real speech model, in the spirit of the
// teacher's mock STT adapter's canned-response design.
package fake

import (
	"context"
	"math"

	"transcription-core/internal/decoder"
)

// silenceRMSThreshold below this RMS a buffer is treated as silence: the
// decoder returns no segments, which the temperature-fallback classifier
// accepts immediately per §4.1.
const silenceRMSThreshold = 0.01

// DecodeFunc and ProbeFunc let tests substitute scenario-specific decoder
// behavior (hallucination at low temperature, English-bias edge cases,
// and so on) without a real model.
type DecodeFunc func(ctx context.Context, audio decoder.AudioBuffer, opts decoder.Options) ([]decoder.Segment, error)
type ProbeFunc func(ctx context.Context, audio decoder.AudioBuffer, opts decoder.Options) ([]decoder.LanguageProbability, error)

// Decoder implements decoder.Decoder with deterministic, inspectable output.
type Decoder struct {
	info  decoder.ModelInfo
	ready bool

	DecodeFn DecodeFunc
	ProbeFn  ProbeFunc
}

// New creates a ready fake decoder bound to the given model identity.
func New(info decoder.ModelInfo) *Decoder {
	d := &Decoder{info: info, ready: true}
	d.DecodeFn = d.defaultDecode
	d.ProbeFn = d.defaultProbe
	return d
}

// Ready reports true once constructed; the fake decoder has no real
// initialization cost.
func (d *Decoder) Ready() bool { return d.ready }

// ModelInfo returns the bound model identity.
func (d *Decoder) ModelInfo() decoder.ModelInfo { return d.info }

// Decode delegates to DecodeFn, defaulting to a clean-transcript heuristic.
func (d *Decoder) Decode(ctx context.Context, audio decoder.AudioBuffer, opts decoder.Options) ([]decoder.Segment, error) {
	return d.DecodeFn(ctx, audio, opts)
}

// ProbeLanguage delegates to ProbeFn, defaulting to a fixed English guess.
func (d *Decoder) ProbeLanguage(ctx context.Context, audio decoder.AudioBuffer, opts decoder.Options) ([]decoder.LanguageProbability, error) {
	return d.ProbeFn(ctx, audio, opts)
}

// defaultDecode classifies the buffer as silence (empty segment list) when
// its RMS energy is below threshold; otherwise it emits a single segment
// spanning the whole buffer with a deterministic placeholder transcript.
func (d *Decoder) defaultDecode(_ context.Context, audio decoder.AudioBuffer, opts decoder.Options) ([]decoder.Segment, error) {
	if rms(audio.Samples) < silenceRMSThreshold || len(audio.Samples) == 0 {
		return nil, nil
	}

	return []decoder.Segment{{
		ID:               0,
		Start:            0,
		End:              audio.Duration(),
		Text:             "this is a simulated transcript",
		AvgLogProb:       -0.3,
		CompressionRatio: 1.2,
		NoSpeechProb:     0.05,
		Temperature:      opts.Temperature,
	}}, nil
}

// defaultProbe always favors English with high confidence; tests that need
// to exercise the English-bias guard or multi-language accumulation should
// substitute ProbeFn.
func (d *Decoder) defaultProbe(_ context.Context, audio decoder.AudioBuffer, _ decoder.Options) ([]decoder.LanguageProbability, error) {
	if rms(audio.Samples) < silenceRMSThreshold || len(audio.Samples) == 0 {
		return nil, nil
	}
	return []decoder.LanguageProbability{
		{Language: "en", Probability: 0.9},
		{Language: "es", Probability: 0.05},
	}, nil
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
