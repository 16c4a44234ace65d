// Package decoder defines the opaque decoder boundary (§3 Decoder Handle).
//
// A Decoder is process-wide, lazily initialized, and bound to a model
// identity, device, and compute type. The transcription service never
// inspects decoder internals; it only calls Decode and ProbeLanguage and
// interprets the returned segments per §4.1.
package decoder

import "context"

// AudioBuffer is a contiguous ordered sequence of mono float32 samples in
// [-1.0, 1.0] at SampleRate Hz (§3 Audio Buffer).
type AudioBuffer struct {
	Samples    []float32
	SampleRate int
}

// Duration reports the buffer's length in seconds.
func (b AudioBuffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Slice returns the sub-buffer covering [startSec, endSec).
func (b AudioBuffer) Slice(startSec, endSec float64) AudioBuffer {
	start := int(startSec * float64(b.SampleRate))
	end := int(endSec * float64(b.SampleRate))
	if start < 0 {
		start = 0
	}
	if end > len(b.Samples) {
		end = len(b.Samples)
	}
	if start >= end {
		return AudioBuffer{SampleRate: b.SampleRate}
	}
	return AudioBuffer{Samples: b.Samples[start:end], SampleRate: b.SampleRate}
}

// Segment is one decoded interval (§3 Transcription Segment).
type Segment struct {
	ID               int
	Start            float64
	End              float64
	Text             string
	AvgLogProb       float64
	CompressionRatio float64
	NoSpeechProb     float64
	Temperature      float64
}

// Options carries the decoder search and gating parameters of §4.1/§6.
type Options struct {
	Language                 string // empty = auto-detect
	Task                     string // "transcribe" or "translate"
	Prompt                   string
	Temperature              float64
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
}

// LanguageProbability is one candidate from the decoder's language-probing
// primitive for a single audio window.
type LanguageProbability struct {
	Language    string
	Probability float64
}

// ModelInfo describes the bound model identity, reported on /health and /.
type ModelInfo struct {
	ModelSize    string
	Device       string
	ComputeType  string
	GPUAvailable bool
}

// Decoder is the opaque, process-wide decoding engine (§3 Decoder Handle).
// Implementations must be safe to share across the bounded worker pool that
// invokes them; see §5 Shared-resource policy.
type Decoder interface {
	// Decode transcribes the full buffer at the given options, returning the
	// resulting segments in order.
	Decode(ctx context.Context, audio AudioBuffer, opts Options) ([]Segment, error)

	// ProbeLanguage returns a probability distribution over languages for a
	// short audio window, used by the language detection algorithm.
	ProbeLanguage(ctx context.Context, audio AudioBuffer, opts Options) ([]LanguageProbability, error)

	// ModelInfo reports the bound model identity.
	ModelInfo() ModelInfo

	// Ready reports whether initialization has completed; the health
	// endpoint gates traffic on this (§3 Decoder Handle, §9).
	Ready() bool
}
