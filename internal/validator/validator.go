// Package validator checks a shaped transcription response against the
// §8 testable properties before it is returned to the caller or published.
// It replaces the ingress service's no-op schema stub with the invariants
// this domain actually needs enforced.
package validator

import (
	"fmt"

	"transcription-core/internal/transcribe"
)

// Validator validates transcribe.Response values.
type Validator struct{}

// New creates a Validator.
func New() *Validator {
	return &Validator{}
}

// Validate checks segment id density, timestamp ordering, probability
// ranges, the duration formula, and the unknown-language sentinel rule.
func (v *Validator) Validate(resp transcribe.Response) error {
	if resp.Language == "unknown" && resp.LanguageProbability != 0.0 {
		return fmt.Errorf("validator: language=unknown requires language_probability=0.0, got %v", resp.LanguageProbability)
	}

	if len(resp.Segments) == 0 {
		if resp.Duration != 0 {
			return fmt.Errorf("validator: empty segments requires duration=0, got %v", resp.Duration)
		}
		return nil
	}

	prevStart := -1.0
	for i, seg := range resp.Segments {
		if seg.ID != i {
			return fmt.Errorf("validator: segment id density broken at index %d: got id %d", i, seg.ID)
		}
		if seg.End < seg.Start {
			return fmt.Errorf("validator: segment %d end (%v) < start (%v)", i, seg.End, seg.Start)
		}
		if seg.Start < prevStart {
			return fmt.Errorf("validator: segment %d start (%v) precedes previous segment's start (%v)", i, seg.Start, prevStart)
		}
		prevStart = seg.Start
		if seg.NoSpeechProb < 0 || seg.NoSpeechProb > 1 {
			return fmt.Errorf("validator: segment %d no_speech_prob out of range [0,1]: %v", i, seg.NoSpeechProb)
		}
	}

	wantDuration := resp.Segments[len(resp.Segments)-1].End
	if resp.Duration != wantDuration {
		return fmt.Errorf("validator: duration %v does not match last segment end %v", resp.Duration, wantDuration)
	}

	return nil
}
