// Package langdetect implements the §4.1 language detection algorithm: a
// segment-by-segment probe of the decoder's language-probing primitive,
// with per-segment acceptance gating, early-stop, and final selection.
package langdetect

import (
	"context"

	"transcription-core/internal/decoder"
)

// Config holds the §6 language-detection knobs.
type Config struct {
	Threshold float64 // LANGUAGE_DETECTION_THRESHOLD
	Segments  int     // LANGUAGE_DETECTION_SEGMENTS
}

const (
	segmentWindowSeconds  = 10.0
	minSegmentSeconds     = 0.5
	vadThreshold          = 0.5
	vadMinSilenceDuration = 160
)

// Result is the outcome of the detection algorithm, before the
// English-bias guard (§4.1) is applied by the caller.
type Result struct {
	Language        string
	Probability     float64
	SegmentsScanned int
}

// accumulator tracks a candidate language's accepted-segment probabilities.
type accumulator struct {
	sum   float64
	count int
}

// Detect runs the §4.1 algorithm against consecutive 10-second windows of
// buf, up to cfg.Segments windows, stopping early once a language has
// accumulated enough confidence.
func Detect(ctx context.Context, dec decoder.Decoder, buf decoder.AudioBuffer, cfg Config) (Result, error) {
	if cfg.Segments <= 0 {
		cfg.Segments = 10
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.5
	}

	opts := decoder.Options{
		VADFilter:               true,
		VADFilterThreshold:      vadThreshold,
		VADMinSilenceDurationMs: vadMinSilenceDuration,
	}

	acc := map[string]*accumulator{}

	duration := buf.Duration()
	var lastTop decoder.LanguageProbability
	haveLastTop := false
	accepted := 0
	scanned := 0

	for i := 0; i < cfg.Segments; i++ {
		start := float64(i) * segmentWindowSeconds
		if start >= duration {
			break
		}
		end := start + segmentWindowSeconds
		if end > duration {
			end = duration
		}
		if end-start < minSegmentSeconds {
			break
		}

		window := buf.Slice(start, end)
		scanned++

		candidates, err := dec.ProbeLanguage(ctx, window, opts)
		if err != nil {
			return Result{}, err
		}
		if len(candidates) == 0 {
			continue
		}

		top := candidates[0]
		var second decoder.LanguageProbability
		haveSecond := len(candidates) > 1
		if haveSecond {
			second = candidates[1]
		}

		lastTop = top
		haveLastTop = true

		if top.Probability < 0.4 {
			continue
		}
		if haveSecond && ((top.Probability-second.Probability < 0.12 && top.Probability < 0.45) || top.Probability < 0.30) {
			continue
		}

		accepted++
		for _, c := range candidates {
			if c.Probability < 0.1 {
				continue
			}
			a, ok := acc[c.Language]
			if !ok {
				a = &accumulator{}
				acc[c.Language] = a
			}
			a.sum += c.Probability
			a.count++
		}

		// Early-stop check (relaxed threshold after 3 accepted segments).
		threshold := cfg.Threshold
		if accepted >= 3 {
			threshold = maxFloat(0.4, threshold-0.1)
		}
		topLang, topAvg, topCount := argmaxAverage(acc)
		if topLang != "" && topAvg >= threshold && topCount >= 2 && scanned >= 2 {
			break
		}
	}

	if len(acc) == 0 {
		if haveLastTop && lastTop.Probability >= 0.5 {
			return Result{Language: lastTop.Language, Probability: lastTop.Probability, SegmentsScanned: scanned}, nil
		}
		return Result{Language: "en", Probability: 0.0, SegmentsScanned: scanned}, nil
	}

	bestLang, bestScore, bestAvg := "", -1.0, 0.0
	for lang, a := range acc {
		avg := a.sum / float64(a.count)
		score := avg * (0.7 + 0.3*minFloat(1, float64(a.count)/3))
		if score > bestScore {
			bestLang, bestScore, bestAvg = lang, score, avg
		}
	}

	if bestAvg < 0.5 {
		return Result{Language: "en", Probability: 0.0, SegmentsScanned: scanned}, nil
	}
	return Result{Language: bestLang, Probability: bestAvg, SegmentsScanned: scanned}, nil
}

func argmaxAverage(acc map[string]*accumulator) (string, float64, int) {
	lang, avg, count := "", 0.0, 0
	for l, a := range acc {
		candidate := a.sum / float64(a.count)
		if candidate > avg {
			lang, avg, count = l, candidate, a.count
		}
	}
	return lang, avg, count
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
