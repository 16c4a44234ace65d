package rta

// Segment is one transcript segment as returned by the remote transcriber,
// normalized to the shape this adapter's caller expects (§4.2).
type Segment struct {
	ID               int
	Seek             int
	Start            float64
	End              float64
	Text             string
	Tokens           []int
	AvgLogprob       float64
	CompressionRatio float64
	NoSpeechProb     float64
	Temperature      float64
}

// Info describes the overall transcription result returned alongside segments.
type Info struct {
	Language            string
	LanguageProbability float64
	Duration            float64
	// RequestedOptions echoes the decoder-option record the caller sent with
	// this call (§4.2 Info object), with Language already normalized to the
	// code actually transmitted.
	RequestedOptions Options
}

// Options controls one Transcribe call (§4.2). Many faster-whisper-style
// parameters are accepted by the wire API but not honored remotely; only
// the fields below are actually sent.
type Options struct {
	Language    string // name or ISO-639-1 code; normalized before sending
	Task        string // "transcribe" or "translate"
	Prompt      string
	Temperature float64
}

// rawResponse is the JSON shape returned by the remote transcriber's
// verbose_json response format.
type rawResponse struct {
	Text                string       `json:"text"`
	Language            string       `json:"language"`
	LanguageProbability *float64     `json:"language_probability"`
	Duration            float64      `json:"duration"`
	NoSpeechProb        *float64     `json:"no_speech_prob"`
	AvgLogprob          *float64     `json:"avg_logprob"`
	CompressionRatio    *float64     `json:"compression_ratio"`
	Tokens              []int        `json:"tokens"`
	Segments            []rawSegment `json:"segments"`
}

type rawSegment struct {
	ID               int      `json:"id"`
	Seek             int      `json:"seek"`
	Start            *float64 `json:"start"`
	End              *float64 `json:"end"`
	AudioStart       *float64 `json:"audio_start"`
	AudioEnd         *float64 `json:"audio_end"`
	Duration         *float64 `json:"duration"`
	Text             string   `json:"text"`
	Tokens           []int    `json:"tokens"`
	AvgLogprob       *float64 `json:"avg_logprob"`
	CompressionRatio *float64 `json:"compression_ratio"`
	NoSpeechProb     *float64 `json:"no_speech_prob"`
}

// clampProbability maps a raw no_speech_prob value onto [0, 1]. Some remote
// APIs report values above 1.0 (a different scale or a log probability);
// those are clamped to 1.0 rather than rejected (§4.2, §9 Open Question).
func clampProbability(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < 0.0 {
		return 0.0
	}
	return v
}

// normalizeResponse converts the wire response into (segments, info),
// applying the §4.2 priority order for timestamps and the no_speech_prob
// inversion guard: a segment with non-empty text but a saturated
// no_speech_prob is assumed to be a scale mismatch, not real silence.
//
// sentOptions is the (already-normalized) options record this adapter sent
// with the request; audioDuration is computed by the caller from the audio
// sample count and rate, not taken from the backend's reported duration
// (§4.2 Info object).
func normalizeResponse(resp rawResponse, sentOptions Options, audioDuration float64) ([]Segment, Info) {
	requestedTemperature := sentOptions.Temperature

	// Prefer the caller's language; fall back to the backend's normalized
	// language only if the caller didn't supply one; default to "en" only
	// when neither supplied anything. A backend "unknown" still counts as
	// "provided" and is never overridden to "en" (§4.2).
	language := sentOptions.Language
	if language == "" {
		if resp.Language != "" {
			language = NormalizeLanguageCode(resp.Language)
		} else {
			language = "en"
		}
	}

	info := Info{
		Language:            language,
		LanguageProbability: 1.0,
		Duration:            audioDuration,
		RequestedOptions:    sentOptions,
	}
	if resp.LanguageProbability != nil {
		info.LanguageProbability = *resp.LanguageProbability
	}

	if len(resp.Segments) == 0 {
		if resp.Text == "" {
			return nil, info
		}
		noSpeech := 0.0
		if resp.NoSpeechProb != nil {
			noSpeech = clampProbability(*resp.NoSpeechProb)
		}
		if noSpeech >= 1.0 {
			noSpeech = 0.1
		}
		avgLogprob := -0.5
		if resp.AvgLogprob != nil {
			avgLogprob = *resp.AvgLogprob
		}
		compressionRatio := 1.0
		if resp.CompressionRatio != nil {
			compressionRatio = *resp.CompressionRatio
		}
		end := resp.Duration
		if end <= 0 {
			end = float64(len(resp.Text)) * 0.1
		}
		return []Segment{{
			ID:               0,
			Seek:             0,
			Start:            0,
			End:              end,
			Text:             resp.Text,
			Tokens:           resp.Tokens,
			AvgLogprob:       avgLogprob,
			CompressionRatio: compressionRatio,
			NoSpeechProb:     noSpeech,
			Temperature:      requestedTemperature,
		}}, info
	}

	segments := make([]Segment, 0, len(resp.Segments))
	for i, raw := range resp.Segments {
		start := firstFloat(raw.AudioStart, raw.Start, 0.0)
		end := firstFloatOrNil(raw.AudioEnd, raw.End)

		if end == nil || *end <= start {
			if raw.Duration != nil && *raw.Duration > 0 {
				v := start + *raw.Duration
				end = &v
			}
		}
		if end == nil || *end <= start {
			if resp.Duration > 0 {
				var v float64
				if start > 0 {
					v = minFloat(resp.Duration, start+resp.Duration)
				} else {
					v = resp.Duration
				}
				end = &v
			}
		}
		if end == nil || *end <= start {
			v := start + 0.5
			end = &v
		}

		noSpeech := 0.0
		if raw.NoSpeechProb != nil {
			noSpeech = clampProbability(*raw.NoSpeechProb)
		}
		if noSpeech >= 1.0 && raw.Text != "" {
			noSpeech = 0.1
		}

		avgLogprob := -0.5
		if raw.AvgLogprob != nil {
			avgLogprob = *raw.AvgLogprob
		}
		compressionRatio := 1.0
		if raw.CompressionRatio != nil {
			compressionRatio = *raw.CompressionRatio
		}

		segments = append(segments, Segment{
			ID:               i,
			Seek:             raw.Seek,
			Start:            start,
			End:              *end,
			Text:             raw.Text,
			Tokens:           raw.Tokens,
			AvgLogprob:       avgLogprob,
			CompressionRatio: compressionRatio,
			NoSpeechProb:     noSpeech,
			Temperature:      requestedTemperature,
		})
	}
	return segments, info
}

func firstFloat(a, b *float64, def float64) float64 {
	if a != nil {
		return *a
	}
	if b != nil {
		return *b
	}
	return def
}

func firstFloatOrNil(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
