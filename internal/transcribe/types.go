// Package transcribe orchestrates the transcription server's admission
// control, language detection, temperature fallback, and response shaping
// (§4.1). It is the TS half of the transcription serving core.
package transcribe

// Segment is one emitted transcript segment (§4.1 Response shaping).
type Segment struct {
	ID               int     `json:"id"`
	Seek             int     `json:"seek"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Tokens           []int   `json:"tokens"`
	Temperature      float64 `json:"temperature"`
	AvgLogprob       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
	AudioStart       float64 `json:"audio_start"`
	AudioEnd         float64 `json:"audio_end"`
}

// Response is the §3 Transcription Response, shaped for the wire.
type Response struct {
	Text                string    `json:"text"`
	Language            string    `json:"language"`
	LanguageProbability float64   `json:"language_probability"`
	Duration            float64   `json:"duration"`
	Segments            []Segment `json:"segments"`
}

// Request is the caller-supplied subset of the multipart form (§4.1).
type Request struct {
	Language    string // empty = auto-detect
	Task        string // "transcribe" or "translate"
	Prompt      string
	Temperature float64
}
