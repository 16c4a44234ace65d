// Package models defines the wire shape of events published once a
// transcription request finishes (§4.1 response shaping, supplemented).
package models

// TranscriptionCompleted is published to Kafka after a request is accepted
// through the full temperature-fallback pipeline, whether or not any speech
// was detected.
type TranscriptionCompleted struct {
	EventType           string  `json:"eventType"`
	RequestID           string  `json:"requestId"`
	Text                string  `json:"text"`
	Language            string  `json:"language"`
	LanguageProbability float64 `json:"languageProbability"`
	Duration            float64 `json:"duration"`
	SegmentCount        int     `json:"segmentCount"`
	Timestamp           int64   `json:"timestamp"`
}
