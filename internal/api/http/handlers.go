package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"transcription-core/internal/admission"
	"transcription-core/internal/audio"
	"transcription-core/internal/decoder"
	"transcription-core/internal/events"
	"transcription-core/internal/logging"
	"transcription-core/internal/models"
	"transcription-core/internal/requestid"
	"transcription-core/internal/transcribe"
	"transcription-core/internal/validator"
)

// ServiceInfo describes the static identity reported on GET / and GET
// /health (§6 supplemented fields).
type ServiceInfo struct {
	WorkerID    string
	ModelSize   string
	Device      string
	ComputeType string
}

// Handlers wires the transcription service into HTTP, shaping multipart
// requests into transcribe.Request values and responses into the wire
// JSON shape (§4.1).
type Handlers struct {
	Service   *transcribe.Service
	Decoder   decoder.Decoder
	Gate      *admission.Gate
	IDs       *requestid.Generator
	Validator *validator.Validator
	Events    *events.Publisher
	Info      ServiceInfo
}

const maxUploadBytes = 64 << 20 // 64MiB, generous for a few minutes of 16-bit PCM

// Transcribe implements POST /v1/audio/transcriptions (§4.1).
func (h *Handlers) Transcribe(w http.ResponseWriter, r *http.Request) {
	requestID := h.IDs.Next()
	log := logging.WithRequest(requestID)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}

	model := r.FormValue("model")
	if model == "" {
		writeError(w, http.StatusBadRequest, "model parameter is required")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file parameter is required")
		return
	}
	defer file.Close()

	raw := make([]byte, 0, 1<<20)
	buf := make([]byte, 32<<10)
	for {
		n, readErr := file.Read(buf)
		if n > 0 {
			raw = append(raw, buf[:n]...)
		}
		if readErr != nil {
			break
		}
	}

	decoded, err := audio.DecodeWAV(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to decode audio file: "+err.Error())
		return
	}

	req := transcribe.Request{
		Language: r.FormValue("language"),
		Task:     valueOr(r.FormValue("task"), "transcribe"),
		Prompt:   r.FormValue("prompt"),
	}
	if t := r.FormValue("temperature"); t != "" {
		if parsed, err := strconv.ParseFloat(t, 64); err == nil {
			req.Temperature = parsed
		}
	}

	log.Info().Str("model", model).Int("bytes", len(raw)).Msg("received transcription request")

	resp, err := h.Service.Transcribe(r.Context(), requestID, decoded, req)
	if err != nil {
		var shed *admission.ErrShed
		if errors.As(err, &shed) {
			w.Header().Set("Retry-After", strconv.FormatFloat(shed.RetryAfterSeconds, 'f', -1, 64))
			writeError(w, http.StatusServiceUnavailable, shed.Reason)
			return
		}
		log.Error().Err(err).Msg("transcription failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.Validator != nil {
		if err := h.Validator.Validate(resp); err != nil {
			log.Error().Err(err).Msg("response failed invariant validation")
		}
	}

	if h.Events != nil {
		go func() {
			h.Events.PublishCompleted(context.WithoutCancel(r.Context()), models.TranscriptionCompleted{
				EventType:           "TranscriptionCompleted",
				RequestID:           requestID,
				Text:                resp.Text,
				Language:            resp.Language,
				LanguageProbability: resp.LanguageProbability,
				Duration:            resp.Duration,
				SegmentCount:        len(resp.Segments),
				Timestamp:           time.Now().Unix(),
			})
		}()
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health implements GET /health (§3, §6, supplemented with in-flight and
// waiting counts per original_source/).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if !h.Decoder.Ready() {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	info := h.Decoder.ModelInfo()
	body := map[string]any{
		"status":                 status,
		"worker_id":              h.Info.WorkerID,
		"timestamp":              time.Now().UTC().Format(time.RFC3339),
		"model":                  info.ModelSize,
		"device":                 info.Device,
		"gpu_available":          info.GPUAvailable,
		"compute_type":           info.ComputeType,
		"active_transcriptions":  h.Gate.InFlight(),
		"waiting_transcriptions": h.Gate.Waiting(),
	}

	writeJSON(w, code, body)
}

// Root implements GET / (§6 supplemented).
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	if !h.Decoder.Ready() {
		status = "initializing"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "transcription-core",
		"worker_id": h.Info.WorkerID,
		"model":     h.Info.ModelSize,
		"device":    h.Info.Device,
		"status":    status,
		"endpoints": map[string]string{
			"transcribe": "/v1/audio/transcriptions",
			"health":     "/health",
		},
	})
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"error": detail})
}
