// Package rta implements the Remote Transcriber Adapter (§4.2): a client
// that wraps an HTTP-based speech-to-text API behind the same shape the
// transcription server's decoder uses, with pooled connections, retry with
// exponential backoff, and typed Overloaded propagation on 429/503.
package rta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"transcription-core/internal/audio"
	"transcription-core/internal/decoder"
	"transcription-core/internal/logging"
	"transcription-core/internal/metrics"
)

const (
	maxRetries        = 3
	initialRetryDelay = 1 * time.Second
	maxRetryDelay     = 10 * time.Second
)

// Config configures a Client.
type Config struct {
	URL         string
	APIKey      string
	Model       string
	Temperature float64
	VADModel    string
}

// Client is the Remote Transcriber Adapter's HTTP client.
type Client struct {
	cfg        Config
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// New creates a Client with a connection-pooled HTTP client (§4.2: 10 idle,
// 20 total connections, 60s timeout).
func New(cfg Config, m *metrics.Metrics) *Client {
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: transport,
		},
		metrics: m,
	}
}

// Transcribe sends buf to the remote transcriber and returns normalized
// segments and info. On a 429/503 response it returns a non-nil *Overloaded
// immediately without internal retry, so the caller can decide whether to
// keep buffering rather than block (§4.2).
func (c *Client) Transcribe(ctx context.Context, buf decoder.AudioBuffer, opts Options) ([]Segment, Info, error) {
	wav := audio.EncodeWAV(buf)
	log := logging.WithComponent("rta")

	temperature := opts.Temperature
	if temperature == 0 && c.cfg.Temperature != 0 {
		temperature = c.cfg.Temperature
	}

	sentOptions := Options{
		Language:    NormalizeLanguageCode(opts.Language),
		Task:        opts.Task,
		Prompt:      opts.Prompt,
		Temperature: temperature,
	}
	audioDuration := buf.Duration()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		start := time.Now()
		resp, err := c.call(ctx, wav, opts, temperature)
		elapsed := time.Since(start).Seconds()

		if overloaded, ok := err.(*Overloaded); ok {
			c.recordOutcome("overloaded", elapsed)
			log.Warn().Int("status", overloaded.StatusCode).Float64("retryAfterS", overloaded.RetryAfterS).Msg("remote transcriber overloaded")
			return nil, Info{}, overloaded
		}
		if err == nil {
			c.recordOutcome("success", elapsed)
			segments, info := normalizeResponse(*resp, sentOptions, audioDuration)
			return segments, info, nil
		}

		lastErr = err
		c.recordOutcome("error", elapsed)

		if attempt == maxRetries {
			log.Error().Err(err).Int("attempts", attempt+1).Msg("remote transcriber call failed after all retries")
			break
		}

		delay := backoffDelay(attempt + 1)
		if c.metrics != nil {
			c.metrics.RTARetries.Inc()
		}
		log.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("remote transcriber call failed, retrying")

		select {
		case <-ctx.Done():
			return nil, Info{}, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, Info{}, fmt.Errorf("rta: call failed after %d retries: %w", maxRetries, lastErr)
}

// backoffDelay implements delay = min(initial * 2^(attempt-1), max) (§4.2).
func backoffDelay(attempt int) time.Duration {
	delay := initialRetryDelay * time.Duration(1<<uint(attempt-1))
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func (c *Client) recordOutcome(outcome string, seconds float64) {
	if c.metrics == nil {
		return
	}
	c.metrics.RTALatency.WithLabelValues(outcome).Observe(seconds)
	if outcome == "overloaded" {
		c.metrics.RTAOverload.Inc()
	}
}

func (c *Client) call(ctx context.Context, wav []byte, opts Options, temperature float64) (*rawResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(wav); err != nil {
		return nil, err
	}

	model := c.cfg.Model
	if model == "" {
		model = "default"
	}
	_ = writer.WriteField("model", model)
	_ = writer.WriteField("temperature", strconv.FormatFloat(temperature, 'f', -1, 64))
	_ = writer.WriteField("response_format", "verbose_json")
	_ = writer.WriteField("timestamp_granularities", "segment")

	if c.cfg.VADModel != "" {
		_ = writer.WriteField("vad_model", c.cfg.VADModel)
	}
	if lang := NormalizeLanguageCode(opts.Language); lang != "" {
		_ = writer.WriteField("language", lang)
	}
	if opts.Prompt != "" {
		_ = writer.WriteField("prompt", opts.Prompt)
	}
	if opts.Task == "translate" {
		_ = writer.WriteField("task", opts.Task)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		retryAfter := 1.0
		if v := resp.Header.Get("Retry-After"); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				retryAfter = parsed
			}
		}
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return nil, &Overloaded{StatusCode: resp.StatusCode, RetryAfterS: retryAfter, Detail: string(detail)}
	}

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return nil, fmt.Errorf("rta: remote transcriber returned %d: %s", resp.StatusCode, string(detail))
	}

	var parsed rawResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("rta: decoding response: %w", err)
	}
	return &parsed, nil
}
