package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	apihttp "transcription-core/internal/api/http"
	"transcription-core/internal/admission"
	"transcription-core/internal/config"
	"transcription-core/internal/decoder"
	"transcription-core/internal/decoder/fake"
	"transcription-core/internal/decoder/whispercpp"
	"transcription-core/internal/events"
	"transcription-core/internal/langdetect"
	"transcription-core/internal/logging"
	"transcription-core/internal/metrics"
	"transcription-core/internal/requestid"
	"transcription-core/internal/transcribe"
	"transcription-core/internal/validator"
)

func main() {
	cfg := config.Load()

	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})

	log.Info().
		Str("listenAddr", cfg.Server.ListenAddr).
		Str("decoderBackend", cfg.Decoder.Backend).
		Str("modelSize", cfg.Decoder.ModelSize).
		Str("device", cfg.Decoder.Device).
		Int("maxConcurrent", cfg.Admission.MaxConcurrent).
		Int("maxQueue", cfg.Admission.MaxQueue).
		Bool("failFastWhenBusy", cfg.Admission.FailFastWhenBusy).
		Msg("starting transcription server")

	m := metrics.New()

	var metricsServer *metrics.Server
	if cfg.Observability.MetricsEnabled {
		metricsServer = metrics.NewServer(cfg.Observability.MetricsAddr)
		metricsServer.Start()
	}

	dec := buildDecoder(cfg.Decoder)

	gate := admission.New(admission.Config{
		MaxConcurrent:    cfg.Admission.MaxConcurrent,
		MaxQueue:         cfg.Admission.MaxQueue,
		FailFastWhenBusy: cfg.Admission.FailFastWhenBusy,
		BusyRetryAfterS:  cfg.Admission.BusyRetryAfterS,
	})

	svc := transcribe.NewService(dec, gate, transcribe.DecodeOptions{
		BeamSize:                 cfg.Decoder.BeamSize,
		BestOf:                   cfg.Decoder.BestOf,
		CompressionRatioThresh:   cfg.Decoder.CompressionRatioThresh,
		LogProbThreshold:         cfg.Decoder.LogProbThreshold,
		NoSpeechThreshold:        cfg.Decoder.NoSpeechThreshold,
		ConditionOnPreviousText:  cfg.Decoder.ConditionOnPreviousText,
		PromptResetOnTemperature: cfg.Decoder.PromptResetOnTemperature,
		VADFilter:                cfg.Decoder.VADFilter,
		VADFilterThreshold:       cfg.Decoder.VADFilterThreshold,
		VADMinSilenceDurationMs:  cfg.Decoder.VADMinSilenceDurationMs,
		UseTemperatureFallback:   cfg.Decoder.UseTemperatureFallback,
	}, langdetect.Config{
		Threshold: cfg.LanguageDet.Threshold,
		Segments:  cfg.LanguageDet.Segments,
	}, m)

	publisher := events.New(events.Config{
		Enabled:   cfg.Kafka.Enabled,
		Brokers:   cfg.Kafka.Brokers,
		Topic:     cfg.Kafka.Topic,
		Principal: cfg.Kafka.Principal,
	}, m)
	defer publisher.Close()

	handlers := &apihttp.Handlers{
		Service:   svc,
		Decoder:   dec,
		Gate:      gate,
		IDs:       requestid.New(),
		Validator: validator.New(),
		Events:    publisher,
		Info: apihttp.ServiceInfo{
			WorkerID:    os.Getenv("HOSTNAME"),
			ModelSize:   cfg.Decoder.ModelSize,
			Device:      cfg.Decoder.Device,
			ComputeType: cfg.Decoder.ComputeType,
		},
	}

	router := apihttp.NewRouter(handlers, cfg.Auth.APIToken, 180*time.Second)
	server := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.ListenAddr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error shutting down HTTP server")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("error shutting down metrics server")
		}
	}

	log.Info().Msg("server stopped")
}

func buildDecoder(cfg config.DecoderConfig) decoder.Decoder {
	info := decoder.ModelInfo{
		ModelSize:    cfg.ModelSize,
		Device:       cfg.Device,
		ComputeType:  cfg.ComputeType,
		GPUAvailable: cfg.Device == "cuda",
	}
	switch cfg.Backend {
	case "whispercpp":
		return whispercpp.New(cfg.WhisperCppURL, info)
	default:
		return fake.New(info)
	}
}
