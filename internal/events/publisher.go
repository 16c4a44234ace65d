// Package events publishes finalized transcription events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/segmentio/kafka-go"

	"transcription-core/internal/logging"
	"transcription-core/internal/metrics"
	"transcription-core/internal/models"
)

// Publisher publishes TranscriptionCompleted events to Kafka. When disabled
// (no brokers configured) it logs the event instead of writing to Kafka,
// so the rest of the pipeline runs unchanged in development.
type Publisher struct {
	writer    *kafka.Writer
	topic     string
	principal string
	enabled   bool
	metrics   *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers   []string
	Topic     string
	Principal string
	Enabled   bool
}

// New creates a Kafka event publisher. m may be nil.
func New(cfg Config, m *metrics.Metrics) *Publisher {
	log := logging.WithComponent("events")

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("kafka publishing disabled, using log-only mode")
		return &Publisher{topic: cfg.Topic, principal: cfg.Principal, enabled: false, metrics: m}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
		Resolver:  &net.Resolver{PreferGo: true},
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}

	log.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("kafka publishing enabled")

	return &Publisher{writer: writer, topic: cfg.Topic, principal: cfg.Principal, enabled: true, metrics: m}
}

// PublishCompleted publishes a TranscriptionCompleted event keyed by request id.
func (p *Publisher) PublishCompleted(ctx context.Context, event models.TranscriptionCompleted) error {
	log := logging.WithRequest(event.RequestID)

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal transcription completed event")
		return err
	}

	if !p.enabled || p.writer == nil {
		log.Debug().RawJSON("event", payload).Msg("kafka disabled, logging event only")
		if p.metrics != nil {
			p.metrics.RecordKafkaPublish(p.topic, nil)
		}
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(event.RequestID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(event.EventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	err = p.writer.WriteMessages(ctx, msg)
	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(p.topic, err)
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to write transcription completed event to kafka")
		return err
	}
	return nil
}

// Close closes the Kafka writer, if one was created.
func (p *Publisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
