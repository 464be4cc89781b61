// Package events provides event publishing functionality.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.uber.org/multierr"

	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/observability/metrics"
)

// Publisher publishes script document events to separate Kafka topics.
type Publisher struct {
	writerEdited *kafka.Writer
	writerSaved  *kafka.Writer
	principal    string
	topicEdited  string
	topicSaved   string
	enabled      bool
	metrics      *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers     []string
	TopicEdited string
	TopicSaved  string
	Principal   string
	Enabled     bool
}

// New creates a Kafka event publisher with one writer per topic.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			topicEdited: models.EventDocumentEdited,
			topicSaved:  models.EventDocumentSaved,
			metrics:     m,
		}
	}

	topicEdited := orDefault(cfg.TopicEdited, models.EventDocumentEdited)
	topicSaved := orDefault(cfg.TopicSaved, models.EventDocumentSaved)

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:   cfg.Principal,
			topicEdited: topicEdited,
			topicSaved:  topicSaved,
			metrics:     m,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicEdited", topicEdited).
		Str("topicSaved", topicSaved).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerEdited: newWriter(cfg.Brokers, topicEdited, transport),
		writerSaved:  newWriter(cfg.Brokers, topicSaved, transport),
		principal:    cfg.Principal,
		topicEdited:  topicEdited,
		topicSaved:   topicSaved,
		enabled:      true,
		metrics:      m,
	}
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// PublishEdited publishes a document edit event. Events are keyed by script
// id so one script's events stay ordered within a partition.
func (p *Publisher) PublishEdited(ctx context.Context, event models.DocumentEdited) error {
	if event.EventType == "" {
		event.EventType = models.EventDocumentEdited
	}
	return p.publish(ctx, p.writerEdited, p.topicEdited, event.EventType, scriptKey(event.ScriptID), event)
}

// PublishSaved publishes a document save event.
func (p *Publisher) PublishSaved(ctx context.Context, event models.DocumentSaved) error {
	if event.EventType == "" {
		event.EventType = models.EventDocumentSaved
	}
	return p.publish(ctx, p.writerSaved, p.topicSaved, event.EventType, scriptKey(event.ScriptID), event)
}

func scriptKey(id int64) string { return strconv.FormatInt(id, 10) }

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerEdited != nil {
		err = multierr.Append(err, p.writerEdited.Close())
	}
	if p.writerSaved != nil {
		err = multierr.Append(err, p.writerSaved.Close())
	}
	if err != nil {
		log.Error().Err(err).Msg("Error closing Kafka writers")
	}
	return err
}
