// Package kafka publishes screening results as match events
package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

const (
	// EventMatchRecorded is emitted once per ledger row
	EventMatchRecorded = "match.recorded"
	// EventRunCompleted is emitted once a run has written its ledger
	EventRunCompleted = "run.completed"

	schemaVersion = "1.0"
)

// MessageWriter is the subset of kafka.Writer used by the producer
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles match event emission
type Producer struct {
	writer    MessageWriter
	logger    ectologger.Logger
	topic     string
	batchSize int
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return NewProducerWithWriter(writer, cfg.Topic, cfg.BatchSize, logger)
}

// NewProducerWithWriter creates a producer on top of an existing writer
func NewProducerWithWriter(writer MessageWriter, topic string, batchSize int, logger ectologger.Logger) *Producer {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Producer{
		writer:    writer,
		logger:    logger,
		topic:     topic,
		batchSize: batchSize,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// MatchEvent describes one ledger row
type MatchEvent struct {
	EventType      string       `json:"event_type"`
	RunID          string       `json:"run_id"`
	CustomerID     int64        `json:"customer_id"`
	NegativeID     *int64       `json:"negative_id,omitempty"`
	PositiveID     *int64       `json:"positive_id,omitempty"`
	Stage          models.Stage `json:"stage"`
	Rank           int          `json:"rank"`
	MatchCriteria  string       `json:"match_criteria"`
	MatchScore     float64      `json:"match_score"`
	CompositeScore *float64     `json:"composite_score,omitempty"`
	Timestamp      time.Time    `json:"timestamp"`
}

// RunEvent summarizes a finished run
type RunEvent struct {
	EventType          string    `json:"event_type"`
	RunID              string    `json:"run_id"`
	RuleTableVersion   string    `json:"rule_table_version"`
	Customers          int       `json:"customers"`
	MatchedCustomers   int       `json:"matched_customers"`
	LedgerRows         int       `json:"ledger_rows"`
	UnmatchedCustomers int       `json:"unmatched_customers"`
	Timestamp          time.Time `json:"timestamp"`
}

// NewMatchEvent builds the event for a scored ledger row
func NewMatchEvent(runID string, row models.ScoredMatch) *MatchEvent {
	score := row.CompositeScore
	return &MatchEvent{
		EventType:      EventMatchRecorded,
		RunID:          runID,
		CustomerID:     row.CustomerID,
		NegativeID:     row.NegativeID,
		PositiveID:     row.PositiveID,
		Stage:          row.Stage,
		Rank:           row.Rank,
		MatchCriteria:  row.MatchCriteria,
		MatchScore:     row.MatchScore,
		CompositeScore: &score,
	}
}

// BuildMessage encodes a match event. Events are keyed by customer so all
// rows of one customer land on the same partition.
func (p *Producer) BuildMessage(event *MatchEvent) (kafka.Message, error) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	key := strconv.FormatInt(event.CustomerID, 10)
	return kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "run_id", Value: []byte(event.RunID)},
			{Key: "stage", Value: []byte(event.Stage)},
			{Key: "schema_version", Value: []byte(schemaVersion)},
		},
	}, nil
}

// PublishMatches publishes one event per ledger row in batches
func (p *Producer) PublishMatches(ctx context.Context, runID string, rows []models.ScoredMatch) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishMatches")
	defer span.End()

	if len(rows) == 0 {
		return nil
	}

	for start := 0; start < len(rows); start += p.batchSize {
		end := min(start+p.batchSize, len(rows))

		messages := make([]kafka.Message, 0, end-start)
		for _, row := range rows[start:end] {
			msg, err := p.BuildMessage(NewMatchEvent(runID, row))
			if err != nil {
				return err
			}
			messages = append(messages, msg)
		}

		if err := p.writer.WriteMessages(ctx, messages...); err != nil {
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"run_id":     runID,
				"batch_size": len(messages),
			}).Error("Failed to publish match events batch")
			return err
		}
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id": runID,
		"events": len(rows),
	}).Debug("Published match events")

	return nil
}

// PublishRunCompleted publishes the run summary event
func (p *Producer) PublishRunCompleted(ctx context.Context, event *RunEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishRunCompleted")
	defer span.End()

	event.EventType = EventRunCompleted
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.RunID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "run_id", Value: []byte(event.RunID)},
			{Key: "schema_version", Value: []byte(schemaVersion)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish run event")
		return err
	}
	return nil
}
