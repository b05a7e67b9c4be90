package screening

import (
	"context"

	"github.com/Ramsey-B/thistle/pkg/kafka"
	"github.com/Ramsey-B/thistle/pkg/models"
)

type kafkaPublisher struct {
	producer *kafka.Producer
}

// NewKafkaPublisher publishes run output through a Kafka producer
func NewKafkaPublisher(producer *kafka.Producer) Publisher {
	return &kafkaPublisher{producer: producer}
}

func (p *kafkaPublisher) PublishMatches(ctx context.Context, runID string, rows []models.ScoredMatch) error {
	return p.producer.PublishMatches(ctx, runID, rows)
}

func (p *kafkaPublisher) PublishRunCompleted(ctx context.Context, summary *Summary) error {
	customers := 0
	if l, ok := summary.Lists[models.ListCustomer]; ok {
		customers = l.Kept
	}
	return p.producer.PublishRunCompleted(ctx, &kafka.RunEvent{
		RunID:              summary.RunID,
		RuleTableVersion:   summary.RuleTableVersion,
		Customers:          customers,
		MatchedCustomers:   summary.MatchedCustomers,
		LedgerRows:         summary.LedgerRows,
		UnmatchedCustomers: summary.UnmatchedCustomers,
	})
}
