package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/logging"
	"github.com/Ramsey-B/thistle/pkg/models"
)

type fakeWriter struct {
	batches [][]kafka.Message
	err     error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.batches = append(w.batches, msgs)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestProducer_BuildMessage(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{}, "matches", 10, logging.Nop())

	row := models.ScoredMatch{
		MatchRecord: models.MatchRecord{
			CustomerID:    42,
			NegativeID:    models.Int64(7),
			MatchCriteria: "DDM RULE1: first_name, last_name, date_of_birth, zip, city, street, house_number",
			MatchScore:    100,
			Stage:         models.StageDDM,
			Rank:          1,
		},
		CompositeScore: 100,
	}

	msg, err := p.BuildMessage(NewMatchEvent("run-1", row))
	require.NoError(t, err)

	assert.Equal(t, "matches", msg.Topic)
	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, EventMatchRecorded, header(msg, "event_type"))
	assert.Equal(t, "run-1", header(msg, "run_id"))
	assert.Equal(t, "DDM", header(msg, "stage"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, float64(7), body["negative_id"])
	assert.NotContains(t, body, "positive_id")
	assert.Equal(t, float64(100), body["match_score"])
}

func TestProducer_PublishMatches(t *testing.T) {
	t.Run("batches rows", func(t *testing.T) {
		w := &fakeWriter{}
		p := NewProducerWithWriter(w, "matches", 2, logging.Nop())

		rows := make([]models.ScoredMatch, 5)
		for i := range rows {
			rows[i] = models.ScoredMatch{MatchRecord: models.MatchRecord{CustomerID: int64(i + 1), PositiveID: models.Int64(1), Stage: models.StagePDM}}
		}

		require.NoError(t, p.PublishMatches(context.Background(), "run-2", rows))
		require.Len(t, w.batches, 3)
		assert.Len(t, w.batches[0], 2)
		assert.Len(t, w.batches[2], 1)
		assert.Equal(t, "5", string(w.batches[2][0].Key))
	})

	t.Run("empty ledger writes nothing", func(t *testing.T) {
		w := &fakeWriter{}
		p := NewProducerWithWriter(w, "matches", 2, logging.Nop())
		require.NoError(t, p.PublishMatches(context.Background(), "run-3", nil))
		assert.Empty(t, w.batches)
	})

	t.Run("writer errors are returned", func(t *testing.T) {
		w := &fakeWriter{err: errors.New("broker down")}
		p := NewProducerWithWriter(w, "matches", 2, logging.Nop())
		err := p.PublishMatches(context.Background(), "run-4", []models.ScoredMatch{{}})
		assert.EqualError(t, err, "broker down")
	})
}

func TestProducer_PublishRunCompleted(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "matches", 2, logging.Nop())

	require.NoError(t, p.PublishRunCompleted(context.Background(), &RunEvent{RunID: "run-5", LedgerRows: 3}))
	require.Len(t, w.batches, 1)
	assert.Equal(t, EventRunCompleted, header(w.batches[0][0], "event_type"))
	assert.Equal(t, "run-5", string(w.batches[0][0].Key))
}
