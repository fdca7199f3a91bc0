package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/airq-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
)

const (
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

// messageWriter is the subset of *kafkago.Writer the exporter needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Exporter publishes canonical observations to a Kafka topic, one message
// per observation keyed by station id. It implements pipeline.Exporter.
type Exporter struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewExporter creates a Kafka producer for topic.
func NewExporter(brokers []string, topic string, logger *slog.Logger) *Exporter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newExporter(w, logger)
}

func newExporter(w messageWriter, logger *slog.Logger) *Exporter {
	e := &Exporter{writer: w, logger: logger}
	e.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "kafka",
		Timeout: breakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return e
}

// Name identifies the exporter in metrics and logs.
func (e *Exporter) Name() string { return "kafka" }

// Export serializes the batch and publishes it in a single WriteMessages
// call. While the breaker is open, batches are rejected without contacting
// the brokers.
func (e *Exporter) Export(ctx context.Context, batch domain.ExportBatch) error {
	if len(batch.Table) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(batch.Table))
	for i := range batch.Table {
		msg, err := serializeToMessage(batch, batch.Table[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	_, err := e.breaker.Execute(func() (interface{}, error) {
		return nil, e.writer.WriteMessages(ctx, msgs...)
	})
	if err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (e *Exporter) Close() error {
	return e.writer.Close()
}

// serializeToMessage marshals one observation into a Kafka message.
func serializeToMessage(batch domain.ExportBatch, o domain.Observation) (kafkago.Message, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(o.StationID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "network", Value: []byte(batch.NetworkID)},
			{Key: "run_id", Value: []byte(batch.RunID)},
			{Key: "variable", Value: []byte(o.Variable)},
			{Key: "processed_at", Value: []byte(batch.ProcessedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
