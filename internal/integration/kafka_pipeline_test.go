//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/airq-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/airq-etl/internal/adapter/kafka"
	"github.com/couchcryptid/airq-etl/internal/domain"
	"github.com/couchcryptid/airq-etl/internal/observability"
	"github.com/couchcryptid/airq-etl/internal/pipeline"
	"github.com/couchcryptid/airq-etl/internal/profile"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testTopic = "test-observations"

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("airq-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cconn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cconn.Close()

	require.NoError(t, cconn.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

// TestPipelineExportsToKafka runs a SINCA file through the pipeline with the
// Kafka exporter attached and reads every observation back from the topic.
func TestPipelineExportsToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	exporter := kafka.NewExporter([]string{broker}, testTopic, logger)
	t.Cleanup(func() { _ = exporter.Close() })

	registry, err := profile.Load("")
	require.NoError(t, err)

	dir := t.TempDir()
	in := filepath.Join(dir, "ID-330020--Cal_HH.csv")
	require.NoError(t, os.WriteFile(in, []byte("date_utc,PM25--H_ug/m3N,O3_ppb\n"+
		"2023-06-01 03:00:00,12.5,20\n"+
		"2023-06-01 04:00:00,NA,21\n"), 0o644))

	p := pipeline.New(registry, csvfile.NewWriter(), logger, observability.NewMetricsForTesting(),
		pipeline.WithExporters(exporter))
	report, err := p.Run(ctx, in, "sinca", filepath.Join(dir, "out.csv"))
	require.NoError(t, err)
	require.Empty(t, report.ExportErrors)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()

	var got []domain.Observation
	for len(got) < report.Result.RowsWritten {
		msg, err := consumer.ReadMessage(readCtx)
		require.NoError(t, err, "read from topic")

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, "sinca", headers["network"])
		assert.Equal(t, report.RunID, headers["run_id"])
		assert.Equal(t, "330020", string(msg.Key))

		var o domain.Observation
		require.NoError(t, json.Unmarshal(msg.Value, &o))
		got = append(got, o)
	}

	assert.Len(t, got, 4)
	assert.Empty(t, domain.Check(got))
}
