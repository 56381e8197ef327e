package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/lane-heatmap-service/internal/config"
	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces loaded lanes to a Kafka topic.
// It implements pipeline.LanePublisher.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured lanes topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaLanesTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishLanes serializes every lane of the dataset and writes them in a
// single WriteMessages call. Lanes are keyed by ID so a lane always lands on
// the same partition.
func (p *Publisher) PublishLanes(ctx context.Context, ds domain.Dataset) (int, error) {
	if len(ds.Lanes) == 0 {
		return 0, nil
	}
	msgs := make([]kafkago.Message, len(ds.Lanes))
	for i := range ds.Lanes {
		msg, err := serializeLane(ds.ID, ds.FileName, ds.Lanes[i])
		if err != nil {
			return 0, err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("write lanes: %w", err)
	}
	p.logger.Debug("lanes published", "dataset_id", ds.ID, "count", len(msgs))
	return len(msgs), nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// laneMessage is the wire form of a published lane.
type laneMessage struct {
	DatasetID string `json:"dataset_id"`
	FileName  string `json:"file_name"`
	domain.Lane
}

// serializeLane marshals a lane into a Kafka message.
func serializeLane(datasetID, fileName string, lane domain.Lane) (kafkago.Message, error) {
	data, err := json.Marshal(laneMessage{DatasetID: datasetID, FileName: fileName, Lane: lane})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize lane %s: %w", lane.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(lane.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "dataset_id", Value: []byte(datasetID)},
			{Key: "origin_zip", Value: []byte(lane.OriginZip)},
		},
	}, nil
}
