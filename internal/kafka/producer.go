package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/scrabble-score/internal/config"
	"github.com/scrabble-score/internal/domain"
)

// Producer publishes game events
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	source   string
	logger   *slog.Logger
}

// NewProducer connects a synchronous producer to the configured brokers.
// source identifies this process so its own events can be told apart.
func NewProducer(cfg *config.KafkaConfig, source string, logger *slog.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = cfg.RetryAttempts
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return NewProducerWith(producer, cfg.Topic, source, logger), nil
}

// NewProducerWith wraps an existing sarama producer
func NewProducerWith(producer sarama.SyncProducer, topic, source string, logger *slog.Logger) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
		source:   source,
		logger:   logger,
	}
}

// PublishGameFinished sends a game_finished event keyed by the player pair,
// so one pair's games stay ordered on one partition.
func (p *Producer) PublishGameFinished(_ context.Context, record domain.GameRecord) error {
	value, err := json.Marshal(GameEvent{
		Type:      EventGameFinished,
		Source:    p.source,
		Record:    record,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding game event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(domain.PairKey(record.Player1, record.Player2)),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("publishing game event: %w", err)
	}

	p.logger.Debug("published game event",
		"game_id", record.ID,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

// Close flushes and closes the producer
func (p *Producer) Close() error {
	return p.producer.Close()
}
