package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/scrabble-score/internal/config"
	"github.com/scrabble-score/internal/domain"
)

// GameHandler reacts to games recorded by any process
type GameHandler interface {
	OnGameRecorded(ctx context.Context, record domain.GameRecord)
}

// Consumer consumes game events from Kafka
type Consumer struct {
	config        *config.KafkaConfig
	source        string
	handler       GameHandler
	logger        *slog.Logger
	consumerGroup sarama.ConsumerGroup
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	retryBackoff  time.Duration

	// ready is closed once, when the first session is set up
	ready     chan struct{}
	readyOnce sync.Once
}

// defaultRetryBackoff is the pause between failed Consume calls
const defaultRetryBackoff = 2 * time.Second

// NewConsumer creates a new Kafka consumer. Events published by source are skipped.
func NewConsumer(cfg *config.KafkaConfig, source string, handler GameHandler, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	// every process needs every event, so each one joins its own group
	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID+"-"+source, saramaConfig)
	if err != nil {
		return nil, err
	}
	return newConsumerWith(consumerGroup, cfg, source, handler, logger), nil
}

func newConsumerWith(group sarama.ConsumerGroup, cfg *config.KafkaConfig, source string, handler GameHandler, logger *slog.Logger) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		config:        cfg,
		source:        source,
		handler:       handler,
		logger:        logger,
		consumerGroup: group,
		ctx:           ctx,
		cancel:        cancel,
		retryBackoff:  defaultRetryBackoff,
		ready:         make(chan struct{}),
	}
}

func (c *Consumer) markReady() {
	c.readyOnce.Do(func() { close(c.ready) })
}

// Start begins consuming messages and returns once the first session is set up.
// If ctx ends first the consumer keeps retrying in the background until Stop.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting Kafka consumer",
		"brokers", c.config.Brokers,
		"topic", c.config.Topic,
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		handler := &consumerGroupHandler{consumer: c}
		for {
			err := c.consumerGroup.Consume(c.ctx, []string{c.config.Topic}, handler)
			if errors.Is(err, sarama.ErrClosedConsumerGroup) || c.ctx.Err() != nil {
				return
			}
			if err != nil {
				c.logger.Error("error from consumer, retrying", "error", err, "backoff", c.retryBackoff)
				select {
				case <-c.ctx.Done():
					return
				case <-time.After(c.retryBackoff):
				}
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			case err, ok := <-c.consumerGroup.Errors():
				if !ok {
					return
				}
				c.logger.Error("consumer group error", "error", err)
			}
		}
	}()

	select {
	case <-c.ready:
		c.logger.Info("Kafka consumer ready")
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info("stopping Kafka consumer")
	c.cancel()
	c.wg.Wait()
	return c.consumerGroup.Close()
}

// handleMessage decodes one message and dispatches it. It reports whether the handler ran.
func (c *Consumer) handleMessage(message *sarama.ConsumerMessage) bool {
	var event GameEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		c.logger.Warn("failed to unmarshal message",
			"error", err,
			"offset", message.Offset,
			"partition", message.Partition,
		)
		return false
	}
	if event.Type != EventGameFinished || event.Source == c.source {
		return false
	}

	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()
	c.handler.OnGameRecorded(ctx, event.Record)
	return true
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
}

// Setup is called at the beginning of a new session
func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.consumer.markReady()
	return nil
}

// Cleanup is called at the end of a session
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim processes messages from a topic partition
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.consumer.handleMessage(message)
			session.MarkMessage(message, "")
		}
	}
}
