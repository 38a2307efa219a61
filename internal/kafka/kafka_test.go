package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrabble-score/internal/config"
	"github.com/scrabble-score/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func aliceWins() domain.GameRecord {
	winner := "Alice"
	return domain.GameRecord{
		ID:           "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d",
		Player1:      "Alice",
		Player2:      "Bob",
		Player1Score: 50,
		Player2Score: 25,
		Winner:       &winner,
		Turns:        []domain.Turn{},
	}
}

func TestProducer_PublishGameFinished(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	mock := mocks.NewSyncProducer(t, cfg)

	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "alice|bob" {
			return errors.New("unexpected key " + string(key))
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var event GameEvent
		if err := json.Unmarshal(value, &event); err != nil {
			return err
		}
		if event.Type != EventGameFinished || event.Source != "node-a" || event.Record.WinnerName() != "Alice" {
			return errors.New("unexpected event")
		}
		return nil
	})

	producer := NewProducerWith(mock, "scrabble-games", "node-a", discardLogger())
	require.NoError(t, producer.PublishGameFinished(context.Background(), aliceWins()))
	require.NoError(t, producer.Close())
}

func TestProducer_PublishFailure(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	mock := mocks.NewSyncProducer(t, cfg)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := NewProducerWith(mock, "scrabble-games", "node-a", discardLogger())
	err := producer.PublishGameFinished(context.Background(), aliceWins())
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, producer.Close())
}

type recordingHandler struct {
	mu      sync.Mutex
	records []domain.GameRecord
}

func (h *recordingHandler) OnGameRecorded(_ context.Context, record domain.GameRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, record)
}

func TestConsumer_HandleMessage(t *testing.T) {
	handler := &recordingHandler{}
	c := &Consumer{source: "node-a", handler: handler, logger: discardLogger(), ctx: context.Background()}

	encode := func(event GameEvent) *sarama.ConsumerMessage {
		value, err := json.Marshal(event)
		require.NoError(t, err)
		return &sarama.ConsumerMessage{Value: value}
	}

	assert.True(t, c.handleMessage(encode(GameEvent{Type: EventGameFinished, Source: "node-b", Record: aliceWins()})))
	assert.False(t, c.handleMessage(encode(GameEvent{Type: EventGameFinished, Source: "node-a", Record: aliceWins()})), "own event")
	assert.False(t, c.handleMessage(encode(GameEvent{Type: "something_else", Source: "node-b"})))
	assert.False(t, c.handleMessage(&sarama.ConsumerMessage{Value: []byte("not json")}))

	require.Len(t, handler.records, 1)
	assert.Equal(t, "Alice", handler.records[0].WinnerName())
}

// flakyGroup fails the first Consume, then sets up a session and blocks until cancelled
type flakyGroup struct {
	mu       sync.Mutex
	calls    int
	failures int
	errs     chan error
}

func (g *flakyGroup) Consume(ctx context.Context, _ []string, handler sarama.ConsumerGroupHandler) error {
	g.mu.Lock()
	g.calls++
	fail := g.calls <= g.failures
	g.mu.Unlock()

	if fail {
		return sarama.ErrOutOfBrokers
	}
	if err := handler.Setup(nil); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (g *flakyGroup) Errors() <-chan error      { return g.errs }
func (g *flakyGroup) Close() error              { return nil }
func (g *flakyGroup) Pause(map[string][]int32)  {}
func (g *flakyGroup) Resume(map[string][]int32) {}
func (g *flakyGroup) PauseAll()                 {}
func (g *flakyGroup) ResumeAll()                {}

func (g *flakyGroup) consumeCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestConsumer_StartSurvivesFailedConsume(t *testing.T) {
	group := &flakyGroup{failures: 2, errs: make(chan error)}
	cfg := &config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "scrabble-games"}
	c := newConsumerWith(group, cfg, "node-a", &recordingHandler{}, discardLogger())
	c.retryBackoff = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, c.Start(ctx))
	assert.Equal(t, 3, group.consumeCalls())
	require.NoError(t, c.Stop())
}

func TestConsumer_StopDuringBackoff(t *testing.T) {
	group := &flakyGroup{failures: 1000, errs: make(chan error)}
	cfg := &config.KafkaConfig{Topic: "scrabble-games"}
	c := newConsumerWith(group, cfg, "node-a", &recordingHandler{}, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, c.Start(ctx), context.DeadlineExceeded)
	require.NoError(t, c.Stop())
	assert.Equal(t, 1, group.consumeCalls(), "waits out the backoff instead of spinning")
}
