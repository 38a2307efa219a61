package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/scrabble-score/internal/config"
	"github.com/scrabble-score/internal/domain"
)

// HistorySource reloads the shared game history
type HistorySource interface {
	History(ctx context.Context) []domain.GameRecord
}

// HistoryRefresher periodically reloads history so games stored by other
// devices show up without a restart
type HistoryRefresher struct {
	source  HistorySource
	config  *config.HistoryConfig
	clock   quartz.Clock
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewHistoryRefresher creates a new history refresher
func NewHistoryRefresher(source HistorySource, cfg *config.HistoryConfig, clock quartz.Clock, logger *slog.Logger) *HistoryRefresher {
	return &HistoryRefresher{
		source: source,
		config: cfg,
		clock:  clock,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background refresh loop
func (w *HistoryRefresher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true

	ticker := w.clock.NewTicker(w.config.RefreshInterval, "history")
	w.logger.Info("history refresher started", "interval", w.config.RefreshInterval)
	go w.run(ctx, ticker)
}

// Stop stops the refresh loop and waits for it to exit
func (w *HistoryRefresher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.logger.Info("history refresher stopped")
}

func (w *HistoryRefresher) run(ctx context.Context, ticker *quartz.Ticker) {
	defer close(w.doneCh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			start := w.clock.Now()
			records := w.source.History(ctx)
			w.logger.Debug("history refreshed",
				"games", len(records),
				"duration", w.clock.Since(start).Round(time.Millisecond),
			)
		}
	}
}
