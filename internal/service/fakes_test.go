package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/scrabble-score/internal/domain"
)

type fakeSnapshots struct {
	mu       sync.Mutex
	current  *domain.Snapshot
	saves    int
	clears   int
	loadErr  error
	writeErr error
}

func (f *fakeSnapshots) Load(context.Context) (*domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.loadErr
}

func (f *fakeSnapshots) Save(_ context.Context, snapshot *domain.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.saves++
	f.current = snapshot
	return nil
}

func (f *fakeSnapshots) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.clears++
	f.current = nil
	return nil
}

func (f *fakeSnapshots) get() *domain.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

var errStoreDown = errors.New("store unavailable")

type fakeGames struct {
	mu         sync.Mutex
	records    []domain.GameRecord
	createErr  error
	listErr    error
	h2hQueries [][2]string
	listCalls  int
	createGate chan struct{}
	listGate   chan struct{}
	h2hHook    func(a, b string)
}

func (f *fakeGames) CreateGameRecord(_ context.Context, record domain.GameRecord) (domain.GameRecord, error) {
	if f.createGate != nil {
		<-f.createGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.GameRecord{}, f.createErr
	}
	record.ID = "game-" + string(rune('a'+len(f.records)))
	now := time.Now()
	record.CreatedAt = &now
	f.records = append([]domain.GameRecord{record}, f.records...)
	return record, nil
}

func (f *fakeGames) ListGameRecords(context.Context, int) ([]domain.GameRecord, error) {
	f.mu.Lock()
	gate := f.listGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.GameRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeGames) lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeGames) QueryHeadToHead(_ context.Context, a, b string) (domain.HeadToHeadRecord, error) {
	f.mu.Lock()
	hook := f.h2hHook
	f.mu.Unlock()
	if hook != nil {
		hook(a, b)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.h2hQueries = append(f.h2hQueries, [2]string{a, b})
	return domain.ComputeHeadToHead(f.records, a, b), nil
}

func (f *fakeGames) queries() [][2]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]string(nil), f.h2hQueries...)
}

func (f *fakeGames) add(record domain.GameRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append([]domain.GameRecord{record}, f.records...)
}

func (f *fakeGames) setListGate(gate chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listGate = gate
}

func (f *fakeGames) setH2HHook(hook func(a, b string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.h2hHook = hook
}

func (f *fakeGames) setCreateErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
}

type fakeCommentary struct {
	mu    sync.Mutex
	quips []string
	gate  chan struct{}
}

func (f *fakeCommentary) SlowTurnQuip(_ context.Context, player string, _ time.Duration) string {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quips = append(f.quips, player)
	return "Did " + player + " fall asleep on the tiles?"
}

func (f *fakeCommentary) VictoryPoem(_ context.Context, winner, loser string, _, _ int) string {
	return "Ode to " + winner + " over " + loser
}

type fakeEvents struct {
	mu        sync.Mutex
	published []domain.GameRecord
}

func (f *fakeEvents) PublishGameFinished(_ context.Context, record domain.GameRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, record)
	return nil
}

type fakeBroadcaster struct {
	mu      sync.Mutex
	states  int
	history int
}

func (f *fakeBroadcaster) BroadcastState(any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states++
}

func (f *fakeBroadcaster) BroadcastHistory([]domain.GameRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history++
}
