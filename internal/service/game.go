package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/scrabble-score/internal/commentary"
	"github.com/scrabble-score/internal/config"
	"github.com/scrabble-score/internal/debounce"
	"github.com/scrabble-score/internal/domain"
	"github.com/scrabble-score/internal/game"
)

// SlowTurnPending is shown while a slow-turn quip is being generated
const SlowTurnPending = "Thinking of something witty..."

// SnapshotStore keeps the in-progress session across restarts
type SnapshotStore interface {
	Load(ctx context.Context) (*domain.Snapshot, error)
	Save(ctx context.Context, snapshot *domain.Snapshot) error
	Clear(ctx context.Context) error
}

// GameRepository is the shared store of finished games
type GameRepository interface {
	CreateGameRecord(ctx context.Context, record domain.GameRecord) (domain.GameRecord, error)
	ListGameRecords(ctx context.Context, limit int) ([]domain.GameRecord, error)
	QueryHeadToHead(ctx context.Context, a, b string) (domain.HeadToHeadRecord, error)
}

// Commentator writes the quips and poems. Its methods always return text.
type Commentator interface {
	SlowTurnQuip(ctx context.Context, player string, duration time.Duration) string
	VictoryPoem(ctx context.Context, winner, loser string, winnerScore, loserScore int) string
}

// EventPublisher announces finished games to other processes
type EventPublisher interface {
	PublishGameFinished(ctx context.Context, record domain.GameRecord) error
}

// Broadcaster pushes changes to connected viewers
type Broadcaster interface {
	BroadcastState(view any)
	BroadcastHistory(records []domain.GameRecord)
}

// Dependencies are the collaborators of a GameService. Events and Broadcaster may be nil.
type Dependencies struct {
	Snapshots   SnapshotStore
	Games       GameRepository
	Commentary  Commentator
	Events      EventPublisher
	Broadcaster Broadcaster
}

// View is what a viewer sees of the session
type View struct {
	Phase           domain.Phase             `json:"phase"`
	Session         *domain.Session          `json:"session,omitempty"`
	CurrentPlayer   string                   `json:"currentPlayer,omitempty"`
	Round           int                      `json:"round,omitempty"`
	Totals          domain.Totals            `json:"totals"`
	Player1Name     string                   `json:"player1Name"`
	Player2Name     string                   `json:"player2Name"`
	HeadToHead      *domain.HeadToHeadRecord `json:"headToHead,omitempty"`
	SlowTurnComment string                   `json:"slowTurnComment,omitempty"`
	VictoryPoem     string                   `json:"victoryPoem,omitempty"`
	GeneratingPoem  bool                     `json:"generatingPoem"`
	Saving          bool                     `json:"saving"`
	SaveError       string                   `json:"saveError,omitempty"`
}

// GameService owns the single live session and everything shown alongside it
type GameService struct {
	deps   Dependencies
	cfg    *config.GameConfig
	clock  quartz.Clock
	logger *slog.Logger

	mu             sync.Mutex
	state          game.State
	player1Name    string
	player2Name    string
	headToHead     *domain.HeadToHeadRecord
	headToHeadGen  uint64
	slowComment    string
	advisoryGen    uint64
	advisoryTimer  *quartz.Timer
	victoryPoem    string
	generatingPoem bool
	saving         bool
	saveError      string
	history        []domain.GameRecord

	names   *debounce.Debouncer
	refresh singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGameService creates a service in the setup phase
func NewGameService(deps Dependencies, cfg *config.GameConfig, clock quartz.Clock, logger *slog.Logger) *GameService {
	ctx, cancel := context.WithCancel(context.Background())
	return &GameService{
		deps:    deps,
		cfg:     cfg,
		clock:   clock,
		logger:  logger,
		state:   game.Initial(),
		history: []domain.GameRecord{},
		names:   debounce.New(clock, cfg.NameDebounce),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Restore resumes a saved in-progress session and loads the history.
// It reports whether a session was resumed.
func (s *GameService) Restore(ctx context.Context) bool {
	snapshot, err := s.deps.Snapshots.Load(ctx)
	if err != nil {
		s.logger.Warn("failed to load snapshot", "error", err)
	}

	s.mu.Lock()
	state, ok := game.Restore(snapshot)
	if ok {
		s.state = state
		s.player1Name = state.Session.Player1
		s.player2Name = state.Session.Player2
		s.logger.Info("resumed session",
			"session_id", state.Session.ID,
			"turns", len(state.Session.Turns),
		)
	}
	s.mu.Unlock()

	s.goBackground(func(ctx context.Context) {
		s.History(ctx)
		if ok {
			s.refreshHeadToHead(ctx, state.Session.Player1, state.Session.Player2)
		}
	})
	return ok
}

// SetPlayerNames records the names typed during setup and schedules a
// debounced history and head-to-head lookup
func (s *GameService) SetPlayerNames(player1, player2 string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != domain.PhaseSetup {
		return s.viewLocked(), fmt.Errorf("set player names: %w", domain.ErrInvalidPhase)
	}
	s.player1Name = player1
	s.player2Name = player2
	s.headToHeadGen++
	gen := s.headToHeadGen

	s.names.Trigger(func() {
		s.loadHeadToHead(gen, player1, player2)
	})

	s.broadcastLocked()
	return s.viewLocked(), nil
}

// loadHeadToHead runs after the name debounce. It refreshes the history and
// the pair's record. Results for superseded names are dropped.
func (s *GameService) loadHeadToHead(gen uint64, player1, player2 string) {
	var record *domain.HeadToHeadRecord
	p1, p2 := strings.TrimSpace(player1), strings.TrimSpace(player2)
	if p1 != "" && p2 != "" {
		s.History(s.ctx)
		h2h := s.queryHeadToHead(s.ctx, p1, p2)
		record = &h2h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.headToHeadGen {
		s.logger.Debug("dropping stale head-to-head", "player1", p1, "player2", p2)
		return
	}
	s.headToHead = record
	s.broadcastLocked()
}

// refreshHeadToHead re-queries the pair now, superseding any pending lookup
func (s *GameService) refreshHeadToHead(ctx context.Context, player1, player2 string) {
	s.mu.Lock()
	s.headToHeadGen++
	gen := s.headToHeadGen
	s.mu.Unlock()

	h2h := s.queryHeadToHead(ctx, player1, player2)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.headToHeadGen {
		s.headToHead = &h2h
		s.broadcastLocked()
	}
}

func (s *GameService) queryHeadToHead(ctx context.Context, player1, player2 string) domain.HeadToHeadRecord {
	h2h, err := s.deps.Games.QueryHeadToHead(ctx, player1, player2)
	if err != nil {
		s.logger.Warn("failed to query head-to-head", "error", err)
		return domain.HeadToHeadRecord{}
	}
	return h2h
}

// StartGame begins a session between the current player names
func (s *GameService) StartGame(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, _, err := game.Apply(s.state, game.StartEvent{
		Player1:   s.player1Name,
		Player2:   s.player2Name,
		SessionID: uuid.NewString(),
	}, s.clock.Now())
	if err != nil {
		return s.viewLocked(), err
	}

	s.state = next
	s.saveError = ""
	s.slowComment = ""
	s.victoryPoem = ""
	s.generatingPoem = false
	s.persistLocked(ctx)
	s.broadcastLocked()

	s.logger.Info("game started",
		"session_id", next.Session.ID,
		"player1", next.Session.Player1,
		"player2", next.Session.Player2,
	)
	return s.viewLocked(), nil
}

// SubmitScore records the current player's turn from raw input
func (s *GameService) SubmitScore(ctx context.Context, input string) (domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saving {
		return domain.Turn{}, domain.ErrSaveInProgress
	}
	next, out, err := game.Apply(s.state, game.SubmitScoreEvent{Input: input}, s.clock.Now())
	if err != nil {
		return domain.Turn{}, err
	}

	s.state = next
	turn := *out.Turn
	s.persistLocked(ctx)
	s.startAdvisoryLocked(turn)
	s.broadcastLocked()
	return turn, nil
}

// startAdvisoryLocked sets or clears the slow-turn comment for the turn just taken
func (s *GameService) startAdvisoryLocked(turn domain.Turn) {
	s.advisoryGen++
	if s.advisoryTimer != nil {
		s.advisoryTimer.Stop()
		s.advisoryTimer = nil
	}
	if turn.Elapsed() <= s.cfg.SlowTurnThreshold {
		s.slowComment = ""
		return
	}

	s.slowComment = SlowTurnPending
	gen := s.advisoryGen
	s.goBackground(func(ctx context.Context) {
		comment := s.deps.Commentary.SlowTurnQuip(ctx, turn.Player, turn.Elapsed())

		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.advisoryGen {
			return
		}
		s.slowComment = comment
		s.advisoryTimer = s.clock.AfterFunc(s.cfg.AdvisoryDuration, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if gen == s.advisoryGen {
				s.slowComment = ""
				s.broadcastLocked()
			}
		}, "advisory")
		s.broadcastLocked()
	})
}

// EditTurn replaces the score of a previous turn
func (s *GameService) EditTurn(ctx context.Context, index int, input string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saving {
		return s.viewLocked(), domain.ErrSaveInProgress
	}
	next, _, err := game.Apply(s.state, game.EditScoreEvent{Index: index, Input: input}, s.clock.Now())
	if err != nil {
		return s.viewLocked(), err
	}

	s.state = next
	s.persistLocked(ctx)
	s.broadcastLocked()
	return s.viewLocked(), nil
}

// EndGame persists the game and finishes the session. If the store rejects the
// record the session stays playing with a save error, and the call may be retried.
func (s *GameService) EndGame(ctx context.Context) (View, error) {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return s.View(), domain.ErrSaveInProgress
	}
	finished, out, err := game.Apply(s.state, game.EndEvent{}, s.clock.Now())
	if err != nil {
		view := s.viewLocked()
		s.mu.Unlock()
		return view, err
	}
	s.saving = true
	s.saveError = ""
	s.broadcastLocked()
	s.mu.Unlock()

	saved, err := s.deps.Games.CreateGameRecord(ctx, *out.Record)

	s.mu.Lock()
	s.saving = false
	if err != nil {
		s.saveError = domain.UserMessage(domain.ErrSaveFailed)
		s.broadcastLocked()
		view := s.viewLocked()
		s.mu.Unlock()
		s.logger.Error("failed to save game", "session_id", finished.Session.ID, "error", err)
		return view, fmt.Errorf("%w: %w", domain.ErrSaveFailed, err)
	}
	s.state = finished
	s.persistLocked(ctx)
	s.broadcastLocked()
	s.mu.Unlock()

	s.logger.Info("game finished",
		"session_id", finished.Session.ID,
		"game_id", saved.ID,
		"winner", saved.WinnerName(),
		"player1_score", saved.Player1Score,
		"player2_score", saved.Player2Score,
	)

	s.History(ctx)
	s.refreshHeadToHead(ctx, saved.Player1, saved.Player2)

	if s.deps.Events != nil {
		if err := s.deps.Events.PublishGameFinished(ctx, saved); err != nil {
			// Don't fail the request, the game is already stored
			s.logger.Warn("failed to publish game event", "game_id", saved.ID, "error", err)
		}
	}

	s.celebrate(finished.Session)
	return s.View(), nil
}

// celebrate sets the end-of-game text: a generated poem for a win, the draw text otherwise.
// It does nothing once the session is no longer the finished one on screen.
func (s *GameService) celebrate(session *domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.showingFinished(session.ID) {
		s.logger.Debug("session replaced before celebration", "session_id", session.ID)
		return
	}

	if session.Winner == nil {
		s.victoryPoem = commentary.DrawPoem
		s.broadcastLocked()
		return
	}

	winner := *session.Winner
	loser := session.Opponent(winner)
	winnerScore, loserScore := session.FinalScores.Player1, session.FinalScores.Player2
	if winner == session.Player2 {
		winnerScore, loserScore = loserScore, winnerScore
	}

	s.generatingPoem = true
	s.broadcastLocked()
	s.goBackground(func(ctx context.Context) {
		poem := s.deps.Commentary.VictoryPoem(ctx, winner, loser, winnerScore, loserScore)

		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.showingFinished(session.ID) {
			return
		}
		s.victoryPoem = poem
		s.generatingPoem = false
		s.broadcastLocked()
	})
}

// NewGame discards the finished session. The player names are kept for a rematch.
func (s *GameService) NewGame(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, _, err := game.Apply(s.state, game.NewGameEvent{}, s.clock.Now())
	if err != nil {
		return s.viewLocked(), err
	}

	s.state = next
	s.advisoryGen++
	if s.advisoryTimer != nil {
		s.advisoryTimer.Stop()
		s.advisoryTimer = nil
	}
	s.slowComment = ""
	s.victoryPoem = ""
	s.generatingPoem = false
	s.saveError = ""
	s.persistLocked(ctx)
	s.broadcastLocked()
	return s.viewLocked(), nil
}

func (s *GameService) showingFinished(sessionID string) bool {
	return s.state.Phase == domain.PhaseFinished && s.state.Session != nil && s.state.Session.ID == sessionID
}

// History returns all stored games, most recent first. Concurrent calls share one query.
// On failure it returns an empty list.
func (s *GameService) History(ctx context.Context) []domain.GameRecord {
	v, err, _ := s.refresh.Do("history", func() (any, error) {
		return s.deps.Games.ListGameRecords(context.WithoutCancel(ctx), 0)
	})
	if err != nil {
		s.logger.Warn("failed to load game history", "error", err)
		return []domain.GameRecord{}
	}
	records := v.([]domain.GameRecord)

	s.mu.Lock()
	s.history = records
	s.mu.Unlock()

	if s.deps.Broadcaster != nil {
		s.deps.Broadcaster.BroadcastHistory(records)
	}
	return records
}

// CachedHistory returns the last successfully loaded history without querying
func (s *GameService) CachedHistory() []domain.GameRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history
}

// HeadToHead returns player1's record against player2
func (s *GameService) HeadToHead(ctx context.Context, player1, player2 string) (domain.HeadToHeadRecord, error) {
	p1, p2 := strings.TrimSpace(player1), strings.TrimSpace(player2)
	if p1 == "" || p2 == "" {
		return domain.HeadToHeadRecord{}, domain.ErrPlayerNameRequired
	}
	return s.queryHeadToHead(ctx, p1, p2), nil
}

// OnGameRecorded reacts to a game stored by another process
func (s *GameService) OnGameRecorded(ctx context.Context, record domain.GameRecord) {
	s.logger.Debug("game recorded elsewhere", "game_id", record.ID)
	s.History(ctx)

	s.mu.Lock()
	p1, p2 := strings.TrimSpace(s.player1Name), strings.TrimSpace(s.player2Name)
	if s.state.Session != nil {
		p1, p2 = s.state.Session.Player1, s.state.Session.Player2
	}
	s.mu.Unlock()

	if p1 != "" && p2 != "" && domain.SamePair(record, p1, p2) {
		s.refreshHeadToHead(ctx, p1, p2)
	}
}

// View returns the current session view
func (s *GameService) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *GameService) viewLocked() View {
	view := View{
		Phase:           s.state.Phase,
		Session:         s.state.Session.Clone(),
		CurrentPlayer:   s.state.CurrentPlayer(),
		Totals:          s.state.Totals(),
		Player1Name:     s.player1Name,
		Player2Name:     s.player2Name,
		SlowTurnComment: s.slowComment,
		VictoryPoem:     s.victoryPoem,
		GeneratingPoem:  s.generatingPoem,
		Saving:          s.saving,
		SaveError:       s.saveError,
	}
	if s.state.Phase == domain.PhasePlaying {
		view.Round = len(s.state.Session.Turns)/2 + 1
	}
	if s.headToHead != nil {
		h2h := *s.headToHead
		view.HeadToHead = &h2h
	}
	return view
}

// persistLocked writes or removes the local snapshot to match the committed state
func (s *GameService) persistLocked(ctx context.Context) {
	snapshot := s.state.Snapshot()
	if snapshot == nil {
		if err := s.deps.Snapshots.Clear(ctx); err != nil {
			s.logger.Warn("failed to clear snapshot", "error", err)
		}
		return
	}
	if err := s.deps.Snapshots.Save(ctx, snapshot); err != nil {
		s.logger.Warn("failed to save snapshot", "session_id", snapshot.Game.ID, "error", err)
	}
}

func (s *GameService) broadcastLocked() {
	if s.deps.Broadcaster != nil {
		s.deps.Broadcaster.BroadcastState(s.viewLocked())
	}
}

func (s *GameService) goBackground(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

// Wait blocks until background commentary and refreshes have finished
func (s *GameService) Wait() {
	s.wg.Wait()
}

// Close cancels background work and waits for it
func (s *GameService) Close() {
	s.names.Stop()
	s.cancel()
	s.wg.Wait()
}
