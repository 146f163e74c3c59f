// Package service keeps the set of live matches and coordinates moves with
// persistence, the snapshot cache, move suggestion and long-poll waiters.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chesstrack/internal/board"
	"chesstrack/internal/core"
	"chesstrack/internal/engine"
	"chesstrack/internal/game"
	"chesstrack/internal/obslog"
	"chesstrack/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrGameNotFound      = errors.New("game not found")
	ErrGameOver          = errors.New("game is over")
	ErrNotHumanTurn      = errors.New("it is not a human player's turn")
	ErrNotComputerTurn   = errors.New("it is not a computer player's turn")
	ErrMovePending       = errors.New("computer move already in progress")
	ErrStaleMove         = errors.New("position changed while the move was computed")
	ErrEngineUnavailable = errors.New("no move suggester configured")
	ErrInvalidUndo       = errors.New("cannot undo")
)

// Service is the state manager for all live matches
type Service struct {
	games    map[string]*game.Match
	mu       sync.RWMutex
	store    *storage.Store // nil if persistence disabled
	cache    *storage.Cache // nil if the snapshot cache is disabled
	engine   engine.Suggester
	fallback engine.Suggester
	waiter   *WaitRegistry
	log      *zap.Logger
	lastRev  int64 // guarded by mu
}

type Option func(*Service)

func WithStore(store *storage.Store) Option {
	return func(s *Service) { s.store = store }
}

func WithCache(cache *storage.Cache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithSuggester sets the backend for computer moves and hints.
func WithSuggester(sg engine.Suggester) Option {
	return func(s *Service) { s.engine = sg }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithWaitTimeout(d time.Duration) Option {
	return func(s *Service) { s.waiter.timeout = d }
}

func New(opts ...Option) *Service {
	s := &Service{
		games:    make(map[string]*game.Match),
		fallback: engine.NewGreedy(nil),
		waiter:   NewWaitRegistry(),
		log:      obslog.L(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGame starts a match from fen, or from the standard position when
// fen is empty, and returns its id.
func (s *Service) CreateGame(ctx context.Context, white, black core.PlayerConfig, fen string) (string, error) {
	whitePlayer := core.NewPlayer(white, board.White)
	blackPlayer := core.NewPlayer(black, board.Black)

	m, err := game.NewMatch(fen, whitePlayer, blackPlayer)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	id := s.generateGameID()
	s.games[id] = m
	view := newView(id, m)
	rev := s.nextRevision()
	s.mu.Unlock()

	if s.store != nil {
		s.store.RecordNewGame(storage.GameRecord{
			GameID:          id,
			InitialFEN:      m.InitialFEN(),
			WhitePlayerID:   whitePlayer.ID,
			WhiteType:       int(whitePlayer.Type),
			WhiteLevel:      whitePlayer.Level,
			WhiteSearchTime: whitePlayer.SearchTime,
			BlackPlayerID:   blackPlayer.ID,
			BlackType:       int(blackPlayer.Type),
			BlackLevel:      blackPlayer.Level,
			BlackSearchTime: blackPlayer.SearchTime,
			StartTimeUTC:    time.Now().UTC(),
		})
	}
	s.saveSnapshot(ctx, view, rev)

	s.log.Info("game created",
		zap.String("game_id", id),
		zap.String("fen", view.FEN),
		zap.Stringer("white", whitePlayer.Type),
		zap.Stringer("black", blackPlayer.Type))
	return id, nil
}

// nextRevision orders cache snapshots. It is wall-clock based so that a
// restarted server still writes past the revisions it left behind. Must
// be called with the lock held, together with building the saved view.
func (s *Service) nextRevision() int64 {
	rev := time.Now().UnixNano()
	if rev <= s.lastRev {
		rev = s.lastRev + 1
	}
	s.lastRev = rev
	return rev
}

// generateGameID must be called with the lock held.
func (s *Service) generateGameID() string {
	for {
		id := uuid.New().String()
		if _, exists := s.games[id]; !exists {
			return id
		}
	}
}

// GetGame returns a snapshot of a match, restoring it from the cache or
// the database when it is not live.
func (s *Service) GetGame(ctx context.Context, gameID string) (*GameView, error) {
	s.mu.RLock()
	m, ok := s.games[gameID]
	var view *GameView
	if ok {
		view = newView(gameID, m)
	}
	s.mu.RUnlock()
	if ok {
		return view, nil
	}
	return s.restore(ctx, gameID)
}

// UpdatePlayers replaces both players of a match.
func (s *Service) UpdatePlayers(ctx context.Context, gameID string, white, black core.PlayerConfig) (*GameView, error) {
	s.mu.Lock()
	m, err := s.lookup(gameID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if m.State() == core.StatePending {
		s.mu.Unlock()
		return nil, ErrMovePending
	}
	m.UpdatePlayers(core.NewPlayer(white, board.White), core.NewPlayer(black, board.Black))
	view := newView(gameID, m)
	rev := s.nextRevision()
	s.mu.Unlock()

	s.saveSnapshot(ctx, view, rev)
	s.waiter.NotifyGame(gameID)
	return view, nil
}

// DeleteGame removes a match from memory, the cache and the database.
func (s *Service) DeleteGame(ctx context.Context, gameID string) error {
	s.mu.Lock()
	if _, err := s.lookup(gameID); err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.games, gameID)
	s.mu.Unlock()

	s.waiter.RemoveGame(gameID)
	if s.store != nil {
		s.store.DeleteGame(gameID)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, gameID); err != nil {
			s.log.Warn("cache delete failed", zap.String("game_id", gameID), zap.Error(err))
		}
	}
	s.log.Info("game deleted", zap.String("game_id", gameID))
	return nil
}

// lookup must be called with the lock held.
func (s *Service) lookup(gameID string) (*game.Match, error) {
	m, ok := s.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return m, nil
}

// StorageHealth returns "ok", "degraded" or "disabled".
func (s *Service) StorageHealth() string {
	if s.store == nil {
		return "disabled"
	}
	if s.store.IsHealthy() {
		return "ok"
	}
	return "degraded"
}

// CacheHealth returns "ok", "unreachable" or "disabled".
func (s *Service) CacheHealth(ctx context.Context) string {
	if s.cache == nil {
		return "disabled"
	}
	if err := s.cache.Ping(ctx); err != nil {
		return "unreachable"
	}
	return "ok"
}

// EngineName names the configured suggester, or "none".
func (s *Service) EngineName() string {
	if s.engine == nil {
		return "none"
	}
	return s.engine.Name()
}

// Close releases waiters and closes the suggester, cache and store.
func (s *Service) Close(timeout time.Duration) error {
	var errs []error
	if err := s.waiter.Shutdown(timeout); err != nil {
		errs = append(errs, err)
	}

	s.mu.Lock()
	s.games = make(map[string]*game.Match)
	s.mu.Unlock()

	if s.engine != nil {
		errs = append(errs, s.engine.Close())
	}
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}
