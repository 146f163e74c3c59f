package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chesstrack/internal/board"
	"chesstrack/internal/core"
	"chesstrack/internal/game"
	"chesstrack/internal/storage"

	"go.uber.org/zap"
)

const cacheTimeout = 2 * time.Second

func moveRecord(view *GameView, res *game.MoveResult) storage.MoveRecord {
	rec := storage.MoveRecord{
		GameID:       view.ID,
		MoveNumber:   view.MoveCount(),
		Move:         res.Move,
		FENAfterMove: view.FEN,
		PlayerColor:  string(res.Player.Letter()),
		MoveTimeUTC:  time.Now().UTC(),
	}
	if !res.Captured.IsZero() {
		rec.Captured = string(res.Captured.Symbol())
	}
	return rec
}

// saveSnapshot writes view to the cache unless a later revision is
// already there. Failures are logged only.
func (s *Service) saveSnapshot(ctx context.Context, view *GameView, rev int64) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
	defer cancel()

	snap := &storage.MatchSnapshot{
		GameID:     view.ID,
		InitialFEN: view.InitialFEN,
		Moves:      view.Moves,
		State:      view.State.String(),
		White:      view.White,
		Black:      view.Black,
		Revision:   rev,
		UpdatedAt:  time.Now().UTC(),
	}
	// a pending search is not resumable
	if view.State == core.StatePending {
		snap.State = core.StateOngoing.String()
	}
	switch err := s.cache.Save(ctx, snap); {
	case errors.Is(err, storage.ErrStaleSnapshot):
		s.log.Debug("older snapshot skipped", zap.String("game_id", view.ID), zap.Int64("revision", rev))
	case err != nil:
		s.log.Warn("cache save failed", zap.String("game_id", view.ID), zap.Error(err))
	}
}

// ensureLoaded restores gameID into memory when it is not live.
func (s *Service) ensureLoaded(ctx context.Context, gameID string) error {
	s.mu.RLock()
	_, ok := s.games[gameID]
	s.mu.RUnlock()
	if ok {
		return nil
	}
	_, err := s.restore(ctx, gameID)
	return err
}

// restore rebuilds a match from the cache, then from the database, by
// replaying its moves.
func (s *Service) restore(ctx context.Context, gameID string) (*GameView, error) {
	snap, err := s.loadSnapshot(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}

	m, err := game.Replay(snap.InitialFEN, snap.White, snap.Black, snap.Moves)
	if err != nil {
		s.log.Error("restore replay failed", zap.String("game_id", gameID), zap.Error(err))
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	if st := core.ParseState(snap.State); st.IsOver() && !m.State().IsOver() {
		m.SetState(st)
	}

	s.mu.Lock()
	// another request may have restored it first
	if existing, ok := s.games[gameID]; ok {
		m = existing
	} else {
		s.games[gameID] = m
	}
	view := newView(gameID, m)
	s.mu.Unlock()

	s.log.Info("game restored", zap.String("game_id", gameID), zap.Int("moves", view.MoveCount()))
	return view, nil
}

func (s *Service) loadSnapshot(ctx context.Context, gameID string) (*storage.MatchSnapshot, error) {
	if s.cache != nil {
		cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
		snap, err := s.cache.Load(cctx, gameID)
		cancel()
		if err != nil {
			s.log.Warn("cache load failed", zap.String("game_id", gameID), zap.Error(err))
		} else if snap != nil {
			return snap, nil
		}
	}

	if s.store == nil {
		return nil, nil
	}
	games, err := s.store.QueryGames(gameID, "")
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", gameID, err)
	}
	if len(games) == 0 {
		return nil, nil
	}
	rec := games[0]
	moves, err := s.store.QueryMoves(gameID)
	if err != nil {
		return nil, fmt.Errorf("load moves %s: %w", gameID, err)
	}

	snap := &storage.MatchSnapshot{
		GameID:     rec.GameID,
		InitialFEN: rec.InitialFEN,
		State:      rec.State,
		White: &core.Player{
			ID: rec.WhitePlayerID, Color: board.White, Type: core.PlayerType(rec.WhiteType),
			Level: rec.WhiteLevel, SearchTime: rec.WhiteSearchTime,
		},
		Black: &core.Player{
			ID: rec.BlackPlayerID, Color: board.Black, Type: core.PlayerType(rec.BlackType),
			Level: rec.BlackLevel, SearchTime: rec.BlackSearchTime,
		},
	}
	for _, mv := range moves {
		snap.Moves = append(snap.Moves, mv.Move)
	}
	return snap, nil
}

// IsNotFound reports whether err means the game does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrGameNotFound) }
