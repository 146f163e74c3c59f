package service

import (
	"context"
	"errors"
	"fmt"

	"chesstrack/internal/board"
	"chesstrack/internal/core"
	"chesstrack/internal/engine"
	"chesstrack/internal/game"
	"chesstrack/internal/rules"

	"go.uber.org/zap"
)

// MakeMove applies a human player's move.
func (s *Service) MakeMove(ctx context.Context, gameID string, mv rules.Move) (*GameView, error) {
	if err := s.ensureLoaded(ctx, gameID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	m, err := s.lookup(gameID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if m.State().IsOver() {
		s.mu.Unlock()
		return nil, ErrGameOver
	}
	if p := m.NextPlayer(); p != nil && p.Type != core.PlayerHuman {
		s.mu.Unlock()
		return nil, ErrNotHumanTurn
	}

	res, err := m.Play(mv.From, mv.To)
	if err != nil {
		s.mu.Unlock()
		s.log.Debug("move rejected",
			zap.String("game_id", gameID),
			zap.Stringer("move", mv),
			zap.String("code", rules.CodeOf(err)))
		return nil, err
	}
	view := newView(gameID, m)
	rev := s.nextRevision()
	s.mu.Unlock()

	s.afterMove(ctx, view, res, rev)
	return view, nil
}

// MakeComputerMove asks the suggester for the side to move and applies
// the answer. The lock is released during the search; if the position
// changes meanwhile the result is discarded with ErrStaleMove. A
// suggestion the rules reject is replaced by the local fallback's move.
func (s *Service) MakeComputerMove(ctx context.Context, gameID string) (*GameView, error) {
	if s.engine == nil {
		return nil, ErrEngineUnavailable
	}
	if err := s.ensureLoaded(ctx, gameID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	m, err := s.lookup(gameID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	switch {
	case m.State().IsOver():
		s.mu.Unlock()
		return nil, ErrGameOver
	case m.State() == core.StatePending:
		s.mu.Unlock()
		return nil, ErrMovePending
	}
	player := m.NextPlayer()
	if player == nil || player.Type != core.PlayerComputer {
		s.mu.Unlock()
		return nil, ErrNotComputerTurn
	}
	m.SetState(core.StatePending)
	req := engine.Request{FEN: m.CurrentFEN(), Level: player.Level, SearchTime: player.SearchTime}
	moveCount := len(m.Moves())
	s.mu.Unlock()

	s.waiter.NotifyGame(gameID)

	mv, searchErr := s.engine.Suggest(ctx, req)

	s.mu.Lock()
	m, err = s.lookup(gameID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if m.State() != core.StatePending || len(m.Moves()) != moveCount || m.CurrentFEN() != req.FEN {
		s.mu.Unlock()
		return nil, ErrStaleMove
	}
	m.SetState(core.StateOngoing)
	if searchErr != nil {
		s.mu.Unlock()
		s.waiter.NotifyGame(gameID)
		s.log.Warn("suggester failed",
			zap.String("game_id", gameID),
			zap.String("engine", s.engine.Name()),
			zap.Error(searchErr))
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, searchErr)
	}

	res, err := m.Play(mv.From, mv.To)
	if err != nil {
		s.log.Warn("suggested move rejected, using fallback",
			zap.String("game_id", gameID),
			zap.Stringer("move", mv),
			zap.String("code", rules.CodeOf(err)))
		// the fallback is in-process and only reads the position
		if mv, err = s.fallback.Suggest(ctx, req); err == nil {
			res, err = m.Play(mv.From, mv.To)
		}
		if err != nil {
			s.mu.Unlock()
			s.waiter.NotifyGame(gameID)
			return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
	}
	res.Suggested = true
	view := newView(gameID, m)
	rev := s.nextRevision()
	s.mu.Unlock()

	s.afterMove(ctx, view, res, rev)
	return view, nil
}

// Suggest returns a hint for the side to move without applying it. The
// local fallback answers when no suggester is configured or when the
// configured one proposes an illegal move.
func (s *Service) Suggest(ctx context.Context, gameID string) (rules.Move, error) {
	view, err := s.GetGame(ctx, gameID)
	if err != nil {
		return rules.Move{}, err
	}
	if view.State.IsOver() {
		return rules.Move{}, ErrGameOver
	}

	req := engine.Request{FEN: view.FEN}
	if p := view.NextPlayer(); p != nil {
		req.Level, req.SearchTime = p.Level, p.SearchTime
	}

	if s.engine != nil {
		mv, err := s.engine.Suggest(ctx, req)
		if err == nil {
			if _, err = rules.Check(view, mv.From, mv.To, view.Turn); err == nil {
				return mv, nil
			}
		}
		s.log.Debug("suggester unusable for hint", zap.String("game_id", gameID), zap.Error(err))
	}
	return s.fallback.Suggest(ctx, req)
}

// Undo takes back count moves.
func (s *Service) Undo(ctx context.Context, gameID string, count int) (*GameView, error) {
	if err := s.ensureLoaded(ctx, gameID); err != nil {
		return nil, err
	}

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
	if err := m.Undo(count); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrInvalidUndo, err)
	}
	view := newView(gameID, m)
	rev := s.nextRevision()
	s.mu.Unlock()

	if s.store != nil {
		s.store.DeleteUndoneMoves(gameID, view.MoveCount())
		s.store.RecordState(gameID, view.State.String())
	}
	s.saveSnapshot(ctx, view, rev)
	s.waiter.NotifyGame(gameID)

	s.log.Info("moves undone", zap.String("game_id", gameID), zap.Int("count", count))
	return view, nil
}

// Resign ends the match in favor of color's opponent.
func (s *Service) Resign(ctx context.Context, gameID string, color board.Color) (*GameView, error) {
	if err := s.ensureLoaded(ctx, gameID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	m, err := s.lookup(gameID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := m.Resign(color); err != nil {
		s.mu.Unlock()
		return nil, ErrGameOver
	}
	view := newView(gameID, m)
	rev := s.nextRevision()
	s.mu.Unlock()

	if s.store != nil {
		s.store.RecordState(gameID, view.State.String())
	}
	s.saveSnapshot(ctx, view, rev)
	s.waiter.NotifyGame(gameID)

	s.log.Info("player resigned", zap.String("game_id", gameID), zap.Stringer("color", color))
	return view, nil
}

// testHookWaitRegistered runs between registering a waiter and reading
// the match.
var testHookWaitRegistered = func() {}

// WaitForChange blocks until the match differs from the caller's
// moveCount, the wait times out, or ctx ends, then returns the current
// view. The waiter is registered before the match is read so a move
// landing in between still wakes it.
func (s *Service) WaitForChange(ctx context.Context, gameID string, moveCount int) (*GameView, error) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	notify := s.waiter.RegisterWait(wctx, gameID)
	testHookWaitRegistered()

	view, err := s.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if view.MoveCount() != moveCount {
		return view, nil
	}

	select {
	case <-notify:
	case <-ctx.Done():
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.GetGame(ctx, gameID)
}

// afterMove records a committed move; rev was taken with the view.
func (s *Service) afterMove(ctx context.Context, view *GameView, res *game.MoveResult, rev int64) {
	if s.store != nil {
		s.store.RecordMove(moveRecord(view, res))
		if view.State.IsOver() {
			s.store.RecordState(view.ID, view.State.String())
		}
	}
	s.saveSnapshot(ctx, view, rev)
	s.waiter.NotifyGame(view.ID)

	fields := []zap.Field{
		zap.String("game_id", view.ID),
		zap.String("move", res.Move),
		zap.Stringer("player", res.Player),
		zap.Bool("suggested", res.Suggested),
	}
	if !res.Captured.IsZero() {
		fields = append(fields, zap.Stringer("captured", res.Captured))
	}
	s.log.Info("move applied", fields...)
	if view.State.IsOver() {
		s.log.Info("game over", zap.String("game_id", view.ID), zap.Stringer("state", view.State))
	}
}

// IsRuleViolation reports whether err is a rejected move rather than a
// service condition.
func IsRuleViolation(err error) bool {
	var me *rules.MoveError
	return errors.As(err, &me)
}
