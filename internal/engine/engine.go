// Package engine produces move suggestions for computer players. Every
// backend answers with a coordinate move; callers must still apply it
// through the game rules, which may reject it.
package engine

import (
	"context"
	"errors"
	"fmt"

	"chesstrack/internal/config"
	"chesstrack/internal/rules"
)

// ErrNoMove is returned when the side to move has nothing legal to play.
var ErrNoMove = errors.New("no move available")

// Request describes the position to search.
type Request struct {
	FEN        string
	Level      int // 0-20, backends may ignore it
	SearchTime int // milliseconds
}

// Suggester proposes a move for the side to move in a position.
type Suggester interface {
	Suggest(ctx context.Context, req Request) (rules.Move, error)
	Name() string
	Close() error
}

// New builds the suggester selected by cfg. EngineNone yields nil.
func New(cfg config.Engine) (Suggester, error) {
	switch cfg.Mode {
	case config.EngineNone:
		return nil, nil
	case config.EngineLocal:
		return NewGreedy(nil), nil
	case config.EngineAPI:
		return NewAPIClient(cfg.APIURL, WithTimeout(cfg.Timeout), WithRetry(cfg.Retries)), nil
	case config.EngineUCI:
		u, err := NewUCI(cfg.UCIPath)
		if err != nil {
			return nil, err
		}
		return u, nil
	default:
		return nil, fmt.Errorf("unknown engine mode %q", cfg.Mode)
	}
}
