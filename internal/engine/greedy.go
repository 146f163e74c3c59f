package engine

import (
	"context"
	"math/rand/v2"
	"sync"

	"chesstrack/internal/game"
	"chesstrack/internal/rules"
)

// Greedy picks the legal move that captures the most material. Ties go to
// the first candidate in board order, or to a random one when a source is
// given. It needs no external process and is the fallback when another
// backend suggests a move the rules reject.
type Greedy struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGreedy(rnd *rand.Rand) *Greedy {
	return &Greedy{rnd: rnd}
}

func (g *Greedy) Name() string { return "local" }

func (g *Greedy) Close() error { return nil }

func (g *Greedy) Suggest(ctx context.Context, r Request) (rules.Move, error) {
	if err := ctx.Err(); err != nil {
		return rules.Move{}, err
	}
	pos, err := game.ParseFEN(r.FEN)
	if err != nil {
		return rules.Move{}, err
	}

	candidates := rules.Moves(pos, pos.Turn())
	if len(candidates) == 0 {
		return rules.Move{}, ErrNoMove
	}

	best := candidates[0].Captured
	for _, c := range candidates[1:] {
		best = max(best, c.Captured)
	}
	var top []rules.Move
	for _, c := range candidates {
		if c.Captured == best {
			top = append(top, c.Move)
		}
	}

	if g.rnd == nil {
		return top[0], nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return top[g.rnd.IntN(len(top))], nil
}
