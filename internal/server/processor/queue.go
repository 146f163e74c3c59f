// Package processor plays computer moves in the background so request
// handlers can answer at once. Clients follow progress by long polling.
package processor

import (
	"context"
	"errors"
	"sync"
	"time"

	"chesstrack/internal/core"
	"chesstrack/internal/obslog"
	"chesstrack/internal/service"

	"go.uber.org/zap"
)

var (
	ErrQueueFull   = errors.New("computer move queue is full")
	ErrQueueClosed = errors.New("computer move queue is shutting down")
)

// Mover applies a computer move for the side to move in a game.
type Mover interface {
	MakeComputerMove(ctx context.Context, gameID string) (*service.GameView, error)
}

// Queue feeds game ids to a fixed pool of workers.
type Queue struct {
	mover   Mover
	tasks   chan string
	workers int
	timeout time.Duration
	log     *zap.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewQueue starts workerCount workers. Each move gets at most timeout.
func NewQueue(mover Mover, workerCount int, timeout time.Duration) *Queue {
	if workerCount < 1 {
		workerCount = 2
	}
	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		mover:   mover,
		tasks:   make(chan string, 100),
		workers: workerCount,
		timeout: timeout,
		log:     obslog.L().Named("processor"),
		ctx:     ctx,
		cancel:  cancel,
	}
	q.start()
	return q
}

func (q *Queue) start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for {
		select {
		case gameID := <-q.tasks:
			q.process(id, gameID)
		case <-q.ctx.Done():
			return
		}
	}
}

func (q *Queue) process(worker int, gameID string) {
	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()

	view, err := q.mover.MakeComputerMove(ctx, gameID)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrStaleMove),
		errors.Is(err, service.ErrNotComputerTurn),
		errors.Is(err, service.ErrMovePending),
		errors.Is(err, service.ErrGameOver),
		service.IsNotFound(err):
		q.log.Debug("computer move skipped", zap.Int("worker", worker), zap.String("game_id", gameID), zap.Error(err))
		return
	default:
		q.log.Warn("computer move failed", zap.Int("worker", worker), zap.String("game_id", gameID), zap.Error(err))
		return
	}

	// computer against computer keeps going
	if NeedsComputerMove(view) {
		if err := q.Submit(gameID); err != nil {
			q.log.Warn("cannot queue next computer move", zap.String("game_id", gameID), zap.Error(err))
		}
	}
}

// Submit queues gameID without blocking.
func (q *Queue) Submit(gameID string) error {
	if q.ctx.Err() != nil {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- gameID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops the workers, cancelling moves in flight.
func (q *Queue) Shutdown(timeout time.Duration) error {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.New("computer move queue shutdown timed out")
	}
}

// NeedsComputerMove reports whether a computer player is to move in an
// ongoing game.
func NeedsComputerMove(v *service.GameView) bool {
	if v == nil || v.State != core.StateOngoing {
		return false
	}
	p := v.NextPlayer()
	return p != nil && p.Type == core.PlayerComputer
}
