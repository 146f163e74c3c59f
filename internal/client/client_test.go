package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"chesstrack/internal/board"
	"chesstrack/internal/core"
	"chesstrack/internal/engine"
	"chesstrack/internal/game"
	"chesstrack/internal/rules"
	serverhttp "chesstrack/internal/server/http"
	"chesstrack/internal/server/processor"
	"chesstrack/internal/service"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
)

var (
	human    = core.PlayerConfig{Type: core.PlayerHuman}
	computer = core.PlayerConfig{Type: core.PlayerComputer, Level: 3, SearchTime: 200}
)

// serve starts the API on a loopback port and returns a client for it.
func serve(t *testing.T, withQueue bool) *Client {
	t.Helper()
	svc := service.New(
		service.WithLogger(zaptest.NewLogger(t)),
		service.WithSuggester(engine.NewGreedy(nil)),
		service.WithWaitTimeout(2*time.Second),
	)

	var queue *processor.Queue
	if withQueue {
		queue = processor.NewQueue(svc, 1, 5*time.Second)
	}
	app := serverhttp.NewFiberApp(svc, queue, serverhttp.Options{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go app.Listener(ln)

	c := New("http://" + ln.Addr().String() + "/")
	t.Cleanup(func() {
		c.Close()
		_ = app.Shutdown()
		if queue != nil {
			_ = queue.Shutdown(time.Second)
		}
		_ = svc.Close(time.Second)
	})
	return c
}

func move(t *testing.T, s string) rules.Move {
	t.Helper()
	mv, err := rules.ParseMove(s)
	if err != nil {
		t.Fatal(err)
	}
	return mv
}

func TestHealth(t *testing.T) {
	c := serve(t, false)
	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	want := &HealthResponse{Status: "healthy", Storage: "disabled", Cache: "disabled", Engine: "local"}
	if diff := cmp.Diff(want, h, cmpIgnoreTime); diff != "" {
		t.Errorf("health mismatch (-want +got):\n%s", diff)
	}
}

var cmpIgnoreTime = cmp.FilterPath(func(p cmp.Path) bool {
	return p.Last().String() == ".Time"
}, cmp.Ignore())

func TestGameLifecycle(t *testing.T) {
	c := serve(t, false)
	ctx := context.Background()

	id, err := c.CreateGame(ctx, human, human, "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	v, err := c.GetGame(ctx, id)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if v.FEN != game.StartingFEN || v.InitialFEN != game.StartingFEN || v.Turn != board.White {
		t.Errorf("new game view = %+v", v)
	}
	if p, ok := v.Board.At(board.Sq('e', 1)); !ok || p != (board.Piece{Color: board.White, Kind: board.King}) {
		t.Errorf("e1 = %v, %v; want the white king", p, ok)
	}

	for _, m := range []string{"e2e4", "d7d5", "e4d5"} {
		if v, err = c.MakeMove(ctx, id, move(t, m)); err != nil {
			t.Fatalf("MakeMove(%s): %v", m, err)
		}
	}
	if diff := cmp.Diff([]string{"e2e4", "d7d5", "e4d5"}, v.Moves); diff != "" {
		t.Errorf("moves mismatch (-want +got):\n%s", diff)
	}
	if v.ScoreWhite != 1 || v.Turn != board.Black {
		t.Errorf("after capture: score %d, turn %s", v.ScoreWhite, v.Turn)
	}
	wantLast := &game.MoveResult{
		Move:     "e4d5",
		Player:   board.White,
		Captured: board.Piece{Color: board.Black, Kind: board.Pawn},
	}
	if diff := cmp.Diff(wantLast, v.LastResult); diff != "" {
		t.Errorf("last move mismatch (-want +got):\n%s", diff)
	}

	if v, err = c.Undo(ctx, id, 1); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if v.MoveCount() != 2 {
		t.Errorf("after undo: %d moves, want 2", v.MoveCount())
	}

	mv, err := c.Suggest(ctx, id)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if mv.String() != "e4d5" {
		t.Errorf("suggestion = %s, want the pawn capture e4d5", mv)
	}

	players := core.PlayerConfig{Type: core.PlayerComputer, Level: 1, SearchTime: 100}
	if v, err = c.UpdatePlayers(ctx, id, players, human); err != nil {
		t.Fatalf("UpdatePlayers: %v", err)
	}
	if v.White.Type != core.PlayerComputer || v.White.Color != board.White {
		t.Errorf("white player = %+v", v.White)
	}

	if v, err = c.Resign(ctx, id, board.Black); err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if v.State != core.StateWhiteWins {
		t.Errorf("state = %s, want white_wins", v.State)
	}

	if err := c.DeleteGame(ctx, id); err != nil {
		t.Fatalf("DeleteGame: %v", err)
	}
	if _, err := c.GetGame(ctx, id); !service.IsNotFound(err) {
		t.Errorf("GetGame after delete: err = %v, want not found", err)
	}
}

func TestErrors(t *testing.T) {
	c := serve(t, false)
	ctx := context.Background()

	id, err := c.CreateGame(ctx, human, computer, "")
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.MakeMove(ctx, id, move(t, "e2e5"))
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 400 || apiErr.Code == "" {
		t.Errorf("illegal move: err = %v, want a 400 with a rule code", err)
	}

	rejected := []struct {
		move string
		want *rules.MoveError
	}{
		{"c1f4", rules.ErrPathIsBlocked},
		{"e2e5", rules.ErrIllegalPawnMove},
		{"g1g3", rules.ErrIllegalKnightMove},
		{"e7e5", rules.ErrIllegalMoveOnOtherPlayer},
		{"e4e5", rules.ErrNoPieceAtPosition},
		{"a1a2", rules.ErrPositionOccupied},
	}
	for _, tt := range rejected {
		_, err := c.MakeMove(ctx, id, move(t, tt.move))
		if !errors.Is(err, tt.want) {
			t.Errorf("MakeMove(%s): err = %v, want %v", tt.move, err, tt.want)
		}
		if code := rules.CodeOf(err); code != tt.want.Code() {
			t.Errorf("MakeMove(%s): CodeOf = %q, want %q", tt.move, code, tt.want.Code())
		}
	}

	if _, err := c.MakeComputerMove(ctx, id); !errors.Is(err, service.ErrNotComputerTurn) {
		t.Errorf("MakeComputerMove on white's turn: err = %v", err)
	}
	if _, err := c.CreateGame(ctx, human, human, "not a position"); !errors.Is(err, game.ErrInvalidFEN) {
		t.Errorf("CreateGame bad FEN: err = %v", err)
	}
	if _, err := c.Undo(ctx, id, 3); err == nil {
		t.Error("Undo past the start succeeded")
	}
}

func TestComputerMove(t *testing.T) {
	c := serve(t, false)
	ctx := context.Background()

	id, err := c.CreateGame(ctx, human, computer, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.MakeMove(ctx, id, move(t, "e2e4")); err != nil {
		t.Fatal(err)
	}

	v, err := c.MakeComputerMove(ctx, id)
	if err != nil {
		t.Fatalf("MakeComputerMove: %v", err)
	}
	if v.MoveCount() != 2 || v.LastResult == nil || v.LastResult.Player != board.Black {
		t.Errorf("after computer move: moves %v, last %+v", v.Moves, v.LastResult)
	}
}

func TestWaitForBackgroundMove(t *testing.T) {
	c := serve(t, true)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := c.CreateGame(ctx, human, computer, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.MakeMove(ctx, id, move(t, "e2e4")); err != nil {
		t.Fatal(err)
	}

	// the server queue replies on its own; poll until it has
	v, err := c.WaitForChange(ctx, id, 1)
	for err == nil && v.MoveCount() < 2 {
		v, err = c.WaitForChange(ctx, id, v.MoveCount())
	}
	if err != nil {
		t.Fatalf("WaitForChange: %v", err)
	}
	if v.Turn != board.White || v.State != core.StateOngoing {
		t.Errorf("after background move: turn %s, state %s", v.Turn, v.State)
	}
}
