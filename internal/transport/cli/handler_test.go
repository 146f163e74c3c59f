package cli

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"chesstrack/internal/cli"
	"chesstrack/internal/client"
	"chesstrack/internal/core"
	"chesstrack/internal/engine"
	"chesstrack/internal/game"
	serverhttp "chesstrack/internal/server/http"
	"chesstrack/internal/service"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
)

var (
	_ Games = (*service.Service)(nil)
	_ Games = (*client.Client)(nil)
)

func newService(t *testing.T) *service.Service {
	t.Helper()
	svc := service.New(
		service.WithLogger(zaptest.NewLogger(t)),
		service.WithSuggester(engine.NewGreedy(nil)),
	)
	t.Cleanup(func() { _ = svc.Close(time.Second) })
	return svc
}

// play runs script through a fresh handler and returns it with the output.
func play(t *testing.T, svc Games, script ...string) (*CLIHandler, string) {
	t.Helper()
	var out bytes.Buffer
	input := cli.NewScannerReader(strings.NewReader(strings.Join(script, "\n") + "\n"))
	h := New(svc, cli.New(input, &out), core.PlayerConfig{Level: 5, SearchTime: 500})
	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return h, out.String()
}

func wantContains(t *testing.T, out string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		if !strings.Contains(out, p) {
			t.Errorf("output missing %q\n%s", p, out)
		}
	}
}

func TestHumanGame(t *testing.T) {
	svc := newService(t)
	h, out := play(t, svc, "new", "h", "h", "e2e4", "e7 e5", "history", "quit")

	wantContains(t, out,
		"Select White player (h/c): ",
		"Game started.",
		"Starting FEN: "+game.StartingFEN,
		"1. e2e4 | e7e5",
		"[b]> ",
		"Score  white 0 : 0 black",
	)

	v, err := svc.GetGame(context.Background(), h.GameID())
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if diff := cmp.Diff([]string{"e2e4", "e7e5"}, v.Moves); diff != "" {
		t.Errorf("moves mismatch (-want +got):\n%s", diff)
	}
}

func TestComputerOpponent(t *testing.T) {
	svc := newService(t)
	h, out := play(t, svc, "new", "h", "c", "e2e4", "", "quit")

	wantContains(t, out, "ENTER to execute computer move", "Computer (black): ")

	v, err := svc.GetGame(context.Background(), h.GameID())
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if v.MoveCount() != 2 {
		t.Errorf("moves = %v, want the human and the computer move", v.Moves)
	}
	if v.Black.Type != core.PlayerComputer || v.Black.Level != 5 || v.Black.SearchTime != 500 {
		t.Errorf("black player = %+v, want the configured computer", v.Black)
	}
}

func TestKingCaptureEndsConsoleGame(t *testing.T) {
	svc := newService(t)
	h, out := play(t, svc,
		"resume 4k3/8/8/8/8/8/8/4RK2 w - - 0 1", "h", "h",
		"e1e8",
		"e8e7",
		"quit",
	)

	wantContains(t, out, "Game Over: white_wins", "No active game.")
	if h.GameID() != "" {
		t.Errorf("game %s still active after the king was taken", h.GameID())
	}
}

func TestConsoleErrors(t *testing.T) {
	svc := newService(t)
	_, out := play(t, svc,
		"e2e4",
		"new", "h", "h",
		"e2e5",
		"zz",
		"undo x",
		"undo",
		"color purple",
		"resume",
		"quit",
	)

	wantContains(t, out,
		"No active game. Use 'new' or 'resume <FEN>'.",
		"Error: invalid move: ",
		"Invalid undo count. Usage: undo [count]",
		"Error: cannot undo",
		"Error: invalid theme: purple",
		"Usage: resume <FEN string>",
	)
}

func TestUndoSuggestResign(t *testing.T) {
	svc := newService(t)
	h, out := play(t, svc,
		"new", "h", "h",
		"e2e4", "e7e5",
		"undo 2",
		"suggest",
		"color green",
		"resign",
		"quit",
	)

	wantContains(t, out,
		"2 moves undone",
		"Suggested move: b1a3",
		"Color theme set to: green",
		"white resigns",
		"Game Over: black_wins",
	)
	if h.GameID() != "" {
		t.Errorf("game %s still active after resignation", h.GameID())
	}
}

func TestNewGameReplacesPrevious(t *testing.T) {
	svc := newService(t)
	var out bytes.Buffer
	input := cli.NewScannerReader(strings.NewReader("h\nh\nh\nh\n"))
	h := New(svc, cli.New(input, &out), core.PlayerConfig{})

	ctx := context.Background()
	if !h.ProcessCommand(ctx, cli.ParseCommand("new")) {
		t.Fatal("new ended the loop")
	}
	first := h.GameID()
	h.ProcessCommand(ctx, cli.ParseCommand("new"))
	if h.GameID() == first || h.GameID() == "" {
		t.Fatalf("game id = %q after a second new, first was %q", h.GameID(), first)
	}
	if _, err := svc.GetGame(ctx, first); !service.IsNotFound(err) {
		t.Errorf("GetGame(first) error = %v, want not found", err)
	}
	if h.ProcessCommand(ctx, cli.ParseCommand("quit")) {
		t.Error("quit did not end the loop")
	}
}

func TestRemoteConsole(t *testing.T) {
	svc := newService(t)
	app := serverhttp.NewFiberApp(svc, nil, serverhttp.Options{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go app.Listener(ln)
	t.Cleanup(func() { _ = app.Shutdown() })

	remote := client.New("http://" + ln.Addr().String())
	t.Cleanup(func() { remote.Close() })

	h, out := play(t, remote, "new", "h", "c", "e2e4", "", "history", "quit")
	wantContains(t, out,
		"Game started.",
		"Computer (black): ",
		"Starting FEN: "+game.StartingFEN,
	)

	v, err := svc.GetGame(context.Background(), h.GameID())
	if err != nil {
		t.Fatalf("server GetGame: %v", err)
	}
	if v.MoveCount() != 2 {
		t.Errorf("server moves = %v, want two", v.Moves)
	}
}
