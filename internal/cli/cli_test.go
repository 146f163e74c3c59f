package cli

import (
	"bytes"
	"strings"
	"testing"

	"chesstrack/internal/board"
	"chesstrack/internal/core"
	"chesstrack/internal/game"

	"github.com/google/go-cmp/cmp"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  *Command
	}{
		{"", &Command{Type: CmdNone}},
		{"   ", &Command{Type: CmdNone}},
		{"new", &Command{Type: CmdNew, Args: []string{}}},
		{"NEW", &Command{Type: CmdNew, Args: []string{}}},
		{"undo 3", &Command{Type: CmdUndo, Args: []string{"3"}}},
		{"hint", &Command{Type: CmdSuggest}},
		{"suggest", &Command{Type: CmdSuggest}},
		{"resign b", &Command{Type: CmdResign, Args: []string{"b"}}},
		{"color green", &Command{Type: CmdColor, Args: []string{"green"}}},
		{"?", &Command{Type: CmdHelp}},
		{"exit", &Command{Type: CmdQuit}},
		{"e2e4", &Command{Type: CmdMove, Args: []string{"e2e4"}, Raw: "e2e4"}},
		{"e2  e4", &Command{Type: CmdMove, Args: []string{"e2 e4"}, Raw: "e2  e4"}},
		{
			"resume 4k3/8/8/8/8/8/8/4K3 w - - 0 1",
			&Command{
				Type: CmdResume,
				Args: []string{"4k3/8/8/8/8/8/8/4K3", "w", "-", "-", "0", "1"},
				Raw:  "resume 4k3/8/8/8/8/8/8/4K3 w - - 0 1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseCommand(tt.input)); diff != "" {
				t.Errorf("ParseCommand(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

type promptReader struct {
	lines   []string
	prompts []string
}

func (r *promptReader) SetPrompt(p string) { r.prompts = append(r.prompts, p) }

func (r *promptReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		return "", nil
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func TestPrompt(t *testing.T) {
	t.Run("printed for plain readers", func(t *testing.T) {
		var out bytes.Buffer
		c := New(NewScannerReader(strings.NewReader("  e2e4  \n")), &out)
		line, err := c.Prompt("[w]> ")
		if err != nil {
			t.Fatalf("Prompt: %v", err)
		}
		if line != "e2e4" {
			t.Errorf("line = %q, want %q", line, "e2e4")
		}
		if out.String() != "[w]> " {
			t.Errorf("output = %q, want the prompt", out.String())
		}
	})

	t.Run("handed to line editors", func(t *testing.T) {
		var out bytes.Buffer
		r := &promptReader{lines: []string{"undo"}}
		c := New(r, &out)
		cmd, err := c.GetCommand("> ")
		if err != nil {
			t.Fatalf("GetCommand: %v", err)
		}
		if cmd.Type != CmdUndo {
			t.Errorf("command = %v, want undo", cmd.Type)
		}
		if diff := cmp.Diff([]string{"> "}, r.prompts); diff != "" {
			t.Errorf("prompts mismatch (-want +got):\n%s", diff)
		}
		if out.Len() != 0 {
			t.Errorf("output = %q, want nothing", out.String())
		}
	})

	t.Run("end of input quits", func(t *testing.T) {
		c := New(NewScannerReader(strings.NewReader("")), &bytes.Buffer{})
		cmd, err := c.GetCommand("> ")
		if err != nil {
			t.Fatalf("GetCommand: %v", err)
		}
		if cmd.Type != CmdQuit {
			t.Errorf("command = %v, want quit", cmd.Type)
		}
	})
}

func TestDisplayBoard(t *testing.T) {
	b := board.Standard()

	var out bytes.Buffer
	c := New(NewScannerReader(strings.NewReader("")), &out)
	c.DisplayBoard(b)
	want := "\n" + b.ToASCII() + "\n\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("plain board mismatch (-want +got):\n%s", diff)
	}

	out.Reset()
	if err := c.SetTheme(ThemeBrown); err != nil {
		t.Fatalf("SetTheme: %v", err)
	}
	c.DisplayBoard(b)
	got := out.String()
	if !strings.Contains(got, themes[ThemeBrown].lightBg) || !strings.Contains(got, themes[ThemeBrown].darkBg) {
		t.Error("themed board has no square colors")
	}
	if !strings.Contains(got, "\033[97mK") || !strings.Contains(got, "\033[30mk") {
		t.Error("themed board does not color the kings by side")
	}
}

func TestSetTheme(t *testing.T) {
	c := New(NewScannerReader(strings.NewReader("")), &bytes.Buffer{})
	if err := c.SetTheme("purple"); err == nil {
		t.Error("SetTheme(purple) succeeded")
	}
	if c.Theme() != ThemeOff {
		t.Errorf("theme = %s, want off after a rejected theme", c.Theme())
	}
}

func TestShowGameHistory(t *testing.T) {
	var out bytes.Buffer
	c := New(NewScannerReader(strings.NewReader("")), &out)
	c.ShowGameHistory("start", []string{"e2e4", "e7e5", "g1f3"}, "now", core.StateOngoing)

	want := strings.Join([]string{
		"Starting FEN: start",
		"1. e2e4 | e7e5",
		"2. g1f3 | ...",
		"Current FEN: now",
		"Game state: ongoing",
		"",
	}, "\n")
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestShowMoves(t *testing.T) {
	res := &game.MoveResult{
		Move:     "d1d8",
		Player:   board.White,
		Captured: board.Piece{Kind: board.Queen, Color: board.Black},
	}

	var out bytes.Buffer
	c := New(NewScannerReader(strings.NewReader("")), &out)
	c.ShowHumanMove(res)
	c.ShowComputerMove(res)
	if got, want := out.String(), "Computer (white): d1d8\n"; got != want {
		t.Errorf("quiet output = %q, want %q", got, want)
	}

	out.Reset()
	c.ToggleVerbose()
	c.ShowHumanMove(res)
	if got, want := out.String(), "Your move: d1d8 takes black queen\n"; got != want {
		t.Errorf("verbose output = %q, want %q", got, want)
	}
}
