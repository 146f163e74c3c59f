// Package cli drives the console game loop against the game service.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"chesstrack/internal/board"
	"chesstrack/internal/cli"
	"chesstrack/internal/core"
	"chesstrack/internal/rules"
	"chesstrack/internal/service"
)

// Games is the game API the console drives. *service.Service plays
// in-process; *client.Client plays against a remote server.
type Games interface {
	CreateGame(ctx context.Context, white, black core.PlayerConfig, fen string) (string, error)
	GetGame(ctx context.Context, gameID string) (*service.GameView, error)
	MakeMove(ctx context.Context, gameID string, mv rules.Move) (*service.GameView, error)
	MakeComputerMove(ctx context.Context, gameID string) (*service.GameView, error)
	Suggest(ctx context.Context, gameID string) (rules.Move, error)
	Undo(ctx context.Context, gameID string, count int) (*service.GameView, error)
	Resign(ctx context.Context, gameID string, color board.Color) (*service.GameView, error)
	DeleteGame(ctx context.Context, gameID string) error
}

type CLIHandler struct {
	svc      Games
	view     *cli.CLI
	computer core.PlayerConfig
	gameID   string
}

// New wires the view to svc. Computer players are created with the level
// and search time in computer.
func New(svc Games, view *cli.CLI, computer core.PlayerConfig) *CLIHandler {
	computer.Type = core.PlayerComputer
	return &CLIHandler{
		svc:      svc,
		view:     view,
		computer: computer,
	}
}

// Run reads and executes commands until quit, end of input or ctx ends.
func (h *CLIHandler) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		cmd, err := h.view.GetCommand(h.prompt(ctx))
		if err != nil {
			return err
		}
		if !h.ProcessCommand(ctx, cmd) {
			return nil
		}
	}
	return ctx.Err()
}

// GameID is the active game, empty when none.
func (h *CLIHandler) GameID() string { return h.gameID }

func (h *CLIHandler) prompt(ctx context.Context) string {
	v := h.active(ctx)
	if v == nil || v.State.IsOver() {
		return "> "
	}
	prompt := fmt.Sprintf("[%c]> ", v.Turn.Letter())
	if p := v.NextPlayer(); p != nil && p.Type == core.PlayerComputer {
		prompt = "ENTER to execute computer move\n" + prompt
	}
	return prompt
}

func (h *CLIHandler) active(ctx context.Context) *service.GameView {
	if h.gameID == "" {
		return nil
	}
	v, err := h.svc.GetGame(ctx, h.gameID)
	if err != nil {
		return nil
	}
	return v
}

// ProcessCommand executes one command and returns false to exit.
func (h *CLIHandler) ProcessCommand(ctx context.Context, cmd *cli.Command) bool {
	switch cmd.Type {
	case cli.CmdQuit:
		return false

	case cli.CmdNone:
		// Empty line plays the computer's move when it is its turn
		if v := h.active(ctx); v != nil && !v.State.IsOver() {
			if p := v.NextPlayer(); p != nil && p.Type == core.PlayerComputer {
				h.computerMove(ctx)
			}
		}

	case cli.CmdNew:
		h.newGame(ctx, "")

	case cli.CmdResume:
		if len(cmd.Args) < 1 {
			h.view.ShowMessage("Usage: resume <FEN string>")
			return true
		}
		h.newGame(ctx, strings.Join(cmd.Args, " "))

	case cli.CmdMove:
		if h.gameID == "" {
			h.view.ShowMessage("No active game. Use 'new' or 'resume <FEN>'.")
			return true
		}
		h.humanMove(ctx, cmd.Args[0])

	case cli.CmdUndo:
		if h.gameID == "" {
			h.view.ShowMessage("No active game.")
			return true
		}
		count := 1
		if len(cmd.Args) > 0 {
			n, err := strconv.Atoi(cmd.Args[0])
			if err != nil || n < 1 {
				h.view.ShowMessage("Invalid undo count. Usage: undo [count]")
				return true
			}
			count = n
		}
		v, err := h.svc.Undo(ctx, h.gameID, count)
		if err != nil {
			h.view.ShowError(err)
			return true
		}
		if count == 1 {
			h.view.ShowMessage("Move undone")
		} else {
			h.view.ShowMessage(fmt.Sprintf("%d moves undone", count))
		}
		h.show(v)

	case cli.CmdSuggest:
		if h.gameID == "" {
			h.view.ShowMessage("No active game.")
			return true
		}
		mv, err := h.svc.Suggest(ctx, h.gameID)
		if err != nil {
			h.view.ShowError(err)
			return true
		}
		h.view.ShowSuggestion(mv)

	case cli.CmdResign:
		h.resign(ctx, cmd.Args)

	case cli.CmdColor:
		if len(cmd.Args) < 1 {
			h.view.ShowMessage("Usage: color <off|brown|green|gray>")
			return true
		}
		theme := cli.ColorTheme(strings.ToLower(cmd.Args[0]))
		if err := h.view.SetTheme(theme); err != nil {
			h.view.ShowError(err)
			return true
		}
		h.view.ShowMessage(fmt.Sprintf("Color theme set to: %s", theme))
		if v := h.active(ctx); v != nil {
			h.view.DisplayBoard(v.Board)
		}

	case cli.CmdVerbose:
		h.view.ShowMessage(fmt.Sprintf("Verbose mode: %t", h.view.ToggleVerbose()))

	case cli.CmdHistory:
		v := h.active(ctx)
		if v == nil {
			h.view.ShowMessage("No active game.")
			return true
		}
		h.view.ShowGameHistory(v.InitialFEN, v.Moves, v.FEN, v.State)

	case cli.CmdHelp:
		h.view.ShowHelp()
	}

	return true
}

func (h *CLIHandler) humanMove(ctx context.Context, text string) {
	mv, err := rules.ParseMove(text)
	if err != nil {
		h.view.ShowError(fmt.Errorf("invalid move: %w", err))
		return
	}
	v, err := h.svc.MakeMove(ctx, h.gameID, mv)
	switch {
	case errors.Is(err, service.ErrNotHumanTurn):
		h.view.ShowMessage("It's not a human player's turn. Press ENTER to execute computer move.")
		return
	case err != nil:
		h.view.ShowError(fmt.Errorf("invalid move: %w", err))
		return
	}
	if v.LastResult != nil {
		h.view.ShowHumanMove(v.LastResult)
	}
	h.show(v)
}

func (h *CLIHandler) computerMove(ctx context.Context) {
	v, err := h.svc.MakeComputerMove(ctx, h.gameID)
	if err != nil {
		h.view.ShowError(fmt.Errorf("engine error: %w", err))
		return
	}
	if v.LastResult != nil {
		h.view.ShowComputerMove(v.LastResult)
	}
	h.show(v)
}

func (h *CLIHandler) resign(ctx context.Context, args []string) {
	v := h.active(ctx)
	if v == nil {
		h.view.ShowMessage("No active game.")
		return
	}
	color := v.Turn
	if len(args) > 0 {
		c, ok := board.ParseColor(strings.ToLower(args[0]))
		if !ok {
			h.view.ShowMessage("Usage: resign [w|b]")
			return
		}
		color = c
	}
	v, err := h.svc.Resign(ctx, h.gameID, color)
	if err != nil {
		h.view.ShowError(err)
		return
	}
	h.view.ShowMessage(fmt.Sprintf("%s resigns", color))
	h.show(v)
}

// show prints the position and closes the game once it is decided.
func (h *CLIHandler) show(v *service.GameView) {
	h.view.DisplayBoard(v.Board)
	h.view.ShowStatus(v.ScoreWhite, v.ScoreBlack, v.FEN)
	if v.State.IsOver() {
		h.view.ShowGameOver(v.State)
		h.gameID = ""
	}
}

func (h *CLIHandler) readPlayer(label string) (core.PlayerConfig, error) {
	input, err := h.view.Prompt(fmt.Sprintf("Select %s player (h/c): ", label))
	if err != nil {
		return core.PlayerConfig{}, err
	}
	switch strings.ToLower(input) {
	case "c", "computer":
		return h.computer, nil
	default:
		return core.PlayerConfig{Type: core.PlayerHuman}, nil
	}
}

// newGame prompts for player types and starts from fen, or the standard
// position when fen is empty.
func (h *CLIHandler) newGame(ctx context.Context, fen string) {
	white, err := h.readPlayer("White")
	if err != nil {
		return
	}
	black, err := h.readPlayer("Black")
	if err != nil {
		return
	}

	id, err := h.svc.CreateGame(ctx, white, black, fen)
	if err != nil {
		h.view.ShowError(fmt.Errorf("could not start the game: %w", err))
		return
	}
	if h.gameID != "" {
		// The previous game is abandoned, not kept around in memory
		_ = h.svc.DeleteGame(ctx, h.gameID)
	}
	h.gameID = id

	v, err := h.svc.GetGame(ctx, id)
	if err != nil {
		h.view.ShowError(err)
		return
	}
	h.view.ShowMessage("Game started.")
	h.show(v)
}
