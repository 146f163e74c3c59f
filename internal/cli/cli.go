// Package cli is the console view: it parses typed commands and prints
// boards, moves and game summaries.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"chesstrack/internal/board"
	"chesstrack/internal/core"
	"chesstrack/internal/game"
	"chesstrack/internal/rules"
)

type CommandType int

const (
	CmdNone CommandType = iota
	CmdNew
	CmdResume
	CmdMove
	CmdUndo
	CmdSuggest
	CmdResign
	CmdColor
	CmdVerbose
	CmdHistory
	CmdHelp
	CmdQuit
)

type Command struct {
	Type CommandType
	Args []string
	Raw  string
}

// LineReader supplies input lines; it returns io.EOF when input ends.
// *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
}

// prompter is implemented by readers that draw their own prompt.
type prompter interface {
	SetPrompt(string)
}

type scannerReader struct {
	s *bufio.Scanner
}

// NewScannerReader reads lines from r without line editing.
func NewScannerReader(r io.Reader) LineReader {
	return scannerReader{s: bufio.NewScanner(r)}
}

func (r scannerReader) Readline() (string, error) {
	if r.s.Scan() {
		return r.s.Text(), nil
	}
	if err := r.s.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

type ColorTheme string

const (
	ThemeOff   ColorTheme = "off"
	ThemeBrown ColorTheme = "brown"
	ThemeGreen ColorTheme = "green"
	ThemeGray  ColorTheme = "gray"
)

type themeColors struct {
	lightBg string
	darkBg  string
	white   string
	black   string
	reset   string
}

var themes = map[ColorTheme]themeColors{
	ThemeOff: {},
	ThemeBrown: {
		lightBg: "\033[48;5;230m", // Beige
		darkBg:  "\033[48;5;94m",  // Brown
		white:   "\033[97m",
		black:   "\033[30m",
		reset:   "\033[0m",
	},
	ThemeGreen: {
		lightBg: "\033[48;5;157m", // Light green
		darkBg:  "\033[48;5;22m",  // Dark green
		white:   "\033[97m",
		black:   "\033[30m",
		reset:   "\033[0m",
	},
	ThemeGray: {
		lightBg: "\033[48;5;251m", // Light gray
		darkBg:  "\033[48;5;240m", // Dark gray
		white:   "\033[97m",
		black:   "\033[30m",
		reset:   "\033[0m",
	},
}

type CLI struct {
	input   LineReader
	output  io.Writer
	theme   ColorTheme
	verbose bool
}

func New(input LineReader, output io.Writer) *CLI {
	return &CLI{
		input:  input,
		output: output,
		theme:  ThemeOff,
	}
}

// Prompt shows prompt and reads one trimmed line.
func (c *CLI) Prompt(prompt string) (string, error) {
	if p, ok := c.input.(prompter); ok {
		p.SetPrompt(prompt)
	} else {
		fmt.Fprint(c.output, prompt)
	}
	line, err := c.input.Readline()
	return strings.TrimSpace(line), err
}

// GetCommand reads and parses one command. End of input reads as quit.
func (c *CLI) GetCommand(prompt string) (*Command, error) {
	line, err := c.Prompt(prompt)
	if errors.Is(err, io.EOF) {
		return &Command{Type: CmdQuit}, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseCommand(line), nil
}

// ParseCommand maps a line to a command. Anything unrecognised is taken
// as a move, so "e2e4", "e2 e4" and "e2-e4" all work.
func ParseCommand(input string) *Command {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return &Command{Type: CmdNone}
	}

	args := parts[1:]
	switch strings.ToLower(parts[0]) {
	case "new":
		return &Command{Type: CmdNew, Args: args}
	case "resume":
		return &Command{Type: CmdResume, Args: args, Raw: input}
	case "undo":
		return &Command{Type: CmdUndo, Args: args}
	case "suggest", "hint":
		return &Command{Type: CmdSuggest}
	case "resign":
		return &Command{Type: CmdResign, Args: args}
	case "color":
		return &Command{Type: CmdColor, Args: args}
	case "verbose":
		return &Command{Type: CmdVerbose}
	case "history":
		return &Command{Type: CmdHistory}
	case "help", "?":
		return &Command{Type: CmdHelp}
	case "quit", "exit":
		return &Command{Type: CmdQuit}
	default:
		return &Command{Type: CmdMove, Args: []string{strings.Join(parts, " ")}, Raw: input}
	}
}

func (c *CLI) SetTheme(theme ColorTheme) error {
	if _, ok := themes[theme]; !ok {
		return fmt.Errorf("invalid theme: %s (use: off, brown, green, gray)", theme)
	}
	c.theme = theme
	return nil
}

func (c *CLI) Theme() ColorTheme { return c.theme }

func (c *CLI) ToggleVerbose() bool {
	c.verbose = !c.verbose
	return c.verbose
}

func (c *CLI) IsVerbose() bool {
	return c.verbose
}

func (c *CLI) ShowMessage(msg string) {
	fmt.Fprintln(c.output, msg)
}

func (c *CLI) ShowError(err error) {
	c.ShowMessage(fmt.Sprintf("Error: %v", err))
}

// DisplayBoard prints the board with rank 8 at the top.
func (c *CLI) DisplayBoard(b board.Board) {
	if c.theme == ThemeOff {
		c.ShowMessage("\n" + b.ToASCII() + "\n")
		return
	}

	theme := themes[c.theme]
	var sb strings.Builder
	sb.WriteString("\n  a b c d e f g h\n")
	for r := 8; r >= 1; r-- {
		fmt.Fprintf(&sb, "%d ", r)
		for f := byte('a'); f <= 'h'; f++ {
			bg := theme.darkBg
			if (int(f-'a')+r)%2 == 0 {
				bg = theme.lightBg
			}
			p, ok := b.At(board.Sq(f, r))
			if !ok {
				fmt.Fprintf(&sb, "%s  %s", bg, theme.reset)
				continue
			}
			fg := theme.black
			if p.Color == board.White {
				fg = theme.white
			}
			fmt.Fprintf(&sb, "%s%s%c %s", bg, fg, p.Symbol(), theme.reset)
		}
		fmt.Fprintf(&sb, " %d\n", r)
	}
	sb.WriteString("  a b c d e f g h\n")
	c.ShowMessage(sb.String())
}

// ShowStatus prints the material scores and the position string.
func (c *CLI) ShowStatus(scoreWhite, scoreBlack int, fen string) {
	c.ShowMessage(fmt.Sprintf("Score  white %d : %d black", scoreWhite, scoreBlack))
	c.ShowMessage("FEN    " + fen)
}

func (c *CLI) ShowHelp() {
	help := `Commands:
  new              - Start a new game with player type selection
  resume <FEN>     - Resume from a specific board position
  <move>           - Make a move (e.g., e2e4, g1f3, e2 e4)
  undo [count]     - Undo last move(s), default 1
  suggest          - Suggest a move for the side to play
  resign [w|b]     - Resign, default the side to move
  color <theme>    - Set board color theme (off|brown|green|gray)
  verbose          - Toggle detailed move information
  history          - Show game move history and positions
  quit/exit        - Exit the program
  help/?           - Show this help message

During any game:
  Press ENTER      - Execute computer move (when it's computer's turn)`

	c.ShowMessage(help)
}

func (c *CLI) ShowWelcome() {
	c.ShowMessage("Welcome to Chess!")
	c.ShowMessage("Commands: new, resume <FEN>, <move>, undo, suggest, resign, history, help/?, quit/exit")
	c.ShowMessage("Example: 'resume 4k3/8/8/8/8/8/8/4K2R w K - 0 1' to start from a puzzle.")
	c.ShowMessage("")
}

func (c *CLI) ShowGameHistory(initialFEN string, moves []string, currentFEN string, state core.State) {
	c.ShowMessage("Starting FEN: " + initialFEN)
	for i := 0; i < len(moves); i += 2 {
		black := "..."
		if i+1 < len(moves) {
			black = moves[i+1]
		}
		c.ShowMessage(fmt.Sprintf("%d. %s | %s", i/2+1, moves[i], black))
	}
	c.ShowMessage("Current FEN: " + currentFEN)
	c.ShowMessage(fmt.Sprintf("Game state: %s", state))
}

func (c *CLI) ShowComputerMove(result *game.MoveResult) {
	msg := fmt.Sprintf("Computer (%s): %s", result.Player, result.Move)
	if c.verbose && !result.Captured.IsZero() {
		msg += fmt.Sprintf(" takes %s", result.Captured)
	}
	c.ShowMessage(msg)
}

func (c *CLI) ShowHumanMove(result *game.MoveResult) {
	if !c.verbose {
		return
	}
	msg := "Your move: " + result.Move
	if !result.Captured.IsZero() {
		msg += fmt.Sprintf(" takes %s", result.Captured)
	}
	c.ShowMessage(msg)
}

func (c *CLI) ShowSuggestion(mv rules.Move) {
	c.ShowMessage("Suggested move: " + mv.String())
}

func (c *CLI) ShowGameOver(state core.State) {
	c.ShowMessage(fmt.Sprintf("\nGame Over: %s", state))
	c.ShowMessage("Start a new game with 'new' or 'resume'.")
}
