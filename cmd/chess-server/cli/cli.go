// Package cli implements the "chess-server db" maintenance commands.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"chesstrack/internal/storage"
)

// Run executes one db subcommand, writing results to out.
func Run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required: init, delete, query, moves")
	}

	switch args[0] {
	case "init":
		return runInit(args[1:], out)
	case "delete":
		return runDelete(args[1:], out)
	case "query":
		return runQuery(args[1:], out)
	case "moves":
		return runMoves(args[1:], out)
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

// openStore parses the common -dsn flag plus any extra flags registered by
// setup, then opens the store.
func openStore(name string, args []string, out io.Writer, setup func(*flag.FlagSet)) (*storage.Store, string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	dsn := fs.String("dsn", "", "SQLite file path or postgres:// URL (required)")
	if setup != nil {
		setup(fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}
	if *dsn == "" {
		return nil, "", fmt.Errorf("database dsn required")
	}

	store, err := storage.NewStore(*dsn, false)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open store: %w", err)
	}
	return store, *dsn, nil
}

func runInit(args []string, out io.Writer) error {
	store, dsn, err := openStore("init", args, out, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitDB(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	fmt.Fprintf(out, "Database initialized at: %s\n", dsn)
	return nil
}

func runDelete(args []string, out io.Writer) error {
	store, dsn, err := openStore("delete", args, out, nil)
	if err != nil {
		return err
	}

	if err := store.DeleteDB(); err != nil {
		return fmt.Errorf("failed to delete database: %w", err)
	}

	fmt.Fprintf(out, "Database deleted: %s\n", dsn)
	return nil
}

func runQuery(args []string, out io.Writer) error {
	var gameID, playerID *string
	store, _, err := openStore("query", args, out, func(fs *flag.FlagSet) {
		gameID = fs.String("gameId", "", "Game ID to filter (optional, * for all)")
		playerID = fs.String("playerId", "", "Player ID to filter (optional, * for all)")
	})
	if err != nil {
		return err
	}
	defer store.Close()

	games, err := store.QueryGames(*gameID, *playerID)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(games) == 0 {
		fmt.Fprintln(out, "No games found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Game ID\tWhite Player\tBlack Player\tState\tStart Time")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for _, g := range games {
		fmt.Fprintf(w, "%s\t%s (T%d)\t%s (T%d)\t%s\t%s\n",
			short(g.GameID),
			short(g.WhitePlayerID), g.WhiteType,
			short(g.BlackPlayerID), g.BlackType,
			g.State,
			g.StartTimeUTC.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nFound %d game(s)\n", len(games))
	return nil
}

func runMoves(args []string, out io.Writer) error {
	var gameID *string
	store, _, err := openStore("moves", args, out, func(fs *flag.FlagSet) {
		gameID = fs.String("gameId", "", "Game ID (required)")
	})
	if err != nil {
		return err
	}
	defer store.Close()

	if *gameID == "" {
		return fmt.Errorf("game id required")
	}

	moves, err := store.QueryMoves(*gameID)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if len(moves) == 0 {
		fmt.Fprintln(out, "No moves found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Ply\tSide\tMove\tCaptured\tFEN")
	for _, m := range moves {
		captured := m.Captured
		if captured == "" {
			captured = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", m.MoveNumber, m.PlayerColor, m.Move, captured, m.FENAfterMove)
	}
	return w.Flush()
}

// short trims identifiers for the table view.
func short(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
