// Package main runs a console chess game, in-process or against a chess-server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"chesstrack/internal/cli"
	"chesstrack/internal/client"
	"chesstrack/internal/config"
	"chesstrack/internal/core"
	"chesstrack/internal/engine"
	"chesstrack/internal/obslog"
	"chesstrack/internal/service"
	clitransport "chesstrack/internal/transport/cli"

	"github.com/chzyer/readline"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chess: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		path   = flag.String("config", "", "Path to YAML config file")
		mode   = flag.String("engine", "", "Move suggester: none, local, api, uci")
		theme  = flag.String("theme", "", "Board theme: off, brown, green, gray (default brown on a terminal)")
		level  = flag.Int("level", 10, "Computer strength 0-20, for engines that support it")
		remote = flag.String("remote", "", "Play against a chess-server at this URL instead of in-process")
	)
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		return err
	}
	if *level < 0 || *level > 20 {
		return fmt.Errorf("level must be 0..20: %d", *level)
	}
	if *mode != "" {
		cfg.Engine.Mode = *mode
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	// Logs would interleave with the board, so they only go to a file
	log := zap.NewNop()
	if cfg.Log.File != "" {
		opts := cfg.Log.LogOptions()
		opts.Console = false
		if log, err = obslog.Init(opts); err != nil {
			return err
		}
		defer log.Sync()
	}

	games, closeGames, err := openGames(*remote, cfg, log)
	if err != nil {
		return err
	}
	defer closeGames()

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))

	var input cli.LineReader = cli.NewScannerReader(os.Stdin)
	if interactive {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          "> ",
			HistoryFile:     historyFile(),
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err != nil {
			return fmt.Errorf("readline: %w", err)
		}
		defer rl.Close()
		input = lineEditor{rl}
	}

	view := cli.New(input, os.Stdout)
	switch {
	case *theme != "":
		if err := view.SetTheme(cli.ColorTheme(*theme)); err != nil {
			return err
		}
	case interactive:
		view.SetTheme(cli.ThemeBrown)
	}

	handler := clitransport.New(games, view, core.PlayerConfig{
		Level:      *level,
		SearchTime: cfg.Engine.SearchTime,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	view.ShowWelcome()
	if *remote != "" {
		view.ShowMessage("Playing on " + *remote)
	}
	if err := handler.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// openGames returns the in-process service, or a client for the server at
// remote after checking that it answers.
func openGames(remote string, cfg *config.Config, log *zap.Logger) (clitransport.Games, func(), error) {
	if remote != "" {
		c := client.New(remote)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h, err := c.Health(ctx)
		if err != nil {
			c.Close()
			return nil, nil, fmt.Errorf("server %s: %w", remote, err)
		}
		log.Info("connected", zap.String("server", remote), zap.String("engine", h.Engine))
		return c, func() { c.Close() }, nil
	}

	sg, err := engine.New(cfg.Engine)
	if err != nil {
		return nil, nil, fmt.Errorf("start move suggester: %w", err)
	}
	opts := []service.Option{service.WithLogger(log)}
	if sg != nil {
		opts = append(opts, service.WithSuggester(sg))
	}
	svc := service.New(opts...)
	return svc, func() { svc.Close(time.Second) }, nil
}

func historyFile() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return ".chess_history"
	}
	return filepath.Join(dir, ".chess_history")
}

// lineEditor ends the session on ^C instead of reporting an error.
type lineEditor struct {
	*readline.Instance
}

func (l lineEditor) Readline() (string, error) {
	line, err := l.Instance.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	return line, err
}
