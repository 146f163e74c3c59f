package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"chesstrack/internal/rules"
)

const handshakeTimeout = 5 * time.Second

var errEngineClosed = errors.New("engine closed unexpectedly")

// UCI drives a Universal Chess Interface binary such as stockfish over its
// standard streams. Searches are serialized.
type UCI struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan string
	mu    sync.Mutex
}

// NewUCI starts the engine at path and completes the uci/isready handshake.
func NewUCI(path string) (*UCI, error) {
	return startUCI(exec.Command(path))
}

func startUCI(cmd *exec.Cmd) (*UCI, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}

	u := &UCI{
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan string, 64),
	}
	go u.readLoop(stdout)

	ctx, cancel := context.WithTimeout(context.Background(), handshakeTimeout)
	defer cancel()
	if err := u.initialize(ctx); err != nil {
		u.Close()
		return nil, err
	}
	return u, nil
}

func (u *UCI) readLoop(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		u.lines <- sc.Text()
	}
	close(u.lines)
}

func (u *UCI) initialize(ctx context.Context) error {
	u.sendCommand("uci")
	if _, err := u.waitFor(ctx, "uciok"); err != nil {
		return fmt.Errorf("waiting for uciok: %w", err)
	}
	return u.ready(ctx)
}

func (u *UCI) ready(ctx context.Context) error {
	u.sendCommand("isready")
	if _, err := u.waitFor(ctx, "readyok"); err != nil {
		return fmt.Errorf("waiting for readyok: %w", err)
	}
	return nil
}

// waitFor consumes output until a line starting with prefix arrives.
func (u *UCI) waitFor(ctx context.Context, prefix string) (string, error) {
	for {
		select {
		case line, ok := <-u.lines:
			if !ok {
				return "", errEngineClosed
			}
			if strings.HasPrefix(line, prefix) {
				return line, nil
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (u *UCI) sendCommand(cmd string) {
	fmt.Fprintln(u.stdin, cmd)
}

func (u *UCI) Name() string { return "uci" }

// Suggest sets the skill level and position, then searches for
// SearchTime milliseconds.
func (u *UCI) Suggest(ctx context.Context, r Request) (rules.Move, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	searchTime := r.SearchTime
	if searchTime <= 0 {
		searchTime = 1000
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(searchTime*2+1000)*time.Millisecond)
	defer cancel()

	u.sendCommand(fmt.Sprintf("setoption name Skill Level value %d", min(max(r.Level, 0), 20)))
	u.sendCommand("ucinewgame")
	if err := u.ready(ctx); err != nil {
		return rules.Move{}, err
	}
	u.sendCommand("position fen " + r.FEN)
	u.sendCommand(fmt.Sprintf("go movetime %d", searchTime))

	line, err := u.waitFor(ctx, "bestmove ")
	if err != nil {
		u.sendCommand("stop")
		return rules.Move{}, fmt.Errorf("waiting for bestmove: %w", err)
	}

	fields := strings.Fields(line)
	if len(fields) < 2 || fields[1] == "(none)" {
		return rules.Move{}, ErrNoMove
	}
	return rules.ParseMove(fields[1])
}

func (u *UCI) Close() error {
	u.sendCommand("quit")
	u.stdin.Close()

	done := make(chan error, 1)
	go func() {
		done <- u.cmd.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-time.After(time.Second):
		return u.cmd.Process.Kill()
	}
}
