// Package client talks to a chess-server over its JSON API. Its methods
// mirror the game service, so the console can play against a remote
// server the same way it plays in-process.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chesstrack/internal/board"
	"chesstrack/internal/core"
	"chesstrack/internal/game"
	"chesstrack/internal/rules"
	"chesstrack/internal/service"

	"github.com/valyala/fasthttp"
)

// Requests without a context deadline give up after this long. It is
// longer than the server's long-poll wait.
const defaultTimeout = 40 * time.Second

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

var codeErrors = func() map[string]error {
	m := map[string]error{
		core.ErrGameNotFound:      service.ErrGameNotFound,
		core.ErrGameOver:          service.ErrGameOver,
		core.ErrNotHumanTurn:      service.ErrNotHumanTurn,
		core.ErrNotComputerTurn:   service.ErrNotComputerTurn,
		core.ErrMovePending:       service.ErrMovePending,
		core.ErrStaleMove:         service.ErrStaleMove,
		core.ErrEngineUnavailable: service.ErrEngineUnavailable,
		core.ErrInvalidFEN:        game.ErrInvalidFEN,
	}
	for _, e := range []*rules.MoveError{
		rules.ErrNoPieceAtPosition,
		rules.ErrIllegalMoveOnOtherPlayer,
		rules.ErrNoMoveRegistered,
		rules.ErrPositionOccupied,
		rules.ErrPathIsBlocked,
		rules.ErrIllegalPawnMove,
		rules.ErrIllegalKnightMove,
		rules.ErrIllegalBishopMove,
		rules.ErrIllegalRookMove,
		rules.ErrIllegalQueenMove,
		rules.ErrIllegalKingMove,
	} {
		m[e.Code()] = e
	}
	return m
}()

// Is matches the service or rules error behind the response code, so
// callers can use the same errors.Is checks for local and remote games.
func (e *APIError) Is(target error) bool {
	sentinel, ok := codeErrors[e.Code]
	return ok && sentinel == target
}

// As hands out the rules sentinel for a rejected move, which keeps
// rules.CodeOf working on remote errors.
func (e *APIError) As(target any) bool {
	me, ok := target.(**rules.MoveError)
	if !ok {
		return false
	}
	sentinel, ok := codeErrors[e.Code].(*rules.MoveError)
	if !ok {
		return false
	}
	*me = sentinel
	return true
}

type HealthResponse struct {
	Status  string `json:"status"`
	Time    int64  `json:"time"`
	Storage string `json:"storage"`
	Cache   string `json:"cache"`
	Engine  string `json:"engine"`
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
}

// New returns a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &fasthttp.Client{
			ReadTimeout:     defaultTimeout,
			WriteTimeout:    10 * time.Second,
			MaxConnsPerHost: 4,
		},
	}
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	deadline := time.Now().Add(defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if status := resp.StatusCode(); status >= 400 {
		var body core.ErrorResponse
		if err := json.Unmarshal(resp.Body(), &body); err != nil || body.Error == "" {
			body.Error = fasthttp.StatusMessage(status)
		}
		return &APIError{Status: status, Code: body.Code, Message: body.Error, Details: body.Details}
	}

	if out != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func gamePath(gameID, suffix string) string {
	return "/api/v1/games/" + gameID + suffix
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateGame(ctx context.Context, white, black core.PlayerConfig, fen string) (string, error) {
	var resp core.GameResponse
	req := core.CreateGameRequest{White: white, Black: black, FEN: fen}
	if err := c.do(ctx, fasthttp.MethodPost, "/api/v1/games", req, &resp); err != nil {
		return "", err
	}
	return resp.GameID, nil
}

func (c *Client) GetGame(ctx context.Context, gameID string) (*service.GameView, error) {
	return c.game(ctx, fasthttp.MethodGet, gamePath(gameID, ""), nil)
}

// WaitForChange long-polls until the game's move count differs from
// moveCount or the server's wait expires.
func (c *Client) WaitForChange(ctx context.Context, gameID string, moveCount int) (*service.GameView, error) {
	path := gamePath(gameID, "?wait=true&moveCount="+strconv.Itoa(moveCount))
	return c.game(ctx, fasthttp.MethodGet, path, nil)
}

func (c *Client) MakeMove(ctx context.Context, gameID string, mv rules.Move) (*service.GameView, error) {
	return c.game(ctx, fasthttp.MethodPost, gamePath(gameID, "/moves"), core.MoveRequest{Move: mv.String()})
}

// MakeComputerMove asks the server to play for the computer. When the
// server is already playing that move in the background it waits for the
// result instead.
func (c *Client) MakeComputerMove(ctx context.Context, gameID string) (*service.GameView, error) {
	before, err := c.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	v, err := c.game(ctx, fasthttp.MethodPost, gamePath(gameID, "/computer"), nil)
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, service.ErrMovePending), errors.Is(err, service.ErrStaleMove):
		v, werr := c.WaitForChange(ctx, gameID, before.MoveCount())
		if werr != nil {
			return nil, werr
		}
		if v.MoveCount() != before.MoveCount() {
			return v, nil
		}
	case errors.Is(err, service.ErrNotComputerTurn):
		v, gerr := c.GetGame(ctx, gameID)
		if gerr == nil && v.MoveCount() != before.MoveCount() {
			return v, nil
		}
	}
	return nil, err
}

func (c *Client) Suggest(ctx context.Context, gameID string) (rules.Move, error) {
	var resp core.SuggestResponse
	if err := c.do(ctx, fasthttp.MethodGet, gamePath(gameID, "/suggest"), nil, &resp); err != nil {
		return rules.Move{}, err
	}
	return rules.ParseMove(resp.Move)
}

func (c *Client) Undo(ctx context.Context, gameID string, count int) (*service.GameView, error) {
	return c.game(ctx, fasthttp.MethodPost, gamePath(gameID, "/undo"), core.UndoRequest{Count: count})
}

func (c *Client) Resign(ctx context.Context, gameID string, color board.Color) (*service.GameView, error) {
	req := core.ResignRequest{Color: string(color.Letter())}
	return c.game(ctx, fasthttp.MethodPost, gamePath(gameID, "/resign"), req)
}

func (c *Client) UpdatePlayers(ctx context.Context, gameID string, white, black core.PlayerConfig) (*service.GameView, error) {
	req := core.ConfigurePlayersRequest{White: white, Black: black}
	return c.game(ctx, fasthttp.MethodPut, gamePath(gameID, "/players"), req)
}

func (c *Client) DeleteGame(ctx context.Context, gameID string) error {
	return c.do(ctx, fasthttp.MethodDelete, gamePath(gameID, ""), nil, nil)
}

func (c *Client) game(ctx context.Context, method, path string, in any) (*service.GameView, error) {
	var resp core.GameResponse
	if err := c.do(ctx, method, path, in, &resp); err != nil {
		return nil, err
	}
	return toView(&resp)
}

// toView rebuilds the service view from a response; the board comes from
// the position string.
func toView(r *core.GameResponse) (*service.GameView, error) {
	g, err := game.ParseFEN(r.FEN)
	if err != nil {
		return nil, fmt.Errorf("server position: %w", err)
	}

	v := &service.GameView{
		ID:            r.GameID,
		FEN:           r.FEN,
		InitialFEN:    r.InitialFEN,
		Turn:          g.Turn(),
		State:         core.ParseState(r.State),
		Moves:         r.Moves,
		ScoreWhite:    r.Score.White,
		ScoreBlack:    r.Score.Black,
		Castling:      r.Castling,
		HalfMoveClock: r.HalfMove,
		Board:         g.Board(),
		White:         r.Players.White,
		Black:         r.Players.Black,
	}
	if lm := r.LastMove; lm != nil {
		color, _ := board.ParseColor(lm.PlayerColor)
		res := &game.MoveResult{
			Move:      lm.Move,
			Player:    color,
			GameState: v.State,
			Suggested: lm.Suggested,
		}
		if lm.Captured != "" {
			if p, ok := board.PieceFromSymbol(lm.Captured[0]); ok {
				res.Captured = p
			}
		}
		v.LastResult = res
	}
	return v, nil
}
