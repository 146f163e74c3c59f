package http

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"chesstrack/internal/core"
	"chesstrack/internal/engine"
	"chesstrack/internal/game"
	"chesstrack/internal/server/processor"
	"chesstrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
)

const (
	humanVsHuman    = `{"white":{"type":1},"black":{"type":1}}`
	humanVsComputer = `{"white":{"type":1},"black":{"type":2,"level":5,"searchTime":500}}`
	computerVsHuman = `{"white":{"type":2},"black":{"type":1}}`
)

type testServer struct {
	app *fiber.App
	svc *service.Service
}

func newTestServer(t *testing.T, withQueue bool, opts Options) *testServer {
	t.Helper()
	svc := service.New(
		service.WithSuggester(engine.NewGreedy(nil)),
		service.WithLogger(zaptest.NewLogger(t)),
		service.WithWaitTimeout(500*time.Millisecond),
	)
	var q *processor.Queue
	if withQueue {
		q = processor.NewQueue(svc, 1, time.Second)
	}
	t.Cleanup(func() {
		if q != nil {
			q.Shutdown(time.Second)
		}
		svc.Close(time.Second)
	})
	return &testServer{app: NewFiberApp(svc, q, opts), svc: svc}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, data
}

func (s *testServer) game(t *testing.T, method, path, body string, wantStatus int) core.GameResponse {
	t.Helper()
	status, data := s.do(t, method, path, body)
	if status != wantStatus {
		t.Fatalf("%s %s = %d %s; want %d", method, path, status, data, wantStatus)
	}
	var g core.GameResponse
	if err := json.Unmarshal(data, &g); err != nil {
		t.Fatalf("decode game: %v (%s)", err, data)
	}
	return g
}

func (s *testServer) create(t *testing.T, body string) core.GameResponse {
	t.Helper()
	return s.game(t, nethttp.MethodPost, "/api/v1/games", body, fiber.StatusCreated)
}

func (s *testServer) wantError(t *testing.T, method, path, body string, wantStatus int, wantCode string) {
	t.Helper()
	status, data := s.do(t, method, path, body)
	var e core.ErrorResponse
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("decode error: %v (%s)", err, data)
	}
	if status != wantStatus || e.Code != wantCode {
		t.Errorf("%s %s %s = %d %s; want %d %s", method, path, body, status, e.Code, wantStatus, wantCode)
	}
}

func gamePath(id string, suffix ...string) string {
	return "/api/v1/games/" + id + strings.Join(suffix, "")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, false, Options{})
	status, data := s.do(t, nethttp.MethodGet, "/health", "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"status": "healthy", "storage": "disabled", "cache": "disabled", "engine": "local"}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("%s = %v; want %v", k, body[k], v)
		}
	}
}

func TestCreateAndGetGame(t *testing.T) {
	s := newTestServer(t, false, Options{})
	created := s.create(t, humanVsComputer)

	if created.FEN != game.StartingFEN || created.Turn != "w" || created.State != "ongoing" {
		t.Errorf("created = %+v", created)
	}
	if created.Castling != "KQkq" || len(created.Moves) != 0 {
		t.Errorf("castling %q, moves %v", created.Castling, created.Moves)
	}
	if created.Players.Black.Type != core.PlayerComputer || created.Players.Black.Level != 5 {
		t.Errorf("black = %+v", created.Players.Black)
	}

	got := s.game(t, nethttp.MethodGet, gamePath(created.GameID), "", fiber.StatusOK)
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("GET (-created +got):\n%s", diff)
	}
}

func TestCreateGameErrors(t *testing.T) {
	s := newTestServer(t, false, Options{})
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"bad player type", `{"white":{"type":3},"black":{"type":1}}`, 400, core.ErrInvalidRequest},
		{"missing player", `{"white":{"type":1}}`, 400, core.ErrInvalidRequest},
		{"level out of range", `{"white":{"type":2,"level":30},"black":{"type":1}}`, 400, core.ErrInvalidRequest},
		{"bad fen", `{"white":{"type":1},"black":{"type":1},"fen":"8/8 w"}`, 400, core.ErrInvalidFEN},
		{"malformed json", `{"white":`, 400, core.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.wantError(t, nethttp.MethodPost, "/api/v1/games", tt.body, tt.status, tt.code)
		})
	}

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/games", strings.NewReader(humanVsHuman))
	req.Header.Set("Content-Type", "text/plain")
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusUnsupportedMediaType {
		t.Errorf("text/plain status = %d; want 415", resp.StatusCode)
	}
}

func TestCreateFromFEN(t *testing.T) {
	s := newTestServer(t, false, Options{})
	fen := "4k3/8/8/8/8/8/4q3/4K3 b - - 0 1"
	g := s.create(t, `{"white":{"type":1},"black":{"type":1},"fen":"` + fen + `"}`)
	if g.FEN != fen || g.Turn != "b" {
		t.Fatalf("created = %+v", g)
	}

	g = s.game(t, nethttp.MethodPost, gamePath(g.GameID, "/moves"), `{"move":"e2e1"}`, fiber.StatusOK)
	if g.State != "black_wins" || g.Score.Black != 100 || g.LastMove.Captured != "K" {
		t.Errorf("after king capture = %+v, last %+v", g, g.LastMove)
	}
	s.wantError(t, nethttp.MethodPost, gamePath(g.GameID, "/moves"), `{"move":"e8d8"}`, 409, core.ErrGameOver)
}

func TestMakeMove(t *testing.T) {
	s := newTestServer(t, false, Options{})
	id := s.create(t, humanVsHuman).GameID
	path := gamePath(id, "/moves")

	g := s.game(t, nethttp.MethodPost, path, `{"move":"e2e4"}`, fiber.StatusOK)
	if g.Turn != "b" || g.LastMove == nil || g.LastMove.Move != "e2e4" || g.LastMove.PlayerColor != "w" {
		t.Errorf("after e2e4 = %+v", g)
	}
	g = s.game(t, nethttp.MethodPost, path, `{"from":"e7","to":"e5"}`, fiber.StatusOK)
	if diff := cmp.Diff([]string{"e2e4", "e7e5"}, g.Moves); diff != "" {
		t.Errorf("moves (-want +got):\n%s", diff)
	}

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"both forms", `{"move":"g1f3","from":"g1"}`, 400, core.ErrInvalidRequest},
		{"nothing", `{}`, 400, core.ErrInvalidRequest},
		{"half a pair", `{"from":"g1"}`, 400, core.ErrInvalidRequest},
		{"unparsable", `{"move":"z9z9"}`, 400, core.ErrInvalidMove},
		{"knight shape", `{"move":"b1b3"}`, 400, "ILLEGAL_KNIGHT_MOVE"},
		{"empty square", `{"move":"e3e4"}`, 400, "NO_PIECE_AT_POSITION"},
		{"opponent piece", `{"move":"d7d6"}`, 400, "ILLEGAL_MOVE_ON_OTHER_PLAYER"},
		{"own piece on target", `{"move":"d1d2"}`, 400, "POSITION_OCCUPIED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.wantError(t, nethttp.MethodPost, path, tt.body, tt.status, tt.code)
		})
	}

	got := s.game(t, nethttp.MethodGet, gamePath(id), "", fiber.StatusOK)
	if len(got.Moves) != 2 {
		t.Errorf("rejected moves changed the game: %v", got.Moves)
	}
}

func TestGameIDErrors(t *testing.T) {
	s := newTestServer(t, false, Options{})
	s.wantError(t, nethttp.MethodGet, gamePath("not-a-uuid"), "", 400, core.ErrInvalidRequest)
	s.wantError(t, nethttp.MethodGet, gamePath(uuid.NewString()), "", 404, core.ErrGameNotFound)
	s.wantError(t, nethttp.MethodPost, gamePath(uuid.NewString(), "/moves"), `{"move":"e2e4"}`, 404, core.ErrGameNotFound)
}

func TestComputerMove(t *testing.T) {
	s := newTestServer(t, false, Options{})
	id := s.create(t, humanVsComputer).GameID

	s.wantError(t, nethttp.MethodPost, gamePath(id, "/computer"), "", 409, core.ErrNotComputerTurn)
	s.game(t, nethttp.MethodPost, gamePath(id, "/moves"), `{"move":"e2e4"}`, fiber.StatusOK)
	s.wantError(t, nethttp.MethodPost, gamePath(id, "/moves"), `{"move":"e7e5"}`, 409, core.ErrNotHumanTurn)

	g := s.game(t, nethttp.MethodPost, gamePath(id, "/computer"), "", fiber.StatusOK)
	if len(g.Moves) != 2 || g.LastMove == nil || !g.LastMove.Suggested || g.LastMove.PlayerColor != "b" {
		t.Errorf("after computer move = %+v", g)
	}
}

func TestComputerOpensInBackground(t *testing.T) {
	s := newTestServer(t, true, Options{})
	id := s.create(t, computerVsHuman).GameID

	moveCount := 0
	deadline := time.Now().Add(3 * time.Second)
	for {
		g := s.game(t, nethttp.MethodGet, gamePath(id, "?wait=true&moveCount=", strconv.Itoa(moveCount)), "", fiber.StatusOK)
		if len(g.Moves) == 1 && g.State == "ongoing" {
			if g.Turn != "b" || !g.LastMove.Suggested {
				t.Errorf("after background move = %+v", g)
			}
			return
		}
		moveCount = len(g.Moves)
		if time.Now().After(deadline) {
			t.Fatalf("no background move: %+v", g)
		}
	}
}

func TestUndo(t *testing.T) {
	s := newTestServer(t, false, Options{})
	id := s.create(t, humanVsHuman).GameID
	s.game(t, nethttp.MethodPost, gamePath(id, "/moves"), `{"move":"g1f3"}`, fiber.StatusOK)

	s.wantError(t, nethttp.MethodPost, gamePath(id, "/undo"), `{"count":0}`, 400, core.ErrInvalidRequest)
	s.wantError(t, nethttp.MethodPost, gamePath(id, "/undo"), `{"count":2}`, 400, core.ErrInvalidRequest)

	g := s.game(t, nethttp.MethodPost, gamePath(id, "/undo"), `{"count":1}`, fiber.StatusOK)
	if len(g.Moves) != 0 || g.FEN != game.StartingFEN {
		t.Errorf("after undo = %+v", g)
	}
}

func TestResign(t *testing.T) {
	s := newTestServer(t, false, Options{})
	id := s.create(t, humanVsHuman).GameID

	s.wantError(t, nethttp.MethodPost, gamePath(id, "/resign"), `{"color":"green"}`, 400, core.ErrInvalidRequest)
	g := s.game(t, nethttp.MethodPost, gamePath(id, "/resign"), `{"color":"b"}`, fiber.StatusOK)
	if g.State != "white_wins" {
		t.Errorf("state = %q; want white_wins", g.State)
	}
	s.wantError(t, nethttp.MethodPost, gamePath(id, "/resign"), `{"color":"white"}`, 409, core.ErrGameOver)
	s.wantError(t, nethttp.MethodGet, gamePath(id, "/suggest"), "", 409, core.ErrGameOver)
}

func TestConfigurePlayers(t *testing.T) {
	s := newTestServer(t, false, Options{})
	id := s.create(t, humanVsHuman).GameID

	g := s.game(t, nethttp.MethodPut, gamePath(id, "/players"), humanVsComputer, fiber.StatusOK)
	if g.Players.Black.Type != core.PlayerComputer || g.Players.Black.SearchTime != 500 {
		t.Errorf("black = %+v", g.Players.Black)
	}
	s.wantError(t, nethttp.MethodPut, gamePath(id, "/players"), `{"white":{"type":0},"black":{"type":1}}`, 400, core.ErrInvalidRequest)
}

func TestSuggest(t *testing.T) {
	s := newTestServer(t, false, Options{})
	id := s.create(t, humanVsHuman).GameID

	status, data := s.do(t, nethttp.MethodGet, gamePath(id, "/suggest"), "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d %s", status, data)
	}
	var got core.SuggestResponse
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(core.SuggestResponse{Move: "b1a3", From: "b1", To: "a3"}, got); diff != "" {
		t.Errorf("suggestion (-want +got):\n%s", diff)
	}
}

func TestBoard(t *testing.T) {
	s := newTestServer(t, false, Options{})
	id := s.create(t, humanVsHuman).GameID
	s.game(t, nethttp.MethodPost, gamePath(id, "/moves"), `{"move":"e2e4"}`, fiber.StatusOK)

	status, data := s.do(t, nethttp.MethodGet, gamePath(id, "/board"), "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var b core.BoardResponse
	if err := json.Unmarshal(data, &b); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.Board, "8 r n b q k b n r  8") || !strings.Contains(b.Board, "4 . . . . P . . .  4") {
		t.Errorf("board:\n%s", b.Board)
	}

	req := httptest.NewRequest(nethttp.MethodGet, gamePath(id, "/board.png?size=32&flip=true"), nil)
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	img, err := png.Decode(bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if w := img.Bounds().Dx(); w != 8*32+32 {
		t.Errorf("width = %d", w)
	}

	s.wantError(t, nethttp.MethodGet, gamePath(id, "/board.png?size=2"), "", 400, core.ErrInvalidRequest)
}

func TestDeleteGame(t *testing.T) {
	s := newTestServer(t, false, Options{})
	id := s.create(t, humanVsHuman).GameID

	if status, _ := s.do(t, nethttp.MethodDelete, gamePath(id), ""); status != fiber.StatusNoContent {
		t.Fatalf("delete status = %d", status)
	}
	s.wantError(t, nethttp.MethodGet, gamePath(id), "", 404, core.ErrGameNotFound)
	s.wantError(t, nethttp.MethodDelete, gamePath(id), "", 404, core.ErrGameNotFound)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, false, Options{RateLimit: 1})
	path := gamePath(uuid.NewString())
	s.wantError(t, nethttp.MethodGet, path, "", 404, core.ErrGameNotFound)
	s.wantError(t, nethttp.MethodGet, path, "", 429, core.ErrRateLimitExceeded)

	// health is not limited
	if status, _ := s.do(t, nethttp.MethodGet, "/health", ""); status != fiber.StatusOK {
		t.Errorf("health status = %d", status)
	}
}
