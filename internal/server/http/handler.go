package http

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"chesstrack/internal/board"
	"chesstrack/internal/core"
	"chesstrack/internal/obslog"
	"chesstrack/internal/render"
	"chesstrack/internal/rules"
	"chesstrack/internal/server/processor"
	"chesstrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// Options tune the API app.
type Options struct {
	RateLimit int  // requests per second per client, 0 disables
	Dev       bool // doubles the rate limit
}

// HTTPHandler routes API requests to the service
type HTTPHandler struct {
	svc   *service.Service
	queue *processor.Queue // nil when computer moves are only played on request
	log   *zap.Logger
}

func NewHTTPHandler(svc *service.Service, queue *processor.Queue) *HTTPHandler {
	return &HTTPHandler{svc: svc, queue: queue, log: obslog.L().Named("http")}
}

func NewFiberApp(svc *service.Service, queue *processor.Queue, opts Options) *fiber.App {
	h := NewHTTPHandler(svc, queue)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second, // long polls
		IdleTimeout:  60 * time.Second,
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	app.Use(h.requestLogger)
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health check (no rate limit)
	app.Get("/health", h.Health)

	api := app.Group("/api/v1")

	if maxReq := opts.RateLimit; maxReq > 0 {
		if opts.Dev {
			maxReq *= 2
		}
		api.Use(limiter.New(limiter.Config{
			Max:        maxReq,
			Expiration: 1 * time.Second,
			KeyGenerator: func(c *fiber.Ctx) string {
				if xff := c.Get("X-Forwarded-For"); xff != "" {
					if idx := strings.Index(xff, ","); idx != -1 {
						return strings.TrimSpace(xff[:idx])
					}
					return xff
				}
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
					Error:   "rate limit exceeded",
					Code:    core.ErrRateLimitExceeded,
					Details: fmt.Sprintf("%d requests per second allowed", maxReq),
				})
			},
		}))
	}

	api.Use(contentTypeValidator)
	api.Use(validationMiddleware)

	api.Post("/games", h.CreateGame)
	api.Get("/games/:gameId", h.GetGame)
	api.Delete("/games/:gameId", h.DeleteGame)
	api.Put("/games/:gameId/players", h.ConfigurePlayers)
	api.Post("/games/:gameId/moves", h.MakeMove)
	api.Post("/games/:gameId/computer", h.ComputerMove)
	api.Get("/games/:gameId/suggest", h.Suggest)
	api.Post("/games/:gameId/undo", h.UndoMove)
	api.Post("/games/:gameId/resign", h.Resign)
	api.Get("/games/:gameId/board", h.GetBoard)
	api.Get("/games/:gameId/board.png", h.GetBoardImage)

	return app
}

func (h *HTTPHandler) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	h.log.Debug("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(start)))
	return err
}

// contentTypeValidator ensures POST and PUT requests have application/json
func contentTypeValidator(c *fiber.Ctx) error {
	method := c.Method()
	if method == fiber.MethodPost || method == fiber.MethodPut {
		contentType := c.Get("Content-Type")
		if contentType != "" && !strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(core.ErrorResponse{
				Error:   "unsupported media type",
				Code:    core.ErrInvalidContent,
				Details: "Content-Type must be application/json",
			})
		}
	}
	return c.Next()
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := core.ErrorResponse{
		Error: "internal server error",
		Code:  core.ErrInternalError,
	}

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		response.Error = e.Message

		switch code {
		case fiber.StatusNotFound:
			response.Code = core.ErrGameNotFound
		case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
			response.Code = core.ErrInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = core.ErrRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// Health reports the state of the optional backends
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"time":    time.Now().Unix(),
		"storage": h.svc.StorageHealth(),
		"cache":   h.svc.CacheHealth(c.UserContext()),
		"engine":  h.svc.EngineName(),
	})
}

// CreateGame starts a game and queues the first move if a computer opens
func (h *HTTPHandler) CreateGame(c *fiber.Ctx) error {
	req, ok := validatedBody[core.CreateGameRequest](c)
	if !ok {
		return validationBypass(c)
	}

	ctx := c.UserContext()
	id, err := h.svc.CreateGame(ctx, req.White, req.Black, req.FEN)
	if err != nil {
		return h.fail(c, err)
	}
	view, err := h.svc.GetGame(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	h.triggerComputerMove(view)

	return c.Status(fiber.StatusCreated).JSON(gameResponse(view))
}

// GetGame returns the game; with wait=true it long-polls until the move
// count differs from moveCount or the wait times out.
func (h *HTTPHandler) GetGame(c *fiber.Ctx) error {
	gameID, err := gameParam(c)
	if err != nil {
		return err
	}

	var view *service.GameView
	if c.Query("wait", "false") != "true" {
		view, err = h.svc.GetGame(c.UserContext(), gameID)
	} else {
		moveCount, convErr := strconv.Atoi(c.Query("moveCount", "-1"))
		if convErr != nil {
			moveCount = -1
		}
		view, err = h.svc.WaitForChange(c.Context(), gameID, moveCount)
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(gameResponse(view))
}

// ConfigurePlayers replaces both players mid-game
func (h *HTTPHandler) ConfigurePlayers(c *fiber.Ctx) error {
	gameID, err := gameParam(c)
	if err != nil {
		return err
	}
	req, ok := validatedBody[core.ConfigurePlayersRequest](c)
	if !ok {
		return validationBypass(c)
	}

	view, err := h.svc.UpdatePlayers(c.UserContext(), gameID, req.White, req.Black)
	if err != nil {
		return h.fail(c, err)
	}
	h.triggerComputerMove(view)
	return c.JSON(gameResponse(view))
}

// MakeMove submits a human move and queues the computer's reply
func (h *HTTPHandler) MakeMove(c *fiber.Ctx) error {
	gameID, err := gameParam(c)
	if err != nil {
		return err
	}
	req, ok := validatedBody[core.MoveRequest](c)
	if !ok {
		return validationBypass(c)
	}

	text := req.Move
	if text == "" {
		text = req.From + req.To
	}
	mv, err := rules.ParseMove(text)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid move",
			Code:    core.ErrInvalidMove,
			Details: err.Error(),
		})
	}

	view, err := h.svc.MakeMove(c.UserContext(), gameID, mv)
	if err != nil {
		return h.fail(c, err)
	}
	h.triggerComputerMove(view)
	return c.JSON(gameResponse(view))
}

// ComputerMove plays the computer's move synchronously
func (h *HTTPHandler) ComputerMove(c *fiber.Ctx) error {
	gameID, err := gameParam(c)
	if err != nil {
		return err
	}
	view, err := h.svc.MakeComputerMove(c.UserContext(), gameID)
	if err != nil {
		return h.fail(c, err)
	}
	h.triggerComputerMove(view)
	return c.JSON(gameResponse(view))
}

// Suggest returns a hint without playing it
func (h *HTTPHandler) Suggest(c *fiber.Ctx) error {
	gameID, err := gameParam(c)
	if err != nil {
		return err
	}
	mv, err := h.svc.Suggest(c.UserContext(), gameID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(core.SuggestResponse{
		Move: mv.String(),
		From: mv.From.String(),
		To:   mv.To.String(),
	})
}

// UndoMove undoes one or more moves
func (h *HTTPHandler) UndoMove(c *fiber.Ctx) error {
	gameID, err := gameParam(c)
	if err != nil {
		return err
	}
	req, ok := validatedBody[core.UndoRequest](c)
	if !ok {
		return validationBypass(c)
	}

	view, err := h.svc.Undo(c.UserContext(), gameID, req.Count)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(gameResponse(view))
}

// Resign ends the game in favor of the other side
func (h *HTTPHandler) Resign(c *fiber.Ctx) error {
	gameID, err := gameParam(c)
	if err != nil {
		return err
	}
	req, ok := validatedBody[core.ResignRequest](c)
	if !ok {
		return validationBypass(c)
	}
	color, _ := board.ParseColor(req.Color)

	view, err := h.svc.Resign(c.UserContext(), gameID, color)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(gameResponse(view))
}

// DeleteGame ends and cleans up a game
func (h *HTTPHandler) DeleteGame(c *fiber.Ctx) error {
	gameID, err := gameParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteGame(c.UserContext(), gameID); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetBoard returns ASCII representation of the board
func (h *HTTPHandler) GetBoard(c *fiber.Ctx) error {
	gameID, err := gameParam(c)
	if err != nil {
		return err
	}
	view, err := h.svc.GetGame(c.UserContext(), gameID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(core.BoardResponse{
		FEN:   view.FEN,
		Board: view.Board.ToASCII(),
	})
}

// GetBoardImage renders the board as PNG, highlighting the last move.
// Query: size (pixels per square), flip=true for Black's side.
func (h *HTTPHandler) GetBoardImage(c *fiber.Ctx) error {
	gameID, err := gameParam(c)
	if err != nil {
		return err
	}
	view, err := h.svc.GetGame(c.UserContext(), gameID)
	if err != nil {
		return h.fail(c, err)
	}

	opts := render.Options{
		SquareSize: c.QueryInt("size", render.DefaultSquareSize),
		Flip:       c.QueryBool("flip", false),
	}
	if r := view.LastResult; r != nil {
		if mv, err := rules.ParseMove(r.Move); err == nil {
			opts.Highlight = &render.Highlight{From: mv.From, To: mv.To}
		}
	}

	png, err := render.RenderPNG(c.UserContext(), view, opts)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "cannot render board",
			Code:    core.ErrInvalidRequest,
			Details: err.Error(),
		})
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

// triggerComputerMove queues a background move when a computer is to play.
func (h *HTTPHandler) triggerComputerMove(view *service.GameView) {
	if h.queue == nil || !processor.NeedsComputerMove(view) {
		return
	}
	if err := h.queue.Submit(view.ID); err != nil {
		h.log.Warn("cannot queue computer move", zap.String("game_id", view.ID), zap.Error(err))
	}
}

// gameParam returns the validated :gameId, or a fiber error the error
// handler turns into a 400.
func gameParam(c *fiber.Ctx) (string, error) {
	gameID := c.Params("gameId")
	if !isValidUUID(gameID) {
		return "", fiber.NewError(fiber.StatusBadRequest, "game ID must be a valid UUID")
	}
	return gameID, nil
}

func validationBypass(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
		Error: "validation bypass detected",
		Code:  core.ErrInternalError,
	})
}
