package http

import (
	"errors"

	"chesstrack/internal/core"
	"chesstrack/internal/game"
	"chesstrack/internal/rules"
	"chesstrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func gameResponse(v *service.GameView) core.GameResponse {
	moves := v.Moves
	if moves == nil {
		moves = []string{}
	}
	resp := core.GameResponse{
		GameID:     v.ID,
		FEN:        v.FEN,
		InitialFEN: v.InitialFEN,
		Turn:       string(v.Turn.Letter()),
		State:      v.State.String(),
		Moves:      moves,
		Score:      core.ScoreResponse{White: v.ScoreWhite, Black: v.ScoreBlack},
		Castling:   v.Castling,
		HalfMove:   v.HalfMoveClock,
		Players:    core.PlayersResponse{White: v.White, Black: v.Black},
	}
	if r := v.LastResult; r != nil {
		resp.LastMove = &core.MoveInfo{
			Move:        r.Move,
			PlayerColor: string(r.Player.Letter()),
			Suggested:   r.Suggested,
		}
		if !r.Captured.IsZero() {
			resp.LastMove.Captured = string(r.Captured.Symbol())
		}
	}
	return resp
}

// errorResponse maps a service or rules error to a status and body.
func errorResponse(err error) (int, core.ErrorResponse) {
	resp := core.ErrorResponse{Details: err.Error()}
	status := fiber.StatusBadRequest

	switch code := rules.CodeOf(err); {
	case code != "":
		resp.Error, resp.Code = "invalid move", code
	case service.IsNotFound(err):
		status = fiber.StatusNotFound
		resp.Error, resp.Code = "game not found", core.ErrGameNotFound
	case errors.Is(err, game.ErrInvalidFEN):
		resp.Error, resp.Code = "invalid position", core.ErrInvalidFEN
	case errors.Is(err, service.ErrInvalidUndo):
		resp.Error, resp.Code = "cannot undo moves", core.ErrInvalidRequest
	case errors.Is(err, service.ErrGameOver):
		status = fiber.StatusConflict
		resp.Error, resp.Code = "game is over", core.ErrGameOver
	case errors.Is(err, service.ErrNotHumanTurn):
		status = fiber.StatusConflict
		resp.Error, resp.Code = "not a human player's turn", core.ErrNotHumanTurn
	case errors.Is(err, service.ErrNotComputerTurn):
		status = fiber.StatusConflict
		resp.Error, resp.Code = "not a computer player's turn", core.ErrNotComputerTurn
	case errors.Is(err, service.ErrMovePending):
		status = fiber.StatusConflict
		resp.Error, resp.Code = "computer move in progress", core.ErrMovePending
	case errors.Is(err, service.ErrStaleMove):
		status = fiber.StatusConflict
		resp.Error, resp.Code = "position changed", core.ErrStaleMove
	case errors.Is(err, service.ErrEngineUnavailable):
		status = fiber.StatusServiceUnavailable
		resp.Error, resp.Code = "move suggester unavailable", core.ErrEngineUnavailable
	default:
		status = fiber.StatusInternalServerError
		resp = core.ErrorResponse{Error: "internal server error", Code: core.ErrInternalError}
	}
	return status, resp
}

func (h *HTTPHandler) fail(c *fiber.Ctx, err error) error {
	status, resp := errorResponse(err)
	if status >= fiber.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(resp)
}
