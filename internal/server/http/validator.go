package http

import (
	"fmt"
	"reflect"
	"strings"

	"chesstrack/internal/core"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(moveRequestValidation, core.MoveRequest{})
	return v
}

// moveRequestValidation accepts either "move" or both "from" and "to".
func moveRequestValidation(sl validator.StructLevel) {
	req := sl.Current().Interface().(core.MoveRequest)
	pair := req.From != "" || req.To != ""
	switch {
	case req.Move != "" && pair:
		sl.ReportError(req.Move, "Move", "move", "move_xor_squares", "")
	case req.Move == "" && (req.From == "" || req.To == ""):
		sl.ReportError(req.Move, "Move", "move", "move_or_squares", "")
	}
}

// validationMiddleware parses and validates JSON bodies for the routes that
// take one, and stores the result in Locals for the handler.
func validationMiddleware(c *fiber.Ctx) error {
	method := c.Method()
	if method == fiber.MethodGet || method == fiber.MethodDelete || method == fiber.MethodOptions {
		return c.Next()
	}

	path := c.Path()
	var requestType any

	switch {
	case strings.HasSuffix(path, "/games") && method == fiber.MethodPost:
		requestType = &core.CreateGameRequest{}
	case strings.HasSuffix(path, "/players") && method == fiber.MethodPut:
		requestType = &core.ConfigurePlayersRequest{}
	case strings.HasSuffix(path, "/moves") && method == fiber.MethodPost:
		requestType = &core.MoveRequest{}
	case strings.HasSuffix(path, "/undo") && method == fiber.MethodPost:
		requestType = &core.UndoRequest{}
	case strings.HasSuffix(path, "/resign") && method == fiber.MethodPost:
		requestType = &core.ResignRequest{}
	default:
		return c.Next()
	}

	if err := c.BodyParser(requestType); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid request body",
			Code:    core.ErrInvalidRequest,
			Details: err.Error(),
		})
	}

	if err := validate.Struct(requestType); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "validation failed",
			Code:    core.ErrInvalidRequest,
			Details: describe(err),
		})
	}

	c.Locals("validatedBody", requestType)
	return c.Next()
}

func describe(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	var details strings.Builder
	for _, fe := range errs {
		if details.Len() > 0 {
			details.WriteString("; ")
		}
		switch fe.Tag() {
		case "required":
			fmt.Fprintf(&details, "%s is required", fe.Field())
		case "oneof":
			fmt.Fprintf(&details, "%s must be one of [%s]", fe.Field(), fe.Param())
		case "min", "max", "len":
			unit := ""
			if fe.Kind() == reflect.String {
				unit = " characters"
			}
			bound := map[string]string{"min": "at least", "max": "at most", "len": "exactly"}[fe.Tag()]
			fmt.Fprintf(&details, "%s must be %s %s%s", fe.Field(), bound, fe.Param(), unit)
		case "move_xor_squares":
			details.WriteString("give either move or from/to, not both")
		case "move_or_squares":
			details.WriteString("move, or both from and to, is required")
		default:
			fmt.Fprintf(&details, "%s failed %s validation", fe.Field(), fe.Tag())
		}
	}
	return details.String()
}

// validatedBody returns the request the middleware stored for this route.
func validatedBody[T any](c *fiber.Ctx) (*T, bool) {
	req, ok := c.Locals("validatedBody").(*T)
	return req, ok
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
