package core

// Error codes. Rejected moves use the rule-specific code from the rules
// package instead of ErrInvalidMove when one is available.
const (
	ErrGameNotFound      = "GAME_NOT_FOUND"
	ErrInvalidMove       = "INVALID_MOVE"
	ErrNotHumanTurn      = "NOT_HUMAN_TURN"
	ErrNotComputerTurn   = "NOT_COMPUTER_TURN"
	ErrMovePending       = "MOVE_PENDING"
	ErrGameOver          = "GAME_OVER"
	ErrStaleMove         = "STALE_MOVE"
	ErrEngineUnavailable = "ENGINE_UNAVAILABLE"
	ErrRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrInvalidContent    = "INVALID_CONTENT_TYPE"
	ErrInvalidRequest    = "INVALID_REQUEST"
	ErrInvalidFEN        = "INVALID_FEN"
	ErrInternalError     = "INTERNAL_ERROR"
)
