package core

// Request types

type CreateGameRequest struct {
	White PlayerConfig `json:"white" validate:"required"`
	Black PlayerConfig `json:"black" validate:"required"`
	FEN   string       `json:"fen,omitempty" validate:"omitempty,max=100"`
}

// MoveRequest carries either coordinate pair or a combined move string
// such as "e2e4", "e2 e4" or "e2-e4".
type MoveRequest struct {
	From string `json:"from,omitempty" validate:"omitempty,len=2"`
	To   string `json:"to,omitempty" validate:"omitempty,len=2"`
	Move string `json:"move,omitempty" validate:"omitempty,min=4,max=5"`
}

type UndoRequest struct {
	Count int `json:"count" validate:"required,min=1,max=300"`
}

type ResignRequest struct {
	Color string `json:"color" validate:"required,oneof=w b white black"`
}

// Response types

type GameResponse struct {
	GameID     string          `json:"gameId"`
	FEN        string          `json:"fen"`
	InitialFEN string          `json:"initialFen"`
	Turn       string          `json:"turn"`  // "w" or "b"
	State      string          `json:"state"` // "ongoing", "white_wins", ...
	Moves      []string        `json:"moves"`
	Score      ScoreResponse   `json:"score"`
	Castling   string          `json:"castling"`
	HalfMove   int             `json:"halfMoveClock"`
	Players    PlayersResponse `json:"players"`
	LastMove   *MoveInfo       `json:"lastMove,omitempty"`
}

type ScoreResponse struct {
	White int `json:"white"`
	Black int `json:"black"`
}

type MoveInfo struct {
	Move        string `json:"move"`
	PlayerColor string `json:"playerColor"` // "w" or "b"
	Captured    string `json:"captured,omitempty"`
	Suggested   bool   `json:"suggested,omitempty"`
}

type BoardResponse struct {
	FEN   string `json:"fen"`
	Board string `json:"board"` // ASCII representation
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

type ConfigurePlayersRequest struct {
	White PlayerConfig `json:"white" validate:"required"`
	Black PlayerConfig `json:"black" validate:"required"`
}

type SuggestResponse struct {
	Move string `json:"move"`
	From string `json:"from"`
	To   string `json:"to"`
}
