package chessdto

type Opening struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

type BoardResult struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	Reason       string   `json:"reason,omitempty"`
	FEN          string   `json:"fen"`
	Turn         string   `json:"turn"`
	GameOver     bool     `json:"game_over"`
	InCheck      bool     `json:"in_check"`
	Outcome      string   `json:"outcome,omitempty"`
	Method       string   `json:"method,omitempty"`
	LegalMoves   []string `json:"legal_moves,omitempty"`
	LastMove     string   `json:"last_move,omitempty"`
	History      []string `json:"history"`
	Opening      *Opening `json:"opening,omitempty"`
	Destinations []string `json:"destinations,omitempty"`
}
