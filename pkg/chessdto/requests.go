package chessdto

// MoveRequest carries a notation token, a from/to pair, or both.
type MoveRequest struct {
	Notation  string `json:"notation,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Promotion string `json:"promotion,omitempty"`
}

type FENRequest struct {
	FEN string `json:"fen"`
}

// FlowValueRequest is the body of the turn, piece and square flow endpoints.
type FlowValueRequest struct {
	Value string `json:"value"`
}

type AnalyzeRequest struct {
	FEN         string `json:"fen"`
	Depth       int    `json:"depth,omitempty"`
	TimeLimitMS int    `json:"time_limit_ms,omitempty"`
}

type EventRequest struct {
	// Kind is text, callback or photo.
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}
