package chessdto

type FlowState struct {
	Initialized   bool     `json:"initialized"`
	Awaiting      string   `json:"awaiting"`
	CurrentTurn   string   `json:"current_turn,omitempty"`
	SelectedPiece string   `json:"selected_piece,omitempty"`
	History       []string `json:"history"`
}

type FlowResult struct {
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
	NextStep     string    `json:"next_step"`
	NeedsButtons bool      `json:"needs_buttons"`
	ButtonType   string    `json:"button_type,omitempty"`
	State        FlowState `json:"state"`
}
