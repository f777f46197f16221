package flow

import (
	"strings"

	"github.com/park285/chess-assistant-bot/internal/domain"
	"github.com/park285/chess-assistant-bot/internal/msgcat"
)

// Awaiting is the input the flow currently asks for.
type Awaiting string

const (
	AwaitTurn   Awaiting = "turn"
	AwaitPiece  Awaiting = "piece"
	AwaitSquare Awaiting = "square"
	AwaitNone   Awaiting = "none"
)

type NextStep string

const (
	AskTurn         NextStep = "ask_turn"
	AskPiece        NextStep = "ask_piece"
	AskSquare       NextStep = "ask_square"
	ProvideAnalysis NextStep = "provide_analysis"
)

type ButtonType string

const (
	ButtonsNone    ButtonType = ""
	ButtonsTurns   ButtonType = "turns"
	ButtonsPieces  ButtonType = "pieces"
	ButtonsSquares ButtonType = "squares"
)

// State tracks what the conversation is waiting for. It never looks at the board.
type State struct {
	Initialized   bool
	Awaiting      Awaiting
	CurrentTurn   domain.Color
	SelectedPiece domain.PieceKind
	History       []string
}

func NewState() *State {
	return &State{Awaiting: AwaitTurn}
}

func (s *State) clone() State {
	c := *s
	c.History = append([]string(nil), s.History...)
	return c
}

type Result struct {
	Success      bool
	Message      string
	NextStep     NextStep
	NeedsButtons bool
	ButtonType   ButtonType
	State        State
}

// Machine applies flow actions to a State.
type Machine struct {
	msgs *msgcat.Catalog
}

func NewMachine(msgs *msgcat.Catalog) *Machine {
	return &Machine{msgs: msgcat.Or(msgs)}
}

func (m *Machine) InitGame(st *State) Result {
	*st = State{Initialized: true, Awaiting: AwaitTurn}
	return m.result(st, true, m.msgs.Text("flow.initialized", nil))
}

func (m *Machine) SetTurn(st *State, value string) Result {
	if st.Awaiting != AwaitTurn {
		return m.outOfOrder(st)
	}
	color, ok := domain.ParseColor(normalize(value))
	if !ok {
		return m.result(st, false, m.msgs.Text("flow.invalid_turn", nil))
	}
	st.CurrentTurn = color
	st.Awaiting = AwaitPiece
	return m.result(st, true, m.msgs.Text("flow.turn_set", map[string]any{"Color": color.Title()}))
}

func (m *Machine) SelectPiece(st *State, value string) Result {
	if st.Awaiting != AwaitPiece {
		return m.outOfOrder(st)
	}
	piece, ok := domain.ParsePieceKind(normalize(value))
	if !ok {
		return m.result(st, false, m.msgs.Text("flow.invalid_piece", nil))
	}
	st.SelectedPiece = piece
	st.Awaiting = AwaitSquare
	return m.result(st, true, m.msgs.Text("flow.piece_selected", map[string]any{
		"Piece":  piece.Title(),
		"Symbol": piece.Symbol(),
	}))
}

func (m *Machine) SelectSquare(st *State, value string) Result {
	if st.Awaiting != AwaitSquare {
		return m.outOfOrder(st)
	}
	square, ok := domain.ParseSquare(normalize(value))
	if !ok {
		return m.result(st, false, m.msgs.Text("flow.invalid_square", nil))
	}
	entry := string(st.SelectedPiece) + " to " + strings.ToUpper(square)
	st.History = append(st.History, entry)
	st.Awaiting = AwaitNone
	return m.result(st, true, m.msgs.Text("flow.square_recorded", map[string]any{"Entry": entry}))
}

// NextStep reports the prompt for the current state without changing it.
func (m *Machine) NextStep(st *State) Result {
	return m.result(st, true, m.prompt(st))
}

func (m *Machine) ResetGame(st *State) Result {
	*st = State{Awaiting: AwaitTurn}
	return m.result(st, true, m.msgs.Text("flow.reset", nil))
}

func (m *Machine) outOfOrder(st *State) Result {
	return m.result(st, false, m.prompt(st))
}

func (m *Machine) prompt(st *State) string {
	if !st.Initialized && st.Awaiting == AwaitTurn {
		return m.msgs.Text("flow.prompt.setup", nil)
	}
	step, _ := stepFor(st.Awaiting)
	return m.msgs.Text("flow.prompt."+string(step), map[string]any{"Piece": string(st.SelectedPiece)})
}

func (m *Machine) result(st *State, ok bool, message string) Result {
	step, buttons := stepFor(st.Awaiting)
	return Result{
		Success:      ok,
		Message:      message,
		NextStep:     step,
		NeedsButtons: buttons != ButtonsNone,
		ButtonType:   buttons,
		State:        st.clone(),
	}
}

func stepFor(a Awaiting) (NextStep, ButtonType) {
	switch a {
	case AwaitPiece:
		return AskPiece, ButtonsPieces
	case AwaitSquare:
		return AskSquare, ButtonsSquares
	case AwaitNone:
		return ProvideAnalysis, ButtonsNone
	default:
		return AskTurn, ButtonsTurns
	}
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
