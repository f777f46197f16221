package flow

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFullFlow(t *testing.T) {
	m := NewMachine(nil)
	st := NewState()

	res := m.InitGame(st)
	require.True(t, res.Success)
	assert.Equal(t, "Chess game initialized! Whose turn is it to move?", res.Message)
	assert.Equal(t, AskTurn, res.NextStep)
	assert.Equal(t, ButtonsTurns, res.ButtonType)
	assert.True(t, res.NeedsButtons)

	res = m.SetTurn(st, " White ")
	require.True(t, res.Success)
	assert.Equal(t, "Great! White to move. Now, which piece did your opponent just move?", res.Message)
	assert.Equal(t, AskPiece, res.NextStep)
	assert.Equal(t, ButtonsPieces, res.ButtonType)

	res = m.SelectPiece(st, "KNIGHT")
	require.True(t, res.Success)
	assert.Equal(t, "Knight ♘ selected. Where did it move to?", res.Message)
	assert.Equal(t, AskSquare, res.NextStep)
	assert.Equal(t, ButtonsSquares, res.ButtonType)

	res = m.SelectSquare(st, "f3")
	require.True(t, res.Success)
	assert.Equal(t, "Move recorded: knight to F3. Let me analyze...", res.Message)
	assert.Equal(t, ProvideAnalysis, res.NextStep)
	assert.False(t, res.NeedsButtons)
	assert.Equal(t, []string{"knight to F3"}, res.State.History)
	assert.Equal(t, AwaitNone, res.State.Awaiting)
}

func TestInvalidInputsKeepState(t *testing.T) {
	m := NewMachine(nil)
	st := NewState()
	m.InitGame(st)

	res := m.SetTurn(st, "purple")
	require.False(t, res.Success)
	assert.Equal(t, "Invalid turn selection. Please choose white or black.", res.Message)
	assert.Equal(t, AwaitTurn, st.Awaiting)

	m.SetTurn(st, "black")
	res = m.SelectPiece(st, "dragon")
	require.False(t, res.Success)
	assert.Equal(t, "Invalid piece selection. Please choose king, queen, rook, bishop, knight, or pawn.", res.Message)
	assert.Equal(t, AwaitPiece, st.Awaiting)

	m.SelectPiece(st, "rook")
	for _, bad := range []string{"i9", "a0", "a", "e44", ""} {
		res = m.SelectSquare(st, bad)
		require.False(t, res.Success, bad)
		assert.Equal(t, "Invalid square selection. Please choose a valid square (a1-h8).", res.Message)
		assert.Equal(t, AwaitSquare, st.Awaiting)
	}
	assert.Empty(t, st.History)
}

func TestOutOfOrderRejected(t *testing.T) {
	m := NewMachine(nil)
	st := NewState()
	m.InitGame(st)

	res := m.SelectPiece(st, "queen")
	require.False(t, res.Success)
	assert.Equal(t, AskTurn, res.NextStep)
	assert.Equal(t, AwaitTurn, st.Awaiting)
	assert.Empty(t, st.SelectedPiece)

	res = m.SelectSquare(st, "e4")
	require.False(t, res.Success)
	assert.Equal(t, AwaitTurn, st.Awaiting)
}

func TestNextStepIsPure(t *testing.T) {
	m := NewMachine(nil)
	st := NewState()
	m.InitGame(st)
	m.SetTurn(st, "white")
	m.SelectPiece(st, "bishop")
	before := st.clone()

	res := m.NextStep(st)
	assert.Equal(t, AskSquare, res.NextStep)
	assert.Equal(t, "Where did the bishop move to?", res.Message)
	assert.Equal(t, before, *st)
}

func TestResetGame(t *testing.T) {
	m := NewMachine(nil)
	st := NewState()
	m.InitGame(st)
	m.SetTurn(st, "white")
	m.SelectPiece(st, "pawn")
	m.SelectSquare(st, "e4")

	res := m.ResetGame(st)
	require.True(t, res.Success)
	assert.Equal(t, "Game reset! Let's start fresh.", res.Message)
	assert.Equal(t, AwaitTurn, st.Awaiting)
	assert.False(t, st.Initialized)
	assert.Empty(t, st.History)
	assert.Empty(t, st.SelectedPiece)
	assert.Empty(t, st.CurrentTurn)
}

var order = map[Awaiting]int{AwaitTurn: 0, AwaitPiece: 1, AwaitSquare: 2, AwaitNone: 3}

// Any action sequence only moves awaiting one step forward at a time, and
// only init/reset bring it back to turn.
func TestAwaitingOrder_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := NewMachine(nil)
		st := NewState()
		inputs := []string{"white", "black", "red", "king", "knight", "bishop", "e4", "h8", "z9", ""}
		n := rapid.IntRange(1, 60).Draw(rt, "n")
		for i := 0; i < n; i++ {
			prev := st.Awaiting
			action := rapid.IntRange(0, 5).Draw(rt, "action")
			value := rapid.SampledFrom(inputs).Draw(rt, "value")
			var res Result
			switch action {
			case 0:
				res = m.InitGame(st)
			case 1:
				res = m.SetTurn(st, value)
			case 2:
				res = m.SelectPiece(st, value)
			case 3:
				res = m.SelectSquare(st, value)
			case 4:
				res = m.NextStep(st)
			case 5:
				res = m.ResetGame(st)
			}
			cur := st.Awaiting
			if _, ok := order[cur]; !ok {
				rt.Fatalf("unknown awaiting value %q", cur)
			}
			switch {
			case action == 0 || action == 5:
				if cur != AwaitTurn {
					rt.Fatalf("init/reset left awaiting %q", cur)
				}
			case cur == prev:
			case order[cur] == order[prev]+1 && res.Success:
			default:
				rt.Fatalf("awaiting jumped %q -> %q on action %d", prev, cur, action)
			}
			if st.SelectedPiece != "" && order[cur] < order[AwaitSquare] {
				rt.Fatalf("selected piece set while awaiting %q", cur)
			}
		}
	})
}

type mapSessions struct {
	mu    sync.Mutex
	flows map[string]*State
}

func (m *mapSessions) WithFlow(userID string, fn func(*State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.flows == nil {
		m.flows = make(map[string]*State)
	}
	st, ok := m.flows[userID]
	if !ok {
		st = NewState()
		m.flows[userID] = st
	}
	fn(st)
}

func TestService_KeyedByUser(t *testing.T) {
	svc := NewService(nil, &mapSessions{}, nil)
	res := svc.GetNextStep("fresh")
	assert.Equal(t, AskTurn, res.NextStep)
	assert.False(t, res.State.Initialized)

	svc.InitGame("a")
	svc.SetTurn("a", "white")
	svc.SelectPiece("a", "knight")
	res = svc.SelectSquare("a", "f3")
	require.True(t, res.Success)
	assert.Equal(t, []string{"knight to F3"}, res.State.History)

	assert.Equal(t, AskTurn, svc.GetNextStep("b").NextStep)
	assert.Equal(t, ProvideAnalysis, svc.GetNextStep("a").NextStep)
	assert.Equal(t, AskTurn, svc.ResetGame("a").NextStep)
}

func TestNextStep_UninitializedAsksForSetup(t *testing.T) {
	m := NewMachine(nil)
	st := NewState()

	res := m.NextStep(st)
	assert.Equal(t, AskTurn, res.NextStep)
	assert.Equal(t, "Let's start by setting up your chess position.", res.Message)

	res = m.SetTurn(st, "black")
	require.True(t, res.Success)
	assert.False(t, st.Initialized)
	assert.Equal(t, "Which piece did your opponent just move?", m.NextStep(st).Message)

	m.InitGame(st)
	assert.Equal(t, "Whose turn is it to move?", m.NextStep(st).Message)
}
