package chess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/park285/chess-assistant-bot/internal/chess/uci"
)

func TestFormatCentipawns(t *testing.T) {
	cases := map[int]string{
		135:  "+1.4 pawns",
		-5:   "-0.1 pawns",
		0:    "0.0 pawns",
		-4:   "0.0 pawns",
		4:    "0.0 pawns",
		-50:  "-0.5 pawns",
		100:  "+1.0 pawns",
		-999: "-10.0 pawns",
		15:   "+0.2 pawns",
	}
	for cp, want := range cases {
		assert.Equal(t, want, FormatCentipawns(cp), "cp=%d", cp)
	}
}

func TestFormatCentipawns_SignProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cp := rapid.IntRange(-100000, 100000).Draw(t, "cp")
		got := FormatCentipawns(cp)
		switch {
		case cp >= 5:
			if !strings.HasPrefix(got, "+") {
				t.Fatalf("%d rendered as %q", cp, got)
			}
		case cp <= -5:
			if !strings.HasPrefix(got, "-") {
				t.Fatalf("%d rendered as %q", cp, got)
			}
		default:
			if got != "0.0 pawns" {
				t.Fatalf("%d rendered as %q", cp, got)
			}
		}
	})
}

func TestEvaluation(t *testing.T) {
	mate := EvaluationFromScore(uci.Score{Kind: uci.ScoreMate, Value: 3})
	assert.Equal(t, "Mate in 3 moves", mate.String())
	assert.Equal(t, "side to move mates", mate.Perspective())

	mated := EvaluationFromScore(uci.Score{Kind: uci.ScoreMate, Value: -3})
	assert.Equal(t, "Mate in 3 moves", mated.String())
	assert.Equal(t, "side to move is mated", mated.Perspective())

	cp := EvaluationFromScore(uci.Score{Kind: uci.ScoreCP, Value: -50})
	assert.Equal(t, EvalCentipawns, cp.Kind)
	assert.Equal(t, "-0.5 pawns", cp.String())
	assert.Empty(t, cp.Perspective())

	none := EvaluationFromScore(uci.Score{})
	assert.Equal(t, EvalNone, none.Kind)
	assert.Empty(t, none.String())
}

func TestHumanizeMove(t *testing.T) {
	cases := map[string]string{
		"e2e4":   "Move from E2 to E4",
		"g1f3":   "Move from G1 to F3",
		"e1g1":   "Castle kingside (O-O)",
		"e8g8":   "Castle kingside (O-O)",
		"e1c1":   "Castle queenside (O-O-O)",
		"e8c8":   "Castle queenside (O-O-O)",
		"e7e8q":  "Move from E7 to E8 and promote to Queen",
		"a2a1n":  "Move from A2 to A1 and promote to Knight",
		"(none)": "No legal moves available",
		"none":   "No legal moves available",
		"":       "No legal moves available",
	}
	for move, want := range cases {
		assert.Equal(t, want, HumanizeMove(move), "move=%q", move)
	}
}
