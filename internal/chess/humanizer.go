package chess

import (
	"fmt"
	"strings"

	"github.com/park285/chess-assistant-bot/internal/chess/uci"
	"github.com/park285/chess-assistant-bot/internal/domain"
)

type EvalKind string

const (
	EvalNone       EvalKind = "none"
	EvalCentipawns EvalKind = "cp"
	EvalMate       EvalKind = "mate"
)

// Evaluation is a score from the side to move's point of view. Mate keeps
// its sign: positive means the side to move delivers mate.
type Evaluation struct {
	Kind       EvalKind
	Centipawns int
	Mate       int
}

func EvaluationFromScore(s uci.Score) Evaluation {
	switch s.Kind {
	case uci.ScoreCP:
		return Evaluation{Kind: EvalCentipawns, Centipawns: s.Value}
	case uci.ScoreMate:
		return Evaluation{Kind: EvalMate, Mate: s.Value}
	default:
		return Evaluation{Kind: EvalNone}
	}
}

// String renders the evaluation, or "" when there is none.
func (e Evaluation) String() string {
	switch e.Kind {
	case EvalCentipawns:
		return FormatCentipawns(e.Centipawns)
	case EvalMate:
		return FormatMate(e.Mate)
	default:
		return ""
	}
}

// Perspective names the mating side for mate scores.
func (e Evaluation) Perspective() string {
	if e.Kind != EvalMate {
		return ""
	}
	if e.Mate > 0 {
		return "side to move mates"
	}
	return "side to move is mated"
}

// FormatCentipawns renders cp as pawns with one decimal, rounding half away
// from zero. Only positive values carry a sign.
func FormatCentipawns(cp int) string {
	tenths := cp / 10
	switch rem := cp % 10; {
	case rem >= 5:
		tenths++
	case rem <= -5:
		tenths--
	}
	sign := ""
	if tenths > 0 {
		sign = "+"
	} else if tenths < 0 {
		sign = "-"
		tenths = -tenths
	}
	return fmt.Sprintf("%s%d.%d pawns", sign, tenths/10, tenths%10)
}

func FormatMate(n int) string {
	if n < 0 {
		n = -n
	}
	return fmt.Sprintf("Mate in %d moves", n)
}

const noLegalMoves = "No legal moves available"

// HumanizeMove describes a coordinate move like e2e4 or e7e8q.
func HumanizeMove(move string) string {
	move = strings.TrimSpace(move)
	if move == "" || move == "(none)" || move == "none" {
		return noLegalMoves
	}
	if len(move) < 4 {
		return "Move: " + move
	}
	switch move {
	case "e1g1", "e8g8":
		return "Castle kingside (O-O)"
	case "e1c1", "e8c8":
		return "Castle queenside (O-O-O)"
	}
	from, to := move[:2], move[2:4]
	text := fmt.Sprintf("Move from %s to %s", strings.ToUpper(from), strings.ToUpper(to))
	if len(move) > 4 {
		text += " and promote to " + domain.PromotionName(move[4:])
	}
	return text
}
