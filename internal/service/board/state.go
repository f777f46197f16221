package board

import (
	"fmt"
	"strings"

	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/chess-assistant-bot/internal/domain"
)

// State is one user's position and move history. It is not safe for
// concurrent use; callers serialize access per user.
type State struct {
	game     *chesslib.Game
	san      []string
	uci      []string
	startFEN string // empty for the standard starting position
}

func NewState() *State {
	return &State{game: chesslib.NewGame()}
}

func (s *State) FEN() string { return s.game.FEN() }

// Turn returns "white" or "black".
func (s *State) Turn() string {
	if s.game.Position().Turn() == chesslib.Black {
		return string(domain.Black)
	}
	return string(domain.White)
}

func (s *State) History() []string { return append([]string(nil), s.san...) }

func (s *State) GameOver() bool { return s.game.Outcome() != chesslib.NoOutcome }

// InCheck derives the check flag from the position.
func (s *State) InCheck() bool {
	moves := s.game.Moves()
	if len(moves) > 0 {
		return moves[len(moves)-1].HasTag(chesslib.Check)
	}
	return rootInCheck(s.game.FEN())
}

func (s *State) reset() {
	s.game = chesslib.NewGame()
	s.san = nil
	s.uci = nil
	s.startFEN = ""
}

func (s *State) load(fen string) error {
	game, err := gameFrom(fen)
	if err != nil {
		return err
	}
	s.game = game
	s.san = nil
	s.uci = nil
	s.startFEN = game.FEN()
	return nil
}

func (s *State) apply(mv *chesslib.Move) (string, error) {
	pos := s.game.Position()
	san := chesslib.AlgebraicNotation{}.Encode(pos, mv)
	uci := strings.ToLower(chesslib.UCINotation{}.Encode(pos, mv))
	if err := s.game.Move(mv, nil); err != nil {
		return "", err
	}
	s.san = append(s.san, san)
	s.uci = append(s.uci, uci)
	return san, nil
}

// undo rebuilds the game without its last move.
func (s *State) undo() (string, error) {
	if len(s.uci) == 0 {
		return "", errNoHistory
	}
	game, err := gameFrom(s.startFEN)
	if err != nil {
		return "", err
	}
	keep := s.uci[:len(s.uci)-1]
	notation := chesslib.UCINotation{}
	for _, text := range keep {
		mv, err := notation.Decode(game.Position(), text)
		if err != nil {
			return "", fmt.Errorf("replay %s: %w", text, err)
		}
		if err := game.Move(mv, nil); err != nil {
			return "", fmt.Errorf("replay %s: %w", text, err)
		}
	}
	last := s.san[len(s.san)-1]
	s.game = game
	s.uci = append([]string(nil), keep...)
	s.san = append([]string(nil), s.san[:len(s.san)-1]...)
	return last, nil
}

func gameFrom(fen string) (*chesslib.Game, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return chesslib.NewGame(), nil
	}
	opt, err := chesslib.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	return chesslib.NewGame(opt), nil
}

// rootInCheck reports whether the side to move is attacked in a position
// reached without moves, by asking whether the other side could take the king.
func rootInCheck(fen string) bool {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return false
	}
	if fields[1] == "w" {
		fields[1] = "b"
	} else {
		fields[1] = "w"
	}
	fields[3] = "-"
	game, err := gameFrom(strings.Join(fields, " "))
	if err != nil {
		return false
	}
	pos := game.Position()
	board := pos.Board()
	moves := pos.ValidMoves()
	for i := range moves {
		if board.Piece(moves[i].S2()).Type() == chesslib.King {
			return true
		}
	}
	return false
}
