package openingbook

import (
	"strings"
	"sync"

	chesslib "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

type Opening struct {
	Code  string
	Title string
}

func book() *opening.BookECO {
	ecoOnce.Do(func() {
		ecoBook = opening.NewBookECO()
	})
	return ecoBook
}

// Find names the deepest ECO opening matching the moves played from the
// standard starting position.
func Find(moves []*chesslib.Move) (Opening, bool) {
	if len(moves) == 0 {
		return Opening{}, false
	}
	b := book()
	if b == nil {
		return Opening{}, false
	}
	eco := b.Find(moves)
	if eco == nil {
		return Opening{}, false
	}
	return Opening{Code: eco.Code(), Title: eco.Title()}, true
}

// FindUCI replays coordinate moves from the start and names the opening.
func FindUCI(moves []string) (Opening, bool) {
	game := chesslib.NewGame()
	notation := chesslib.UCINotation{}
	for _, mv := range moves {
		move, err := notation.Decode(game.Position(), strings.ToLower(strings.TrimSpace(mv)))
		if err != nil {
			return Opening{}, false
		}
		if err := game.Move(move, nil); err != nil {
			return Opening{}, false
		}
	}
	return Find(game.Moves())
}
