package board

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/chess-assistant-bot/internal/chess/openingbook"
	"github.com/park285/chess-assistant-bot/internal/domain"
	"github.com/park285/chess-assistant-bot/internal/msgcat"
)

// LegalMoveCap bounds the legal-move sample in results.
const LegalMoveCap = 10

var errNoHistory = errors.New("no moves to undo")

// MoveSpec is either a notation token or a from/to pair. Notation wins when
// both resolve.
type MoveSpec struct {
	Notation  string
	From      string
	To        string
	Promotion string
}

type Opening struct {
	Code  string
	Title string
}

type Result struct {
	Success      bool
	Message      string
	Reason       string
	FEN          string
	Turn         string
	GameOver     bool
	InCheck      bool
	Outcome      string
	Method       string
	LegalMoves   []string
	LastMove     string
	History      []string
	Opening      *Opening
	Destinations []string
}

// Engine applies board operations to a State. Failures are results, not errors.
type Engine struct {
	msgs *msgcat.Catalog
}

func NewEngine(msgs *msgcat.Catalog) *Engine {
	return &Engine{msgs: msgcat.Or(msgs)}
}

func (e *Engine) Initialize(st *State) Result {
	st.reset()
	return e.result(st, true, e.msgs.Text("board.initialized", nil))
}

func (e *Engine) Reset(st *State) Result {
	st.reset()
	return e.result(st, true, e.msgs.Text("board.reset", nil))
}

func (e *Engine) State(st *State) Result {
	res := e.result(st, true, e.msgs.Text("board.state", nil))
	res.LegalMoves = legalSAN(st.game, LegalMoveCap)
	return res
}

func (e *Engine) MakeMove(st *State, spec MoveSpec) Result {
	if st.GameOver() {
		return e.rejectMove(st, e.msgs.Text("board.reason.game_over", nil))
	}

	var reason string
	if notation := strings.TrimSpace(spec.Notation); notation != "" {
		mv, err := decodeNotation(st.game.Position(), notation)
		if err == nil {
			var san string
			if san, err = st.apply(mv); err == nil {
				return e.moved(st, san)
			}
		}
		reason = err.Error()
	}

	if from, to := strings.TrimSpace(spec.From), strings.TrimSpace(spec.To); from != "" && to != "" {
		mv, why := e.decodeCoordinates(st, from, to, spec.Promotion)
		if mv != nil {
			san, err := st.apply(mv)
			if err == nil {
				return e.moved(st, san)
			}
			why = err.Error()
		}
		return e.reject(st, e.msgs.Text("board.invalid_coordinates", map[string]any{
			"From": from, "To": to, "Reason": why,
		}), why)
	}

	if reason == "" {
		reason = e.msgs.Text("board.reason.empty", nil)
	}
	return e.rejectMove(st, reason)
}

func (e *Engine) moved(st *State, san string) Result {
	res := e.result(st, true, e.msgs.Text("board.move_made", map[string]any{"SAN": san}))
	res.LastMove = san
	return res
}

var coordinateToken = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)

// decodeNotation reads coordinate tokens as UCI and everything else as SAN.
// SAN decoding would read only the destination of "g1f3".
func decodeNotation(pos *chesslib.Position, notation string) (*chesslib.Move, error) {
	if lower := strings.ToLower(notation); coordinateToken.MatchString(lower) {
		if !isLegal(pos, lower) {
			return nil, fmt.Errorf("illegal move %s", lower)
		}
		uci := chesslib.UCINotation{}
		return uci.Decode(pos, lower)
	}
	san := chesslib.AlgebraicNotation{}
	return san.Decode(pos, notation)
}

func (e *Engine) decodeCoordinates(st *State, rawFrom, rawTo, rawPromo string) (*chesslib.Move, string) {
	from, okFrom := domain.ParseSquare(rawFrom)
	to, okTo := domain.ParseSquare(rawTo)
	if !okFrom || !okTo {
		return nil, "squares must be within a1-h8"
	}
	promo := promotionLetter(rawPromo)
	if promo == "" && promotes(st.game.Position(), from, to) {
		return nil, e.msgs.Text("board.reason.promotion_required", nil)
	}
	mv, err := chesslib.UCINotation{}.Decode(st.game.Position(), from+to+promo)
	if err != nil {
		return nil, err.Error()
	}
	if !isLegal(st.game.Position(), from+to+promo) {
		return nil, "illegal move"
	}
	return mv, ""
}

func (e *Engine) Undo(st *State) Result {
	san, err := st.undo()
	if err != nil {
		reason := err.Error()
		if errors.Is(err, errNoHistory) {
			reason = e.msgs.Text("board.reason.no_history", nil)
		}
		return e.reject(st, reason, reason)
	}
	return e.result(st, true, e.msgs.Text("board.undone", map[string]any{"SAN": san}))
}

func (e *Engine) LoadFEN(st *State, fen string) Result {
	if err := st.load(fen); err != nil {
		return e.reject(st, e.msgs.Text("board.invalid_fen", map[string]any{"Reason": err.Error()}), err.Error())
	}
	res := e.result(st, true, e.msgs.Text("board.fen_loaded", nil))
	res.LegalMoves = legalSAN(st.game, LegalMoveCap)
	return res
}

// Destinations lists the squares the side to move can reach with piece.
func (e *Engine) Destinations(st *State, piece domain.PieceKind) Result {
	want, ok := pieceTypes[piece]
	if !ok {
		return e.reject(st, e.msgs.Text("flow.invalid_piece", nil), "unknown piece")
	}
	pos := st.game.Position()
	board := pos.Board()
	seen := make(map[string]struct{})
	moves := pos.ValidMoves()
	for i := range moves {
		if board.Piece(moves[i].S1()).Type() != want {
			continue
		}
		seen[moves[i].S2().String()] = struct{}{}
	}
	dests := make([]string, 0, len(seen))
	for sq := range seen {
		dests = append(dests, sq)
	}
	sort.Strings(dests)

	res := e.result(st, true, e.msgs.Text("board.destinations", map[string]any{"Count": len(dests), "Piece": string(piece)}))
	res.Destinations = dests
	return res
}

// ApplyPieceMove plays the only legal move of piece onto square. Pawns
// reaching the last rank promote to a queen.
func (e *Engine) ApplyPieceMove(st *State, piece domain.PieceKind, square string) Result {
	if st.GameOver() {
		return e.rejectMove(st, e.msgs.Text("board.reason.game_over", nil))
	}
	want, ok := pieceTypes[piece]
	to, okSq := domain.ParseSquare(square)
	if !ok || !okSq {
		return e.rejectMove(st, "unknown piece or square")
	}

	pos := st.game.Position()
	board := pos.Board()
	var candidates []string
	var fromSquares []string
	moves := pos.ValidMoves()
	for i := range moves {
		if moves[i].S2().String() != to || board.Piece(moves[i].S1()).Type() != want {
			continue
		}
		if p := moves[i].Promo(); p != chesslib.NoPieceType && p != chesslib.Queen {
			continue
		}
		candidates = append(candidates, moves[i].String())
		fromSquares = append(fromSquares, moves[i].S1().String())
	}

	data := map[string]any{"Piece": string(piece), "Square": to, "From": strings.Join(fromSquares, ", ")}
	switch len(candidates) {
	case 0:
		return e.rejectMove(st, e.msgs.Text("board.reason.no_piece_move", data))
	case 1:
	default:
		return e.rejectMove(st, e.msgs.Text("board.reason.ambiguous", data))
	}
	uci := chesslib.UCINotation{}
	mv, err := uci.Decode(pos, candidates[0])
	if err != nil {
		return e.rejectMove(st, err.Error())
	}
	san, err := st.apply(mv)
	if err != nil {
		return e.rejectMove(st, err.Error())
	}
	return e.moved(st, san)
}

func (e *Engine) rejectMove(st *State, reason string) Result {
	return e.reject(st, e.msgs.Text("board.invalid_move", map[string]any{"Reason": reason}), reason)
}

func (e *Engine) reject(st *State, message, reason string) Result {
	res := e.result(st, false, message)
	res.Reason = reason
	return res
}

func (e *Engine) result(st *State, ok bool, message string) Result {
	g := st.game
	res := Result{
		Success:  ok,
		Message:  message,
		FEN:      g.FEN(),
		Turn:     st.Turn(),
		GameOver: st.GameOver(),
		InCheck:  st.InCheck(),
		Outcome:  string(g.Outcome()),
		History:  st.History(),
	}
	if m := g.Method(); m != chesslib.NoMethod {
		res.Method = strings.ToLower(m.String())
	}
	if st.startFEN == "" {
		if op, ok := openingbook.Find(g.Moves()); ok {
			res.Opening = &Opening{Code: op.Code, Title: op.Title}
		}
	}
	return res
}

var pieceTypes = map[domain.PieceKind]chesslib.PieceType{
	domain.King:   chesslib.King,
	domain.Queen:  chesslib.Queen,
	domain.Rook:   chesslib.Rook,
	domain.Bishop: chesslib.Bishop,
	domain.Knight: chesslib.Knight,
	domain.Pawn:   chesslib.Pawn,
}

func promotionLetter(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "q", "queen":
		return "q"
	case "r", "rook":
		return "r"
	case "b", "bishop":
		return "b"
	case "n", "knight":
		return "n"
	default:
		return ""
	}
}

// promotes reports whether a legal from/to move exists only as a promotion.
func promotes(pos *chesslib.Position, from, to string) bool {
	moves := pos.ValidMoves()
	for i := range moves {
		if moves[i].S1().String() == from && moves[i].S2().String() == to && moves[i].Promo() != chesslib.NoPieceType {
			return true
		}
	}
	return false
}

func isLegal(pos *chesslib.Position, uci string) bool {
	moves := pos.ValidMoves()
	for i := range moves {
		if moves[i].String() == uci {
			return true
		}
	}
	return false
}

// legalSAN returns up to limit legal moves in SAN, in generator order.
func legalSAN(g *chesslib.Game, limit int) []string {
	pos := g.Position()
	moves := pos.ValidMoves()
	out := make([]string, 0, min(limit, len(moves)))
	notation := chesslib.UCINotation{}
	for i := range moves {
		if len(out) >= limit {
			break
		}
		mv, err := notation.Decode(pos, moves[i].String())
		if err != nil {
			continue
		}
		out = append(out, chesslib.AlgebraicNotation{}.Encode(pos, mv))
	}
	return out
}
