package domain

import (
	"regexp"
	"strings"
)

// Color is the side to move as entered by a user.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// ParseColor accepts "white"/"black" in any case and the one-letter forms.
func ParseColor(raw string) (Color, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	default:
		return "", false
	}
}

// Title returns "White" or "Black".
func (c Color) Title() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	default:
		return ""
	}
}

// PieceKind names a chess piece independent of color.
type PieceKind string

const (
	King   PieceKind = "king"
	Queen  PieceKind = "queen"
	Rook   PieceKind = "rook"
	Bishop PieceKind = "bishop"
	Knight PieceKind = "knight"
	Pawn   PieceKind = "pawn"
)

// PieceKinds lists every kind in the order pickers show them.
var PieceKinds = []PieceKind{King, Queen, Rook, Bishop, Knight, Pawn}

var pieceSymbols = map[PieceKind]string{
	King:   "♔",
	Queen:  "♕",
	Rook:   "♖",
	Bishop: "♗",
	Knight: "♘",
	Pawn:   "♙",
}

func ParsePieceKind(raw string) (PieceKind, bool) {
	p := PieceKind(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := pieceSymbols[p]; !ok {
		return "", false
	}
	return p, true
}

func (p PieceKind) Symbol() string { return pieceSymbols[p] }

func (p PieceKind) Title() string {
	if p == "" {
		return ""
	}
	s := string(p)
	return strings.ToUpper(s[:1]) + s[1:]
}

// PromotionName maps a UCI promotion letter to the piece it promotes to.
func PromotionName(letter string) string {
	switch strings.ToLower(letter) {
	case "q":
		return "Queen"
	case "r":
		return "Rook"
	case "b":
		return "Bishop"
	case "n":
		return "Knight"
	default:
		return letter
	}
}

var squarePattern = regexp.MustCompile(`^[a-h][1-8]$`)

// ParseSquare normalizes a square like "F3" to "f3".
func ParseSquare(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if !squarePattern.MatchString(s) {
		return "", false
	}
	return s, true
}
