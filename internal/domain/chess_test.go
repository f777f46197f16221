package domain

import "testing"

func TestParseColor(t *testing.T) {
	cases := map[string]Color{"white": White, " BLACK ": Black, "w": White, "b": Black}
	for in, want := range cases {
		got, ok := ParseColor(in)
		if !ok || got != want {
			t.Fatalf("ParseColor(%q) = %q,%v want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseColor("purple"); ok {
		t.Fatalf("expected purple to be rejected")
	}
}

func TestParsePieceKind(t *testing.T) {
	p, ok := ParsePieceKind("Knight")
	if !ok || p != Knight {
		t.Fatalf("ParsePieceKind: %q %v", p, ok)
	}
	if p.Title() != "Knight" || p.Symbol() != "♘" {
		t.Fatalf("unexpected title/symbol: %q %q", p.Title(), p.Symbol())
	}
	if _, ok := ParsePieceKind("dragon"); ok {
		t.Fatalf("expected dragon to be rejected")
	}
}

func TestParseSquare(t *testing.T) {
	if s, ok := ParseSquare("F3"); !ok || s != "f3" {
		t.Fatalf("ParseSquare(F3) = %q %v", s, ok)
	}
	for _, bad := range []string{"", "i1", "a9", "a10", "e", "3f"} {
		if _, ok := ParseSquare(bad); ok {
			t.Fatalf("ParseSquare(%q) should fail", bad)
		}
	}
}

func TestPromotionName(t *testing.T) {
	if PromotionName("q") != "Queen" || PromotionName("N") != "Knight" {
		t.Fatalf("unexpected promotion names")
	}
}
