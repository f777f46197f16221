package uci

import (
	"reflect"
	"testing"
)

func TestParseLine_Info(t *testing.T) {
	line := ParseLine("info depth 12 seldepth 18 multipv 1 score cp -35 nodes 10234 nps 900000 time 11 pv e7e5 g1f3 b8c6")
	if line.Kind != LineInfo {
		t.Fatalf("expected info line, got %v", line.Kind)
	}
	info := line.Info
	if !info.HasDepth || info.Depth != 12 || info.SelDepth != 18 || info.MultiPV != 1 {
		t.Fatalf("unexpected depth fields: %+v", info)
	}
	if info.Score.Kind != ScoreCP || info.Score.Value != -35 {
		t.Fatalf("unexpected score: %+v", info.Score)
	}
	if !reflect.DeepEqual(info.PV, []string{"e7e5", "g1f3", "b8c6"}) {
		t.Fatalf("unexpected pv: %v", info.PV)
	}
}

func TestParseLine_MateAndBound(t *testing.T) {
	line := ParseLine("info depth 20 score mate -3 upperbound pv h7h8q")
	if line.Info.Score.Kind != ScoreMate || line.Info.Score.Value != -3 || line.Info.Score.Bound != "upperbound" {
		t.Fatalf("unexpected score: %+v", line.Info.Score)
	}
	if len(line.Info.PV) != 1 {
		t.Fatalf("pv lost after bound token: %v", line.Info.PV)
	}
}

func TestParseLine_InfoString(t *testing.T) {
	line := ParseLine("info string NNUE evaluation using nn-1111.nnue depth pv")
	if line.Kind != LineOther {
		t.Fatalf("info string should not parse as progress: %+v", line)
	}
}

func TestParseLine_InfoWithoutPV(t *testing.T) {
	line := ParseLine("info depth 3 currmove e2e4 currmovenumber 1")
	if line.Kind != LineInfo {
		t.Fatalf("expected info line")
	}
	if line.Info.Qualifies(1) {
		t.Fatalf("line without pv must not qualify")
	}
}

func TestParseLine_BestMove(t *testing.T) {
	cases := []struct {
		raw    string
		kind   LineKind
		move   string
		ponder string
	}{
		{"bestmove e2e4 ponder e7e5", LineBestMove, "e2e4", "e7e5"},
		{"bestmove e7e8q", LineBestMove, "e7e8q", ""},
		{"bestmove (none)", LineBestMove, "(none)", ""},
		{"bestmove", LineOther, "", ""},
		{"readyok", LineOther, "", ""},
		{"", LineOther, "", ""},
		{"id name Stockfish 17", LineOther, "", ""},
	}
	for _, tc := range cases {
		got := ParseLine(tc.raw)
		if got.Kind != tc.kind || got.BestMove.Move != tc.move || got.BestMove.Ponder != tc.ponder {
			t.Fatalf("ParseLine(%q) = %+v", tc.raw, got)
		}
	}
}

func TestInfoQualifies(t *testing.T) {
	shallow := ParseLine("info depth 4 score cp 20 pv e2e4").Info
	deep := ParseLine("info depth 5 score cp 20 pv e2e4").Info
	if shallow.Qualifies(MinUsefulDepth(10)) {
		t.Fatalf("depth 4 must not qualify for a depth 10 search")
	}
	if !deep.Qualifies(MinUsefulDepth(10)) {
		t.Fatalf("depth 5 must qualify for a depth 10 search")
	}
	if !shallow.Qualifies(MinUsefulDepth(3)) {
		t.Fatalf("depth 4 must qualify for a depth 3 search")
	}
}

func TestLineSplitter(t *testing.T) {
	var s LineSplitter
	if got := s.Feed([]byte("info dep")); len(got) != 0 {
		t.Fatalf("partial chunk produced lines: %v", got)
	}
	got := s.Feed([]byte("th 1\r\nbestmove e2e4\nread"))
	want := []string{"info depth 1", "bestmove e2e4"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Feed = %v, want %v", got, want)
	}
	rest, ok := s.Flush()
	if !ok || rest != "read" {
		t.Fatalf("Flush = %q %v", rest, ok)
	}
	if _, ok := s.Flush(); ok {
		t.Fatalf("second flush should be empty")
	}
}

func TestBuildCommands(t *testing.T) {
	if got := buildPositionCommand(""); got != "position startpos\n" {
		t.Fatalf("unexpected: %q", got)
	}
	fen := "8/8/8/8/8/8/8/K6k w - - 0 1"
	if got := buildPositionCommand(fen); got != "position fen "+fen+"\n" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := buildGoCommand(7); got != "go depth 7\n" {
		t.Fatalf("unexpected: %q", got)
	}
}
