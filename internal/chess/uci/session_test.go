package uci_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/park285/chess-assistant-bot/internal/chess/uci"
	"github.com/park285/chess-assistant-bot/internal/chess/uci/ucitest"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestSessionSearch_CollectsQualifyingInfo(t *testing.T) {
	fake := ucitest.New(ucitest.Scripted(
		"info depth 1 score cp 90 pv d2d4",
		"info depth 4 score cp 80 pv d2d4 d7d5",
		"info depth 5 score cp 31 pv e2e4 e7e5 g1f3 b8c6 f1b5 a7a6 b5a4",
		"info depth 6 multipv 2 score cp -10 pv a2a3",
		"info depth 6 pv e2e4 c7c5",
		"info string done",
		"bestmove e2e4 ponder c7c5",
	))
	ctx := context.Background()
	s, err := uci.Start(ctx, fake, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Close()

	res, err := s.Search(ctx, uci.SearchRequest{FEN: startFEN, Depth: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.BestMove != "e2e4" || res.Ponder != "c7c5" {
		t.Fatalf("unexpected bestmove: %+v", res)
	}
	// depth 6 line has no score, so the depth 5 score survives
	if res.Score.Kind != uci.ScoreCP || res.Score.Value != 31 {
		t.Fatalf("unexpected score: %+v", res.Score)
	}
	if !reflect.DeepEqual(res.PV, []string{"e2e4", "c7c5"}) || res.Depth != 6 {
		t.Fatalf("unexpected pv/depth: %v %d", res.PV, res.Depth)
	}

	want := []string{"uci", "ucinewgame", "position fen " + startFEN, "go depth 10"}
	if got := fake.Commands(); !reflect.DeepEqual(got, want) {
		t.Fatalf("commands = %q, want %q", got, want)
	}
	if !strings.Contains(s.Trace(), "bestmove e2e4") {
		t.Fatalf("trace missing bestmove: %q", s.Trace())
	}
}

func TestSessionSearch_PVTruncatedToFivePlies(t *testing.T) {
	fake := ucitest.New(ucitest.Scripted(
		"info depth 8 score mate 4 pv a1a2 a2a3 a3a4 a4a5 a5a6 a6a7 a7a8",
		"bestmove a1a2",
	))
	ctx := context.Background()
	s, err := uci.Start(ctx, fake, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Close()

	res, err := s.Search(ctx, uci.SearchRequest{FEN: startFEN, Depth: 8})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.PV) != 5 || res.PV[4] != "a5a6" {
		t.Fatalf("unexpected pv: %v", res.PV)
	}
	if res.Score.Kind != uci.ScoreMate || res.Score.Value != 4 {
		t.Fatalf("unexpected score: %+v", res.Score)
	}
}

func TestSessionSearch_DeadlineKeepsPartialResult(t *testing.T) {
	fake := ucitest.New(ucitest.Stalled("info depth 7 score cp -120 pv g8f6"))
	s, err := uci.Start(context.Background(), fake, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	res, err := s.Search(ctx, uci.SearchRequest{FEN: startFEN, Depth: 10})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if res.Score.Value != -120 || len(res.PV) != 1 {
		t.Fatalf("partial result lost: %+v", res)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if fake.Live() != 0 {
		t.Fatalf("engine still live after close")
	}
}

func TestSessionSearch_EngineExit(t *testing.T) {
	fake := ucitest.New(ucitest.Scripted("info depth 2 score cp 5 pv e2e4"))
	fake.ExitAfterGo = true
	ctx := context.Background()
	s, err := uci.Start(ctx, fake, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Close()

	_, err = s.Search(ctx, uci.SearchRequest{FEN: startFEN, Depth: 2})
	if !errors.Is(err, uci.ErrEngineExited) {
		t.Fatalf("expected ErrEngineExited, got %v", err)
	}
}

func TestStart_HandshakeTimeout(t *testing.T) {
	fake := ucitest.New(ucitest.Silent())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := uci.Start(ctx, fake, 0); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if fake.Live() != 0 {
		t.Fatalf("failed start left a live engine")
	}
}

func TestExecLauncher_Unavailable(t *testing.T) {
	l := uci.ExecLauncher{Path: filepath.Join(t.TempDir(), "no-such-engine")}
	if err := l.Available(); !errors.Is(err, uci.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
	if _, err := l.Launch(context.Background()); !errors.Is(err, uci.ErrEngineUnavailable) {
		t.Fatalf("launch should fail fast, got %v", err)
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "engine.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestExecLauncher_ShellEngine(t *testing.T) {
	path := writeScript(t, `while read line; do
  case "$line" in
    uci) echo "id name shfish"; echo uciok ;;
    isready) echo readyok ;;
    go*) echo "info depth 5 score cp 12 pv e2e4 e7e5"; echo "bestmove e2e4 ponder e7e5" ;;
  esac
done
`)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := uci.Start(ctx, uci.ExecLauncher{Path: path}, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Close()

	res, err := s.Search(ctx, uci.SearchRequest{FEN: startFEN, Depth: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.BestMove != "e2e4" || res.Score.Value != 12 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestExecLauncher_KilledOnTimeout(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "pid")
	path := writeScript(t, `echo $$ > `+pidFile+`
while read line; do
  case "$line" in
    uci) echo uciok ;;
  esac
done
`)
	s, err := uci.Start(context.Background(), uci.ExecLauncher{Path: path}, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	pid := s.Pid()
	if pid == 0 {
		t.Fatalf("no pid")
	}
	raw, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	if got, _ := strconv.Atoi(strings.TrimSpace(string(raw))); got != pid {
		t.Fatalf("pid mismatch: file=%d session=%d", got, pid)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := s.Search(ctx, uci.SearchRequest{FEN: startFEN, Depth: 3}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := syscall.Kill(pid, 0); !errors.Is(err, syscall.ESRCH) {
		t.Fatalf("engine process %d still present: %v", pid, err)
	}
}
