package uci

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	defaultReadyTimeout = 4 * time.Second
	lineBuffer          = 64
	readChunk           = 4096
	maxPVPlies          = 5
)

// ErrEngineExited means the engine closed its output before answering.
var ErrEngineExited = errors.New("engine exited")

type SearchRequest struct {
	FEN   string
	Depth int
}

// SearchResult carries whatever the engine reported. On a failed search it
// still holds the evaluation captured so far.
type SearchResult struct {
	BestMove string
	Ponder   string
	Score    Score
	PV       []string
	Depth    int
}

// Session is one engine process. Searches on a session are serialized.
type Session struct {
	proc  Process
	stdin io.WriteCloser
	trace *Trace

	lines   chan string
	done    chan struct{}
	readErr error

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error

	mu     sync.Mutex
	search sync.Mutex
}

// Launch starts the engine and its output reader. No commands are sent yet.
func Launch(ctx context.Context, l Launcher, traceLimit int) (*Session, error) {
	proc, err := l.Launch(ctx)
	if err != nil {
		return nil, err
	}
	s := &Session{
		proc:   proc,
		stdin:  proc.Stdin(),
		trace:  NewTrace(traceLimit),
		lines:  make(chan string, lineBuffer),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go s.readLoop(proc.Stdout())
	return s, nil
}

// Start launches the engine and completes the uci handshake.
func Start(ctx context.Context, l Launcher, traceLimit int) (*Session, error) {
	s, err := Launch(ctx, l, traceLimit)
	if err != nil {
		return nil, err
	}
	if err := s.Handshake(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) Handshake(ctx context.Context) error {
	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(ctx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}
	return nil
}

func (s *Session) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

// Search runs ucinewgame, position and go depth, then follows the output until
// bestmove or until ctx ends. The returned result is partial when err != nil.
func (s *Session) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	s.search.Lock()
	defer s.search.Unlock()

	var res SearchResult
	if req.Depth <= 0 {
		return res, fmt.Errorf("depth must be > 0: %d", req.Depth)
	}
	for _, cmd := range []string{"ucinewgame\n", buildPositionCommand(req.FEN), buildGoCommand(req.Depth)} {
		if err := s.send(cmd); err != nil {
			return res, fmt.Errorf("send %q: %w", cmd[:len(cmd)-1], err)
		}
	}

	minDepth := MinUsefulDepth(req.Depth)
	for {
		raw, err := s.nextLine(ctx)
		if err != nil {
			return res, err
		}
		line := ParseLine(raw)
		switch line.Kind {
		case LineInfo:
			info := line.Info
			if info.MultiPV != 1 || !info.Qualifies(minDepth) {
				continue
			}
			if info.Score.Kind != ScoreNone {
				res.Score = info.Score
			}
			n := min(len(info.PV), maxPVPlies)
			res.PV = append(res.PV[:0], info.PV[:n]...)
			res.Depth = info.Depth
		case LineBestMove:
			res.BestMove = line.BestMove.Move
			res.Ponder = line.BestMove.Ponder
			return res, nil
		}
	}
}

// Trace returns the bounded tail of the engine output.
func (s *Session) Trace() string { return s.trace.String() }

func (s *Session) ResetTrace() { s.trace.Reset() }

// Pid returns the OS process id when the process has one.
func (s *Session) Pid() int {
	if p, ok := s.proc.(interface{ Pid() int }); ok {
		return p.Pid()
	}
	return 0
}

// Close kills the process and reaps it. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		_ = s.stdin.Close()
		killErr := s.proc.Kill()
		waitErr := s.proc.Wait()
		select {
		case <-s.done:
		case <-time.After(execWaitDelay):
		}
		s.closeErr = errors.Join(killErr, waitErr)
	})
	return s.closeErr
}

func (s *Session) send(msg string) error {
	select {
	case <-s.closed:
		return ErrEngineExited
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.nextLine(ctx)
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == token {
			return nil
		}
	}
}

func (s *Session) nextLine(ctx context.Context) (string, error) {
	select {
	case line := <-s.lines:
		return line, nil
	default:
	}
	select {
	case line := <-s.lines:
		return line, nil
	case <-s.done:
		select {
		case line := <-s.lines:
			return line, nil
		default:
		}
		if s.readErr != nil {
			return "", fmt.Errorf("%w: %v", ErrEngineExited, s.readErr)
		}
		return "", ErrEngineExited
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Session) readLoop(r io.Reader) {
	defer close(s.done)
	var splitter LineSplitter
	buf := make([]byte, readChunk)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			_, _ = s.trace.Write(buf[:n])
			for _, line := range splitter.Feed(buf[:n]) {
				if !s.deliver(line) {
					return
				}
			}
		}
		if err != nil {
			if rest, ok := splitter.Flush(); ok {
				s.deliver(rest)
			}
			if !errors.Is(err, io.EOF) {
				s.readErr = err
			}
			return
		}
	}
}

func (s *Session) deliver(line string) bool {
	if line == "" {
		return true
	}
	select {
	case s.lines <- line:
		return true
	case <-s.closed:
		return false
	}
}
