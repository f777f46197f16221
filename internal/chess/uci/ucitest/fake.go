// Package ucitest provides in-memory UCI engines for tests.
package ucitest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/park285/chess-assistant-bot/internal/chess/uci"
)

// Responder handles one command line. reply writes output lines back to the session.
type Responder func(cmd string, reply func(lines ...string))

// Scripted answers the handshake and replies to every go command with search.
func Scripted(search ...string) Responder {
	return func(cmd string, reply func(lines ...string)) {
		switch {
		case cmd == "uci":
			reply("id name Fakefish", "id author test", "uciok")
		case cmd == "isready":
			reply("readyok")
		case strings.HasPrefix(cmd, "go"):
			reply(search...)
		}
	}
}

// Stalled completes the handshake and never answers a search.
func Stalled(progress ...string) Responder {
	return func(cmd string, reply func(lines ...string)) {
		switch {
		case cmd == "uci":
			reply("uciok")
		case cmd == "isready":
			reply("readyok")
		case strings.HasPrefix(cmd, "go"):
			reply(progress...)
		}
	}
}

// Silent never writes anything.
func Silent() Responder {
	return func(string, func(...string)) {}
}

// Launcher starts fake engines driven by Respond.
type Launcher struct {
	Respond     Responder
	Unavailable bool
	// ExitAfterGo closes the engine output right after answering go.
	ExitAfterGo bool

	mu       sync.Mutex
	launches int
	live     int
	commands []string
}

func New(r Responder) *Launcher { return &Launcher{Respond: r} }

func (l *Launcher) Name() string { return "fake" }

func (l *Launcher) Available() error {
	if l.Unavailable {
		return fmt.Errorf("%w: fake marked unavailable", uci.ErrEngineUnavailable)
	}
	return nil
}

func (l *Launcher) Launch(ctx context.Context) (uci.Process, error) {
	if err := l.Available(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	p := &process{
		launcher: l,
		inR:      inR,
		inW:      inW,
		outR:     outR,
		outW:     outW,
		done:     make(chan struct{}),
	}
	l.mu.Lock()
	l.launches++
	l.live++
	l.mu.Unlock()
	go p.run()
	return p, nil
}

// Launches counts every started engine.
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

// Live counts engines that have not been reaped yet.
func (l *Launcher) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.live
}

// Commands returns every command received, across all engines.
func (l *Launcher) Commands() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.commands...)
}

func (l *Launcher) record(cmd string) {
	l.mu.Lock()
	l.commands = append(l.commands, cmd)
	l.mu.Unlock()
}

type process struct {
	launcher *Launcher
	inR      *io.PipeReader
	inW      *io.PipeWriter
	outR     *io.PipeReader
	outW     *io.PipeWriter

	done     chan struct{}
	killOnce sync.Once
	waitOnce sync.Once
}

func (p *process) Stdin() io.WriteCloser { return p.inW }
func (p *process) Stdout() io.Reader     { return p.outR }

func (p *process) Kill() error {
	p.killOnce.Do(func() {
		_ = p.inR.CloseWithError(io.ErrClosedPipe)
		_ = p.outW.Close()
	})
	return nil
}

func (p *process) Wait() error {
	<-p.done
	p.waitOnce.Do(func() {
		p.launcher.mu.Lock()
		p.launcher.live--
		p.launcher.mu.Unlock()
	})
	return nil
}

func (p *process) run() {
	defer close(p.done)
	defer func() {
		_ = p.outW.Close()
		// keep accepting input like a real pipe buffer until Kill
		go func() { _, _ = io.Copy(io.Discard, p.inR) }()
	}()

	reply := func(lines ...string) {
		for _, line := range lines {
			if _, err := io.WriteString(p.outW, line+"\n"); err != nil {
				return
			}
		}
	}
	scanner := bufio.NewScanner(p.inR)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		p.launcher.record(cmd)
		if cmd == "quit" {
			return
		}
		if p.launcher.Respond != nil {
			p.launcher.Respond(cmd, reply)
		}
		if p.launcher.ExitAfterGo && strings.HasPrefix(cmd, "go") {
			return
		}
	}
}
