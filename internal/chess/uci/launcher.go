package uci

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

// ErrEngineUnavailable means the engine binary cannot be found or started.
var ErrEngineUnavailable = errors.New("engine unavailable")

// Process is a running engine with line-oriented pipes.
type Process interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Kill() error
	Wait() error
}

type Launcher interface {
	// Available reports ErrEngineUnavailable without starting anything.
	Available() error
	Launch(ctx context.Context) (Process, error)
	Name() string
}

const execWaitDelay = time.Second

// ExecLauncher starts the engine as a child process.
type ExecLauncher struct {
	Path string
	Args []string
}

func (l ExecLauncher) Name() string { return l.Path }

func (l ExecLauncher) Available() error {
	if l.Path == "" {
		return fmt.Errorf("%w: binary path required", ErrEngineUnavailable)
	}
	if _, err := exec.LookPath(l.Path); err != nil {
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return nil
}

// Launch starts the binary. ctx only bounds the start; the process lives until Kill.
func (l ExecLauncher) Launch(ctx context.Context) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := l.Available(); err != nil {
		return nil, err
	}

	cmd := exec.Command(l.Path, l.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.WaitDelay = execWaitDelay

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}
	return &execProcess{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.Reader     { return p.stdout }

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// Wait reaps the process. Exit statuses caused by Kill are not errors.
func (p *execProcess) Wait() error {
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) || errors.Is(err, exec.ErrWaitDelay) {
		return nil
	}
	return err
}

// Pid is the OS process id, or 0 before start.
func (p *execProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}
