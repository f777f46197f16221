package uci

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

type PoolConfig struct {
	Launcher   Launcher
	Capacity   int
	TraceLimit int
	Logger     *zap.Logger
}

// Pool keeps up to Capacity live engine sessions. A checked-out session is
// used by exactly one search at a time.
type Pool struct {
	launcher   Launcher
	capacity   int
	traceLimit int
	logger     *zap.Logger

	mu       sync.Mutex
	total    int
	closed   bool
	idle     chan *Session
	sessions map[*Session]struct{}
}

var (
	errPoolAtCapacity = errors.New("engine pool at capacity")
	ErrPoolClosed     = errors.New("engine pool closed")
)

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.Launcher == nil {
		return nil, fmt.Errorf("launcher required")
	}
	if err := cfg.Launcher.Available(); err != nil {
		return nil, err
	}

	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pool{
		launcher:   cfg.Launcher,
		capacity:   capacity,
		traceLimit: cfg.TraceLimit,
		logger:     logger,
		idle:       make(chan *Session, capacity),
		sessions:   make(map[*Session]struct{}),
	}, nil
}

func (p *Pool) Capacity() int { return p.capacity }

// Acquire returns an idle session or starts a new one, waiting for a
// release when the pool is full.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	for {
		select {
		case session := <-p.idle:
			if s, ok := p.reuse(ctx, session); ok {
				return s, nil
			}
			continue
		default:
		}

		session, err := p.create(ctx)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, errPoolAtCapacity) {
			return nil, err
		}

		select {
		case session := <-p.idle:
			if s, ok := p.reuse(ctx, session); ok {
				return s, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release returns a session. A non-nil err means the session's state is
// unknown and it is closed instead.
func (p *Pool) Release(session *Session, err error) {
	if session == nil {
		return
	}

	p.mu.Lock()
	_, ok := p.sessions[session]
	closed := p.closed
	p.mu.Unlock()
	if !ok {
		_ = session.Close()
		return
	}

	if err != nil || closed {
		p.logger.Debug("engine_session_discarded", zap.Error(err))
		p.discard(session)
		return
	}

	select {
	case p.idle <- session:
	default:
		p.discard(session)
	}
}

func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for {
		select {
		case session := <-p.idle:
			if session == nil {
				continue
			}
			if err := p.discard(session); err != nil {
				errs = append(errs, err)
			}
		default:
			return errors.Join(errs...)
		}
	}
}

// Stats reports live and idle session counts.
func (p *Pool) Stats() (total, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total, len(p.idle)
}

func (p *Pool) reuse(ctx context.Context, session *Session) (*Session, bool) {
	if session == nil {
		return nil, false
	}
	if err := session.EnsureReady(ctx); err != nil {
		p.logger.Warn("engine_session_not_ready", zap.Error(err))
		p.discard(session)
		return nil, false
	}
	session.ResetTrace()
	return session, true
}

func (p *Pool) create(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p.total >= p.capacity {
		p.mu.Unlock()
		return nil, errPoolAtCapacity
	}
	p.total++
	p.mu.Unlock()

	session, err := Start(ctx, p.launcher, p.traceLimit)
	if err != nil {
		p.decrement()
		return nil, err
	}
	p.mu.Lock()
	p.sessions[session] = struct{}{}
	p.mu.Unlock()
	p.logger.Debug("engine_session_started", zap.String("engine", p.launcher.Name()))
	return session, nil
}

func (p *Pool) discard(session *Session) error {
	p.mu.Lock()
	_, ok := p.sessions[session]
	delete(p.sessions, session)
	p.mu.Unlock()
	err := session.Close()
	if ok {
		p.decrement()
	}
	return err
}

func (p *Pool) decrement() {
	p.mu.Lock()
	if p.total > 0 {
		p.total--
	}
	p.mu.Unlock()
}

func defaultCapacity() int {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		return 2
	}
	if cpu > 4 {
		return 4
	}
	return cpu
}
