package session

import (
	"container/list"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/park285/chess-assistant-bot/internal/obslog"
	"github.com/park285/chess-assistant-bot/internal/service/board"
	"github.com/park285/chess-assistant-bot/internal/service/flow"
)

const (
	DefaultMaxUsers = 10000
	DefaultIdleTTL  = 24 * time.Hour
)

// Session is one user's board and flow. Hold its lock through With.
type Session struct {
	UserID string

	mu    sync.Mutex
	Board *board.State
	Flow  *flow.State

	// refs counts With calls using the session; guarded by Registry.mu.
	refs int
}

func newSession(userID string) *Session {
	return &Session{UserID: userID, Board: board.NewState(), Flow: flow.NewState()}
}

type Config struct {
	// MaxUsers bounds tracked users; 0 means unbounded.
	MaxUsers int
	// IdleTTL expires sessions not touched for this long; 0 disables expiry.
	IdleTTL time.Duration
}

// Registry maps user ids to sessions. Idle sessions expire and, at
// capacity, the least recently used idle one is evicted. A session inside
// With is never evicted.
type Registry struct {
	mu     sync.Mutex
	items  *gocache.Cache
	recent *list.List // user ids, most recently used first
	index  map[string]*list.Element
	cfg    Config
	logger *zap.Logger

	expiredMu sync.Mutex
	expired   []string
}

func NewRegistry(cfg Config, logger *zap.Logger) *Registry {
	ttl := cfg.IdleTTL
	cleanup := ttl / 2
	if ttl <= 0 {
		ttl = gocache.NoExpiration
		cleanup = 0
	} else if cleanup < time.Second {
		cleanup = time.Second
	}
	r := &Registry{
		items:  gocache.New(ttl, cleanup),
		recent: list.New(),
		index:  make(map[string]*list.Element),
		cfg:    cfg,
		logger: obslog.Or(logger),
	}
	// runs from the cache janitor too, so it must not take r.mu
	r.items.OnEvicted(func(userID string, _ any) {
		r.expiredMu.Lock()
		r.expired = append(r.expired, userID)
		r.expiredMu.Unlock()
		r.logger.Info("session_evicted", zap.String("user_id", userID))
	})
	return r
}

// Get returns the user's session, creating it on first use. Concurrent
// first calls for one id receive the same session.
func (r *Registry) Get(userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(userID)
}

func (r *Registry) get(userID string) *Session {
	r.dropExpired()
	if v, ok := r.items.Get(userID); ok {
		if s, ok := v.(*Session); ok {
			r.items.SetDefault(userID, s)
			r.touch(userID)
			return s
		}
	}

	r.makeRoom()
	s := newSession(userID)
	r.items.SetDefault(userID, s)
	r.touch(userID)
	r.logger.Debug("session_created", zap.String("user_id", userID))
	return s
}

func (r *Registry) touch(userID string) {
	if e, ok := r.index[userID]; ok {
		r.recent.MoveToFront(e)
		return
	}
	r.index[userID] = r.recent.PushFront(userID)
}

func (r *Registry) forget(userID string) {
	if e, ok := r.index[userID]; ok {
		r.recent.Remove(e)
		delete(r.index, userID)
	}
}

// dropExpired removes users the cache has evicted from the recency list.
func (r *Registry) dropExpired() {
	r.expiredMu.Lock()
	keys := r.expired
	r.expired = nil
	r.expiredMu.Unlock()
	for _, userID := range keys {
		if _, live := r.items.Get(userID); !live {
			r.forget(userID)
		}
	}
}

// makeRoom evicts from the least recently used end, skipping sessions that
// are in use.
func (r *Registry) makeRoom() {
	if r.cfg.MaxUsers <= 0 {
		return
	}
	for e := r.recent.Back(); e != nil && r.items.ItemCount() >= r.cfg.MaxUsers; {
		prev := e.Prev()
		userID := e.Value.(string)
		v, live := r.items.Get(userID)
		if s, ok := v.(*Session); live && ok && s.refs > 0 {
			e = prev
			continue
		}
		r.forget(userID)
		r.items.Delete(userID)
		e = prev
	}
	if n := r.items.ItemCount(); n >= r.cfg.MaxUsers {
		r.logger.Warn("session_capacity_exceeded", zap.Int("sessions", n+1), zap.Int("max_users", r.cfg.MaxUsers))
	}
}

// With runs fn while holding the user's lock.
func (r *Registry) With(userID string, fn func(*Session)) {
	r.mu.Lock()
	s := r.get(userID)
	s.refs++
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		s.refs--
		r.mu.Unlock()
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (r *Registry) WithBoard(userID string, fn func(*board.State)) {
	r.With(userID, func(s *Session) { fn(s.Board) })
}

func (r *Registry) WithFlow(userID string, fn func(*flow.State)) {
	r.With(userID, func(s *Session) { fn(s.Flow) })
}

// Snapshot copies the user's FEN out under the lock.
func (r *Registry) Snapshot(userID string) string {
	var fen string
	r.WithBoard(userID, func(st *board.State) { fen = st.FEN() })
	return fen
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items.DeleteExpired()
	r.dropExpired()
	return r.items.ItemCount()
}

func (r *Registry) Delete(userID string) {
	r.mu.Lock()
	r.forget(userID)
	r.items.Delete(userID)
	r.mu.Unlock()
}
