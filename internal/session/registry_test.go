package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/park285/chess-assistant-bot/internal/service/board"
	"github.com/park285/chess-assistant-bot/internal/service/flow"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestGet_CreatesFreshSession(t *testing.T) {
	r := NewRegistry(Config{}, nil)
	s := r.Get("alice")
	require.Equal(t, "alice", s.UserID)
	require.Equal(t, startFEN, s.Board.FEN())
	require.Equal(t, flow.AwaitTurn, s.Flow.Awaiting)
	require.Same(t, s, r.Get("alice"))
	require.Equal(t, 1, r.Len())
}

func TestGet_ConcurrentFirstAccessSharesSession(t *testing.T) {
	r := NewRegistry(Config{}, nil)

	const workers = 32
	got := make([]*Session, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			got[i] = r.Get("bob")
		}()
	}
	close(start)
	wg.Wait()

	for _, s := range got {
		require.Same(t, got[0], s)
	}
	require.Equal(t, 1, r.Len())
}

func TestWith_SerializesPerUser(t *testing.T) {
	r := NewRegistry(Config{}, nil)

	var wg sync.WaitGroup
	counter := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.With("carol", func(*Session) { counter++ })
		}()
	}
	wg.Wait()
	require.Equal(t, 50, counter)
}

func TestWith_PanicReleasesLock(t *testing.T) {
	r := NewRegistry(Config{}, nil)

	require.Panics(t, func() {
		r.With("dave", func(*Session) { panic("boom") })
	})

	done := make(chan struct{})
	go func() {
		r.With("dave", func(*Session) {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session lock still held after panic")
	}
}

func TestUsersAreIsolated(t *testing.T) {
	r := NewRegistry(Config{}, nil)
	engine := board.NewEngine(nil)

	r.WithBoard("erin", func(st *board.State) {
		res := engine.MakeMove(st, board.MoveSpec{Notation: "e4"})
		require.True(t, res.Success)
	})

	assert.NotEqual(t, startFEN, r.Snapshot("erin"))
	assert.Equal(t, startFEN, r.Snapshot("frank"))
}

func TestCapacity_EvictsLeastRecentlyTouched(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := NewRegistry(Config{MaxUsers: 2, IdleTTL: time.Hour}, zap.New(core))

	first := r.Get("u1")
	time.Sleep(2 * time.Millisecond)
	r.Get("u2")
	time.Sleep(2 * time.Millisecond)
	// touching u1 makes u2 the oldest
	require.Same(t, first, r.Get("u1"))
	time.Sleep(2 * time.Millisecond)
	r.Get("u3")

	require.Equal(t, 2, r.Len())
	require.Same(t, first, r.Get("u1"))

	evicted := logs.FilterMessage("session_evicted").All()
	require.Len(t, evicted, 1)
	require.Equal(t, "u2", evicted[0].ContextMap()["user_id"])
}

func TestCapacity_SkipsSessionsInUse(t *testing.T) {
	r := NewRegistry(Config{MaxUsers: 1, IdleTTL: time.Hour}, nil)

	entered := make(chan *Session)
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		r.With("busy", func(s *Session) {
			entered <- s
			<-release
		})
		close(done)
	}()
	busy := <-entered

	// at capacity, but the only candidate is locked by With
	r.Get("other")
	require.Same(t, busy, r.Get("busy"))
	require.Equal(t, 2, r.Len())

	close(release)
	<-done

	r.Get("third")
	require.Equal(t, 1, r.Len())
	require.NotSame(t, busy, r.Get("busy"))
}

func TestIdleTTL_ExpiresSessions(t *testing.T) {
	r := NewRegistry(Config{IdleTTL: 20 * time.Millisecond}, nil)

	old := r.Get("gina")
	r.WithBoard("gina", func(st *board.State) {
		board.NewEngine(nil).MakeMove(st, board.MoveSpec{Notation: "d4"})
	})
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, 0, r.Len())
	fresh := r.Get("gina")
	require.NotSame(t, old, fresh)
	require.Equal(t, startFEN, fresh.Board.FEN())
}

func TestDelete(t *testing.T) {
	r := NewRegistry(Config{}, nil)
	s := r.Get("hank")
	r.Delete("hank")
	require.Equal(t, 0, r.Len())
	require.NotSame(t, s, r.Get("hank"))
}
