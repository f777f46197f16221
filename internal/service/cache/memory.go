// Package cache stores successful analysis results keyed by position and depth.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/park285/chess-assistant-bot/internal/chess"
)

const DefaultTTL = 10 * time.Minute

// MemoryStore keeps results in process memory.
type MemoryStore struct {
	items *gocache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{items: gocache.New(ttl, ttl*2)}
}

func (m *MemoryStore) Load(_ context.Context, key string) (chess.AnalysisResult, bool) {
	v, ok := m.items.Get(key)
	if !ok {
		return chess.AnalysisResult{}, false
	}
	res, ok := v.(chess.AnalysisResult)
	return res, ok
}

func (m *MemoryStore) Store(_ context.Context, key string, res chess.AnalysisResult) {
	m.items.SetDefault(key, res)
}

func (m *MemoryStore) Len() int { return m.items.ItemCount() }

func (m *MemoryStore) Flush() { m.items.Flush() }
