package uci

import "sync"

// Trace keeps the trailing limit bytes of everything written to it.
type Trace struct {
	mu    sync.Mutex
	limit int
	buf   []byte
	total int
}

func NewTrace(limit int) *Trace {
	if limit <= 0 {
		limit = DefaultTraceLimit
	}
	return &Trace{limit: limit, buf: make([]byte, 0, limit)}
}

const DefaultTraceLimit = 500

func (t *Trace) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total += len(p)
	if len(p) >= t.limit {
		t.buf = append(t.buf[:0], p[len(p)-t.limit:]...)
		return len(p), nil
	}
	if over := len(t.buf) + len(p) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	t.buf = append(t.buf, p...)
	return len(p), nil
}

func (t *Trace) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

// Total is the number of bytes ever written, including the discarded head.
func (t *Trace) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

func (t *Trace) Reset() {
	t.mu.Lock()
	t.buf = t.buf[:0]
	t.total = 0
	t.mu.Unlock()
}
