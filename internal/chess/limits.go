package chess

import "time"

const (
	MinDepth         = 1
	MaxDepth         = 20
	DefaultDepth     = 10
	DefaultTimeLimit = 3000 * time.Millisecond
	DefaultGrace     = 1000 * time.Millisecond
)

// Bounds holds the defaults applied to incoming analysis requests.
type Bounds struct {
	DefaultDepth     int
	DefaultTimeLimit time.Duration
	Grace            time.Duration
}

func DefaultBounds() Bounds {
	return Bounds{
		DefaultDepth:     DefaultDepth,
		DefaultTimeLimit: DefaultTimeLimit,
		Grace:            DefaultGrace,
	}
}

// Normalize fills unset fields and clamps depth into MinDepth..MaxDepth.
func (b Bounds) Normalize(req AnalysisRequest) AnalysisRequest {
	def := b.DefaultDepth
	if def <= 0 {
		def = DefaultDepth
	}
	if req.Depth <= 0 {
		req.Depth = def
	}
	req.Depth = ClampDepth(req.Depth)

	if req.TimeLimit <= 0 {
		req.TimeLimit = b.DefaultTimeLimit
	}
	if req.TimeLimit <= 0 {
		req.TimeLimit = DefaultTimeLimit
	}
	return req
}

// Deadline is the wall-clock ceiling for one analysis.
func (b Bounds) Deadline(timeLimit time.Duration) time.Duration {
	grace := b.Grace
	if grace < 0 {
		grace = 0
	}
	return timeLimit + grace
}

func ClampDepth(d int) int {
	if d < MinDepth {
		return MinDepth
	}
	if d > MaxDepth {
		return MaxDepth
	}
	return d
}
