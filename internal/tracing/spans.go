package tracing

// Span names.
const (
	SpanAnalysis    = "analysis.run"
	SpanHTTPRequest = "http.request"
	SpanDispatch    = "assistant.handle"
)

// Attribute keys.
const (
	AttrUserID       = "user.id"
	AttrRequestID    = "analysis.request_id"
	AttrFEN          = "analysis.fen"
	AttrDepth        = "analysis.depth"
	AttrTimeLimitMS  = "analysis.time_limit_ms"
	AttrOutcome      = "analysis.outcome"
	AttrBestMove     = "analysis.best_move"
	AttrCached       = "analysis.cached"
	AttrEventKind    = "event.kind"
	AttrHTTPMethod   = "http.method"
	AttrHTTPRoute    = "http.route"
	AttrHTTPStatus   = "http.status_code"
	AttrEngineBinary = "engine.binary"
	AttrEnginePooled = "engine.pooled"
)
