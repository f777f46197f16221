package chess

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	chesslib "github.com/corentings/chess/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/park285/chess-assistant-bot/internal/chess/uci"
	"github.com/park285/chess-assistant-bot/internal/msgcat"
	"github.com/park285/chess-assistant-bot/internal/obslog"
	"github.com/park285/chess-assistant-bot/internal/tracing"
)

type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeUnavailable Outcome = "engine_unavailable"
	OutcomeError       Outcome = "error"
)

var ErrInvalidFEN = errors.New("invalid FEN")

type AnalysisRequest struct {
	FEN       string
	Depth     int
	TimeLimit time.Duration
}

type AnalysisResult struct {
	Success            bool
	Message            string
	Outcome            Outcome
	BestMove           string
	Ponder             string
	HumanMove          string
	SAN                string
	Evaluation         Evaluation
	EvaluationText     string
	PrincipalVariation []string
	Trace              string
	Depth              int
	Duration           time.Duration
	RequestID          string
	Cached             bool
}

// Cache stores successful results by position and depth.
type Cache interface {
	Load(ctx context.Context, key string) (AnalysisResult, bool)
	Store(ctx context.Context, key string, res AnalysisResult)
}

// CacheKey identifies an analysis by the position and search depth.
func CacheKey(fen string, depth int) string {
	return strings.Join(strings.Fields(fen), " ") + "|d" + strconv.Itoa(depth)
}

// Analyzer drives one engine per in-flight request. Without a pool every call
// starts and kills its own engine process.
type Analyzer struct {
	launcher   uci.Launcher
	pool       *uci.Pool
	bounds     Bounds
	traceLimit int
	cache      Cache
	tracer     trace.Tracer
	logger     *zap.Logger
	msgs       *msgcat.Catalog
}

type Option func(*Analyzer)

func WithPool(p *uci.Pool) Option           { return func(a *Analyzer) { a.pool = p } }
func WithBounds(b Bounds) Option            { return func(a *Analyzer) { a.bounds = b } }
func WithTraceLimit(n int) Option           { return func(a *Analyzer) { a.traceLimit = n } }
func WithCache(c Cache) Option              { return func(a *Analyzer) { a.cache = c } }
func WithTracer(t trace.Tracer) Option      { return func(a *Analyzer) { a.tracer = t } }
func WithLogger(l *zap.Logger) Option       { return func(a *Analyzer) { a.logger = l } }
func WithMessages(c *msgcat.Catalog) Option { return func(a *Analyzer) { a.msgs = c } }

func NewAnalyzer(l uci.Launcher, opts ...Option) *Analyzer {
	a := &Analyzer{
		launcher:   l,
		bounds:     DefaultBounds(),
		traceLimit: uci.DefaultTraceLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.tracer == nil {
		a.tracer = tracing.Noop().Tracer()
	}
	a.logger = obslog.Or(a.logger)
	a.msgs = msgcat.Or(a.msgs)
	return a
}

// Available reports whether the engine binary can be started.
func (a *Analyzer) Available() bool {
	return a.launcher != nil && a.launcher.Available() == nil
}

func (a *Analyzer) Close() error {
	if a.pool == nil {
		return nil
	}
	return a.pool.Close()
}

// Analyze never returns an error: every failure is described by the result.
func (a *Analyzer) Analyze(ctx context.Context, req AnalysisRequest) AnalysisResult {
	start := time.Now()
	req = a.bounds.Normalize(req)
	req.FEN = strings.Join(strings.Fields(req.FEN), " ")
	reqID := uuid.NewString()

	ctx, span := a.tracer.Start(ctx, tracing.SpanAnalysis, trace.WithAttributes(
		attribute.String(tracing.AttrRequestID, reqID),
		attribute.String(tracing.AttrFEN, req.FEN),
		attribute.Int(tracing.AttrDepth, req.Depth),
		attribute.Int64(tracing.AttrTimeLimitMS, req.TimeLimit.Milliseconds()),
		attribute.Bool(tracing.AttrEnginePooled, a.pool != nil),
	))
	defer span.End()

	log := a.logger.With(zap.String("request_id", reqID))
	res := a.analyze(ctx, req, log)
	res.RequestID = reqID
	res.Duration = time.Since(start)

	span.SetAttributes(
		attribute.String(tracing.AttrOutcome, string(res.Outcome)),
		attribute.String(tracing.AttrBestMove, res.BestMove),
		attribute.Bool(tracing.AttrCached, res.Cached),
	)
	if !res.Success {
		span.SetStatus(codes.Error, res.Message)
	}
	log.Info("analysis_done",
		zap.String("outcome", string(res.Outcome)),
		zap.String("best_move", res.BestMove),
		zap.String("evaluation", res.EvaluationText),
		zap.Int("depth", req.Depth),
		zap.Bool("cached", res.Cached),
		zap.Duration("elapsed", res.Duration),
	)
	return res
}

func (a *Analyzer) analyze(ctx context.Context, req AnalysisRequest, log *zap.Logger) AnalysisResult {
	if a.launcher == nil || a.launcher.Available() != nil {
		log.Warn("analysis_engine_unavailable")
		return AnalysisResult{
			Outcome: OutcomeUnavailable,
			Message: a.msgs.Text("analysis.unavailable", nil),
		}
	}

	if _, err := positionFromFEN(req.FEN); err != nil {
		return a.failure(err)
	}

	key := CacheKey(req.FEN, req.Depth)
	if a.cache != nil {
		if cached, ok := a.cache.Load(ctx, key); ok {
			cached.Cached = true
			return cached
		}
	}

	log.Debug("analysis_start",
		zap.String("fen", req.FEN),
		zap.Int("depth", req.Depth),
		zap.Duration("time_limit", req.TimeLimit),
	)

	searchCtx, cancel := context.WithTimeout(ctx, a.bounds.Deadline(req.TimeLimit))
	defer cancel()

	sr, traceText, err := a.search(searchCtx, req)
	res := AnalysisResult{
		Evaluation:         EvaluationFromScore(sr.Score),
		PrincipalVariation: sr.PV,
		Depth:              sr.Depth,
		Trace:              traceText,
	}
	res.EvaluationText = res.Evaluation.String()

	switch {
	case err == nil:
		res.Success = true
		res.Outcome = OutcomeSuccess
		res.BestMove = sr.BestMove
		res.Ponder = sr.Ponder
		if res.BestMove == "(none)" {
			res.BestMove = "none"
		}
		res.HumanMove = HumanizeMove(res.BestMove)
		res.SAN = sanForMove(req.FEN, res.BestMove)
		res.Message = a.msgs.Text("analysis.best_move", map[string]any{"Move": res.HumanMove})
		if a.cache != nil {
			a.cache.Store(ctx, key, res)
		}
	case errors.Is(err, context.DeadlineExceeded):
		res.Outcome = OutcomeTimeout
		res.Message = a.msgs.Text("analysis.timeout", map[string]any{"Millis": req.TimeLimit.Milliseconds()})
		log.Warn("analysis_timeout", zap.Duration("time_limit", req.TimeLimit), zap.Int("partial_depth", sr.Depth))
	case errors.Is(err, uci.ErrEngineUnavailable):
		res.Outcome = OutcomeUnavailable
		res.Message = a.msgs.Text("analysis.unavailable", nil)
	default:
		failed := a.failure(err)
		res.Outcome = failed.Outcome
		res.Message = failed.Message
		log.Error("analysis_failed", zap.Error(err))
	}
	return res
}

// search runs on a pooled session when a pool is configured, otherwise on a
// fresh process that is killed before returning.
func (a *Analyzer) search(ctx context.Context, req AnalysisRequest) (uci.SearchResult, string, error) {
	sreq := uci.SearchRequest{FEN: req.FEN, Depth: req.Depth}

	if a.pool != nil {
		session, err := a.pool.Acquire(ctx)
		if err != nil {
			return uci.SearchResult{}, "", err
		}
		sr, err := session.Search(ctx, sreq)
		traceText := session.Trace()
		a.pool.Release(session, err)
		return sr, traceText, err
	}

	session, err := uci.Launch(ctx, a.launcher, a.traceLimit)
	if err != nil {
		return uci.SearchResult{}, "", err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			a.logger.Debug("engine_close_failed", zap.Error(cerr))
		}
	}()

	if err := session.Handshake(ctx); err != nil {
		return uci.SearchResult{}, session.Trace(), err
	}
	sr, err := session.Search(ctx, sreq)
	return sr, session.Trace(), err
}

func (a *Analyzer) failure(err error) AnalysisResult {
	return AnalysisResult{
		Outcome: OutcomeError,
		Message: a.msgs.Text("analysis.failed", map[string]any{"Cause": err.Error()}),
	}
}

func positionFromFEN(fen string) (*chesslib.Game, error) {
	if fen == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidFEN)
	}
	opt, err := chesslib.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return chesslib.NewGame(opt), nil
}

// sanForMove converts a coordinate move to SAN for the given position, or "".
func sanForMove(fen, move string) string {
	if move == "" || move == "none" {
		return ""
	}
	game, err := positionFromFEN(fen)
	if err != nil {
		return ""
	}
	pos := game.Position()
	mv, err := chesslib.UCINotation{}.Decode(pos, move)
	if err != nil {
		return ""
	}
	return chesslib.AlgebraicNotation{}.Encode(pos, mv)
}
