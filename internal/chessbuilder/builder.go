// Package chessbuilder wires the assistant's components from configuration.
package chessbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/park285/chess-assistant-bot/internal/adapter/httpapi"
	corechess "github.com/park285/chess-assistant-bot/internal/chess"
	"github.com/park285/chess-assistant-bot/internal/chess/uci"
	"github.com/park285/chess-assistant-bot/internal/config"
	"github.com/park285/chess-assistant-bot/internal/msgcat"
	"github.com/park285/chess-assistant-bot/internal/service/assistant"
	"github.com/park285/chess-assistant-bot/internal/service/board"
	"github.com/park285/chess-assistant-bot/internal/service/cache"
	"github.com/park285/chess-assistant-bot/internal/service/flow"
	"github.com/park285/chess-assistant-bot/internal/session"
)

type Deps struct {
	Messages   *msgcat.Catalog
	Sessions   *session.Registry
	Analyzer   *corechess.Analyzer
	Board      *board.Service
	Flow       *flow.Service
	Dispatcher *assistant.Dispatcher

	closers []func() error
}

// Options overrides pieces that are normally derived from the config.
type Options struct {
	Launcher uci.Launcher
	Tracer   trace.Tracer
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger, opts Options) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Messages = msgs

	launcher := opts.Launcher
	if launcher == nil {
		if strings.TrimSpace(cfg.StockfishPath) == "" {
			return nil, fmt.Errorf("STOCKFISH_PATH is required for chess engine")
		}
		launcher = uci.ExecLauncher{Path: cfg.StockfishPath}
	}
	if err := launcher.Available(); err != nil {
		// analysis keeps reporting the engine as unavailable; boards still work
		logger.Warn("engine_unavailable", zap.String("engine", launcher.Name()), zap.Error(err))
	}

	analyzerOpts := []corechess.Option{
		corechess.WithBounds(corechess.Bounds{
			DefaultDepth:     cfg.EngineDefaultDepth,
			DefaultTimeLimit: cfg.EngineTimeLimit,
			Grace:            cfg.EngineGrace,
		}),
		corechess.WithTraceLimit(cfg.EngineTraceLimit),
		corechess.WithLogger(logger.Named("analysis")),
		corechess.WithMessages(msgs),
	}
	if opts.Tracer != nil {
		analyzerOpts = append(analyzerOpts, corechess.WithTracer(opts.Tracer))
	}

	if cfg.EnginePoolSize > 0 {
		pool, perr := uci.NewPool(uci.PoolConfig{
			Launcher:   launcher,
			Capacity:   cfg.EnginePoolSize,
			TraceLimit: cfg.EngineTraceLimit,
			Logger:     logger.Named("engine_pool"),
		})
		if perr != nil {
			logger.Warn("engine_pool_disabled", zap.Error(perr))
		} else {
			analyzerOpts = append(analyzerOpts, corechess.WithPool(pool))
		}
	}

	if cfg.AnalysisCacheTTL > 0 {
		if strings.TrimSpace(cfg.RedisURL) != "" {
			rdb, rerr := cache.DialRedis(ctx, cfg.RedisURL)
			if rerr != nil {
				return nil, fmt.Errorf("init cache: %w", rerr)
			}
			store := cache.NewRedisStore(rdb, cfg.AnalysisCacheTTL, logger.Named("cache"))
			d.closers = append(d.closers, store.Close)
			analyzerOpts = append(analyzerOpts, corechess.WithCache(store))
		} else {
			analyzerOpts = append(analyzerOpts, corechess.WithCache(cache.NewMemoryStore(cfg.AnalysisCacheTTL)))
		}
	}

	d.Analyzer = corechess.NewAnalyzer(launcher, analyzerOpts...)
	d.closers = append(d.closers, d.Analyzer.Close)

	d.Sessions = session.NewRegistry(session.Config{
		MaxUsers: cfg.SessionMaxUsers,
		IdleTTL:  cfg.SessionIdleTTL,
	}, logger.Named("sessions"))
	d.Board = board.NewService(board.NewEngine(msgs), d.Sessions, logger.Named("board"))
	d.Flow = flow.NewService(flow.NewMachine(msgs), d.Sessions, logger.Named("flow"))

	dispatchOpts := []assistant.Option{
		assistant.WithMessages(msgs),
		assistant.WithLogger(logger.Named("assistant")),
	}
	if opts.Tracer != nil {
		dispatchOpts = append(dispatchOpts, assistant.WithTracer(opts.Tracer))
	}
	d.Dispatcher = assistant.New(d.Sessions, d.Analyzer, dispatchOpts...)

	logger.Info("assistant_ready",
		zap.String("engine", launcher.Name()),
		zap.Bool("engine_available", d.Analyzer.Available()),
		zap.Int("pool_size", cfg.EnginePoolSize),
		zap.Bool("redis_cache", strings.TrimSpace(cfg.RedisURL) != ""),
	)
	return d, nil
}

// HTTPServer builds the API server over these deps.
func (d *Deps) HTTPServer(tracer trace.Tracer, logger *zap.Logger) *httpapi.Server {
	return httpapi.New(httpapi.Config{
		Board:      d.Board,
		Flow:       d.Flow,
		Analyzer:   d.Analyzer,
		Dispatcher: d.Dispatcher,
		Sessions:   d.Sessions,
		Tracer:     tracer,
		Logger:     logger,
	})
}

// Close releases engine processes and cache connections in reverse order.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
