package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/park285/chess-assistant-bot/internal/obslog"
	"github.com/park285/chess-assistant-bot/internal/tracing"
)

type AppConfig struct {
	HTTPAddr string

	StockfishPath      string
	EngineDefaultDepth int
	EngineTimeLimit    time.Duration
	EngineGrace        time.Duration
	EngineTraceLimit   int
	EnginePoolSize     int

	SessionMaxUsers int
	SessionIdleTTL  time.Duration

	AnalysisCacheTTL time.Duration
	RedisURL         string

	MessagesDir string

	Log     obslog.Config
	Tracing tracing.Config
}

const (
	MinDepth = 1
	MaxDepth = 20
)

// SetDefaults registers every key so that AutomaticEnv can resolve it.
func SetDefaults(v *viper.Viper) {
	logDefaults := obslog.DefaultConfig()
	traceDefaults := tracing.DefaultConfig()

	v.SetDefault("HTTP_ADDR", ":8080")

	v.SetDefault("STOCKFISH_PATH", "stockfish")
	v.SetDefault("ENGINE_DEFAULT_DEPTH", 10)
	v.SetDefault("ENGINE_TIME_LIMIT_MS", 3000)
	v.SetDefault("ENGINE_GRACE_MS", 1000)
	v.SetDefault("ENGINE_TRACE_LIMIT", 500)
	v.SetDefault("ENGINE_POOL_SIZE", 0)

	v.SetDefault("SESSION_MAX_USERS", 10000)
	v.SetDefault("SESSION_IDLE_TTL", 24*time.Hour)

	v.SetDefault("ANALYSIS_CACHE_TTL", 10*time.Minute)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("MESSAGES_DIR", "")

	v.SetDefault("LOG_LEVEL", logDefaults.Level)
	v.SetDefault("LOG_TO_CONSOLE", logDefaults.Console)
	v.SetDefault("LOG_TO_FILE", logDefaults.ToFile)
	v.SetDefault("LOG_CALLER", logDefaults.Caller)
	v.SetDefault("LOG_FORMAT", logDefaults.Format)
	v.SetDefault("LOG_FILE", logDefaults.File)

	v.SetDefault("TRACING_ENABLED", traceDefaults.Enabled)
	v.SetDefault("TRACING_EXPORTER", traceDefaults.Exporter)
	v.SetDefault("TRACING_OTLP_ENDPOINT", traceDefaults.OTLPEndpoint)
	v.SetDefault("TRACING_SAMPLE_RATE", traceDefaults.SampleRate)
	v.SetDefault("TRACING_SERVICE_NAME", traceDefaults.ServiceName)
}

// Load reads defaults, an optional config file already attached to v, and the environment.
func Load(v *viper.Viper) (*AppConfig, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.AutomaticEnv()

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	cfg := &AppConfig{
		HTTPAddr: strings.TrimSpace(v.GetString("HTTP_ADDR")),

		StockfishPath:      strings.TrimSpace(v.GetString("STOCKFISH_PATH")),
		EngineDefaultDepth: v.GetInt("ENGINE_DEFAULT_DEPTH"),
		EngineTimeLimit:    time.Duration(v.GetInt("ENGINE_TIME_LIMIT_MS")) * time.Millisecond,
		EngineGrace:        time.Duration(v.GetInt("ENGINE_GRACE_MS")) * time.Millisecond,
		EngineTraceLimit:   v.GetInt("ENGINE_TRACE_LIMIT"),
		EnginePoolSize:     v.GetInt("ENGINE_POOL_SIZE"),

		SessionMaxUsers: v.GetInt("SESSION_MAX_USERS"),
		SessionIdleTTL:  v.GetDuration("SESSION_IDLE_TTL"),

		AnalysisCacheTTL: v.GetDuration("ANALYSIS_CACHE_TTL"),
		RedisURL:         strings.TrimSpace(v.GetString("REDIS_URL")),

		MessagesDir: strings.TrimSpace(v.GetString("MESSAGES_DIR")),

		Log: obslog.Config{
			Level:   v.GetString("LOG_LEVEL"),
			Console: v.GetBool("LOG_TO_CONSOLE"),
			ToFile:  v.GetBool("LOG_TO_FILE"),
			Caller:  v.GetBool("LOG_CALLER"),
			Format:  v.GetString("LOG_FORMAT"),
			File:    v.GetString("LOG_FILE"),
		},
		Tracing: tracing.Config{
			Enabled:      v.GetBool("TRACING_ENABLED"),
			Exporter:     strings.ToLower(strings.TrimSpace(v.GetString("TRACING_EXPORTER"))),
			OTLPEndpoint: strings.TrimSpace(v.GetString("TRACING_OTLP_ENDPOINT")),
			SampleRate:   v.GetFloat64("TRACING_SAMPLE_RATE"),
			ServiceName:  strings.TrimSpace(v.GetString("TRACING_SERVICE_NAME")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) Validate() error {
	var errs []error
	if c.StockfishPath == "" {
		errs = append(errs, errors.New("STOCKFISH_PATH is required"))
	}
	if c.EngineDefaultDepth < MinDepth || c.EngineDefaultDepth > MaxDepth {
		errs = append(errs, fmt.Errorf("ENGINE_DEFAULT_DEPTH must be within %d-%d: %d", MinDepth, MaxDepth, c.EngineDefaultDepth))
	}
	if c.EngineTimeLimit <= 0 {
		errs = append(errs, fmt.Errorf("ENGINE_TIME_LIMIT_MS must be > 0: %s", c.EngineTimeLimit))
	}
	if c.EngineGrace < 0 {
		errs = append(errs, fmt.Errorf("ENGINE_GRACE_MS must be >= 0: %s", c.EngineGrace))
	}
	if c.EngineTraceLimit <= 0 {
		errs = append(errs, fmt.Errorf("ENGINE_TRACE_LIMIT must be > 0: %d", c.EngineTraceLimit))
	}
	if c.EnginePoolSize < 0 {
		errs = append(errs, fmt.Errorf("ENGINE_POOL_SIZE must be >= 0: %d", c.EnginePoolSize))
	}
	if c.SessionMaxUsers < 0 {
		errs = append(errs, fmt.Errorf("SESSION_MAX_USERS must be >= 0: %d", c.SessionMaxUsers))
	}
	if c.SessionIdleTTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_IDLE_TTL must be > 0: %s", c.SessionIdleTTL))
	}
	if c.AnalysisCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("ANALYSIS_CACHE_TTL must be >= 0: %s", c.AnalysisCacheTTL))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR is required"))
	}
	switch c.Tracing.Exporter {
	case "", "none", "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("TRACING_EXPORTER must be none, stdout or otlp: %q", c.Tracing.Exporter))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("TRACING_SAMPLE_RATE must be within 0-1: %v", c.Tracing.SampleRate))
	}
	return errors.Join(errs...)
}
