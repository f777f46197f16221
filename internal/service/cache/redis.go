package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-assistant-bot/internal/chess"
	"github.com/park285/chess-assistant-bot/internal/obslog"
)

const keyPrefix = "analysis:"

// RedisStore shares results between processes. Redis failures degrade to
// cache misses.
type RedisStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl, logger: obslog.Or(logger)}
}

// DialRedis connects to REDIS_URL and pings it.
func DialRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, errors.New("REDIS_URL required for redis cache")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) key(k string) string { return keyPrefix + k }

func (s *RedisStore) Load(ctx context.Context, key string) (chess.AnalysisResult, bool) {
	raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return chess.AnalysisResult{}, false
	}
	if err != nil {
		s.logger.Warn("analysis_cache_load_failed", zap.String("key", key), zap.Error(err))
		return chess.AnalysisResult{}, false
	}
	var res chess.AnalysisResult
	if err := json.Unmarshal(raw, &res); err != nil {
		s.logger.Warn("analysis_cache_decode_failed", zap.String("key", key), zap.Error(err))
		return chess.AnalysisResult{}, false
	}
	return res, true
}

func (s *RedisStore) Store(ctx context.Context, key string, res chess.AnalysisResult) {
	raw, err := json.Marshal(res)
	if err != nil {
		s.logger.Warn("analysis_cache_encode_failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.rdb.Set(ctx, s.key(key), raw, s.ttl).Err(); err != nil {
		s.logger.Warn("analysis_cache_store_failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q: %w", p, err)
		}
		db = n
	}
	pass, _ := u.User.Password()
	opts := &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}
