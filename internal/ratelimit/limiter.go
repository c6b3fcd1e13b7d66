package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"starpress/config"
)

// Result is the admission decision for one request.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   int64 // epoch seconds
}

// Limiter admits or rejects a unit of work against a per-namespace quota over
// a sliding window backed by the shared store. When the store is unreachable
// it falls back to the local fixed-window counter, which is less precise
// (fixed buckets instead of a sliding log) but keeps admission decisions
// flowing. Admit never returns an error to callers.
type Limiter struct {
	rdb    *redis.Client
	local  *LocalLimiter
	rules  map[string]config.RateLimitRule
	logger *slog.Logger
	now    func() time.Time
}

var defaultRule = config.RateLimitRule{Max: 60, Window: 60}

// New wires the limiter. rdb may be nil, in which case every call uses the
// local fallback.
func New(rdb *redis.Client, local *LocalLimiter, rules map[string]config.RateLimitRule, logger *slog.Logger) *Limiter {
	return &Limiter{
		rdb:    rdb,
		local:  local,
		rules:  rules,
		logger: logger,
		now:    time.Now,
	}
}

func (l *Limiter) rule(namespace string) config.RateLimitRule {
	if r, ok := l.rules[namespace]; ok && r.Max >= 1 && r.Window >= 1 {
		return r
	}
	return defaultRule
}

// Admit records the attempt and decides whether it is within quota. The
// attempt counts toward the quota even when rejected, so retry storms cannot
// reset the window.
func (l *Limiter) Admit(ctx context.Context, namespace, identity string) Result {
	rule := l.rule(namespace)

	if l.rdb != nil {
		res, err := l.admitShared(ctx, namespace, identity, rule)
		if err == nil {
			return res
		}
		l.logger.Warn("rate limiter falling back to local counter",
			"namespace", namespace, "error", err)
	}

	return l.local.Admit(namespace, identity, rule)
}

// admitShared runs the sliding-window log update as a single transactional
// pipeline: drop expired tokens, insert one for now, count, refresh expiry.
func (l *Limiter) admitShared(ctx context.Context, namespace, identity string, rule config.RateLimitRule) (Result, error) {
	now := l.now()
	window := time.Duration(rule.Window) * time.Second
	key := fmt.Sprintf("rl:%s:%s", namespace, identity)
	cutoff := now.Add(-window).UnixMicro()

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff, 10))
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMicro()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	used := int(count.Val())
	remaining := rule.Max - used
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   used <= rule.Max,
		Limit:     rule.Max,
		Remaining: remaining,
		ResetAt:   now.Add(window).Unix(),
	}, nil
}
