package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/pathlab-auth/internal/config"
	"github.com/iliyamo/pathlab-auth/internal/observability"
)

// checkAndIncrement refuses when any counter already reached the limit and
// otherwise bumps every counter and resets its TTL.  Running it as one
// script makes the read and the increments a single step, so two requests
// at the boundary cannot both pass.
var checkAndIncrement = redis.NewScript(`
local max = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
for _, key in ipairs(KEYS) do
  local current = tonumber(redis.call('GET', key) or '0')
  if current >= max then
    return 0
  end
end
for _, key in ipairs(KEYS) do
  redis.call('INCR', key)
  redis.call('EXPIRE', key, window)
end
return 1
`)

// AttemptLimiter counts attempts per email and per client IP in Redis.
type AttemptLimiter struct {
	rdb     *redis.Client
	cfg     config.RateLimits
	log     *logrus.Logger
	metrics *observability.Metrics
}

func NewAttemptLimiter(rdb *redis.Client, cfg config.RateLimits, log *logrus.Logger, m *observability.Metrics) *AttemptLimiter {
	return &AttemptLimiter{rdb: rdb, cfg: cfg, log: log, metrics: m}
}

// CheckAndIncrement reports whether the attempt is allowed.  A refused
// attempt leaves every counter untouched.
func (l *AttemptLimiter) CheckAndIncrement(ctx context.Context, keys []string, maxAttempts int, window time.Duration) (bool, error) {
	if len(keys) == 0 {
		return true, nil
	}
	secs := int64(window / time.Second)
	if secs < 1 {
		secs = 1
	}
	res, err := checkAndIncrement.Run(ctx, l.rdb, keys, maxAttempts, secs).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return res == 1, nil
}

// Allow applies preset p to the email and IP of one attempt.
func (l *AttemptLimiter) Allow(ctx context.Context, p config.Preset, email, ip string) (bool, error) {
	if !l.cfg.Enabled {
		return true, nil
	}
	ok, err := l.CheckAndIncrement(ctx, AttemptKeys(p.Purpose, email, ip), p.MaxAttempts, p.Window)
	if err != nil {
		return false, err
	}
	if !ok {
		l.metrics.RateLimited(p.Purpose)
		l.log.WithFields(logrus.Fields{
			"event":       "RATE_LIMIT_EXCEEDED",
			"rateLimiter": p.Purpose,
			"ip":          ip,
			"email":       observability.MaskEmail(email),
		}).Warn("attempt limit reached")
	}
	return ok, nil
}

func (l *AttemptLimiter) Signup(ctx context.Context, email, ip string) (bool, error) {
	return l.Allow(ctx, l.cfg.Signup, email, ip)
}

func (l *AttemptLimiter) Login(ctx context.Context, email, ip string) (bool, error) {
	return l.Allow(ctx, l.cfg.Login, email, ip)
}

func (l *AttemptLimiter) VerifyOTP(ctx context.Context, email, ip string) (bool, error) {
	return l.Allow(ctx, l.cfg.VerifyOTP, email, ip)
}

// AttemptKeys builds "{purpose}:attempt:email:{email}" and
// "{purpose}:attempt:ip:{ip}".  An empty email contributes no key.
func AttemptKeys(purpose, email, ip string) []string {
	keys := make([]string, 0, 2)
	if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
		keys = append(keys, purpose+":attempt:email:"+email)
	}
	if ip == "" {
		ip = "unknown"
	}
	return append(keys, purpose+":attempt:ip:"+ip)
}
