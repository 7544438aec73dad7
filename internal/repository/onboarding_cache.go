package repository

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/pathlab-auth/internal/model"
)

// OnboardingCache stages OTP codes and pending admin registrations in
// Redis.  Keys are derived from the normalized email:
//   otp:{email}            – the numeric code
//   pending:admin:{email}  – JSON encoded model.PendingAdmin
type OnboardingCache struct {
    rdb *redis.Client
}

// NewOnboardingCache returns a cache bound to the given Redis client.
func NewOnboardingCache(rdb *redis.Client) *OnboardingCache { return &OnboardingCache{rdb: rdb} }

func otpKey(email string) string     { return "otp:" + normEmail(email) }
func pendingKey(email string) string { return "pending:admin:" + normEmail(email) }

func normEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Stage stores the OTP and the pending payload in a single MULTI/EXEC so a
// reader never observes one without the other.  A second call for the same
// email replaces both entries and restarts their TTLs.
func (c *OnboardingCache) Stage(ctx context.Context, p model.PendingAdmin, otp string, otpTTL, pendingTTL time.Duration) error {
    body, err := json.Marshal(p)
    if err != nil {
        return fmt.Errorf("encode pending admin: %w", err)
    }
    _, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
        pipe.Set(ctx, otpKey(p.Email), otp, otpTTL)
        pipe.Set(ctx, pendingKey(p.Email), body, pendingTTL)
        return nil
    })
    if err != nil {
        return fmt.Errorf("stage onboarding: %w", err)
    }
    return nil
}

// OTP returns the staged code or ErrNotFound when it expired or was never
// issued.
func (c *OnboardingCache) OTP(ctx context.Context, email string) (string, error) {
    v, err := c.rdb.Get(ctx, otpKey(email)).Result()
    if errors.Is(err, redis.Nil) {
        return "", ErrNotFound
    }
    if err != nil {
        return "", fmt.Errorf("get otp: %w", err)
    }
    return v, nil
}

// Pending returns the staged registration or ErrNotFound.
func (c *OnboardingCache) Pending(ctx context.Context, email string) (model.PendingAdmin, error) {
    var p model.PendingAdmin
    raw, err := c.rdb.Get(ctx, pendingKey(email)).Bytes()
    if errors.Is(err, redis.Nil) {
        return p, ErrNotFound
    }
    if err != nil {
        return p, fmt.Errorf("get pending admin: %w", err)
    }
    if err := json.Unmarshal(raw, &p); err != nil {
        return p, fmt.Errorf("decode pending admin: %w", err)
    }
    return p, nil
}

// Clear removes both entries for email.
func (c *OnboardingCache) Clear(ctx context.Context, email string) error {
    return c.rdb.Del(ctx, otpKey(email), pendingKey(email)).Err()
}
