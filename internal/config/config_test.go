package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestParseTTL(t *testing.T) {
    cases := map[string]time.Duration{
        "30d":   30 * 24 * time.Hour,
        "900":   15 * time.Minute,
        "15m":   15 * time.Minute,
        "1h30m": 90 * time.Minute,
        " 600 ": 10 * time.Minute,
    }
    for in, want := range cases {
        got, err := ParseTTL(in)
        require.NoError(t, err, in)
        assert.Equal(t, want, got, in)
    }

    for _, bad := range []string{"", "0", "-5", "xd", "soon", "0d"} {
        _, err := ParseTTL(bad)
        assert.Error(t, err, bad)
    }
}

func TestClampOTPDigits(t *testing.T) {
    assert.Equal(t, 4, ClampOTPDigits(0))
    assert.Equal(t, 5, ClampOTPDigits(5))
    assert.Equal(t, 8, ClampOTPDigits(12))
}

func TestLoadRateLimits_Defaults(t *testing.T) {
    rl := LoadRateLimits()
    assert.True(t, rl.Enabled)
    assert.Equal(t, Preset{Purpose: "signup", MaxAttempts: 5, Window: time.Hour}, rl.Signup)
    assert.Equal(t, Preset{Purpose: "login", MaxAttempts: 5, Window: time.Hour}, rl.Login)
    assert.Equal(t, Preset{Purpose: "verify", MaxAttempts: 3, Window: 30 * time.Minute}, rl.VerifyOTP)
}

func TestLoadRateLimits_Overrides(t *testing.T) {
    t.Setenv("RATE_LIMIT_ENABLED", "off")
    t.Setenv("RATE_LIMIT_LOGIN_MAX", "10")
    t.Setenv("RATE_LIMIT_LOGIN_WINDOW", "15m")
    t.Setenv("RATE_LIMIT_SIGNUP_MAX", "0")
    t.Setenv("RATE_LIMIT_VERIFY_OTP_WINDOW", "bogus")

    rl := LoadRateLimits()
    assert.False(t, rl.Enabled)
    assert.Equal(t, 10, rl.Login.MaxAttempts)
    assert.Equal(t, 15*time.Minute, rl.Login.Window)
    assert.Equal(t, 5, rl.Signup.MaxAttempts, "non-positive max falls back to the default")
    assert.Equal(t, 30*time.Minute, rl.VerifyOTP.Window)
}

func TestLoadSecurityConfig(t *testing.T) {
    sc := LoadSecurityConfig()
    assert.Equal(t, int64(1<<20), sc.MaxBodyBytes)
    assert.Equal(t, int64(10240), sc.MaxOTPBodyBytes)
    assert.Equal(t, 30*time.Second, sc.RequestTimeout)
    assert.Contains(t, sc.StaticPrefixes, "/static/")

    t.Setenv("MAX_BODY_BYTES", "2048")
    t.Setenv("REQUEST_TIMEOUT", "5s")
    t.Setenv("STATIC_PREFIXES", "/assets/, /_next/")
    sc = LoadSecurityConfig()
    assert.Equal(t, int64(2048), sc.MaxBodyBytes)
    assert.Equal(t, 5*time.Second, sc.RequestTimeout)
    assert.Equal(t, []string{"/assets/", "/_next/"}, sc.StaticPrefixes)
}

func TestLoadSecurityConfig_BadBodyLimitKeepsDefault(t *testing.T) {
    for _, v := range []string{"1MB", "0", "-1"} {
        t.Setenv("MAX_BODY_BYTES", v)
        t.Setenv("MAX_OTP_BODY_BYTES", v)
        sc := LoadSecurityConfig()
        assert.Equal(t, int64(1<<20), sc.MaxBodyBytes, v)
        assert.Equal(t, int64(10240), sc.MaxOTPBodyBytes, v)
    }
}

func TestSecureCookies(t *testing.T) {
    assert.True(t, Config{Env: "production"}.SecureCookies())
    assert.False(t, Config{Env: "development"}.SecureCookies())
}
