package config

import (
    "os"
    "strconv"
    "time"
)

// Preset is one attempt-limit policy: at most MaxAttempts within Window,
// counted independently per email and per client IP.
type Preset struct {
    Purpose     string
    MaxAttempts int
    Window      time.Duration
}

// RateLimits holds the per-feature presets.  Keys are built as
// "{purpose}:attempt:{email|ip}:{value}".
type RateLimits struct {
    Enabled   bool
    Signup    Preset
    Login     Preset
    VerifyOTP Preset
}

func LoadRateLimits() RateLimits {
    return RateLimits{
        Enabled:   envBool("RATE_LIMIT_ENABLED", true),
        Signup:    loadPreset("SIGNUP", "signup", 5, time.Hour),
        Login:     loadPreset("LOGIN", "login", 5, time.Hour),
        VerifyOTP: loadPreset("VERIFY_OTP", "verify", 3, 30*time.Minute),
    }
}

func loadPreset(env, purpose string, max int, window time.Duration) Preset {
    p := Preset{
        Purpose:     purpose,
        MaxAttempts: envInt("RATE_LIMIT_"+env+"_MAX", max),
        Window:      envDur("RATE_LIMIT_"+env+"_WINDOW", window),
    }
    if p.MaxAttempts < 1 { p.MaxAttempts = max }
    if p.Window < time.Second { p.Window = window }
    return p
}

func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" { return d }
    switch v {
    case "1","true","TRUE","True","yes","YES","on","ON": return true
    case "0","false","FALSE","False","no","NO","off","OFF": return false
    }
    return d
}
func envInt(k string, d int) int {
    v := os.Getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}
func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k); if v == "" { return d }
    if dur, err := ParseTTL(v); err == nil { return dur }
    return d
}
