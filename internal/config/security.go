package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// SecurityConfig defines the request-level limits enforced by the edge gate.
// MaxBodyBytes applies to every request, MaxOTPBodyBytes only to the OTP
// verification endpoint.  StaticPrefixes lists paths that bypass the gate.
type SecurityConfig struct {
    MaxBodyBytes    int64
    MaxOTPBodyBytes int64
    RequestTimeout  time.Duration
    StaticPrefixes  []string
}

// LoadSecurityConfig reads environment variables to build a SecurityConfig.
// Defaults are used when variables are not set.
func LoadSecurityConfig() SecurityConfig {
    return SecurityConfig{
        MaxBodyBytes:    envBytes("MAX_BODY_BYTES", 1<<20),
        MaxOTPBodyBytes: envBytes("MAX_OTP_BODY_BYTES", 10<<10),
        RequestTimeout:  parseDur(getenv("REQUEST_TIMEOUT", "30s")),
        StaticPrefixes:  parseList(getenv("STATIC_PREFIXES", ""), []string{"/static/", "/public/", "/favicon.ico"}),
    }
}

func parseList(s string, def []string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        p = strings.TrimSpace(strings.ToLower(p))
        if p != "" {
            out = append(out, p)
        }
    }
    if len(out) == 0 {
        return append([]string(nil), def...)
    }
    return out
}

func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

// envBytes reads a byte limit; unparsable or non-positive values keep the
// default.
func envBytes(key string, def int64) int64 {
    n, err := strconv.ParseInt(os.Getenv(key), 10, 64)
    if err != nil || n <= 0 {
        return def
    }
    return n
}

func parseDur(s string) time.Duration {
    d, err := ParseTTL(s)
    if err != nil {
        return 30 * time.Second
    }
    return d
}
