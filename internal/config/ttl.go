package config

import (
    "errors"
    "fmt"
    "strconv"
    "strings"
    "time"
)

var errEmptyTTL = errors.New("empty duration")

// ParseTTL turns a lifetime setting into a time.Duration.  It accepts a day
// suffix ("30d"), a bare number of seconds ("900") and anything
// time.ParseDuration understands ("15m", "1h30m").  Zero and negative
// values are rejected.
func ParseTTL(s string) (time.Duration, error) {
    s = strings.TrimSpace(s)
    if s == "" {
        return 0, errEmptyTTL
    }
    var d time.Duration
    switch {
    case strings.HasSuffix(s, "d"):
        days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
        if err != nil {
            return 0, fmt.Errorf("parse days %q: %w", s, err)
        }
        d = time.Duration(days) * 24 * time.Hour
    default:
        if secs, err := strconv.Atoi(s); err == nil {
            d = time.Duration(secs) * time.Second
            break
        }
        parsed, err := time.ParseDuration(s)
        if err != nil {
            return 0, fmt.Errorf("parse duration %q: %w", s, err)
        }
        d = parsed
    }
    if d <= 0 {
        return 0, fmt.Errorf("duration %q must be positive", s)
    }
    return d, nil
}
