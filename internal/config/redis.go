package config

// This file defines the Redis connection settings and client constructor.
// Redis backs the OTP codes, the pending admin registrations and the
// attempt counters, so unlike a pure cache it is required at startup.

import (
    "context"
    "crypto/tls"
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection parameters read from the environment.
// Supported variables are:
//   REDIS_URL – full redis:// or rediss:// URL (takes precedence)
//   REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
type RedisConfig struct {
    URL      string
    Addr     string
    Password string
    DB       int
    TLS      bool
}

func LoadRedisConfig() RedisConfig {
    host := os.Getenv("REDIS_HOST")
    port := os.Getenv("REDIS_PORT")
    addr := os.Getenv("REDIS_ADDR")
    if host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        addr = "localhost:6379"
    }
    dbNum := 0
    if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
        if n, err := strconv.Atoi(dbStr); err == nil {
            dbNum = n
        }
    }
    tlsEnv := os.Getenv("REDIS_TLS")
    return RedisConfig{
        URL:      os.Getenv("REDIS_URL"),
        Addr:     addr,
        Password: os.Getenv("REDIS_PASSWORD"),
        DB:       dbNum,
        TLS:      strings.EqualFold(tlsEnv, "true") || tlsEnv == "1",
    }
}

// NewRedisClient instantiates a Redis client and pings it with a short
// timeout.  The client is closed and an error returned when the server is
// unreachable.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
    var opts *redis.Options
    if cfg.URL != "" {
        parsed, err := redis.ParseURL(cfg.URL)
        if err != nil {
            return nil, fmt.Errorf("parse redis url: %w", err)
        }
        opts = parsed
    } else {
        opts = &redis.Options{
            Addr:     cfg.Addr,
            Password: cfg.Password,
            DB:       cfg.DB,
        }
        if cfg.TLS {
            opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
        }
    }
    client := redis.NewClient(opts)
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil, fmt.Errorf("ping redis: %w", err)
    }
    return client, nil
}
