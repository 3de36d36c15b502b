package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig describes one token bucket.  The bucket holds Capacity
// tokens and gains RefillTokens every RefillInterval.  KeyStrategy picks the
// bucket key from the client ip, user and route (see buildRateKey).
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Message        string
	Debug          bool
}

// LoadRateLimitConfig returns the limiter applied to every /api request:
// 100 requests per IP, refilled in full every 15 minutes.
func LoadRateLimitConfig() RateLimitConfig {
	return loadBucket("RATE_LIMIT", RateLimitConfig{
		Enabled:        true,
		Capacity:       100,
		RefillTokens:   100,
		RefillInterval: 15 * time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "rl",
		Message:        "Too many requests from this IP, please try again after 15 minutes",
	})
}

// LoadAuthRateLimitConfig returns the stricter limiter shared by login and
// register: 10 attempts per IP per hour.
func LoadAuthRateLimitConfig() RateLimitConfig {
	return loadBucket("AUTH_RATE_LIMIT", RateLimitConfig{
		Enabled:        true,
		Capacity:       10,
		RefillTokens:   10,
		RefillInterval: time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl:auth",
		Message:        "Too many authentication attempts, please try again after an hour",
	})
}

func loadBucket(prefix string, def RateLimitConfig) RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool(prefix+"_ENABLED", def.Enabled),
		Capacity:       envInt(prefix+"_CAPACITY", def.Capacity),
		RefillTokens:   envInt(prefix+"_REFILL_TOKENS", def.RefillTokens),
		RefillInterval: envDur(prefix+"_REFILL_INTERVAL", def.RefillInterval),
		TTL:            envDur(prefix+"_TTL", 0),
		KeyStrategy:    envStr(prefix+"_KEY_STRATEGY", def.KeyStrategy),
		Prefix:         envStr(prefix+"_PREFIX", def.Prefix),
		Message:        def.Message,
		Debug:          envBool(prefix+"_DEBUG", false),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	// keep idle buckets around long enough to refill completely
	if minTTL := 2 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return dur
	}
	return d
}
