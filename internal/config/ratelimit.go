package config

import (
	"time"

	"github.com/spf13/viper"
)

// RateLimitConfig drives the token bucket guarding the auth form posts.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

func setRateLimitDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.capacity", 10)
	v.SetDefault("rate_limit.refill_tokens", 1)
	v.SetDefault("rate_limit.refill_interval", 6*time.Second)
	v.SetDefault("rate_limit.ttl", 10*time.Minute)
	v.SetDefault("rate_limit.key_strategy", "ip_route")
	v.SetDefault("rate_limit.prefix", "rl")
	v.SetDefault("rate_limit.debug", false)
}

func loadRateLimit(v *viper.Viper) RateLimitConfig {
	rl := RateLimitConfig{
		Enabled:        v.GetBool("rate_limit.enabled"),
		Capacity:       v.GetInt("rate_limit.capacity"),
		RefillTokens:   v.GetInt("rate_limit.refill_tokens"),
		RefillInterval: v.GetDuration("rate_limit.refill_interval"),
		TTL:            v.GetDuration("rate_limit.ttl"),
		KeyStrategy:    v.GetString("rate_limit.key_strategy"),
		Prefix:         v.GetString("rate_limit.prefix"),
		Debug:          v.GetBool("rate_limit.debug"),
	}
	if b := v.GetInt("rate_limit.burst"); b > 0 {
		rl.Capacity = b
	}
	if rl.Capacity < 1 {
		rl.Capacity = 1
	}
	if rl.RefillTokens < 1 {
		rl.RefillTokens = 1
	}
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	if minTTL := 5 * rl.RefillInterval; rl.TTL < minTTL {
		rl.TTL = minTTL
	}
	return rl
}
