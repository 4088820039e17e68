package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware used on
// read-only catalog listings.  Seat snapshots are never cached because
// they change with every hold.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
	Methods      map[string]bool
}

// LoadCacheConfig reads CACHE_* variables.  Methods are upper-cased.
func LoadCacheConfig() CacheConfig {
	v := newViper()
	cfg := CacheConfig{
		Enabled:      v.GetBool("CACHE_ENABLED"),
		TTL:          v.GetDuration("CACHE_TTL"),
		Prefix:       v.GetString("CACHE_PREFIX"),
		MaxBodyBytes: v.GetInt("CACHE_MAX_BODY_BYTES"),
		Methods:      parseMethods(v.GetString("CACHE_METHODS")),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return cfg
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(strings.ToUpper(p)); p != "" {
			m[p] = true
		}
	}
	return m
}
