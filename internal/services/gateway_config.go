package services

import (
	"strings"
	"time"

	"github.com/stitts-dev/fantasy-feed/internal/models"
)

// Strategy selects which data sources the gateway consults
type Strategy string

const (
	StrategyLocal    Strategy = "local"
	StrategyUpstream Strategy = "upstream"
	StrategyHybrid   Strategy = "hybrid"
)

// ParseStrategy accepts local, upstream or hybrid in any case. Empty means hybrid.
func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyHybrid:
		return StrategyHybrid, true
	case StrategyLocal:
		return StrategyLocal, true
	case StrategyUpstream:
		return StrategyUpstream, true
	}
	return "", false
}

// GatewayConfig is fixed at construction and may be changed later through UpdateConfig
type GatewayConfig struct {
	Strategy        Strategy      `json:"strategy"`
	FallbackEnabled bool          `json:"fallback_enabled"`
	CacheEnabled    bool          `json:"cache_enabled"`
	RetryAttempts   int           `json:"retry_attempts"`
	Timeout         time.Duration `json:"timeout"`
}

// DefaultGatewayConfig returns hybrid sourcing with fallback and caching on
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Strategy:        StrategyHybrid,
		FallbackEnabled: true,
		CacheEnabled:    true,
		RetryAttempts:   2,
		Timeout:         15 * time.Second,
	}
}

// ConfigUpdate is a partial GatewayConfig. Nil fields are left unchanged.
type ConfigUpdate struct {
	Strategy        *Strategy
	FallbackEnabled *bool
	CacheEnabled    *bool
	RetryAttempts   *int
	Timeout         *time.Duration
}

func (u ConfigUpdate) validate() error {
	if u.Strategy != nil {
		if _, ok := ParseStrategy(string(*u.Strategy)); !ok || *u.Strategy == "" {
			return models.NewValidationError("strategy", "must be one of local, upstream, hybrid")
		}
	}
	if u.RetryAttempts != nil && *u.RetryAttempts < 0 {
		return models.NewValidationError("retry_attempts", "must be a non-negative integer")
	}
	if u.Timeout != nil && *u.Timeout < 0 {
		return models.NewValidationError("timeout", "must not be negative")
	}
	return nil
}

func (c GatewayConfig) apply(u ConfigUpdate) GatewayConfig {
	if u.Strategy != nil {
		c.Strategy, _ = ParseStrategy(string(*u.Strategy))
	}
	if u.FallbackEnabled != nil {
		c.FallbackEnabled = *u.FallbackEnabled
	}
	if u.CacheEnabled != nil {
		c.CacheEnabled = *u.CacheEnabled
	}
	if u.RetryAttempts != nil {
		c.RetryAttempts = *u.RetryAttempts
	}
	if u.Timeout != nil {
		c.Timeout = *u.Timeout
	}
	return c
}
