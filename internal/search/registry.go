package search

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config carries what the named providers may need.
type Config struct {
	GoogleKey string
	Region    string
	Language  string
	// AddressType restricts FranceGov results.
	AddressType string
	Logger      *zap.Logger

	// Cache, when set, is shared by every provider built from this config.
	// Keys are namespaced by provider name.
	Cache    Cache
	CacheTTL time.Duration
}

// New builds a provider by name: "nominatim", "francegov" or "google".
func New(name string, cfg Config) (Provider, error) {
	p, err := newProvider(name, cfg)
	if err != nil || cfg.Cache == nil {
		return p, err
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return NewCached(p, Prefixed(cfg.Cache, strings.ToLower(name)+":"), ttl, cfg.Logger), nil
}

func newProvider(name string, cfg Config) (Provider, error) {
	var opts []Option
	if cfg.Logger != nil {
		opts = append(opts, WithLogger(cfg.Logger))
	}
	switch strings.ToLower(name) {
	case "nominatim":
		return NewNominatim(opts...), nil
	case "francegov", "france-gov", "gouv":
		return NewFranceGov(cfg.AddressType, opts...), nil
	case "google":
		if cfg.GoogleKey == "" {
			return nil, fmt.Errorf("google search provider needs an API key")
		}
		return NewGoogle(cfg.GoogleKey, cfg.Region, cfg.Language, opts...), nil
	}
	return nil, fmt.Errorf("unknown search provider %q", name)
}
