// Package cache provides retrieval cache configuration options.
package cache

import (
	"fmt"
	"time"

	redisopts "github.com/kart-io/agrichat/pkg/options/redis"
	"github.com/spf13/pflag"
)

// Options contains retrieval cache configuration.
type Options struct {
	// Enabled 是否启用检索结果缓存。
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL 缓存过期时间。
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix 缓存键前缀。
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`

	// Redis Redis 连接配置。
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`
}

// NewOptions creates new Options with defaults. Caching is off by default.
func NewOptions() *Options {
	return &Options{
		Enabled:   false,
		TTL:       1 * time.Hour,
		KeyPrefix: "agrichat:retrieval:",
		Redis:     redisopts.NewOptions(),
	}
}

// AddFlags adds flags for cache options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefix string) {
	fs.BoolVar(&o.Enabled, prefix+"enabled", o.Enabled, "Enable retrieval result caching.")
	fs.DurationVar(&o.TTL, prefix+"ttl", o.TTL, "Cache entry TTL.")
	fs.StringVar(&o.KeyPrefix, prefix+"key-prefix", o.KeyPrefix, "Cache key prefix.")
	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	o.Redis.AddFlags(fs, prefix)
}

// Validate validates the cache options.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache ttl must be positive"))
	}
	if o.Redis == nil {
		errs = append(errs, fmt.Errorf("cache redis configuration is required when enabled"))
	} else if err := o.Redis.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// Complete completes the cache options with defaults.
func (o *Options) Complete() error {
	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	if o.KeyPrefix == "" {
		o.KeyPrefix = "agrichat:retrieval:"
	}
	return nil
}
