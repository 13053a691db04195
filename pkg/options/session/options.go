// Package session provides chat session store configuration options.
package session

import (
	"fmt"
	"time"

	redisopts "github.com/kart-io/agrichat/pkg/options/redis"
	"github.com/spf13/pflag"
)

// Options contains session store configuration.
type Options struct {
	// Backend selects the session store backend (memory|redis).
	Backend string `json:"backend" mapstructure:"backend"`

	// TTL 会话过期时间，仅 redis 后端生效。0 表示不过期。
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix Redis 会话键前缀。
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`

	// Redis Redis 连接配置，仅 redis 后端生效。
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`
}

// NewOptions creates new Options with defaults. Histories live in memory
// for the process lifetime unless the redis backend is selected.
func NewOptions() *Options {
	return &Options{
		Backend:   "memory",
		TTL:       0,
		KeyPrefix: "agrichat:session:",
		Redis:     redisopts.NewOptions(),
	}
}

// AddFlags adds flags for session options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefix string) {
	fs.StringVar(&o.Backend, prefix+"backend", o.Backend, "Session store backend (memory|redis).")
	fs.DurationVar(&o.TTL, prefix+"ttl", o.TTL, "Session TTL for the redis backend (0 means no expiry).")
	fs.StringVar(&o.KeyPrefix, prefix+"key-prefix", o.KeyPrefix, "Session key prefix for the redis backend.")
	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	o.Redis.AddFlags(fs, prefix)
}

// Validate validates the session options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Backend {
	case "memory":
	case "redis":
		if o.Redis == nil {
			errs = append(errs, fmt.Errorf("session redis configuration is required for the redis backend"))
		} else if err := o.Redis.Validate(); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session backend %q (memory|redis)", o.Backend))
	}
	return errs
}

// Complete completes the session options with defaults.
func (o *Options) Complete() error {
	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	if o.KeyPrefix == "" {
		o.KeyPrefix = "agrichat:session:"
	}
	return nil
}
