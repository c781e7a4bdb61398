package cache

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPolicy is returned for a namespace policy that cannot be served.
var ErrInvalidPolicy = errors.New("invalid cache policy")

// Policy configures one namespace. Every namespace ages and evicts independently.
type Policy struct {
	MaxEntries int           `yaml:"maxEntries" json:"maxEntries"`
	TTL        time.Duration `yaml:"ttl" json:"ttl"`
	// AllowNull must stay false: absence is never cached.
	AllowNull bool `yaml:"allowNull" json:"allowNull"`
}

// DefaultPolicy mirrors the sizing the service has always run with.
func DefaultPolicy() Policy {
	return Policy{
		MaxEntries: 100,
		TTL:        5 * time.Minute,
	}
}

// Validate rejects non-positive sizes and durations and nullable namespaces.
func (p Policy) Validate() error {
	if p.MaxEntries <= 0 {
		return fmt.Errorf("%w: maxEntries must be positive, got %d", ErrInvalidPolicy, p.MaxEntries)
	}
	if p.TTL <= 0 {
		return fmt.Errorf("%w: ttl must be positive, got %s", ErrInvalidPolicy, p.TTL)
	}
	if p.AllowNull {
		return fmt.Errorf("%w: allowNull is not supported", ErrInvalidPolicy)
	}
	return nil
}
