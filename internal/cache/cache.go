package cache

import (
	"context"
	"time"
)

// Cache stores JSON values by key. Implementations treat a corrupt entry as a
// miss.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Nop never stores anything. Used when no Redis address is configured.
type Nop struct{}

var _ Cache = Nop{}

func (Nop) GetJSON(context.Context, string, any) (bool, error)        { return false, nil }
func (Nop) SetJSON(context.Context, string, any, time.Duration) error { return nil }
func (Nop) Del(context.Context, ...string) error                      { return nil }
