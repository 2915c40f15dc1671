package cache

import (
	"context"
	"errors"
	"time"
)

// Tiered reads through a list of caches, fastest first.
type Tiered struct {
	layers []Cache
	ttl    time.Duration
}

// NewTiered composes layers. On a hit in layer i, layers 0..i-1 are
// backfilled with ttl.
func NewTiered(ttl time.Duration, layers ...Cache) Cache {
	return &Tiered{layers: layers, ttl: ttl}
}

// Get retrieves a value from the first layer that has it.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	for i, l := range t.layers {
		data, hit, err := l.Get(ctx, key)
		if err != nil || !hit {
			continue
		}
		for _, faster := range t.layers[:i] {
			_ = faster.Set(ctx, key, data, t.ttl)
		}
		return data, true, nil
	}
	return nil, false, nil
}

// Set writes to every layer.
func (t *Tiered) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	var errs []error
	for _, l := range t.layers {
		if err := l.Set(ctx, key, data, ttl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Delete removes key from every layer.
func (t *Tiered) Delete(ctx context.Context, key string) error {
	var errs []error
	for _, l := range t.layers {
		if err := l.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every layer.
func (t *Tiered) Close() error {
	var errs []error
	for _, l := range t.layers {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Cache = (*Tiered)(nil)
