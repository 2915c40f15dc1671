package cache

import "errors"

// ErrInvalidSize is returned by [NewMemoryCache] for a non-positive size.
var ErrInvalidSize = errors.New("cache size must be positive")
