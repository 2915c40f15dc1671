// Package cache stores the raw output of expensive collaborator calls.
//
// cargo-no-std runs `cargo metadata` twice per invocation. The JSON it
// produces is kept in a [Cache] so every later lookup in the same run hits
// memory ([MemoryCache]) and, when the user opts in, so repeated runs on an
// unchanged workspace skip the subprocess entirely ([FileCache]).
//
// Layered caches are composed with [NewTiered]: reads try each layer in
// order and backfill the faster layers on a hit.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the cache.
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// MetadataKey identifies one `cargo metadata` invocation.
	MetadataKey(manifestPath string, opts MetadataKeyOpts) string
}

// MetadataKeyOpts contains the inputs that change `cargo metadata` output.
type MetadataKeyOpts struct {
	AllFeatures bool   `json:"all_features"`
	Fingerprint string `json:"fingerprint,omitempty"` // hash of the manifests and workspace Cargo.lock
}

// DefaultKeyer hashes key components into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// MetadataKey implements Keyer. Keys read "metadata:<sha256>" over the
// manifest path and opts, so the path never leaks into file names.
func (DefaultKeyer) MetadataKey(manifestPath string, opts MetadataKeyOpts) string {
	data, _ := json.Marshal(struct {
		ManifestPath string `json:"manifest_path"`
		MetadataKeyOpts
	}{manifestPath, opts})
	return "metadata:" + Hash(data)
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
