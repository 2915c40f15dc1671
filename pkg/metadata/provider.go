package metadata

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pykeio/cargo-no-std/pkg/cache"
	"github.com/pykeio/cargo-no-std/pkg/errors"
	"github.com/pykeio/cargo-no-std/pkg/observability"
)

// DefaultCacheTTL bounds how long on-disk metadata is trusted. The cache key
// already includes a fingerprint of Cargo.toml and Cargo.lock; the TTL only
// guards against registry or path-dependency changes the fingerprint cannot see.
const DefaultCacheTTL = 10 * time.Minute

const cacheKeyType = "metadata"

// Options selects the feature-activation context of a metadata request.
type Options struct {
	ManifestPath string // empty means cargo's own lookup from the working directory
	AllFeatures  bool   // pass --all-features
}

// Provider produces package graphs.
type Provider interface {
	Metadata(ctx context.Context, opts Options) (*Metadata, error)
}

// CommandFunc runs a command and returns its standard output.
type CommandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// CargoProvider runs `cargo metadata`.
type CargoProvider struct {
	Cargo  string      // cargo executable, "cargo" by default
	Run    CommandFunc // defaults to os/exec
	Cache  cache.Cache
	Keyer  cache.Keyer
	TTL    time.Duration
	Logger *log.Logger
}

// NewCargoProvider creates a provider backed by c. A nil cache disables caching.
func NewCargoProvider(c cache.Cache, logger *log.Logger) *CargoProvider {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	cargo := os.Getenv("CARGO")
	if cargo == "" {
		cargo = "cargo"
	}
	return &CargoProvider{
		Cargo:  cargo,
		Run:    runCommand,
		Cache:  c,
		Keyer:  cache.NewDefaultKeyer(),
		TTL:    DefaultCacheTTL,
		Logger: logger,
	}
}

// Metadata returns the package graph for opts, from cache when possible.
func (p *CargoProvider) Metadata(ctx context.Context, opts Options) (*Metadata, error) {
	key := p.Keyer.MetadataKey(absPath(opts.ManifestPath), cache.MetadataKeyOpts{
		AllFeatures: opts.AllFeatures,
		Fingerprint: fingerprint(opts.ManifestPath),
	})

	if data, hit, err := p.Cache.Get(ctx, key); err == nil && hit {
		if m, err := Parse(data); err == nil {
			observability.Cache().OnCacheHit(ctx, cacheKeyType)
			p.Logger.Debug("metadata cache hit", "all_features", opts.AllFeatures)
			return m, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, cacheKeyType)

	args := []string{"metadata", "--format-version", "1"}
	if opts.AllFeatures {
		args = append(args, "--all-features")
	}
	if opts.ManifestPath != "" {
		args = append(args, "--manifest-path", opts.ManifestPath)
	}

	start := time.Now()
	var out []byte
	err := observability.RunCommand(ctx, p.Cargo, args, func() (err error) {
		out, err = p.Run(ctx, p.Cargo, args...)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadata, err, "%s %v", p.Cargo, args)
	}
	m, err := Parse(out)
	if err != nil {
		return nil, err
	}
	p.Logger.Debug("ran cargo metadata",
		"all_features", opts.AllFeatures,
		"packages", len(m.Packages),
		"duration", time.Since(start).Round(time.Millisecond))

	if err := p.Cache.Set(ctx, key, out, p.TTL); err != nil {
		p.Logger.Warn("could not cache metadata", "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, cacheKeyType, len(out))
	}
	return m, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return nil, errors.Wrap(errors.ErrCodeMetadata, err, "%s", msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// fingerprint hashes the manifest, the workspace lockfile and the
// manifest beside that lockfile. Missing files contribute nothing; the
// result is only used to key the cache.
func fingerprint(manifestPath string) string {
	if manifestPath == "" {
		manifestPath = "Cargo.toml"
	}
	files := []string{manifestPath}
	if lock, ok := findLockfile(filepath.Dir(absPath(manifestPath))); ok {
		files = append(files, lock, filepath.Join(filepath.Dir(lock), "Cargo.toml"))
	}
	var buf bytes.Buffer
	for _, name := range files {
		if data, err := os.ReadFile(name); err == nil {
			buf.Write(data)
		}
		buf.WriteByte(0)
	}
	return cache.Hash(buf.Bytes())
}

// findLockfile returns the Cargo.lock nearest to dir, searching upwards.
// Cargo keeps a single lockfile at the workspace root.
func findLockfile(dir string) (string, bool) {
	for {
		lock := filepath.Join(dir, "Cargo.lock")
		if _, err := os.Stat(lock); err == nil {
			return lock, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func absPath(p string) string {
	if p == "" {
		p = "."
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// Static serves fixed graphs. The default graph is returned for requests
// without AllFeatures, the full graph otherwise (falling back to the default).
type Static struct {
	Default *Metadata
	Full    *Metadata
	Calls   int
}

// Metadata implements Provider.
func (s *Static) Metadata(ctx context.Context, opts Options) (*Metadata, error) {
	s.Calls++
	if opts.AllFeatures && s.Full != nil {
		return s.Full, nil
	}
	if s.Default == nil {
		return nil, errors.New(errors.ErrCodeMetadata, "no metadata configured")
	}
	return s.Default, nil
}

var (
	_ Provider = (*CargoProvider)(nil)
	_ Provider = (*Static)(nil)
)
