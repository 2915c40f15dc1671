package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pykeio/cargo-no-std/pkg/build"
	"github.com/pykeio/cargo-no-std/pkg/buildinfo"
	"github.com/pykeio/cargo-no-std/pkg/cache"
	"github.com/pykeio/cargo-no-std/pkg/metadata"
	"github.com/pykeio/cargo-no-std/pkg/pipeline"
	"github.com/pykeio/cargo-no-std/pkg/verify"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "cargo-no-std"

	// cargoSubcommand is the argument cargo passes when run as `cargo no-std`.
	cargoSubcommand = "no-std"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Backends default to cargo and the host capability when nil.
	Metadata   metadata.Provider
	Builder    build.Builder
	Capability verify.Capability

	// Spin enables the progress spinner on stderr.
	Spin bool

	errOut io.Writer
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		errOut: w,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// The root command runs the check and then the verify phase.
func (c *CLI) RootCommand() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   appName,
		Short: "Check whether a crate and its dependencies support no_std",
		Long: `cargo-no-std resolves the active features of a crate, inspects the source of
every active dependency for a no_std attribute, and then builds the crate to
verify that no compiled artifact references std.`,
		Version:       buildinfo.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAll(cmd, f)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	f.register(root)

	root.AddCommand(c.checkCommand(f))
	root.AddCommand(c.verifyCommand(f))
	root.AddCommand(c.cacheCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(cfg Config) (*pipeline.Runner, error) {
	provider := c.Metadata
	if provider == nil {
		store, err := newCache(cfg.Cache)
		if err != nil {
			return nil, err
		}
		provider = metadata.NewCargoProvider(store, c.Logger)
	}
	builder := c.Builder
	if builder == nil {
		builder = build.NewCargoBuilder(c.errOut, c.Logger)
	}
	return pipeline.NewRunner(provider, builder, c.Logger), nil
}

func (c *CLI) capability() verify.Capability {
	if c.Capability != nil {
		return c.Capability
	}
	return verify.Platform()
}

// newCache returns the in-run LRU, backed by the on-disk cache when persist
// is set.
func newCache(persist bool) (cache.Cache, error) {
	mem, err := cache.NewMemoryCache(cache.DefaultMemorySize)
	if err != nil {
		return nil, err
	}
	if !persist {
		return mem, nil
	}
	dir, err := cacheDir()
	if err != nil {
		return mem, nil
	}
	file, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return cache.NewTiered(metadata.DefaultCacheTTL, mem, file), nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/cargo-no-std/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
