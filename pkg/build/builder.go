package build

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pykeio/cargo-no-std/pkg/errors"
	"github.com/pykeio/cargo-no-std/pkg/observability"
)

// Options mirrors the feature selection of the check phase.
type Options struct {
	ManifestPath      string
	Package           string
	NoDefaultFeatures bool
	Features          []string
}

func (o Options) args() []string {
	args := []string{"build"}
	if o.ManifestPath != "" {
		args = append(args, "--manifest-path", o.ManifestPath)
	}
	if o.Package != "" {
		args = append(args, "--package", o.Package)
	}
	if o.NoDefaultFeatures {
		args = append(args, "--no-default-features")
	}
	if len(o.Features) > 0 {
		args = append(args, "--features", strings.Join(o.Features, ","))
	}
	return args
}

// Builder compiles a package and reports its artifacts.
type Builder interface {
	Build(ctx context.Context, opts Options) (*Result, error)
}

// RunFunc runs a command with the given output streams.
type RunFunc func(ctx context.Context, stdout, stderr io.Writer, name string, args ...string) error

// CargoBuilder runs `cargo build`.
type CargoBuilder struct {
	Cargo string
	Run   RunFunc
	// Progress receives the output of the plain build; nil discards it.
	Progress io.Writer
	Logger   *log.Logger
}

// NewCargoBuilder returns a builder streaming build progress to progress.
func NewCargoBuilder(progress io.Writer, logger *log.Logger) *CargoBuilder {
	if logger == nil {
		logger = log.Default()
	}
	cargo := os.Getenv("CARGO")
	if cargo == "" {
		cargo = "cargo"
	}
	return &CargoBuilder{Cargo: cargo, Run: runCommand, Progress: progress, Logger: logger}
}

// Build runs the plain build, then the JSON-message build, and returns the
// artifacts of the latter.
func (b *CargoBuilder) Build(ctx context.Context, opts Options) (*Result, error) {
	progress := b.Progress
	if progress == nil {
		progress = io.Discard
	}
	args := opts.args()

	start := time.Now()
	err := observability.RunCommand(ctx, b.Cargo, args, func() error {
		return b.Run(ctx, progress, progress, b.Cargo, args...)
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBuildInvocation, err, "%s %s", b.Cargo, strings.Join(args, " "))
	}

	jsonArgs := append(opts.args(), "--message-format=json-render-diagnostics")
	var stdout, stderr bytes.Buffer
	err = observability.RunCommand(ctx, b.Cargo, jsonArgs, func() error {
		return b.Run(ctx, &stdout, &stderr, b.Cargo, jsonArgs...)
	})
	if err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			err = errors.Wrap(errors.ErrCodeBuildInvocation, err, "%s", msg)
		}
		return nil, errors.Wrap(errors.ErrCodeBuildInvocation, err, "%s %s", b.Cargo, strings.Join(jsonArgs, " "))
	}

	res, err := ParseMessages(&stdout)
	if err != nil {
		return nil, err
	}
	if _, ok := res.Main(); !ok {
		return nil, errors.New(errors.ErrCodeBuildInvocation, "cargo reported no compiler artifacts")
	}
	b.Logger.Debug("build finished", "artifacts", len(res.Artifacts), "duration", time.Since(start).Round(time.Millisecond))
	return res, nil
}

func runCommand(ctx context.Context, stdout, stderr io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// Static returns a fixed result.
type Static struct {
	Result *Result
	Err    error
	Calls  []Options
}

// Build implements Builder.
func (s *Static) Build(ctx context.Context, opts Options) (*Result, error) {
	s.Calls = append(s.Calls, opts)
	return s.Result, s.Err
}

var (
	_ Builder = (*CargoBuilder)(nil)
	_ Builder = (*Static)(nil)
)
