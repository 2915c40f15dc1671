// Package cli implements the cargo-no-std command-line interface.
//
// The CLI is built using cobra and logs through charmbracelet/log. Verdict
// lines go to stdout; logs, spinners and cargo's own build output go to
// stderr.
//
// # Commands
//
//   - (root): check crate sources, then build and verify artifacts
//   - check: only the source check
//   - verify: only the build and artifact verification
//   - cache: manage the on-disk metadata cache
//
// Settings are read from cargo-no-std.toml and CARGO_NO_STD_* environment
// variables; flags take precedence over both.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. With debug
// logging, phase timings, cargo invocations and cache lookups are logged
// through the observability hooks.
package cli

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pykeio/cargo-no-std/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg at debug level along with the elapsed time since progress
// was created, e.g. "Checked 12 packages (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Debugf("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// RegisterHooks routes the observability hooks to the CLI logger.
func (c *CLI) RegisterHooks() {
	h := logHooks{logger: c.Logger}
	observability.SetPipelineHooks(h)
	observability.SetCommandHooks(h)
	observability.SetCacheHooks(h)
}

// logHooks logs observability events at debug level.
type logHooks struct {
	logger *log.Logger
}

func (h logHooks) OnPhaseStart(_ context.Context, phase, pkg string) {
	h.logger.Debug("phase started", "phase", phase, "package", pkg)
}

func (h logHooks) OnPhaseComplete(_ context.Context, phase, pkg string, count int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("phase failed", "phase", phase, "package", pkg, "err", err)
		return
	}
	h.logger.Debug("phase finished", "phase", phase, "package", pkg, "count", count, "duration", d.Round(time.Millisecond))
}

func (h logHooks) OnCommand(_ context.Context, name string, args []string) {
	h.logger.Debug("running", "cmd", name+" "+strings.Join(args, " "))
}

func (h logHooks) OnCommandComplete(_ context.Context, name string, _ []string, d time.Duration, err error) {
	h.logger.Debug("command finished", "cmd", name, "duration", d.Round(time.Millisecond), "err", err)
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache write", "type", keyType, "bytes", size)
}
