package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pykeio/cargo-no-std/pkg/pipeline"
)

// checkCommand creates the command running only the source check.
func (c *CLI) checkCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check crate sources for no_std attributes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			runner, err := c.newRunner(cfg)
			if err != nil {
				return err
			}
			report, err := c.check(cmd, runner, cfg.Options())
			if err != nil {
				return err
			}
			if report.Failed {
				c.printUnverified(cmd)
				return &ExitError{Code: ExitFailure}
			}
			return nil
		},
	}
}

// verifyCommand creates the command running only the binary verification.
func (c *CLI) verifyCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Build the crate and search its artifacts for std",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			if !c.capability().Available() {
				return fmt.Errorf("%s", msgVerifyDisabled)
			}
			runner, err := c.newRunner(cfg)
			if err != nil {
				return err
			}
			report, err := c.verify(cmd, runner, cfg.Options(), nil)
			if err != nil {
				return err
			}
			if report.Failed() {
				return &ExitError{Code: ExitFailure}
			}
			return nil
		},
	}
}

// runAll checks, then verifies unless disabled. The run fails when a crate
// has no no_std attribute or the package under test links std.
func (c *CLI) runAll(cmd *cobra.Command, f *flags) error {
	cfg, err := f.load(cmd)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(cfg)
	if err != nil {
		return err
	}
	opts := cfg.Options()

	report, err := c.check(cmd, runner, opts)
	if err != nil {
		return err
	}
	failed := report.Failed

	switch {
	case cfg.NoVerify:
		c.Logger.Debug("verification disabled")
	case !c.capability().Available():
		if failed {
			c.printUnverified(cmd)
		}
	default:
		fmt.Fprintln(cmd.OutOrStdout())
		vr, err := c.verify(cmd, runner, opts, report.Plan)
		if err != nil {
			return err
		}
		failed = failed || vr.Failed()
	}

	if failed {
		return &ExitError{Code: ExitFailure}
	}
	return nil
}

func (c *CLI) check(cmd *cobra.Command, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.CheckReport, error) {
	out := cmd.OutOrStdout()
	prog := newProgress(c.Logger)

	spin := c.startSpinner(cmd, "Resolving features")
	plan, err := runner.Plan(cmd.Context(), opts)
	spin.Stop()
	if err != nil {
		return nil, err
	}

	report, err := runner.CheckPlan(cmd.Context(), plan)
	if err != nil {
		return nil, err
	}
	printHeading(out, msgCheckHeading)
	printCheckReport(out, report)
	prog.done(fmt.Sprintf("Checked %d packages", len(report.Packages)))
	return report, nil
}

func (c *CLI) verify(cmd *cobra.Command, runner *pipeline.Runner, opts pipeline.Options, plan *pipeline.Plan) (*pipeline.VerifyReport, error) {
	out := cmd.OutOrStdout()
	prog := newProgress(c.Logger)

	printHeading(out, msgVerifyHeading)
	report, err := runner.Verify(cmd.Context(), opts, plan)
	if err != nil {
		return nil, err
	}
	printVerifyReport(out, report)
	prog.done(fmt.Sprintf("Verified %d artifacts", len(report.Artifacts)))
	return report, nil
}

func (c *CLI) printUnverified(cmd *cobra.Command) {
	if notice := c.capability().Notice(); notice != "" {
		printNotice(cmd.OutOrStdout(), notice)
	}
}
