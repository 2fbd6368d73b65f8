package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"flux/internal/diag"
	"flux/internal/driver"
	"flux/internal/farm"
	"flux/internal/observ"
	"flux/internal/project"
)

const noFluxTomlMessage = "no flux.toml found\nrun the build from inside a project, e.g.:\n  flux build path/to/project"

var buildCmd = &cobra.Command{
	Use:   "build [path]",
	Short: "Incrementally compile a flux project",
	Long:  "Compile the sources of a flux project, recompiling only files whose contents, dependencies, or external resources changed since the last build.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().Bool("force", false, "recompile every source")
	buildCmd.Flags().Bool("verbose", false, "print each compiled file")
	buildCmd.Flags().Bool("all-warnings", false, "re-emit warnings from unchanged sources")
	buildCmd.Flags().Int("jobs", 0, "parallel compile jobs (0 = number of CPUs)")
	buildCmd.Flags().Int("long-compilation-threshold", 10, "seconds before a file is reported as slow")
	buildCmd.Flags().String("ui", "auto", "progress user interface (auto|on|off)")
	buildCmd.Flags().String("front", farm.DefaultBinary, "front-end compiler binary")
}

func runBuild(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	verbose, _ := cmd.Flags().GetBool("verbose")
	allWarnings, _ := cmd.Flags().GetBool("all-warnings")
	jobs, _ := cmd.Flags().GetInt("jobs")
	threshold, _ := cmd.Flags().GetInt("long-compilation-threshold")
	uiMode, _ := cmd.Flags().GetString("ui")
	frontBinary, _ := cmd.Flags().GetString("front")
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	timings, _ := cmd.Root().PersistentFlags().GetBool("timings")
	colorMode, _ := cmd.Root().PersistentFlags().GetString("color")
	applyColorMode(colorMode)

	baseDir := "."
	if len(args) > 0 && args[0] != "" {
		baseDir = args[0]
	}
	proj, ok, err := project.Load(baseDir)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(noFluxTomlMessage)
	}

	if err := farm.LookupBinary(frontBinary); err != nil {
		return err
	}
	front := farm.NewExec(frontBinary)

	dest := proj.Dest()
	if err := os.MkdirAll(dest, 0o750); err != nil {
		return fmt.Errorf("failed to create compile dir: %w", err)
	}

	var timer *observ.Timer
	if timings {
		timer = observ.NewTimer()
	}

	makeOptions := func(sink driver.ProgressSink) driver.Options {
		return driver.Options{
			Manifest:                 proj.BuildManifest(),
			Dest:                     dest,
			Root:                     proj.Root,
			Roots:                    proj.Config.Build.Src,
			Extensions:               proj.Config.Build.Extensions,
			Force:                    force,
			AllWarnings:              allWarnings,
			LongCompilationThreshold: time.Duration(threshold) * time.Second,
			Deps:                     proj.ScanDeps(),
			Compiler:                 farm.New(front, proj.Root, jobs, sink),
			Tracker:                  front,
			Info:                     front,
			Progress:                 sink,
			Timer:                    timer,
		}
	}

	var (
		status driver.Status
		diags  []diag.Diagnostic
	)
	if shouldUseUI(uiMode, quiet) {
		status, diags, err = runBuildWithUI(cmd, "flux build", makeOptions)
	} else {
		sink := &printSink{verbose: verbose, quiet: quiet, threshold: threshold}
		status, diags, err = driver.Compile(cmd.Context(), makeOptions(sink))
	}

	printDiagnostics(os.Stderr, diags)
	if timer != nil {
		if summary := timer.Summary(); summary != "" {
			fmt.Fprint(os.Stdout, summary)
		}
	}
	if err != nil {
		return err
	}

	switch status {
	case driver.StatusOk:
		if !quiet {
			fmt.Fprintln(os.Stdout, "build succeeded")
		}
	case driver.StatusNoop:
		if !quiet {
			fmt.Fprintln(os.Stdout, "nothing to compile")
		}
	case driver.StatusError:
		return errors.New("build failed")
	}
	return nil
}

// shouldUseUI decides whether the Bubble Tea progress view runs.
func shouldUseUI(mode string, quiet bool) bool {
	switch mode {
	case "on":
		return true
	case "off":
		return false
	default:
		return !quiet && isTerminal(os.Stdout)
	}
}
