package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"flux/internal/driver"
	"flux/internal/project"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [path]",
	Short: "Remove compiled artifacts and the build manifest",
	Long:  "Delete every artifact listed in the build manifest, then the manifest itself. The next build starts from scratch.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")

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

	manifestPath := proj.BuildManifest()
	driver.Clean(manifestPath, proj.Dest())
	if err := os.Remove(manifestPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove manifest %q: %w", manifestPath, err)
	}
	if !quiet {
		fmt.Fprintln(os.Stdout, "cleaned")
	}
	return nil
}
