package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"flux/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show flux build information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		full, err := cmd.Flags().GetBool("full")
		if err != nil {
			return err
		}
		v := strings.TrimSpace(version.Version)
		if v == "" {
			v = "dev"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "flux %s\n", v)
		if full {
			fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\n", valueOrUnknown(version.GitCommit))
			fmt.Fprintf(cmd.OutOrStdout(), "built:  %s\n", valueOrUnknown(version.BuildDate))
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("full", false, "include commit hash and build date")
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
