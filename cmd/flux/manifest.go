package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"flux/internal/driver"
	"flux/internal/manifest"
	"flux/internal/project"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest [path]",
	Short: "Dump the decoded build manifest",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runManifest,
}

func init() {
	manifestCmd.Flags().Bool("protocols", false, "only list protocol and impl records")
}

func runManifest(cmd *cobra.Command, args []string) error {
	protocolsOnly, _ := cmd.Flags().GetBool("protocols")
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

	manifestPath := proj.BuildManifest()
	if protocolsOnly {
		for _, m := range driver.ProtocolsAndImpls(manifestPath, proj.Dest()) {
			printModule(m)
		}
		return nil
	}

	modules, sources := driver.ReadManifest(manifestPath, proj.Dest())
	if len(modules) == 0 && len(sources) == 0 {
		fmt.Fprintln(os.Stdout, "no build manifest (run flux build first)")
		return nil
	}
	fmt.Fprintln(os.Stdout, "modules:")
	for _, m := range modules {
		printModule(m)
	}
	fmt.Fprintln(os.Stdout, "sources:")
	for _, s := range sources {
		fmt.Fprintf(os.Stdout, "  %s  size=%d", s.Path, s.Size)
		if len(s.CompileReferences) > 0 {
			fmt.Fprintf(os.Stdout, "  compile=[%s]", strings.Join(s.CompileReferences, " "))
		}
		if len(s.RuntimeReferences) > 0 {
			fmt.Fprintf(os.Stdout, "  runtime=[%s]", strings.Join(s.RuntimeReferences, " "))
		}
		if len(s.External) > 0 {
			fmt.Fprintf(os.Stdout, "  external=[%s]", strings.Join(s.External, " "))
		}
		fmt.Fprintln(os.Stdout)
	}
	return nil
}

func printModule(m manifest.Module) {
	kind := m.Kind.String()
	switch m.Kind {
	case manifest.KindProtocol:
		kind = color.MagentaString(kind)
	case manifest.KindImpl:
		kind = color.CyanString(kind) + " of " + m.Impl
	}
	fmt.Fprintf(os.Stdout, "  %s  %s  sources=[%s]\n", m.Name, kind, strings.Join(m.Sources, " "))
}
