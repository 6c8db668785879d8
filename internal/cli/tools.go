package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dht-tools/dht/internal/toolchain"
	"github.com/dht-tools/dht/pkg/toolplugin"
)

// providerSpec converts a plugin-contributed definition to a registry spec.
func providerSpec(info toolplugin.Info, spec toolplugin.ToolSpec) toolchain.ToolSpec {
	out := toolchain.ToolSpec{
		Name:           spec.Name,
		Executable:     spec.Executable,
		VersionArgs:    spec.VersionArgs,
		VersionPattern: spec.VersionPattern,
		InstallHint:    spec.InstallHint,
		Source:         "plugin:" + info.Name,
	}
	if out.Executable == "" {
		out.Executable = out.Name
	}
	if len(out.VersionArgs) == 0 {
		out.VersionArgs = []string{"--version"}
	}
	return out
}

var (
	toolsProbe   bool
	toolsPlugins []string
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Manage the wrapped tool registry",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tools",
	Long: `List every tool the registry knows about: builtins, .dhtconfig
declarations, and definitions contributed by plugin providers.

With --probe, each tool's version command is run under the guardian and
the parsed version is shown.`,
	RunE: runToolsList,
}

func init() {
	toolsListCmd.Flags().BoolVar(&toolsProbe, "probe", false, "probe each tool for presence and version")
	toolsListCmd.Flags().StringArrayVar(&toolsPlugins, "plugin", nil, "tool provider plugin binary to load (repeatable)")

	toolsCmd.AddCommand(toolsListCmd)
	rootCmd.AddCommand(toolsCmd)
}

func runToolsList(cmd *cobra.Command, args []string) error {
	registry, err := newRegistry()
	if err != nil {
		return err
	}

	for _, path := range toolsPlugins {
		info, specs, err := toolplugin.Load(path)
		if err != nil {
			return err
		}
		logger.Debug("loaded tool provider", "plugin", info.Name, "version", info.Version, "tools", len(specs))
		for _, spec := range specs {
			if err := registry.Register(providerSpec(info, spec)); err != nil {
				return err
			}
		}
	}

	specs := registry.List()

	if toolsProbe {
		runner := newRunnerWith(registry)
		statuses, err := runner.ProbeAll(cmd.Context())
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(statuses)
		}
		for _, status := range statuses {
			if status.Present {
				version := "present"
				if status.Version != nil {
					version = status.Version.String()
				}
				fmt.Printf("%s %-12s %s\n", styles.Success.Render("✓"), status.Name, styles.Subtle.Render(version))
			} else {
				fmt.Printf("%s %-12s %s\n", styles.Error.Render("✗"), status.Name, styles.Subtle.Render("missing"))
			}
		}
		return nil
	}

	if outputJSON {
		return printJSON(specs)
	}
	for _, spec := range specs {
		fmt.Printf("%-12s %s %s\n", spec.Name,
			styles.Subtle.Render(spec.Executable),
			styles.Subtle.Render("("+spec.Source+")"))
	}
	return nil
}
