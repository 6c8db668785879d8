package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dht-tools/dht/internal/config"
	"github.com/dht-tools/dht/internal/ui/wizard"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Write a default .dhtconfig.yaml",
	Long: `Create a .dhtconfig.yaml with the default guardian budget,
per-operation overrides, retry settings, and snapshot options.

With --interactive, walk through project detection and budget selection
instead of writing the defaults.

Refuses to overwrite an existing config unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "run the setup wizard")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	if !initForce && config.ConfigExists(dir) {
		existing, _ := config.FindConfigFile(dir)
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", existing)
	}

	if initInteractive {
		return runInitWizard(dir)
	}

	path := filepath.Join(dir, config.ConfigFileNames[0]+"."+config.ConfigFileExtensions[0])
	if err := config.WriteDefaultConfig(path); err != nil {
		return err
	}

	fmt.Println(styles.Success.Render("✓ wrote " + path))
	fmt.Println(styles.Subtle.Render("  edit the guardian budget and tool list, then try 'dht doctor'"))
	return nil
}

func runInitWizard(dir string) error {
	result, err := wizard.Run(dir)
	if err != nil {
		return err
	}
	if result.State == wizard.StateQuit {
		fmt.Println(styles.Subtle.Render("setup cancelled, nothing written"))
	}
	return nil
}
