package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dht-tools/dht/internal/snapshot"
	"github.com/dht-tools/dht/internal/ui"
)

var (
	envOutput string
	envDir    string
	envReview bool
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Capture and compare environment snapshots",
	Long: `Record the current development environment to a YAML snapshot, or
compare the current environment against a previously written one.

A snapshot holds the platform, detected project types, probed tool
versions, git state, and an allowlisted set of environment variables.`,
}

var envSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Write an environment snapshot",
	RunE:  runEnvSnapshot,
}

var envDiffCmd = &cobra.Command{
	Use:   "diff <snapshot-file>",
	Short: "Compare the current environment against a snapshot",
	Long: `Capture the environment now and report what drifted relative to the
given snapshot file.

With --review, drift opens an interactive screen where accepting the
current environment rewrites the snapshot file as the new baseline.

Exit codes:
  0 - environments match, or drift was accepted in review
  1 - drift detected`,
	Args: cobra.ExactArgs(1),
	RunE: runEnvDiff,
}

var envShowCmd = &cobra.Command{
	Use:   "show <snapshot-file>",
	Short: "Print a snapshot file",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnvShow,
}

func init() {
	envCmd.PersistentFlags().StringVarP(&envDir, "dir", "d", ".", "project directory to capture")
	envSnapshotCmd.Flags().StringVarP(&envOutput, "output", "o", "", "snapshot file (default: snapshot.file from config)")
	envDiffCmd.Flags().BoolVar(&envReview, "review", false, "review drift interactively and optionally update the baseline")

	envCmd.AddCommand(envSnapshotCmd)
	envCmd.AddCommand(envDiffCmd)
	envCmd.AddCommand(envShowCmd)
	rootCmd.AddCommand(envCmd)
}

// captureCurrent assembles a snapshot of the environment right now.
func captureCurrent(cmd *cobra.Command) (*snapshot.Snapshot, error) {
	runner, err := newRunner()
	if err != nil {
		return nil, err
	}
	capturer := snapshot.NewCapturer(runner, logger)
	return capturer.Capture(cmd.Context(), envDir, cfg.Snapshot.EnvAllowlist)
}

func runEnvSnapshot(cmd *cobra.Command, args []string) error {
	path := envOutput
	if path == "" {
		path = cfg.Snapshot.File
	}

	snap, err := captureCurrent(cmd)
	if err != nil {
		return err
	}
	if err := snapshot.Save(snap, path); err != nil {
		return err
	}

	if outputJSON {
		return printJSON(snap)
	}
	fmt.Println(styles.Success.Render("✓ snapshot written to " + path))
	fmt.Printf("  %d tools probed, %d env vars recorded\n", len(snap.Tools), len(snap.Env))
	return nil
}

func runEnvDiff(cmd *cobra.Command, args []string) error {
	before, err := snapshot.Load(args[0])
	if err != nil {
		return err
	}

	after, err := captureCurrent(cmd)
	if err != nil {
		return err
	}

	report := snapshot.Diff(before, after)

	if envReview && !report.Empty() && interactive() {
		return reviewDrift(before, after, report, args[0])
	}

	if outputJSON {
		if err := printJSON(report); err != nil {
			return err
		}
	} else if report.Empty() {
		fmt.Println(styles.Success.Render("✓ " + report.String()))
	} else {
		fmt.Println(styles.Warning.Render(fmt.Sprintf("%d differences against %s", len(report.Changes), args[0])))
		for _, change := range report.Changes {
			fmt.Printf("  %s\n", change.String())
		}
	}

	if !report.Empty() {
		os.Exit(1)
	}
	return nil
}

// reviewDrift shows the interactive drift screen. Accepting replaces the
// baseline file with the freshly captured snapshot.
func reviewDrift(before, after *snapshot.Snapshot, report *snapshot.DiffReport, path string) error {
	changes := make([]string, len(report.Changes))
	for i, change := range report.Changes {
		changes[i] = change.String()
	}

	decision, err := ui.RunDriftReview(ui.DriftSummary{
		BaselinePath:    path,
		BaselineTakenAt: before.TakenAt.Format("2006-01-02 15:04"),
		Changes:         changes,
	})
	if err != nil {
		return err
	}

	if decision == ui.DriftAccepted {
		if err := snapshot.Save(after, path); err != nil {
			return err
		}
		fmt.Println(styles.Success.Render("✓ baseline updated: " + path))
		return nil
	}

	fmt.Println(styles.Warning.Render(fmt.Sprintf("%d differences kept against %s", len(report.Changes), path)))
	os.Exit(1)
	return nil
}

func runEnvShow(cmd *cobra.Command, args []string) error {
	snap, err := snapshot.Load(args[0])
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(snap)
	}

	data, err := yaml.Marshal(snap)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

// printJSON renders any value as indented JSON on stdout.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
