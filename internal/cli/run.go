package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/dht-tools/dht/internal/guardian"
	"github.com/dht-tools/dht/internal/toolchain"
	"github.com/dht-tools/dht/internal/ui"
)

// killedExitCode is what dht itself exits with when the guardian killed
// the command, mirroring coreutils timeout(1).
const killedExitCode = 124

// watchDebounce coalesces filesystem event bursts into one re-run.
const watchDebounce = 500 * time.Millisecond

var (
	runMemoryMB  int
	runCPU       int
	runTimeout   time.Duration
	runClass     string
	runDir       string
	runWatch     bool
	runRetry     bool
	runNoCapture bool
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <command> [args...]",
	Short: "Run a command under resource limits",
	Long: `Run an arbitrary command under the process guardian.

The command and its whole process tree are watched against wall-clock,
memory, and CPU ceilings; on a breach the tree receives SIGTERM, then
SIGKILL after a grace window. The command is executed directly, without
a shell.

Flags override the configured budget for this invocation. --class picks
which configured operation budget (probe, install, build, run) to start
from.

Exit codes:
  0    command succeeded
  124  a resource limit killed the command, or a signal did
  *    the command's own exit code otherwise`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runMemoryMB, "memory-mb", 0, "memory ceiling in MB (overrides config)")
	runCmd.Flags().IntVar(&runCPU, "cpu-percent", 0, "sustained CPU ceiling in percent (overrides config)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "wall-clock ceiling, e.g. 90s or 15m (overrides config)")
	runCmd.Flags().StringVar(&runClass, "class", "run", "operation budget to start from (probe, install, build, run)")
	runCmd.Flags().StringVarP(&runDir, "dir", "d", "", "working directory for the command")
	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false, "re-run the command when files under --dir change")
	runCmd.Flags().BoolVar(&runRetry, "retry", false, "retry timeout kills and transient spawn failures with backoff")
	runCmd.Flags().BoolVar(&runNoCapture, "no-capture", false, "suppress echoing captured stdout/stderr")

	rootCmd.AddCommand(runCmd)
}

// runReport is the JSON rendering of a guarded run.
type runReport struct {
	Argv          []string            `json:"argv"`
	ReturnCode    int                 `json:"return_code"`
	Killed        bool                `json:"killed"`
	Reason        guardian.KillReason `json:"reason,omitempty"`
	Diagnostic    string              `json:"diagnostic,omitempty"`
	ExecutionMS   int64               `json:"execution_ms"`
	PeakMemoryMB  float64             `json:"peak_memory_mb"`
	Stdout        string              `json:"stdout,omitempty"`
	Stderr        string              `json:"stderr,omitempty"`
}

func runRun(cmd *cobra.Command, args []string) error {
	policy, err := resolveRunPolicy()
	if err != nil {
		return err
	}

	command := guardian.Command{Argv: args, Dir: runDir}

	if runWatch {
		return watchAndRun(cmd.Context(), command, policy)
	}

	result, err := executeGuarded(cmd.Context(), command, policy)
	if err != nil {
		return err
	}

	emitRunResult(command, policy, result)

	if code := runExitCode(result); code != 0 {
		os.Exit(code)
	}
	return nil
}

// runExitCode maps a run outcome to dht's own exit status. Negative
// return codes (the child died to a signal outside the guardian's
// control) would otherwise wrap around in os.Exit, so they get the
// killed code too.
func runExitCode(result *guardian.Result) int {
	if result.Killed || result.ReturnCode < 0 {
		return killedExitCode
	}
	return result.ReturnCode
}

// resolveRunPolicy layers per-invocation flags over the configured budget
// for the selected operation class.
func resolveRunPolicy() (guardian.LimitPolicy, error) {
	var class toolchain.OpClass
	switch runClass {
	case "probe":
		class = toolchain.ClassProbe
	case "install":
		class = toolchain.ClassInstall
	case "build":
		class = toolchain.ClassBuild
	case "run":
		class = toolchain.ClassRun
	default:
		return guardian.LimitPolicy{}, fmt.Errorf("unknown operation class %q (want probe, install, build, or run)", runClass)
	}

	policy := cfg.PolicySet().For(class)
	if runMemoryMB > 0 {
		policy.MemoryMB = runMemoryMB
	}
	if runCPU > 0 {
		policy.CPUPercent = runCPU
	}
	if runTimeout > 0 {
		policy.Timeout = runTimeout
	}
	return policy, policy.Validate()
}

// executeGuarded runs the command once, with a pre-flight capacity check
// and an optional spinner for interactive sessions.
func executeGuarded(ctx context.Context, command guardian.Command, policy guardian.LimitPolicy) (*guardian.Result, error) {
	warnOnLowCapacity(policy)

	g := newGuardian()

	run := func() (*guardian.Result, error) {
		if runRetry {
			return guardian.NewRetrier(g, cfg.Retry.Guardian()).Run(ctx, command, policy)
		}
		return g.Run(ctx, command, policy)
	}

	if !interactive() {
		return run()
	}

	var result *guardian.Result
	title := strings.Join(command.Argv, " ")
	_, err := ui.RunTask(title, func() (string, error) {
		r, err := run()
		if err != nil {
			return "", err
		}
		result = r
		return r.String(), nil
	})
	return result, err
}

// warnOnLowCapacity logs when the host looks too loaded for the budget.
// Unknown readings stay quiet: the check must never block a run.
func warnOnLowCapacity(policy guardian.LimitPolicy) {
	resources, err := guardian.CheckSystemResources()
	if err != nil {
		logger.Debug("system pre-check unavailable", "error", err)
		return
	}
	if !resources.HasCapacityFor(policy) {
		logger.Warn("system resources look tight for this budget",
			"available_mb", fmt.Sprintf("%.0f", resources.AvailableMemoryMB),
			"load_percent", fmt.Sprintf("%.0f", resources.CPULoadPercent),
			"budget_mb", policy.MemoryMB)
	}
}

// interactive reports whether run output should go through the spinner UI.
func interactive() bool {
	return !outputJSON && !ciMode && cfg.Output.Color
}

// emitRunResult prints the outcome in the selected format and echoes
// captured output.
func emitRunResult(command guardian.Command, policy guardian.LimitPolicy, result *guardian.Result) {
	if outputJSON {
		report := runReport{
			Argv:         command.Argv,
			ReturnCode:   result.ReturnCode,
			Killed:       result.Killed,
			Reason:       result.Reason,
			Diagnostic:   result.Reason.Diagnostic(policy),
			ExecutionMS:  result.ExecutionTime.Milliseconds(),
			PeakMemoryMB: result.PeakMemoryMB,
			Stdout:       result.Stdout,
			Stderr:       result.Stderr,
		}
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			logger.Error("failed to marshal run report", "error", err)
			return
		}
		fmt.Println(string(data))
		return
	}

	if !runNoCapture {
		if result.Stdout != "" {
			fmt.Print(result.Stdout)
		}
		if result.Stderr != "" {
			fmt.Fprint(os.Stderr, result.Stderr)
		}
	}

	switch {
	case result.Killed:
		fmt.Fprintln(os.Stderr, styles.Error.Render(result.Reason.Diagnostic(policy)))
		fmt.Fprintln(os.Stderr, styles.Subtle.Render(result.String()))
	case result.ReturnCode != 0:
		fmt.Fprintln(os.Stderr, styles.Warning.Render(fmt.Sprintf("command exited with code %d", result.ReturnCode)))
	default:
		logger.Debug("run complete", "result", result.String())
	}
}

// watchAndRun re-executes the command whenever files under the working
// directory change. Limit kills and non-zero exits are reported but do not
// stop the loop; only a spawn failure or context cancellation ends it.
func watchAndRun(ctx context.Context, command guardian.Command, policy guardian.LimitPolicy) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	root := command.Dir
	if root == "" {
		root = "."
	}
	if err := addWatchTree(watcher, root); err != nil {
		return err
	}

	runOnce := func() error {
		result, err := executeGuarded(ctx, command, policy)
		if err != nil {
			return err
		}
		emitRunResult(command, policy, result)
		return nil
	}

	if err := runOnce(); err != nil {
		return err
	}
	logger.Info("watching for changes", "dir", root)

	var debounce *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories join the watch set.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !skipDir(filepath.Base(event.Name)) {
					_ = watcher.Add(event.Name)
				}
			}
			logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)

		case <-pending:
			if err := runOnce(); err != nil {
				return err
			}
			logger.Info("watching for changes", "dir", root)
		}
	}
}

// addWatchTree registers root and its subdirectories with the watcher,
// skipping vendor-ish trees that churn constantly.
func addWatchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root && skipDir(entry.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// skipDir filters directories that should not trigger re-runs.
func skipDir(name string) bool {
	switch name {
	case ".git", "node_modules", ".venv", "venv", "__pycache__", ".tox", "dist", "build":
		return true
	}
	return false
}
