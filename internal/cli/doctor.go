package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/dht-tools/dht/internal/detect"
	"github.com/dht-tools/dht/internal/guardian"
	"github.com/dht-tools/dht/internal/toolchain"
)

// HealthStatus represents the overall health status.
type HealthStatus string

const (
	// HealthStatusHealthy indicates all checks passed.
	HealthStatusHealthy HealthStatus = "healthy"
	// HealthStatusDegraded indicates some non-critical checks failed.
	HealthStatusDegraded HealthStatus = "degraded"
	// HealthStatusUnhealthy indicates critical checks failed.
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// DoctorReport contains the full environment check results.
type DoctorReport struct {
	Status      HealthStatus           `json:"status"`
	Version     string                 `json:"version"`
	Timestamp   time.Time              `json:"timestamp"`
	System      *SystemReport          `json:"system,omitempty"`
	Project     *detect.Detection      `json:"project,omitempty"`
	Tools       []toolchain.ToolStatus `json:"tools"`
	Environment map[string]string      `json:"environment,omitempty"`
}

// SystemReport renders the system pre-check.
type SystemReport struct {
	AvailableMemoryMB float64 `json:"available_memory_mb"`
	CPULoadPercent    float64 `json:"cpu_load_percent"`
	FitsBudget        bool    `json:"fits_budget"`
}

var doctorDir string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the development environment and its tools",
	Long: `Inspect the host and project for problems.

This command checks:
  - System headroom against the configured guardian budget
  - Project type detection (pyproject, lockfiles, Dockerfile, workflows)
  - Availability and versions of every registered tool (probed in
    parallel, each probe itself resource-guarded)

Exit codes:
  0 - All checks passed (healthy)
  1 - Some tools missing or system is tight (degraded)
  2 - Guarded probing is not functional (unhealthy)`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().StringVarP(&doctorDir, "dir", "d", ".", "project directory to inspect")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	report := &DoctorReport{
		Status:    HealthStatusHealthy,
		Version:   versionInfo.Version,
		Timestamp: time.Now().UTC(),
		Environment: map[string]string{
			"go_version": runtime.Version(),
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
		},
	}

	report.System = checkSystem()
	if report.System != nil && !report.System.FitsBudget {
		report.Status = HealthStatusDegraded
	}

	if detection, err := detect.Detect(doctorDir); err != nil {
		logger.Warn("project detection failed", "dir", doctorDir, "error", err)
		report.Status = HealthStatusDegraded
	} else {
		report.Project = detection
	}

	runner, err := newRunner()
	if err != nil {
		return err
	}
	tools, err := runner.ProbeAll(cmd.Context())
	if err != nil {
		// Probing itself broke: the guardian cannot supervise anything.
		report.Status = HealthStatusUnhealthy
		logger.Error("tool probing failed", "error", err)
	} else {
		report.Tools = tools
		for _, t := range tools {
			if !t.Present && report.Status == HealthStatusHealthy {
				report.Status = HealthStatusDegraded
			}
		}
	}

	if outputJSON {
		if err := outputDoctorJSON(report); err != nil {
			return err
		}
	} else {
		outputDoctorText(report)
	}

	return exitWithStatus(report.Status)
}

// checkSystem runs the non-blocking system pre-check against the base
// budget. Unknown readings count as fitting.
func checkSystem() *SystemReport {
	resources, err := guardian.CheckSystemResources()
	if err != nil {
		logger.Debug("system pre-check unavailable", "error", err)
		return nil
	}
	return &SystemReport{
		AvailableMemoryMB: resources.AvailableMemoryMB,
		CPULoadPercent:    resources.CPULoadPercent,
		FitsBudget:        resources.HasCapacityFor(cfg.Guardian.Policy()),
	}
}

func outputDoctorJSON(report *DoctorReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func outputDoctorText(report *DoctorReport) {
	fmt.Println(styles.Title.Render("dht doctor"))
	fmt.Println()

	switch report.Status {
	case HealthStatusHealthy:
		fmt.Println(styles.Success.Render("● environment is healthy"))
	case HealthStatusDegraded:
		fmt.Println(styles.Warning.Render("● environment is degraded"))
	case HealthStatusUnhealthy:
		fmt.Println(styles.Error.Render("● environment is unhealthy"))
	}
	fmt.Println()

	if report.System != nil {
		fmt.Println(styles.Bold.Render("System"))
		fmt.Printf("  available memory: %.0f MB\n", report.System.AvailableMemoryMB)
		if report.System.CPULoadPercent >= 0 {
			fmt.Printf("  cpu load: %.0f%%\n", report.System.CPULoadPercent)
		}
		if !report.System.FitsBudget {
			fmt.Println("  " + styles.Warning.Render(fmt.Sprintf(
				"tight for the configured %d MB budget", cfg.Guardian.MemoryMB)))
		}
		fmt.Println()
	}

	if report.Project != nil {
		fmt.Println(styles.Bold.Render("Project"))
		fmt.Printf("  %s\n", report.Project.Summary())
		if report.Project.PythonRequires != "" {
			fmt.Printf("  python requires: %s\n", report.Project.PythonRequires)
		}
		fmt.Println()
	}

	fmt.Println(styles.Bold.Render("Tools"))
	for _, t := range report.Tools {
		if t.Present {
			version := "present"
			if t.Version != nil {
				version = t.Version.String()
			}
			fmt.Printf("  %s %-10s %s\n", styles.Success.Render("✓"), t.Name, styles.Subtle.Render(version))
			continue
		}
		fmt.Printf("  %s %-10s %s\n", styles.Error.Render("✗"), t.Name, styles.Subtle.Render("missing"))
		if t.Hint != "" {
			fmt.Printf("    %s\n", styles.Subtle.Render(t.Hint))
		}
	}
}

func exitWithStatus(status HealthStatus) error {
	switch status {
	case HealthStatusHealthy:
		return nil
	case HealthStatusDegraded:
		os.Exit(1)
	case HealthStatusUnhealthy:
		os.Exit(2)
	}
	return nil
}
