// Package guardian supervises external commands under resource ceilings.
//
// A Guardian spawns a command, watches the aggregate memory and CPU of the
// resulting process tree, and terminates the tree with a graceful-then-forceful
// escalation when a ceiling is crossed or the wall-clock timeout elapses.
package guardian

import (
	"time"

	errs "github.com/dht-tools/dht/internal/errors"
)

// DefaultCPUSustainedPolls is how many consecutive over-ceiling CPU samples
// are required before a kill. A single sample never kills: bursty workloads
// routinely spike one poll.
const DefaultCPUSustainedPolls = 3

// LimitPolicy is the immutable resource budget for one guarded run.
type LimitPolicy struct {
	// MemoryMB is the hard ceiling on aggregate RSS of the process tree.
	MemoryMB int
	// CPUPercent is the sustained ceiling on aggregate CPU utilization,
	// expressed as percent of one core.
	CPUPercent int
	// Timeout is the hard wall-clock ceiling from spawn to termination.
	Timeout time.Duration
	// PollInterval is the sampling cadence of the monitor loop.
	PollInterval time.Duration
	// CPUSustainedPolls is the number of consecutive breaching samples
	// required for a CPU kill. Zero means DefaultCPUSustainedPolls.
	CPUSustainedPolls int
}

// Validate checks the policy invariants.
func (p LimitPolicy) Validate() error {
	const op = "guardian.LimitPolicy.Validate"

	if p.MemoryMB <= 0 {
		return errs.Validation(op, "memory_mb must be positive")
	}
	if p.CPUPercent <= 0 {
		return errs.Validation(op, "cpu_percent must be positive")
	}
	if p.Timeout <= 0 {
		return errs.Validation(op, "timeout must be positive")
	}
	if p.PollInterval <= 0 {
		return errs.Validation(op, "poll_interval must be positive")
	}
	// Guarantees at least a few samples before the timeout fires.
	if p.PollInterval > p.Timeout/4 {
		return errs.Validation(op, "poll_interval must be at most a quarter of the timeout")
	}
	if p.CPUSustainedPolls < 0 {
		return errs.Validation(op, "cpu_sustained_polls must not be negative")
	}
	return nil
}

// sustainedPolls returns the effective CPU streak threshold.
func (p LimitPolicy) sustainedPolls() int {
	if p.CPUSustainedPolls == 0 {
		return DefaultCPUSustainedPolls
	}
	return p.CPUSustainedPolls
}

// DefaultPolicy is the base budget used across the toolkit.
func DefaultPolicy() LimitPolicy {
	return LimitPolicy{
		MemoryMB:     2048,
		CPUPercent:   80,
		Timeout:      900 * time.Second,
		PollInterval: time.Second,
	}
}

// InstallPolicy is the budget for dependency installs.
func InstallPolicy() LimitPolicy {
	p := DefaultPolicy()
	p.Timeout = 600 * time.Second
	return p
}

// BuildPolicy is the budget for project builds.
func BuildPolicy() LimitPolicy {
	return DefaultPolicy()
}

// ProbePolicy is the budget for quick version checks and similar
// short-lived invocations.
func ProbePolicy() LimitPolicy {
	return LimitPolicy{
		MemoryMB:     256,
		CPUPercent:   80,
		Timeout:      30 * time.Second,
		PollInterval: 200 * time.Millisecond,
	}
}
