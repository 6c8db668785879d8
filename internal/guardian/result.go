package guardian

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// KilledReturnCode is the sentinel exit code reported when the guardian
// forcibly terminated the process tree.
const KilledReturnCode = -1

// KillReason identifies which ceiling triggered a forced termination.
type KillReason string

const (
	// KillNone means the process exited on its own.
	KillNone KillReason = ""
	// KillMemory means the aggregate RSS crossed the memory ceiling.
	KillMemory KillReason = "memory_exceeded"
	// KillTimeout means the wall-clock timeout elapsed.
	KillTimeout KillReason = "timeout_exceeded"
	// KillCPU means CPU utilization stayed above the ceiling across
	// consecutive samples.
	KillCPU KillReason = "cpu_sustained_exceeded"
)

var titler = cases.Title(language.English)

// Label returns a short human-readable label, e.g. "Memory Exceeded".
func (r KillReason) Label() string {
	switch r {
	case KillMemory:
		return titler.String("memory exceeded")
	case KillTimeout:
		return titler.String("timeout exceeded")
	case KillCPU:
		return titler.String("cpu sustained exceeded")
	default:
		return ""
	}
}

// Diagnostic renders the kill reason as a plain-language message against
// the policy that was in force.
func (r KillReason) Diagnostic(policy LimitPolicy) string {
	switch r {
	case KillMemory:
		return fmt.Sprintf("terminated: exceeded memory limit of %dMB", policy.MemoryMB)
	case KillTimeout:
		return fmt.Sprintf("terminated: exceeded time limit of %s", policy.Timeout)
	case KillCPU:
		return fmt.Sprintf("terminated: CPU above %d%% for %d consecutive samples",
			policy.CPUPercent, policy.sustainedPolls())
	default:
		return ""
	}
}

// Result is the outcome of one guarded run. It is created exactly once,
// after the OS has confirmed the process tree is gone, and never mutated.
type Result struct {
	// ReturnCode is the process exit code, or KilledReturnCode if the
	// guardian terminated the process tree.
	ReturnCode int
	// Stdout and Stderr hold the captured output up to termination.
	Stdout string
	Stderr string
	// ExecutionTime is wall-clock time from spawn to confirmed exit.
	ExecutionTime time.Duration
	// PeakMemoryMB is the maximum aggregate RSS observed across samples.
	PeakMemoryMB float64
	// Killed reports whether the guardian forced termination.
	Killed bool
	// Reason identifies the ceiling that triggered the kill, if any.
	Reason KillReason
}

// Success reports whether the command ran to completion with exit code 0.
func (r *Result) Success() bool {
	return r.ReturnCode == 0 && !r.Killed
}

// String summarizes the result for logs.
func (r *Result) String() string {
	if r.Killed {
		return fmt.Sprintf("killed reason=%s after %s peak_mem=%.1fMB",
			r.Reason, r.ExecutionTime.Round(time.Millisecond), r.PeakMemoryMB)
	}
	return fmt.Sprintf("exit code=%d after %s peak_mem=%.1fMB",
		r.ReturnCode, r.ExecutionTime.Round(time.Millisecond), r.PeakMemoryMB)
}
