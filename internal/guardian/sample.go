package guardian

import (
	"context"
	"time"
)

// Sample is one point-in-time reading of a process tree's resource use.
type Sample struct {
	// Taken is when the sample was read.
	Taken time.Time
	// RSSMB is the aggregate resident set size across the tree, in MB.
	RSSMB float64
	// CPUPercent is the aggregate CPU utilization across the tree,
	// in percent of one core. Zero on the first sample: utilization is
	// computed from the delta against the previous reading.
	CPUPercent float64
}

// TreeSampler reads the aggregate resource consumption of a root process
// and all of its live descendants. Implementations are pure reads of OS
// process-table state and keep only the bookkeeping needed to derive CPU
// deltas between calls.
//
// A sampler must not fail when the root process has already exited; it
// returns a zero Sample and lets the caller detect process death through
// the wait mechanism. Descendants that vanish between enumeration and
// measurement are skipped, not errors.
type TreeSampler interface {
	Sample(ctx context.Context) (Sample, error)
}

// SamplerFactory builds a TreeSampler for a freshly spawned root pid.
type SamplerFactory func(pid int) TreeSampler

// NewTreeSampler returns the platform sampler for the given root pid.
// On platforms without a native backend the sampler reports zero usage
// and the guardian still enforces the wall-clock timeout.
func NewTreeSampler(pid int) TreeSampler {
	return newPlatformSampler(pid)
}
