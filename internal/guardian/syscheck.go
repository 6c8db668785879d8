package guardian

// SystemResources is a point-in-time read of host-wide capacity, used by
// callers to refuse doomed work before spawning it.
type SystemResources struct {
	// AvailableMemoryMB is free plus reclaimable memory. Negative means
	// the platform could not report it.
	AvailableMemoryMB float64
	// CPULoadPercent is the one-minute load average normalized to the
	// core count, as a percentage. Negative means unknown.
	CPULoadPercent float64
}

// memoryHeadroomMB is kept free beyond a policy's ceiling so that starting
// a run never pushes the host itself into swap.
const memoryHeadroomMB = 256

// loadSaturationPercent is the normalized load above which the host is
// considered too busy to take on new guarded work.
const loadSaturationPercent = 95

// HasCapacityFor reports whether the host can plausibly accommodate a run
// with the given policy. Unknown readings are treated as permissive: the
// pre-check exists to fail fast, not to gate platforms it cannot measure.
func (s SystemResources) HasCapacityFor(policy LimitPolicy) bool {
	if s.AvailableMemoryMB >= 0 && s.AvailableMemoryMB < float64(policy.MemoryMB+memoryHeadroomMB) {
		return false
	}
	if s.CPULoadPercent >= 0 && s.CPULoadPercent > loadSaturationPercent {
		return false
	}
	return true
}

// CheckSystemResources reads host-wide memory and load. It never blocks
// and has no side effects.
func CheckSystemResources() (SystemResources, error) {
	return readSystemResources()
}
