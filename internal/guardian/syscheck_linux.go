//go:build linux

package guardian

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// sysinfoLoadScale converts Sysinfo fixed-point load averages (SI_LOAD_SHIFT).
const sysinfoLoadScale = 65536.0

func readSystemResources() (SystemResources, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return SystemResources{AvailableMemoryMB: -1, CPULoadPercent: -1}, err
	}

	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	freeBytes := (uint64(info.Freeram) + uint64(info.Bufferram)) * unit

	load1 := float64(info.Loads[0]) / sysinfoLoadScale
	cores := runtime.NumCPU()
	if cores < 1 {
		cores = 1
	}

	return SystemResources{
		AvailableMemoryMB: float64(freeBytes) / (1024 * 1024),
		CPULoadPercent:    load1 / float64(cores) * 100,
	}, nil
}
