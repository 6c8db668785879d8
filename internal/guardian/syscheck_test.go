package guardian

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCapacityFor(t *testing.T) {
	policy := DefaultPolicy() // 2048 MB

	tests := []struct {
		name string
		res  SystemResources
		want bool
	}{
		{"plenty of everything", SystemResources{AvailableMemoryMB: 16000, CPULoadPercent: 10}, true},
		{"memory too tight", SystemResources{AvailableMemoryMB: 1024, CPULoadPercent: 10}, false},
		{"no headroom beyond ceiling", SystemResources{AvailableMemoryMB: 2100, CPULoadPercent: 10}, false},
		{"just enough with headroom", SystemResources{AvailableMemoryMB: 2048 + memoryHeadroomMB, CPULoadPercent: 10}, true},
		{"host saturated", SystemResources{AvailableMemoryMB: 16000, CPULoadPercent: 120}, false},
		{"unknown readings are permissive", SystemResources{AvailableMemoryMB: -1, CPULoadPercent: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.res.HasCapacityFor(policy))
		})
	}
}

func TestCheckSystemResources(t *testing.T) {
	res, err := CheckSystemResources()
	require.NoError(t, err)

	if runtime.GOOS == "linux" {
		assert.Greater(t, res.AvailableMemoryMB, 0.0)
		assert.GreaterOrEqual(t, res.CPULoadPercent, 0.0)
	}
}
