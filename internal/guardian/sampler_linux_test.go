//go:build linux

package guardian

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProcStat(t *testing.T) {
	pageMB := float64(os.Getpagesize()) / (1024 * 1024)

	t.Run("plain comm", func(t *testing.T) {
		line := "42 (sleep) S 1 42 42 0 -1 4194304 100 0 0 0 5 3 0 0 20 0 1 0 12345 1000000 250 18446744073709551615 0 0 0 0 0 0 0 0 0 0 0 0 17 0 0 0 0 0 0"
		st, err := parseProcStat(42, line, pageMB)
		require.NoError(t, err)
		assert.Equal(t, 42, st.pid)
		assert.Equal(t, 1, st.ppid)
		assert.Equal(t, 8.0, st.jiffies)
		assert.InDelta(t, 250*pageMB, st.rssMB, 0.001)
	})

	t.Run("comm with spaces and parens", func(t *testing.T) {
		line := "7 (tmux: server (x)) S 3 7 7 0 -1 4194304 100 0 0 0 10 20 0 0 20 0 1 0 12345 1000000 99 18446744073709551615 0 0 0 0 0 0 0 0 0 0 0 0 17 0 0 0 0 0 0"
		st, err := parseProcStat(7, line, pageMB)
		require.NoError(t, err)
		assert.Equal(t, 3, st.ppid)
		assert.Equal(t, 30.0, st.jiffies)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := parseProcStat(1, "garbage", pageMB)
		assert.ErrorIs(t, err, errMalformedStat)
	})

	t.Run("too few fields", func(t *testing.T) {
		_, err := parseProcStat(1, "1 (x) S 0 1 1", pageMB)
		assert.ErrorIs(t, err, errMalformedStat)
	})
}

func TestDescendantsOf(t *testing.T) {
	stats := map[int]procStat{
		100: {pid: 100, ppid: 1, rssMB: 10},
		101: {pid: 101, ppid: 100, rssMB: 20},
		102: {pid: 102, ppid: 101, rssMB: 30},
		200: {pid: 200, ppid: 1, rssMB: 99},
	}

	tree := descendantsOf(100, stats)
	require.Len(t, tree, 3)

	var total float64
	for _, st := range tree {
		total += st.rssMB
	}
	assert.Equal(t, 60.0, total)
}

func TestDescendantsOfMissingRoot(t *testing.T) {
	stats := map[int]procStat{200: {pid: 200, ppid: 1}}
	assert.Empty(t, descendantsOf(100, stats))
}

func TestSampleOwnProcess(t *testing.T) {
	s := newPlatformSampler(os.Getpid())

	first, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Greater(t, first.RSSMB, 0.0)
	// CPU needs a previous reading to derive a delta.
	assert.Equal(t, 0.0, first.CPUPercent)

	second, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Greater(t, second.RSSMB, 0.0)
	assert.GreaterOrEqual(t, second.CPUPercent, 0.0)
}

func TestSampleDeadRootIsZeroNotError(t *testing.T) {
	// Pid 1 is never a descendant root we own; use an implausible pid.
	s := newPlatformSampler(1 << 22)
	sample, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sample.RSSMB)
	assert.Zero(t, sample.CPUPercent)
}
