package guardian

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/dht-tools/dht/internal/errors"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout kill sentinel", errTimeoutKill, true},
		{"context canceled", context.Canceled, false},
		{"transient spawn", errs.Spawn("guardian.Run", "fork: resource temporarily unavailable"), true},
		{"missing executable", errs.Spawn("guardian.Run", "cannot start command: executable file not found"), false},
		{"validation", errs.Validation("guardian.Run", "empty argument vector"), false},
		{"internal", errs.Internal("guardian.Run", "wait failed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestRetrierPassesThroughSuccess(t *testing.T) {
	skipOnWindows(t)

	r := NewRetrier(New(nil), DefaultRetryConfig())
	res, err := r.Run(context.Background(), Command{Argv: []string{"echo", "ok"}}, quickPolicy())
	require.NoError(t, err)
	assert.True(t, res.Success())
}

func TestRetrierDoesNotRetryNonZeroExit(t *testing.T) {
	skipOnWindows(t)

	r := NewRetrier(New(nil), DefaultRetryConfig())
	res, err := r.Run(context.Background(), Command{Argv: []string{"sh", "-c", "exit 4"}}, quickPolicy())
	require.NoError(t, err)
	assert.Equal(t, 4, res.ReturnCode)
	assert.False(t, res.Killed)
}

func TestRetrierDoesNotRetryMemoryKill(t *testing.T) {
	skipOnWindows(t)

	g := New(nil,
		WithGraceWindow(100*time.Millisecond),
		WithSamplerFactory(fakeSamplerFactory(Sample{RSSMB: 9000})),
	)
	r := NewRetrier(g, DefaultRetryConfig())

	start := time.Now()
	res, err := r.Run(context.Background(), Command{Argv: []string{"sleep", "10"}}, quickPolicy())
	require.NoError(t, err)

	assert.True(t, res.Killed)
	assert.Equal(t, KillMemory, res.Reason)
	// A retried memory kill would take several multiples of this.
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRetrierReturnsLastTimeoutKill(t *testing.T) {
	skipOnWindows(t)

	policy := LimitPolicy{
		MemoryMB:     512,
		CPUPercent:   80,
		Timeout:      400 * time.Millisecond,
		PollInterval: 100 * time.Millisecond,
	}
	g := New(nil, WithGraceWindow(100*time.Millisecond))
	r := NewRetrier(g, RetryConfig{
		MaxAttempts:  2,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
	})

	res, err := r.Run(context.Background(), Command{Argv: []string{"sleep", "5"}}, policy)
	require.NoError(t, err)

	assert.True(t, res.Killed)
	assert.Equal(t, KillTimeout, res.Reason)
}

func TestRetrierPropagatesSpawnError(t *testing.T) {
	r := NewRetrier(New(nil), RetryConfig{
		MaxAttempts:  2,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
	})

	res, err := r.Run(context.Background(), Command{Argv: []string{"this-binary-does-not-exist"}}, quickPolicy())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errs.IsKind(err, errs.KindSpawn))
}
