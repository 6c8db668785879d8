package guardian

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	errs "github.com/dht-tools/dht/internal/errors"
)

// DefaultGraceWindow is how long the guardian waits between the graceful
// terminate signal and the forceful kill.
const DefaultGraceWindow = 2 * time.Second

// Command describes one command to run under supervision. Argv is executed
// directly, without shell interpretation: the first element is the
// executable, the rest are literal arguments.
type Command struct {
	Argv []string
	// Dir is the working directory. Empty means the caller's current
	// directory. If set, it must exist.
	Dir string
	// Env holds extra environment entries appended to the parent's.
	Env []string
}

// Guardian runs commands under a LimitPolicy. It is stateless across runs
// and safe for concurrent use; every Run carries its own monitor loop.
type Guardian struct {
	logger     *log.Logger
	newSampler SamplerFactory
	grace      time.Duration
}

// Option configures a Guardian.
type Option func(*Guardian)

// WithSamplerFactory overrides the platform sampler. Used by tests to
// inject deterministic resource readings.
func WithSamplerFactory(f SamplerFactory) Option {
	return func(g *Guardian) { g.newSampler = f }
}

// WithGraceWindow overrides the terminate-to-kill escalation window.
func WithGraceWindow(d time.Duration) Option {
	return func(g *Guardian) { g.grace = d }
}

// New creates a Guardian. A nil logger is replaced with a discard logger
// so callers never need to nil-check before logging.
func New(logger *log.Logger, opts ...Option) *Guardian {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	g := &Guardian{
		logger:     logger,
		newSampler: NewTreeSampler,
		grace:      DefaultGraceWindow,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run spawns the command and supervises it until it exits or violates the
// policy. The returned error is reserved for failures of the guardian's own
// operation: invalid input, a working directory that does not exist, or a
// command that could not be spawned at all. A command that ran and failed,
// or that was killed for a resource violation, is reported through the
// Result, never through the error.
func (g *Guardian) Run(ctx context.Context, cmd Command, policy LimitPolicy) (*Result, error) {
	const op = "guardian.Run"

	if len(cmd.Argv) == 0 {
		return nil, errs.Validation(op, "empty argument vector")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if cmd.Dir != "" {
		info, err := os.Stat(cmd.Dir)
		if err != nil || !info.IsDir() {
			return nil, errs.Spawn(op, "working directory does not exist").WithDetail("dir", cmd.Dir)
		}
	}

	logger := g.logger.With("run", uuid.NewString()[:8], "argv0", cmd.Argv[0])

	var stdout, stderr bytes.Buffer
	proc := exec.Command(cmd.Argv[0], cmd.Argv[1:]...) // #nosec G204 -- argv comes from the caller by contract
	proc.Dir = cmd.Dir
	proc.Stdout = &stdout
	proc.Stderr = &stderr
	if len(cmd.Env) > 0 {
		proc.Env = append(os.Environ(), cmd.Env...)
	}
	setProcessGroup(proc)
	// Bounds how long Wait blocks on the stdout/stderr pipes after the
	// root exits. A descendant that escapes the process group can hold
	// the inherited pipe ends open forever otherwise.
	proc.WaitDelay = g.grace

	start := time.Now()
	if err := proc.Start(); err != nil {
		return nil, errs.SpawnWrap(err, op, "cannot start command").WithDetail("argv0", cmd.Argv[0])
	}
	pid := proc.Process.Pid
	logger.Debug("spawned", "pid", pid, "timeout", policy.Timeout, "memory_mb", policy.MemoryMB)

	// Wait runs concurrently with the monitor loop; whichever observes
	// termination first determines the outcome.
	waitCh := make(chan error, 1)
	go func() {
		waitCh <- proc.Wait()
	}()

	sampler := g.newSampler(pid)
	ticker := time.NewTicker(policy.PollInterval)
	defer ticker.Stop()

	var (
		peakMB    float64
		reason    KillReason
		cpuStreak int
		waitErr   error
		exited    bool
	)

	for !exited && reason == KillNone {
		select {
		case waitErr = <-waitCh:
			exited = true

		case <-ctx.Done():
			g.terminate(pid, logger)
			waitErr = <-waitCh
			return nil, errs.Wrap(ctx.Err(), errs.KindCanceled, op, "run canceled by caller")

		case <-ticker.C:
			if time.Since(start) >= policy.Timeout {
				reason = KillTimeout
				continue
			}
			sample, err := sampler.Sample(ctx)
			if err != nil {
				// Transient: skip this tick, keep the CPU streak as is.
				logger.Debug("sample failed", "err", err)
				continue
			}
			if sample.RSSMB > peakMB {
				peakMB = sample.RSSMB
			}
			switch {
			case sample.RSSMB > float64(policy.MemoryMB):
				// Memory is a hard instantaneous ceiling: OOM-prone
				// processes can spike between two polls.
				reason = KillMemory
			case sample.CPUPercent > float64(policy.CPUPercent):
				cpuStreak++
				if cpuStreak >= policy.sustainedPolls() {
					reason = KillCPU
				}
			default:
				cpuStreak = 0
			}
		}
	}

	if reason != KillNone {
		logger.Info("resource ceiling crossed", "reason", reason, "peak_mem_mb", peakMB)
		g.terminate(pid, logger)
		// The result is only valid once the OS confirms the tree is gone.
		waitErr = <-waitCh
	}

	elapsed := time.Since(start)
	result := &Result{
		Stdout:        stdout.String(),
		Stderr:        stderr.String(),
		ExecutionTime: elapsed,
		PeakMemoryMB:  peakMB,
		Killed:        reason != KillNone,
		Reason:        reason,
	}

	switch {
	case reason != KillNone:
		result.ReturnCode = KilledReturnCode
	case waitErr == nil:
		result.ReturnCode = 0
	case stderrors.Is(waitErr, exec.ErrWaitDelay):
		// The command exited cleanly but something it spawned still held
		// the output pipes when the delay expired.
		result.ReturnCode = proc.ProcessState.ExitCode()
	default:
		var exitErr *exec.ExitError
		if !stderrors.As(waitErr, &exitErr) {
			return nil, errs.InternalWrap(waitErr, op, "wait failed")
		}
		result.ReturnCode = exitErr.ExitCode()
	}

	logger.Debug("finished", "result", result.String())
	return result, nil
}

// terminate applies the two-step escalation to the process group: graceful
// signal, grace window, forceful kill.
func (g *Guardian) terminate(pid int, logger *log.Logger) {
	if err := gracefulStop(pid); err != nil {
		logger.Debug("graceful stop failed", "err", err)
	}

	deadline := time.NewTimer(g.grace)
	defer deadline.Stop()
	probe := time.NewTicker(50 * time.Millisecond)
	defer probe.Stop()

	for {
		select {
		case <-deadline.C:
			if err := forceKill(pid); err != nil {
				logger.Warn("force kill failed", "pid", pid, "err", err)
			}
			return
		case <-probe.C:
			if !groupAlive(pid) {
				return
			}
		}
	}
}
