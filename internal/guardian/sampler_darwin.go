//go:build darwin

package guardian

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// psSampler aggregates RSS and CPU over a process tree by parsing ps
// output. The kernel keeps no procfs on darwin, and task_info requires
// entitlements for non-child processes, so ps is the portable read.
type psSampler struct {
	root int
}

func newPlatformSampler(pid int) TreeSampler {
	return &psSampler{root: pid}
}

func (s *psSampler) Sample(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	now := time.Now()
	out, err := exec.CommandContext(ctx, "ps", "-axo", "pid=,ppid=,rss=,pcpu=").Output()
	if err != nil {
		return Sample{}, err
	}

	type psRow struct {
		ppid  int
		rssMB float64
		pcpu  float64
	}
	rows := make(map[int]psRow)
	for _, line := range bytes.Split(out, []byte("\n")) {
		fields := strings.Fields(string(line))
		if len(fields) < 4 {
			continue
		}
		pid, err1 := strconv.Atoi(fields[0])
		ppid, err2 := strconv.Atoi(fields[1])
		rssKB, err3 := strconv.ParseFloat(fields[2], 64)
		pcpu, err4 := strconv.ParseFloat(fields[3], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		rows[pid] = psRow{ppid: ppid, rssMB: rssKB / 1024, pcpu: pcpu}
	}

	if _, ok := rows[s.root]; !ok {
		// Root already exited; the wait mechanism reports death.
		return Sample{Taken: now}, nil
	}

	children := make(map[int][]int, len(rows))
	for pid, row := range rows {
		children[row.ppid] = append(children[row.ppid], pid)
	}

	var sample Sample
	sample.Taken = now
	queue := []int{s.root}
	seen := map[int]bool{}
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		if seen[pid] {
			continue
		}
		seen[pid] = true
		row, ok := rows[pid]
		if !ok {
			continue
		}
		sample.RSSMB += row.rssMB
		sample.CPUPercent += row.pcpu
		queue = append(queue, children[pid]...)
	}
	return sample, nil
}
