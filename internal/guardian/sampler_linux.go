//go:build linux

package guardian

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var errMalformedStat = errors.New("malformed proc stat line")

// userHZ is the kernel's USER_HZ, the unit of utime/stime in /proc stat.
// It has been 100 on every supported architecture for decades.
const userHZ = 100.0

// procStat is the subset of /proc/<pid>/stat the sampler needs.
type procStat struct {
	pid     int
	ppid    int
	jiffies float64 // utime + stime
	rssMB   float64
}

// procfsSampler aggregates RSS and CPU over a process tree by reading
// the proc filesystem. CPU utilization is derived from the jiffy delta
// per pid between consecutive samples.
type procfsSampler struct {
	root       int
	procRoot   string
	pageSizeMB float64
	prevJiffy  map[int]float64
	prevAt     time.Time
}

func newPlatformSampler(pid int) TreeSampler {
	return &procfsSampler{
		root:       pid,
		procRoot:   "/proc",
		pageSizeMB: float64(os.Getpagesize()) / (1024 * 1024),
		prevJiffy:  make(map[int]float64),
	}
}

func (s *procfsSampler) Sample(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	now := time.Now()
	stats, err := s.readProcessTable()
	if err != nil {
		return Sample{}, err
	}

	tree := descendantsOf(s.root, stats)
	if len(tree) == 0 {
		// Root already exited; the wait mechanism reports death.
		return Sample{Taken: now}, nil
	}

	var rssMB, cpuPercent float64
	curJiffy := make(map[int]float64, len(tree))
	wall := now.Sub(s.prevAt).Seconds()

	for _, st := range tree {
		rssMB += st.rssMB
		curJiffy[st.pid] = st.jiffies

		if s.prevAt.IsZero() || wall <= 0 {
			continue
		}
		delta := st.jiffies
		if prev, ok := s.prevJiffy[st.pid]; ok {
			delta = st.jiffies - prev
		}
		if delta < 0 {
			// Pid reuse between samples; skip rather than report garbage.
			continue
		}
		cpuPercent += delta / userHZ / wall * 100
	}

	s.prevJiffy = curJiffy
	s.prevAt = now

	return Sample{Taken: now, RSSMB: rssMB, CPUPercent: cpuPercent}, nil
}

// readProcessTable reads every numeric /proc entry that is still readable.
// Processes that vanish between enumeration and read are skipped.
func (s *procfsSampler) readProcessTable() (map[int]procStat, error) {
	entries, err := os.ReadDir(s.procRoot)
	if err != nil {
		return nil, err
	}

	stats := make(map[int]procStat, len(entries))
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		st, err := s.readStat(pid)
		if err != nil {
			continue
		}
		stats[pid] = st
	}
	return stats, nil
}

func (s *procfsSampler) readStat(pid int) (procStat, error) {
	data, err := os.ReadFile(filepath.Join(s.procRoot, strconv.Itoa(pid), "stat"))
	if err != nil {
		return procStat{}, err
	}
	return parseProcStat(pid, string(data), s.pageSizeMB)
}

// parseProcStat extracts ppid, cumulative jiffies, and RSS from a
// /proc/<pid>/stat line. The comm field may contain spaces and
// parentheses, so fields are counted from the last ')'.
func parseProcStat(pid int, line string, pageSizeMB float64) (procStat, error) {
	end := strings.LastIndexByte(line, ')')
	if end < 0 || end+2 > len(line) {
		return procStat{}, errMalformedStat
	}
	fields := strings.Fields(line[end+2:])
	// After comm: state=0, ppid=1, utime=11, stime=12, rss=21.
	if len(fields) < 22 {
		return procStat{}, errMalformedStat
	}

	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return procStat{}, errMalformedStat
	}
	utime, err := strconv.ParseFloat(fields[11], 64)
	if err != nil {
		return procStat{}, errMalformedStat
	}
	stime, err := strconv.ParseFloat(fields[12], 64)
	if err != nil {
		return procStat{}, errMalformedStat
	}
	rssPages, err := strconv.ParseFloat(fields[21], 64)
	if err != nil {
		return procStat{}, errMalformedStat
	}

	return procStat{
		pid:     pid,
		ppid:    ppid,
		jiffies: utime + stime,
		rssMB:   rssPages * pageSizeMB,
	}, nil
}

// descendantsOf returns the stats of root and every process whose
// ancestry chain includes root.
func descendantsOf(root int, stats map[int]procStat) []procStat {
	children := make(map[int][]int, len(stats))
	for pid, st := range stats {
		children[st.ppid] = append(children[st.ppid], pid)
	}

	var tree []procStat
	queue := []int{root}
	seen := map[int]bool{}
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		if seen[pid] {
			continue
		}
		seen[pid] = true
		st, ok := stats[pid]
		if !ok {
			continue
		}
		tree = append(tree, st)
		queue = append(queue, children[pid]...)
	}
	return tree
}
