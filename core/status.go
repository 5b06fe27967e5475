package core

import (
	"bufio"
	"context"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// ConsoleStatus is the aggregate shown on the admin dashboard.
type ConsoleStatus struct {
	InstanceID string `json:"instance_id"`
	Users      struct {
		Bootstrap int `json:"bootstrap"`
		Persisted int `json:"persisted"`
	} `json:"users"`
	Store struct {
		Backend   string `json:"backend"`
		Reachable bool   `json:"reachable"`
		Error     string `json:"error,omitempty"`
	} `json:"store"`
	Memory struct {
		UsedBytes  uint64 `json:"used_bytes"`
		TotalBytes uint64 `json:"total_bytes"`
		SysBytes   uint64 `json:"sys_bytes"`
	} `json:"memory"`
	NumGoroutine  int   `json:"num_goroutine"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// CollectConsoleStatus is best-effort: a store failure is reported in the
// result rather than returned.
func CollectConsoleStatus(ctx context.Context, dir *UserDirectory, backend, instanceID string, startedAt time.Time) ConsoleStatus {
	var st ConsoleStatus
	st.InstanceID = instanceID
	st.Store.Backend = firstNonEmpty(backend, "none")

	if dir != nil {
		st.Users.Bootstrap = len(dir.bootstrap)
		if users, err := dir.List(ctx); err != nil {
			st.Store.Error = "user store unavailable"
		} else {
			st.Store.Reachable = dir.store != nil
			st.Users.Persisted = len(users) - st.Users.Bootstrap
		}
	}

	used, total := readMemInfo()
	st.Memory.UsedBytes = used
	st.Memory.TotalBytes = total
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	st.Memory.SysBytes = ms.Sys
	st.NumGoroutine = runtime.NumGoroutine()

	if !startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(startedAt).Seconds())
	}
	return st
}

// readMemInfo returns used and total bytes using /proc/meminfo.
// If unavailable, returns zeros.
func readMemInfo() (used, total uint64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	var memTotal, memAvailable uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "MemTotal:") {
			memTotal = parseKiBLine(line)
		} else if strings.HasPrefix(line, "MemAvailable:") {
			memAvailable = parseKiBLine(line)
		}
	}
	if memTotal > 0 {
		total = memTotal
		if memAvailable <= memTotal {
			used = memTotal - memAvailable
		}
		// KiB -> bytes
		used *= 1024
		total *= 1024
	}
	return used, total
}

func parseKiBLine(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	v, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
