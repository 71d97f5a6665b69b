//go:build linux

package cgroup

// Subsystems of the multi-hierarchy cgroup generation used for
// measurements and limits.
const (
	IO     = "blkio"
	CPU    = "cpuacct"
	CPUSet = "cpuset"
	Freeze = "freezer"
	Memory = "memory"
)

// knownSubsystems also contains subsystems this package does not use
// itself but accepts as mount options of cgroup hierarchies.
var knownSubsystems = map[string]bool{
	IO:     true,
	CPU:    true,
	CPUSet: true,
	Freeze: true,
	Memory: true,
	// other subsystems users might have mounted
	"cpu":        true,
	"devices":    true,
	"net_cls":    true,
	"net_prio":   true,
	"hugetlb":    true,
	"perf_event": true,
	"pids":       true,
}

const (
	// fallbackPath is tried when the cgroup of the current process is not
	// writable. The runbench-cgroup systemd service prepares it.
	fallbackPath = "system.slice/runbench-cgroup.service"

	childPrefix = "benchmark_"

	tasksFile        = "tasks"
	procsFile        = "cgroup.procs"
	freezerStateFile = "freezer.state"

	frozen = "FROZEN"
	thawed = "THAWED"
)

// replaced in tests
var (
	procMountsPath     = "/proc/mounts"
	procSelfCgroupPath = "/proc/self/cgroup"
)
