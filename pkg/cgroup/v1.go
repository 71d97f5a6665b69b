//go:build linux

package cgroup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/runbench/go-cgroups/pkg/cgred"
	"github.com/runbench/go-cgroups/pkg/fsutil"
)

// CgroupsV1 drives the multi-hierarchy cgroup generation where every
// subsystem is mounted as its own filesystem.
type CgroupsV1 struct {
	cgroupSet
}

var _ Cgroups = (*CgroupsV1)(nil)

// NewCgroupsV1 creates an instance for the given subsystem directories.
// It panics on subsystem names this package does not know.
func NewCgroupsV1(subsystems map[string]string) *CgroupsV1 {
	for subsystem := range subsystems {
		if !knownSubsystems[subsystem] {
			panic(fmt.Sprintf("cgroup: unknown subsystem %s", subsystem))
		}
	}
	return &CgroupsV1{newCgroupSet(subsystems)}
}

// Version reports VersionV1.
func (c *CgroupsV1) Version() Version { return VersionV1 }

// v1FromSystem builds an instance from the cgroups of the current
// process. Not all subsystems are guaranteed to be present in the result,
// as a subsystem may not be mounted, so check with Has or
// RequireSubsystem before use. With fallback, a prepared system cgroup is
// substituted for hierarchies where our own cgroup is not writable.
func v1FromSystem(cgroupProcinfo io.Reader, fallback bool) (*CgroupsV1, error) {
	logrus.Debug("Analyzing /proc/mounts and /proc/self/cgroup for determining cgroups")

	var myCgroups map[string]string
	var err error
	if cgroupProcinfo == nil {
		myCgroups, err = findOwnCgroups()
	} else {
		myCgroups, err = parseProcCgroup(cgroupProcinfo)
	}
	if err != nil {
		return nil, err
	}

	parents := map[string]string{}
	for _, m := range findCgroupMounts() {
		// Ignore mount points where we do not have any access, e.g.
		// because a parent directory has insufficient permissions
		// (lxcfs mounts cgroups under /run/lxcfs in such a way).
		if unix.Access(m.mountpoint, unix.F_OK) != nil {
			continue
		}
		relPath, ok := myCgroups[m.subsystem]
		if !ok {
			logrus.Debugf("Subsystem %s is mounted at %s but missing from our cgroup memberships", m.subsystem, m.mountpoint)
			continue
		}
		dir := filepath.Join(m.mountpoint, relPath)
		if fallback && unix.Access(dir, unix.W_OK) != nil {
			fallbackDir := filepath.Join(m.mountpoint, fallbackPath)
			if st, err := os.Stat(fallbackDir); err == nil && st.IsDir() {
				dir = fallbackDir
			}
		}
		parents[m.subsystem] = dir
	}
	return NewCgroupsV1(parents), nil
}

type cgroupMount struct {
	subsystem  string
	mountpoint string
}

// findCgroupMounts returns which subsystems are mounted where. An
// unreadable mount table is logged and treated as empty.
func findCgroupMounts() []cgroupMount {
	f, err := os.Open(procMountsPath)
	if err != nil {
		logrus.Errorf("Cannot read %s: %v", procMountsPath, err)
		return nil
	}
	defer f.Close()

	var mounts []cgroupMount
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[2] != "cgroup" {
			continue
		}
		for _, option := range strings.Split(fields[3], ",") {
			if knownSubsystems[option] {
				mounts = append(mounts, cgroupMount{subsystem: option, mountpoint: fields[1]})
			}
		}
	}
	if err := sc.Err(); err != nil {
		logrus.Errorf("Cannot read %s: %v", procMountsPath, err)
	}
	return mounts
}

// RequireSubsystem checks whether the given subsystem is enabled and new
// cgroups can be created for it. See Cgroups.RequireSubsystem.
func (c *CgroupsV1) RequireSubsystem(subsystem string, level logrus.Level) bool {
	return c.requireSubsystem(subsystem, level, c.CreateFreshChildCgroup)
}

// CreateFreshChildCgroup creates a child cgroup of this one for each
// given subsystem. Subsystems sharing a hierarchy share the created
// directory. It panics on subsystems this instance does not cover.
func (c *CgroupsV1) CreateFreshChildCgroup(subsystems ...string) (Cgroups, error) {
	perSubsystem := map[string]string{}
	perParent := map[string]string{}
	for _, subsystem := range subsystems {
		parent, ok := c.subsystems[subsystem]
		if !ok {
			panic(fmt.Sprintf("cgroup: subsystem %s is missing", subsystem))
		}
		if child, ok := perParent[parent]; ok {
			// reuse the cgroup already created for this hierarchy
			perSubsystem[subsystem] = child
			continue
		}

		child, err := os.MkdirTemp(parent, childPrefix)
		if err != nil {
			return nil, err
		}
		perSubsystem[subsystem] = child
		perParent[parent] = child

		// Copy allowed cpus and memory nodes into the child, otherwise
		// no tasks can be added to it. Expected to fail if the cpuset
		// subsystem is not enabled in this hierarchy.
		copyParentAttr(parent, child, "cpuset.cpus")
		copyParentAttr(parent, child, "cpuset.mems")
	}
	return NewCgroupsV1(perSubsystem), nil
}

func copyParentAttr(parent, child, name string) {
	value, err := fsutil.ReadFile(filepath.Join(parent, name))
	if err != nil {
		return
	}
	if err := fsutil.WriteFile(filepath.Join(child, name), value); err != nil {
		logrus.Debugf("Cannot copy %s into child cgroup: %v", name, err)
	}
}

// AddTask puts the process into all cgroups of this instance.
func (c *CgroupsV1) AddTask(pid int) error {
	cgred.RegisterUnchangedProcess(pid)
	for _, dir := range c.paths {
		if err := fsutil.WriteFile(filepath.Join(dir, tasksFile), strconv.Itoa(pid)); err != nil {
			return err
		}
	}
	return nil
}

// Tasks returns the pids currently in this cgroup for the given
// subsystem.
func (c *CgroupsV1) Tasks(subsystem string) ([]int, error) {
	content, err := fsutil.ReadFile(filepath.Join(c.Path(subsystem), tasksFile))
	if err != nil {
		return nil, err
	}
	var pids []int
	for _, field := range strings.Fields(content) {
		pid, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("unexpected entry %q in tasks file: %w", field, err)
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// HasTasks reports whether the cgroup directory contains any processes.
func (c *CgroupsV1) HasTasks(dir string) (bool, error) {
	content, err := fsutil.ReadFile(filepath.Join(dir, procsFile))
	if err != nil {
		return false, err
	}
	return content != "", nil
}

// ReadCPUTime returns the total cpu time consumed by this cgroup. The
// cpuacct subsystem needs to be available.
func (c *CgroupsV1) ReadCPUTime() (time.Duration, error) {
	value, err := c.getValue(CPU, "usage")
	if err != nil {
		return 0, err
	}
	ns, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cpuacct.usage value %q: %w", value, err)
	}
	return time.Duration(ns), nil
}

// ReadUsagePerCPU returns the cpu time consumed on each core. Cores
// whose time is zero or cannot be read are left out.
func (c *CgroupsV1) ReadUsagePerCPU() (map[int]time.Duration, error) {
	value, err := c.getValue(CPU, "usage_percpu")
	if err != nil {
		return nil, err
	}
	usage := make(map[int]time.Duration)
	for core, coretime := range strings.Fields(value) {
		ns, err := strconv.ParseUint(coretime, 10, 64)
		if err != nil {
			logrus.Debugf("Could not read CPU time for core %d from kernel: %v", core, err)
			continue
		}
		if ns != 0 {
			usage[core] = time.Duration(ns)
		}
	}
	return usage, nil
}

// ReadMaxMemUsage returns the peak bytes of RAM plus swap this cgroup
// used, or ok false if the kernel does not provide the value.
func (c *CgroupsV1) ReadMaxMemUsage() (uint64, bool, error) {
	usageFile := "memsw.max_usage_in_bytes"
	if !c.hasValue(Memory, usageFile) {
		usageFile = "max_usage_in_bytes"
	}
	if !c.hasValue(Memory, usageFile) {
		return 0, false, nil
	}
	value, err := c.getValue(Memory, usageFile)
	if err != nil {
		if errors.Is(err, unix.ENOTSUP) {
			// kernel responds with operation unsupported if swap accounting is disabled
			logrus.Error("Kernel does not track swap memory usage, cannot measure memory usage. Please set swapaccount=1 on your kernel command line.")
			return 0, false, nil
		}
		return 0, false, err
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s value %q: %w", usageFile, value, err)
	}
	return n, true, nil
}

// ReadMemPressure is unsupported, this cgroup generation has no pressure
// accounting.
func (c *CgroupsV1) ReadMemPressure() (time.Duration, bool, error) {
	logrus.Debug("Pressure metrics not supported in cgroups v1")
	return 0, false, nil
}

// ReadCPUPressure is unsupported, this cgroup generation has no pressure
// accounting.
func (c *CgroupsV1) ReadCPUPressure() (time.Duration, bool, error) {
	logrus.Debug("Pressure metrics not supported in cgroups v1")
	return 0, false, nil
}

// ReadIOPressure is unsupported, this cgroup generation has no pressure
// accounting.
func (c *CgroupsV1) ReadIOPressure() (time.Duration, bool, error) {
	logrus.Debug("Pressure metrics not supported in cgroups v1")
	return 0, false, nil
}

// ReadAvailableCPUs returns the core numbers allowed for this cgroup.
func (c *CgroupsV1) ReadAvailableCPUs() ([]int, error) {
	value, err := c.getValue(CPUSet, "cpus")
	if err != nil {
		return nil, err
	}
	return fsutil.ParseIntList(value)
}

// ReadAvailableMems returns the memory nodes allowed for this cgroup.
func (c *CgroupsV1) ReadAvailableMems() ([]int, error) {
	value, err := c.getValue(CPUSet, "mems")
	if err != nil {
		return nil, err
	}
	return fsutil.ParseIntList(value)
}

// ReadIOStat returns the bytes transferred through block devices by this
// cgroup, accumulated over all devices.
func (c *CgroupsV1) ReadIOStat() (bytesRead, bytesWritten uint64, err error) {
	err = c.eachLine(IO, "throttle.io_service_bytes", func(line string) {
		// lines are "<device> <operation> <amount>", summary lines with a
		// different structure are skipped
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return
		}
		amount, parseErr := strconv.ParseUint(fields[2], 10, 64)
		if parseErr != nil {
			return
		}
		switch fields[1] {
		case "Read":
			bytesRead += amount
		case "Write":
			bytesWritten += amount
		}
	})
	return bytesRead, bytesWritten, err
}

// WriteMemoryLimit limits the RAM plus swap usage of this cgroup. We need
// the swap limit because otherwise the kernel just starts swapping out
// the processes when the limit is reached. Kernels without that feature
// are only accepted if the machine has no swap at all, anything else is a
// fatal configuration problem.
func (c *CgroupsV1) WriteMemoryLimit(limit uint64) error {
	value := strconv.FormatUint(limit, 10)
	if err := c.setValue(Memory, "limit_in_bytes", value); err != nil {
		return err
	}

	swapLimitFile := "memsw.limit_in_bytes"
	if !c.hasValue(Memory, swapLimitFile) {
		if hasSwap() {
			exitFatal(`Kernel misses feature for accounting swap memory, but machine has swap. Please set swapaccount=1 on your kernel command line or disable swap with "sudo swapoff -a".`)
		}
		return nil
	}
	if err := c.setValue(Memory, swapLimitFile, value); err != nil {
		if errors.Is(err, unix.ENOTSUP) {
			// kernel responds with operation unsupported if this is disabled
			exitFatal(`Memory limit specified, but kernel does not allow limiting swap memory. Please set swapaccount=1 on your kernel command line or disable swap with "sudo swapoff -a".`)
		}
		return err
	}
	return nil
}

// ReadMemoryLimit returns the current memory limit in bytes.
func (c *CgroupsV1) ReadMemoryLimit() (uint64, error) {
	value, err := c.getValue(Memory, "limit_in_bytes")
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory.limit_in_bytes value %q: %w", value, err)
	}
	return n, nil
}

// ReadOOMCount is unsupported, this cgroup generation reports
// out-of-memory events through the eventfd notification interface
// instead.
func (c *CgroupsV1) ReadOOMCount() (uint64, bool, error) {
	return 0, false, nil
}

// DisableSwap forbids swapping for this cgroup completely, unlike a
// global swappiness of 0. Processes may get killed sooner because of
// this.
func (c *CgroupsV1) DisableSwap() error {
	return c.setValue(Memory, "swappiness", "0")
}
