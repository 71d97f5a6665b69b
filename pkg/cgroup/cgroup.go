//go:build linux

package cgroup

import (
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Cgroups represents one cgroup, or one cgroup per hierarchy on the
// multi-hierarchy generation, that processes can be added to, measured,
// limited, and cleaned up through.
//
// Readers whose underlying kernel attribute does not exist on the current
// generation or configuration report ok false instead of an error.
type Cgroups interface {
	// Version reports which cgroup generation this instance drives.
	Version() Version

	// Has reports whether this instance covers the given subsystem.
	Has(subsystem string) bool
	// Path returns the cgroup directory for the given subsystem. It
	// panics when the subsystem is not covered, check with Has first.
	Path(subsystem string) string
	// String describes the distinct cgroup directories of this instance.
	String() string

	// RequireSubsystem checks whether the given subsystem is enabled and
	// new cgroups can be created for it. A subsystem that exists but is
	// not usable is dropped from this instance, so further Has calls
	// return false. Problems are logged once at the given level.
	RequireSubsystem(subsystem string, level logrus.Level) bool
	// HandleErrors terminates the program with a message explaining how
	// to fix the setup if any of the given subsystems, which the caller
	// requires, turned out unusable in earlier RequireSubsystem calls.
	HandleErrors(criticalCgroups ...string)

	// CreateFreshChildCgroup creates a child cgroup of this one for each
	// given subsystem and returns an instance representing the children.
	CreateFreshChildCgroup(subsystems ...string) (Cgroups, error)
	// AddTask puts the process into all cgroups of this instance.
	AddTask(pid int) error
	// Tasks returns the pids currently in this cgroup for the given
	// subsystem.
	Tasks(subsystem string) ([]int, error)
	// HasTasks reports whether the cgroup directory contains any
	// processes.
	HasTasks(dir string) (bool, error)
	// KillAllTasks kills all tasks in this cgroup and all its child
	// cgroups forcefully, and deletes the child cgroups.
	KillAllTasks() error
	// Remove removes all cgroups of this instance from the system. The
	// instance is not usable afterwards.
	Remove()

	// ReadCPUTime returns the total cpu time consumed by this cgroup.
	ReadCPUTime() (time.Duration, error)
	// ReadUsagePerCPU returns the cpu time consumed on each core.
	ReadUsagePerCPU() (map[int]time.Duration, error)
	// ReadMaxMemUsage returns the peak bytes of RAM plus swap used.
	ReadMaxMemUsage() (uint64, bool, error)
	// ReadMemPressure returns the total memory stall time of the cgroup.
	ReadMemPressure() (time.Duration, bool, error)
	// ReadCPUPressure returns the total cpu stall time of the cgroup.
	ReadCPUPressure() (time.Duration, bool, error)
	// ReadIOPressure returns the total io stall time of the cgroup.
	ReadIOPressure() (time.Duration, bool, error)
	// ReadAvailableCPUs returns the core numbers allowed for this cgroup.
	ReadAvailableCPUs() ([]int, error)
	// ReadAvailableMems returns the memory nodes allowed for this cgroup.
	ReadAvailableMems() ([]int, error)
	// ReadIOStat returns the bytes transferred through block devices,
	// accumulated over all devices.
	ReadIOStat() (bytesRead, bytesWritten uint64, err error)
	// ReadMemoryLimit returns the current memory limit in bytes.
	ReadMemoryLimit() (uint64, error)
	// ReadOOMCount returns how many processes were oom killed.
	ReadOOMCount() (uint64, bool, error)

	// WriteMemoryLimit limits the RAM plus swap usage of this cgroup.
	WriteMemoryLimit(limit uint64) error
	// DisableSwap forbids swapping for this cgroup completely.
	DisableSwap() error
}

// ErrNoV2Support is returned when the system runs the unified hierarchy
// but no implementation for it was registered.
var ErrNoV2Support = errors.New("no support for the unified cgroup hierarchy in this build")

// Factories of the unified-hierarchy implementation. Its package installs
// them through RegisterV2 so that it is only linked in when imported.
var (
	initializeV2 func() (Cgroups, error)
	fromSystemV2 func(io.Reader) (Cgroups, error)
)

// RegisterV2 installs the factories for the unified hierarchy, meant to be
// called from an init function of the implementing package.
func RegisterV2(initialize func() (Cgroups, error), fromSystem func(io.Reader) (Cgroups, error)) {
	initializeV2 = initialize
	fromSystemV2 = fromSystem
}

// Initialize tries to find or create a usable cgroup and returns a
// Cgroups instance representing it.
//
// Calling this may affect the cgroup of the current process, for example
// it may be moved. It is safe to call more than once, later calls do not
// produce further changes.
//
// Initialize cannot guarantee that a usable cgroup is found, but it
// always returns an instance. Call RequireSubsystem on it to find out
// which subsystems, if any, are usable. Callers should typically use the
// returned instance only for creating child cgroups and not add tasks to
// it directly.
func Initialize() (Cgroups, error) {
	version, err := DetectVersion()
	if err != nil {
		logrus.Warnf("Cannot detect cgroup version: %v", err)
		return Dummy(), nil
	}
	switch version {
	case VersionV1:
		return v1FromSystem(nil, true)
	case VersionV2:
		if initializeV2 != nil {
			return initializeV2()
		}
		logrus.Warn("Unified cgroup hierarchy found, but support for it is not available")
	}
	return Dummy(), nil
}

// FromSystem returns a Cgroups instance representing the current cgroup
// of the process. If cgroupProcinfo is non-nil it is parsed instead of
// /proc/self/cgroup.
func FromSystem(cgroupProcinfo io.Reader) (Cgroups, error) {
	version, err := DetectVersion()
	if err != nil {
		return nil, err
	}
	switch version {
	case VersionV1:
		return v1FromSystem(cgroupProcinfo, false)
	case VersionV2:
		if fromSystemV2 != nil {
			return fromSystemV2(cgroupProcinfo)
		}
		return nil, ErrNoV2Support
	}
	return nil, ErrVersionNotDetected
}

// Dummy returns an instance whose operations are safe no-ops, for
// systems without usable cgroups.
func Dummy() Cgroups {
	return &dummyCgroups{newCgroupSet(nil)}
}
