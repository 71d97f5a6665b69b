//go:build linux

package cgroup

import (
	"time"

	"github.com/sirupsen/logrus"
)

// dummyCgroups is handed out when no usable cgroup setup exists. All
// operations are no-ops and all readers report their values as
// unavailable.
type dummyCgroups struct {
	cgroupSet
}

var _ Cgroups = (*dummyCgroups)(nil)

func (d *dummyCgroups) Version() Version { return VersionUnknown }

func (d *dummyCgroups) RequireSubsystem(subsystem string, level logrus.Level) bool {
	return d.requireSubsystem(subsystem, level, d.CreateFreshChildCgroup)
}

func (d *dummyCgroups) CreateFreshChildCgroup(subsystems ...string) (Cgroups, error) {
	return Dummy(), nil
}

func (d *dummyCgroups) AddTask(pid int) error { return nil }

func (d *dummyCgroups) Tasks(subsystem string) ([]int, error) { return nil, nil }

func (d *dummyCgroups) HasTasks(dir string) (bool, error) { return false, nil }

func (d *dummyCgroups) KillAllTasks() error { return nil }

func (d *dummyCgroups) ReadCPUTime() (time.Duration, error) { return 0, nil }

func (d *dummyCgroups) ReadUsagePerCPU() (map[int]time.Duration, error) { return nil, nil }

func (d *dummyCgroups) ReadMaxMemUsage() (uint64, bool, error) { return 0, false, nil }

func (d *dummyCgroups) ReadMemPressure() (time.Duration, bool, error) { return 0, false, nil }

func (d *dummyCgroups) ReadCPUPressure() (time.Duration, bool, error) { return 0, false, nil }

func (d *dummyCgroups) ReadIOPressure() (time.Duration, bool, error) { return 0, false, nil }

func (d *dummyCgroups) ReadAvailableCPUs() ([]int, error) { return nil, nil }

func (d *dummyCgroups) ReadAvailableMems() ([]int, error) { return nil, nil }

func (d *dummyCgroups) ReadIOStat() (bytesRead, bytesWritten uint64, err error) { return 0, 0, nil }

func (d *dummyCgroups) ReadMemoryLimit() (uint64, error) { return 0, nil }

func (d *dummyCgroups) ReadOOMCount() (uint64, bool, error) { return 0, false, nil }

func (d *dummyCgroups) WriteMemoryLimit(limit uint64) error { return nil }

func (d *dummyCgroups) DisableSwap() error { return nil }
